package types

import (
	"context"
	"time"
)

type ConnPool interface {
	Acquire(ctx context.Context) (PoolConn, error)
}

// PoolConn must be released exactly once per successful Acquire.
type PoolConn interface {
	Query(ctx context.Context, sql string) error
	Release() error
}

// PortfolioRepository is the read side of the portfolio content plus the
// contact message inbox. Single-row lookups return ErrNotFound.
type PortfolioRepository interface {
	Profile(ctx context.Context) (*Profile, error)
	Education(ctx context.Context) ([]Education, error)
	Skills(ctx context.Context) ([]Skill, error)
	Projects(ctx context.Context) ([]Project, error)
	Project(ctx context.Context, id int64) (*Project, error)
	Research(ctx context.Context) ([]Research, error)
	Achievements(ctx context.Context) ([]Achievement, error)
	CodingStats(ctx context.Context) ([]CodingStat, error)
	Messages(ctx context.Context) ([]Message, error)
	CreateMessage(ctx context.Context, msg *Message) error
}

type KeepAlive interface {
	Start(interval time.Duration) error
	Stop() error
	IsRunning() bool
	Ping(ctx context.Context) error
	Interval() time.Duration
	LastPing() (time.Time, error)
}

type Profile struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Bio      string `json:"bio"`
	Email    string `json:"email"`
	Location string `json:"location"`
	GitHub   string `json:"github"`
	LinkedIn string `json:"linkedin"`
}

type Education struct {
	ID          int64  `json:"id"`
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	StartYear   int    `json:"start_year"`
	EndYear     int    `json:"end_year,omitempty"`
	Grade       string `json:"grade,omitempty"`
}

type Skill struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Level    int    `json:"level"`
}

type Project struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	TechStack   []string `json:"tech_stack"`
	RepoURL     string   `json:"repo_url,omitempty"`
	LiveURL     string   `json:"live_url,omitempty"`
	Featured    bool     `json:"featured"`
}

type Research struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Venue    string `json:"venue"`
	Year     int    `json:"year"`
	Abstract string `json:"abstract,omitempty"`
	URL      string `json:"url,omitempty"`
}

type Achievement struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Issuer      string `json:"issuer"`
	Year        int    `json:"year"`
	Description string `json:"description,omitempty"`
}

type CodingStat struct {
	Platform string `json:"platform"`
	Handle   string `json:"handle"`
	Rating   int    `json:"rating"`
	Solved   int    `json:"solved"`
	URL      string `json:"url,omitempty"`
}

type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required,max=100"`
	Email     string    `json:"email" validate:"required,email"`
	Subject   string    `json:"subject" validate:"max=200"`
	Body      string    `json:"body" validate:"required,max=5000"`
	CreatedAt time.Time `json:"created_at"`
}
