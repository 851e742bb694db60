package database

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/utils"
)

// Repository reads the portfolio content and stores contact messages.
type Repository struct {
	db     *sql.DB
	driver string
}

func NewRepository(db *sql.DB, driver string) *Repository {
	return &Repository{db: db, driver: driver}
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *Repository) Profile(ctx context.Context) (*types.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT name, title, bio, email, location, github, linkedin FROM profile WHERE id = 1`)

	var p types.Profile
	err := row.Scan(&p.Name, &p.Title, &p.Bio, &p.Email, &p.Location, &p.GitHub, &p.LinkedIn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.Errorf(types.ErrNotFound, "profile")
	}
	if err != nil {
		return nil, types.WrapError(err, "failed to read profile")
	}

	return &p, nil
}

func (r *Repository) Education(ctx context.Context) ([]types.Education, error) {
	return queryAll(ctx, r, "education",
		`SELECT id, institution, degree, field, start_year, end_year, grade
		 FROM education ORDER BY start_year DESC, id`,
		func(s scanner) (types.Education, error) {
			var e types.Education
			err := s.Scan(&e.ID, &e.Institution, &e.Degree, &e.Field, &e.StartYear, &e.EndYear, &e.Grade)
			return e, err
		})
}

func (r *Repository) Skills(ctx context.Context) ([]types.Skill, error) {
	return queryAll(ctx, r, "skills",
		`SELECT id, name, category, level FROM skills ORDER BY category, level DESC, name`,
		func(s scanner) (types.Skill, error) {
			var sk types.Skill
			err := s.Scan(&sk.ID, &sk.Name, &sk.Category, &sk.Level)
			return sk, err
		})
}

func (r *Repository) Projects(ctx context.Context) ([]types.Project, error) {
	return queryAll(ctx, r, "projects",
		`SELECT id, title, description, tech_stack, repo_url, live_url, featured
		 FROM projects ORDER BY featured DESC, id`,
		scanProject)
}

func (r *Repository) Project(ctx context.Context, id int64) (*types.Project, error) {
	row := r.db.QueryRowContext(ctx, rebind(r.driver,
		`SELECT id, title, description, tech_stack, repo_url, live_url, featured
		 FROM projects WHERE id = ?`), id)

	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.Errorf(types.ErrNotFound, "project %d", id)
	}
	if err != nil {
		return nil, types.WrapError(err, "failed to read project")
	}

	return &p, nil
}

func (r *Repository) Research(ctx context.Context) ([]types.Research, error) {
	return queryAll(ctx, r, "research",
		`SELECT id, title, venue, year, abstract, url FROM research ORDER BY year DESC, id`,
		func(s scanner) (types.Research, error) {
			var re types.Research
			err := s.Scan(&re.ID, &re.Title, &re.Venue, &re.Year, &re.Abstract, &re.URL)
			return re, err
		})
}

func (r *Repository) Achievements(ctx context.Context) ([]types.Achievement, error) {
	return queryAll(ctx, r, "achievements",
		`SELECT id, title, issuer, year, description FROM achievements ORDER BY year DESC, id`,
		func(s scanner) (types.Achievement, error) {
			var a types.Achievement
			err := s.Scan(&a.ID, &a.Title, &a.Issuer, &a.Year, &a.Description)
			return a, err
		})
}

func (r *Repository) CodingStats(ctx context.Context) ([]types.CodingStat, error) {
	return queryAll(ctx, r, "coding stats",
		`SELECT platform, handle, rating, solved, url FROM coding_stats ORDER BY platform`,
		func(s scanner) (types.CodingStat, error) {
			var c types.CodingStat
			err := s.Scan(&c.Platform, &c.Handle, &c.Rating, &c.Solved, &c.URL)
			return c, err
		})
}

// Messages returns contact messages, newest first.
func (r *Repository) Messages(ctx context.Context) ([]types.Message, error) {
	return queryAll(ctx, r, "messages",
		`SELECT id, name, email, subject, body, created_at FROM messages ORDER BY created_at DESC, id`,
		func(s scanner) (types.Message, error) {
			var m types.Message
			err := s.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Body, &m.CreatedAt)
			return m, err
		})
}

func (r *Repository) CreateMessage(ctx context.Context, msg *types.Message) error {
	if msg == nil || msg.ID == "" {
		return types.Errorf(types.ErrInvalidParameter, "message id is required")
	}

	_, err := r.db.ExecContext(ctx, rebind(r.driver,
		`INSERT INTO messages (id, name, email, subject, body, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		msg.ID, msg.Name, msg.Email, msg.Subject, msg.Body, msg.CreatedAt.UTC())
	if err != nil {
		return types.WrapError(err, "failed to store message")
	}

	return nil
}

func scanProject(s scanner) (types.Project, error) {
	var (
		p     types.Project
		stack string
	)

	if err := s.Scan(&p.ID, &p.Title, &p.Description, &stack, &p.RepoURL, &p.LiveURL, &p.Featured); err != nil {
		return p, err
	}

	p.TechStack = []string{}
	if stack != "" {
		if err := utils.Unmarshal([]byte(stack), &p.TechStack); err != nil {
			return p, types.WrapError(err, "failed to decode tech stack")
		}
	}

	return p, nil
}

func queryAll[T any](ctx context.Context, r *Repository, what, query string, scan func(scanner) (T, error)) ([]T, error) {
	rows, err := r.db.QueryContext(ctx, rebind(r.driver, query))
	if err != nil {
		return nil, types.WrapError(err, "failed to query "+what)
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, types.WrapError(err, "failed to scan "+what)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, types.WrapError(err, "failed to read "+what)
	}

	return items, nil
}

// rebind rewrites ? placeholders to $n for postgres.
func rebind(driver, query string) string {
	if driver != DriverPostgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}

	return b.String()
}
