package database

import (
	"context"
	"database/sql"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

// SQLPool hands out dedicated connections from a *sql.DB.
type SQLPool struct {
	db *sql.DB
}

func NewSQLPool(db *sql.DB) *SQLPool {
	return &SQLPool{db: db}
}

func (p *SQLPool) Acquire(ctx context.Context) (types.PoolConn, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, types.Errorf(types.ErrPoolAcquireFailed, "%v", err)
	}
	return &sqlConn{conn: conn}, nil
}

type sqlConn struct {
	conn *sql.Conn
}

func (c *sqlConn) Query(ctx context.Context, query string) error {
	var result int
	return c.conn.QueryRowContext(ctx, query).Scan(&result)
}

func (c *sqlConn) Release() error {
	return c.conn.Close()
}
