package database

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/logger"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

func openTestDB(t *testing.T) *Manager {
	t.Helper()

	m, err := Open(context.Background(), &types.DatabaseConfig{
		Driver:       DriverSQLite,
		DSN:          "file:" + t.Name() + "?mode=memory&cache=shared&_foreign_keys=on",
		MaxOpenConns: 1,
		Migrate:      true,
	}, logger.NewZapWrapper(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	return m
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &types.DatabaseConfig{Driver: "mysql", DSN: "x"}, logger.NewZapWrapper(zap.NewNop()))
	assert.ErrorIs(t, err, types.ErrDatabaseDriver)

	_, err = Open(context.Background(), nil, logger.NewZapWrapper(zap.NewNop()))
	assert.ErrorIs(t, err, types.ErrConfigIsNil)
}

func TestMigrations_AppliedOnce(t *testing.T) {
	m := openTestDB(t)
	ctx := context.Background()

	var count int
	require.NoError(t, m.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)

	applied, err := applyMigrations(ctx, m.DB(), DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
}

func TestMigrations_FailedFileIsNotRecorded(t *testing.T) {
	m := openTestDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"m/0001_ok.sql":  {Data: []byte("CREATE TABLE extra (id INTEGER PRIMARY KEY);")},
		"m/0002_bad.sql": {Data: []byte("CREATE TABLE broken (")},
		"m/README.md":    {Data: []byte("ignored")},
	}

	applied, err := applyMigrationsFrom(ctx, m.DB(), DriverSQLite, fsys, "m")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrMigrationFailed)
	assert.Equal(t, 1, applied)

	done, err := isApplied(ctx, m.DB(), DriverSQLite, "0002_bad.sql")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestSQLPool_AcquireQueryRelease(t *testing.T) {
	m := openTestDB(t)
	ctx := context.Background()

	conn, err := m.Pool().Acquire(ctx)
	require.NoError(t, err)
	assert.NoError(t, conn.Query(ctx, "SELECT 1"))
	assert.Error(t, conn.Query(ctx, "SELECT * FROM missing_table"))
	require.NoError(t, conn.Release())

	// The single pooled connection must be back for reuse.
	conn, err = m.Pool().Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Release())
}

func TestManager_HealthAndClose(t *testing.T) {
	m := openTestDB(t)
	ctx := context.Background()

	check := m.HealthCheck(ctx)
	assert.Equal(t, types.StatusHealthy, check.Status)
	assert.Equal(t, DriverSQLite, check.Details["driver"])

	require.NoError(t, m.Close())
	assert.NoError(t, m.Close())
	assert.Equal(t, types.StatusUnhealthy, m.HealthCheck(ctx).Status)
}

func TestRepository_ProfileNotFound(t *testing.T) {
	repo := openTestDB(t).Repository()

	_, err := repo.Profile(context.Background())
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = repo.Project(context.Background(), 42)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRepository_ReadsContent(t *testing.T) {
	m := openTestDB(t)
	ctx := context.Background()

	_, err := m.DB().ExecContext(ctx, `
INSERT INTO profile (id, name, title, email) VALUES (1, 'Fahmid', 'Software Engineer', 'me@example.com');
INSERT INTO education (institution, degree, field, start_year, end_year) VALUES
    ('BUET', 'BSc', 'CSE', 2019, 2024),
    ('Notre Dame College', 'HSC', 'Science', 2016, 2018);
INSERT INTO skills (name, category, level) VALUES ('Go', 'language', 8), ('Redis', 'database', 6);
INSERT INTO projects (title, description, tech_stack, featured) VALUES
    ('Cache', 'two tier cache', '["go","redis"]', 0),
    ('Portfolio', 'this site', '["go","react"]', 1);
INSERT INTO research (title, venue, year) VALUES ('Paper', 'Conf', 2023);
INSERT INTO achievements (title, issuer, year) VALUES ('ICPC Regional', 'ICPC', 2022);
INSERT INTO coding_stats (platform, handle, rating, solved) VALUES ('codeforces', 'fahmid', 1800, 900);
`)
	require.NoError(t, err)

	repo := m.Repository()

	profile, err := repo.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Fahmid", profile.Name)
	assert.Equal(t, "me@example.com", profile.Email)

	education, err := repo.Education(ctx)
	require.NoError(t, err)
	require.Len(t, education, 2)
	assert.Equal(t, "BUET", education[0].Institution)

	skills, err := repo.Skills(ctx)
	require.NoError(t, err)
	assert.Len(t, skills, 2)

	projects, err := repo.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "Portfolio", projects[0].Title)
	assert.True(t, projects[0].Featured)
	assert.Equal(t, []string{"go", "react"}, projects[0].TechStack)

	project, err := repo.Project(ctx, projects[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Cache", project.Title)

	research, err := repo.Research(ctx)
	require.NoError(t, err)
	assert.Len(t, research, 1)

	achievements, err := repo.Achievements(ctx)
	require.NoError(t, err)
	assert.Len(t, achievements, 1)

	stats, err := repo.CodingStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1800, stats[0].Rating)
}

func TestRepository_EmptyListsAreNotNil(t *testing.T) {
	skills, err := openTestDB(t).Repository().Skills(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, skills)
	assert.Empty(t, skills)
}

func TestRepository_MessagesRoundTrip(t *testing.T) {
	repo := openTestDB(t).Repository()
	ctx := context.Background()

	older := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	require.NoError(t, repo.CreateMessage(ctx, &types.Message{
		ID: "a", Name: "Ann", Email: "ann@example.com", Body: "hello", CreatedAt: older,
	}))
	require.NoError(t, repo.CreateMessage(ctx, &types.Message{
		ID: "b", Name: "Bob", Email: "bob@example.com", Subject: "hi", Body: "there", CreatedAt: newer,
	}))

	assert.ErrorIs(t, repo.CreateMessage(ctx, &types.Message{}), types.ErrInvalidParameter)

	messages, err := repo.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "b", messages[0].ID)
	assert.Equal(t, "hi", messages[0].Subject)
	assert.True(t, messages[0].CreatedAt.Equal(newer))
}

func TestRebind(t *testing.T) {
	query := "SELECT 1 FROM t WHERE a = ? AND b = ?"
	assert.Equal(t, query, rebind(DriverSQLite, query))
	assert.Equal(t, "SELECT 1 FROM t WHERE a = $1 AND b = $2", rebind(DriverPostgres, query))
}
