package api

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/cache"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/database"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/logger"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/middleware"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/server"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/utils"
)

const adminToken = "s3cret"

var dbSeq atomic.Int64

type fakePinger struct {
	err   error
	calls int
}

func (f *fakePinger) Ping(context.Context) error {
	f.calls++
	return f.err
}

type harness struct {
	handler fasthttp.RequestHandler
	store   *cache.Store
	db      *database.Manager
}

func newHarness(t *testing.T, pinger Pinger) *harness {
	t.Helper()

	log := logger.NewZapWrapper(zap.NewNop())

	db, err := database.Open(context.Background(), &types.DatabaseConfig{
		Driver:       database.DriverSQLite,
		DSN:          fmt.Sprintf("file:api_%d?mode=memory&cache=shared", dbSeq.Add(1)),
		MaxOpenConns: 1,
		Migrate:      true,
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	seed(t, db)

	store := cache.NewStore(log, nil)

	mw := middleware.NewManager(log, nil)
	require.NoError(t, mw.RegisterFromConfig(&types.MiddlewaresConfig{
		Enabled:  true,
		Recovery: &types.MiddlewareItemConfig{Enabled: true, Weight: 10},
		Auth: &types.MiddlewareItemConfig{Enabled: true, Weight: 60, Params: map[string]interface{}{
			"token": adminToken,
		}},
		Cache: &types.MiddlewareItemConfig{Enabled: true, Weight: 70},
	}, middleware.Dependencies{Cache: store}))

	router := server.NewRouter()
	opts := []Option{WithCacheTTL(time.Minute)}
	if pinger != nil {
		opts = append(opts, WithPinger(pinger))
	}
	NewHandlers(db.Repository(), store, log, opts...).Register(router)

	srv := server.NewHTTPServer(&types.HTTPConfig{Host: "127.0.0.1"}, log, mw, router)

	return &harness{handler: srv.Handler(), store: store, db: db}
}

func seed(t *testing.T, db *database.Manager) {
	t.Helper()

	stmts := []string{
		`INSERT INTO profile (id, name, title, email) VALUES (1, 'Ada', 'Engineer', 'ada@example.com')`,
		`INSERT INTO projects (id, title, tech_stack, featured) VALUES (1, 'Compiler', '["go","llvm"]', 1)`,
		`INSERT INTO skills (name, category, level) VALUES ('Go', 'language', 5)`,
	}
	for _, stmt := range stmts {
		_, err := db.DB().ExecContext(context.Background(), stmt)
		require.NoError(t, err)
	}
}

func (h *harness) do(method, uri, token, body string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	if token != "" {
		req.Header.Set(middleware.HeaderAdminToken, token)
	}
	if body != "" {
		req.Header.SetContentType(utils.ContentTypeJSON)
		req.SetBodyString(body)
	}

	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	h.handler(ctx)
	return ctx
}

func TestContentRoutes_CachedAfterFirstRequest(t *testing.T) {
	h := newHarness(t, nil)

	first := h.do("GET", "/api/profile", "", "")
	require.Equal(t, fasthttp.StatusOK, first.Response.StatusCode())
	assert.Equal(t, "MISS", string(first.Response.Header.Peek(middleware.HeaderCache)))

	var profile types.Profile
	require.NoError(t, utils.Unmarshal(first.Response.Body(), &profile))
	assert.Equal(t, "Ada", profile.Name)

	require.NoError(t, h.store.Drain(context.Background()))

	second := h.do("GET", "/api/profile", "", "")
	assert.Equal(t, "HIT", string(second.Response.Header.Peek(middleware.HeaderCache)))
	assert.Equal(t, first.Response.Body(), second.Response.Body())
}

func TestContentRoutes_Lists(t *testing.T) {
	h := newHarness(t, nil)

	ctx := h.do("GET", "/api/skills", "", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var skills []types.Skill
	require.NoError(t, utils.Unmarshal(ctx.Response.Body(), &skills))
	require.Len(t, skills, 1)
	assert.Equal(t, "Go", skills[0].Name)

	ctx = h.do("GET", "/api/research", "", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `[]`, string(ctx.Response.Body()))
}

func TestProjectByID(t *testing.T) {
	h := newHarness(t, nil)

	ctx := h.do("GET", "/api/projects/1", "", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var project types.Project
	require.NoError(t, utils.Unmarshal(ctx.Response.Body(), &project))
	assert.Equal(t, []string{"go", "llvm"}, project.TechStack)
	assert.True(t, project.Featured)

	ctx = h.do("GET", "/api/projects/99", "", "")
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())

	ctx = h.do("GET", "/api/projects/abc", "", "")
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())

	require.NoError(t, h.store.Drain(context.Background()))
	_, cached := h.store.Get(context.Background(), "api:/api/projects/99")
	assert.False(t, cached, "error responses must not be cached")
}

func TestCreateMessage(t *testing.T) {
	h := newHarness(t, nil)

	bad := h.do("POST", "/api/messages", "", `{"name":"Bob","email":"not-an-email","body":"hi"}`)
	require.Equal(t, fasthttp.StatusBadRequest, bad.Response.StatusCode())
	assert.Contains(t, string(bad.Response.Body()), `"email":"email"`)

	malformed := h.do("POST", "/api/messages", "", `{`)
	assert.Equal(t, fasthttp.StatusBadRequest, malformed.Response.StatusCode())

	created := h.do("POST", "/api/messages", "", `{"name":" Bob ","email":"bob@example.com","body":"hello"}`)
	require.Equal(t, fasthttp.StatusCreated, created.Response.StatusCode())

	var msg types.Message
	require.NoError(t, utils.Unmarshal(created.Response.Body(), &msg))
	assert.Len(t, msg.ID, 36)
	assert.Equal(t, "Bob", msg.Name)
	assert.False(t, msg.CreatedAt.IsZero())

	stored, err := h.db.Repository().Messages(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, msg.ID, stored[0].ID)
}

func TestCreateMessage_InvalidatesCachedListing(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	profile := h.do("GET", "/api/profile", "", "")
	require.Equal(t, "MISS", string(profile.Response.Header.Peek(middleware.HeaderCache)))

	first := h.do("GET", "/api/admin/messages", adminToken, "")
	require.Equal(t, fasthttp.StatusOK, first.Response.StatusCode())
	assert.Equal(t, "MISS", string(first.Response.Header.Peek(middleware.HeaderCache)))
	assert.JSONEq(t, `[]`, string(first.Response.Body()))
	require.NoError(t, h.store.Drain(ctx))

	cached := h.do("GET", "/api/admin/messages", adminToken, "")
	assert.Equal(t, "HIT", string(cached.Response.Header.Peek(middleware.HeaderCache)))

	created := h.do("POST", "/api/messages", "", `{"name":"Bob","email":"bob@example.com","body":"hello"}`)
	require.Equal(t, fasthttp.StatusCreated, created.Response.StatusCode())

	fresh := h.do("GET", "/api/admin/messages", adminToken, "")
	require.Equal(t, fasthttp.StatusOK, fresh.Response.StatusCode())
	assert.Equal(t, "MISS", string(fresh.Response.Header.Peek(middleware.HeaderCache)))

	var listed []types.Message
	require.NoError(t, utils.Unmarshal(fresh.Response.Body(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Bob", listed[0].Name)

	_, found := h.store.Get(ctx, "api:/api/profile")
	assert.True(t, found)
}

func TestAdminListing_CacheStaysBehindToken(t *testing.T) {
	h := newHarness(t, nil)

	ok := h.do("GET", "/api/admin/messages", adminToken, "")
	require.Equal(t, fasthttp.StatusOK, ok.Response.StatusCode())
	require.NoError(t, h.store.Drain(context.Background()))

	denied := h.do("GET", "/api/admin/messages", "", "")
	assert.Equal(t, fasthttp.StatusUnauthorized, denied.Response.StatusCode())
	assert.Empty(t, denied.Response.Header.Peek(middleware.HeaderCache))
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	h := newHarness(t, nil)

	ctx := h.do("GET", "/api/admin/messages", "", "")
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())

	ctx = h.do("GET", "/api/admin/messages", "wrong", "")
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())

	ctx = h.do("GET", "/api/admin/messages", adminToken, "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `[]`, string(ctx.Response.Body()))

	ctx = h.do("GET", "/api/profile", "", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
}

func TestAdminCacheInvalidation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.store.Set(ctx, "api:/api/profile", []byte(`{}`), time.Minute)
	h.store.Set(ctx, "api:/api/projects", []byte(`[]`), time.Minute)
	h.store.Set(ctx, "api:/api/projects/1", []byte(`{}`), time.Minute)

	res := h.do("DELETE", "/api/admin/cache/api:/api/projects*", adminToken, "")
	require.Equal(t, fasthttp.StatusOK, res.Response.StatusCode())
	assert.Equal(t, 1, h.store.Len())

	_, found := h.store.Get(ctx, "api:/api/profile")
	assert.True(t, found)

	res = h.do("DELETE", "/api/admin/cache", adminToken, "")
	require.Equal(t, fasthttp.StatusOK, res.Response.StatusCode())
	assert.Zero(t, h.store.Len())

	res = h.do("DELETE", "/api/admin/cache", "", "")
	assert.Equal(t, fasthttp.StatusUnauthorized, res.Response.StatusCode())
}

func TestAdminKeepAlivePing(t *testing.T) {
	pinger := &fakePinger{}
	h := newHarness(t, pinger)

	res := h.do("POST", "/api/admin/keepalive/ping", adminToken, "")
	assert.Equal(t, fasthttp.StatusOK, res.Response.StatusCode())
	assert.Equal(t, 1, pinger.calls)

	pinger.err = errors.New("connection refused")
	res = h.do("POST", "/api/admin/keepalive/ping", adminToken, "")
	assert.Equal(t, fasthttp.StatusServiceUnavailable, res.Response.StatusCode())

	disabled := newHarness(t, nil)
	res = disabled.do("POST", "/api/admin/keepalive/ping", adminToken, "")
	assert.Equal(t, fasthttp.StatusServiceUnavailable, res.Response.StatusCode())
}
