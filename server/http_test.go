package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/logger"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/middleware"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/utils"
)

func newTestServer(t *testing.T) *FastHTTPServer {
	t.Helper()

	log := logger.NewZapWrapper(zap.NewNop())
	mw := middleware.NewManager(log, nil)
	require.NoError(t, mw.RegisterFromConfig(&types.MiddlewaresConfig{
		Enabled:  true,
		Recovery: &types.MiddlewareItemConfig{Enabled: true, Weight: 10},
		Metadata: &types.MiddlewareItemConfig{Enabled: true, Weight: 20},
	}, middleware.Dependencies{}))

	srv := NewHTTPServer(&types.HTTPConfig{Host: "127.0.0.1", Port: 0}, log, mw, nil)

	srv.Routes().GET("/api/projects/{id}", func(ctx *fasthttp.RequestCtx) {
		utils.WriteJSON(ctx, fasthttp.StatusOK, map[string]interface{}{"id": ctx.UserValue("id")})
	})
	srv.Routes().GET("/panic", func(*fasthttp.RequestCtx) { panic("boom") })

	return srv
}

func serve(srv *FastHTTPServer, method, uri string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)

	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	srv.Handler()(ctx)
	return ctx
}

func TestServer_RoutesWithParams(t *testing.T) {
	ctx := serve(newTestServer(t), "GET", "/api/projects/7")

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"id":"7"}`, string(ctx.Response.Body()))
	assert.NotEmpty(t, ctx.Response.Header.Peek(middleware.HeaderRequestID))
}

func TestServer_NotFoundAndMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	ctx := serve(srv, "GET", "/missing")
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	assert.True(t, utils.IsJSON(ctx))

	ctx = serve(srv, "POST", "/api/projects/7")
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, ctx.Response.StatusCode())
	assert.Equal(t, "GET", string(ctx.Response.Header.Peek(fasthttp.HeaderAllow)))

	ctx = serve(srv, "OPTIONS", "/api/projects/7")
	assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode())
}

func TestServer_PanicIsRecovered(t *testing.T) {
	ctx := serve(newTestServer(t), "GET", "/panic")
	assert.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
}

func TestServer_Lifecycle(t *testing.T) {
	srv := newTestServer(t)

	require.NoError(t, srv.Start())
	assert.True(t, srv.IsRunning())
	assert.ErrorIs(t, srv.Start(), types.ErrServerAlreadyRunning)

	status, body, err := fasthttp.Get(nil, "http://"+srv.Addr()+"/api/projects/3")
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusOK, status)
	assert.JSONEq(t, `{"id":"3"}`, string(body))

	require.NoError(t, srv.Stop())
	assert.False(t, srv.IsRunning())
	assert.ErrorIs(t, srv.Stop(), types.ErrServerNotRunning)
}
