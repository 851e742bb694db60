package server

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/utils"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

const defaultShutdownTimeout = 5 * time.Second

type FastHTTPServer struct {
	logger          types.Logger
	middlewares     types.MiddlewareManager
	router          *Router
	httpConfig      *types.HTTPConfig
	server          *fasthttp.Server
	listener        net.Listener
	serveDone       chan struct{}
	state           atomic.Value
	shutdownTimeout time.Duration
}

func NewHTTPServer(config *types.HTTPConfig, logger types.Logger, middlewares types.MiddlewareManager, router *Router) *FastHTTPServer {
	if config == nil {
		config = &types.HTTPConfig{Host: "0.0.0.0", Port: 5000}
	}

	shutdownTimeout := config.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	if router == nil {
		router = NewRouter()
	}

	s := &FastHTTPServer{
		logger:          logger,
		middlewares:     middlewares,
		router:          router,
		httpConfig:      config,
		shutdownTimeout: shutdownTimeout,
	}

	s.state.Store(StateStopped)
	return s
}

func (h *FastHTTPServer) Router() types.HTTPRouter {
	return h.router
}

// Routes exposes the concrete router, which also supports groups.
func (h *FastHTTPServer) Routes() *Router {
	return h.router
}

// Start binds the listener synchronously, so a busy port is reported to the
// caller, then serves in the background.
func (h *FastHTTPServer) Start() error {
	if !h.transitionState(StateStopped, StateStarting) {
		return types.ErrServerAlreadyRunning
	}

	addr := fmt.Sprintf("%s:%d", h.httpConfig.Host, h.httpConfig.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		h.setState(StateStopped)
		return types.Errorf(types.ErrServerStartFailed, "listen %s: %v", addr, err)
	}

	h.server = &fasthttp.Server{
		Handler:            h.Handler(),
		Name:               "portfolio",
		ReadTimeout:        h.httpConfig.ReadTimeout,
		WriteTimeout:       h.httpConfig.WriteTimeout,
		IdleTimeout:        h.httpConfig.IdleTimeout,
		MaxRequestBodySize: h.httpConfig.MaxBodySize,
		TCPKeepalive:       true,
		CloseOnShutdown:    true,
	}
	h.listener = listener
	h.serveDone = make(chan struct{})

	go func() {
		defer close(h.serveDone)

		if err := h.server.Serve(listener); err != nil {
			h.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	h.setState(StateRunning)

	for _, route := range h.router.Routes() {
		h.logger.Debug("Route registered",
			zap.String("method", route.Method),
			zap.String("path", route.Path))
	}

	h.logger.Info("HTTP server started", zap.String("address", listener.Addr().String()))
	return nil
}

func (h *FastHTTPServer) Stop() error {
	if !h.transitionState(StateRunning, StateStopping) {
		return types.ErrServerNotRunning
	}
	defer h.setState(StateStopped)

	ctx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
	defer cancel()

	if err := h.server.ShutdownWithContext(ctx); err != nil {
		h.logger.Warn("HTTP server shutdown incomplete", zap.Error(err))
		return types.Errorf(types.ErrServerStopFailed, "%v", err)
	}

	select {
	case <-h.serveDone:
	case <-ctx.Done():
	}

	h.logger.Info("HTTP server stopped gracefully")
	return nil
}

func (h *FastHTTPServer) IsRunning() bool {
	return h.getState() == StateRunning
}

// Addr is the bound address, or "" before Start.
func (h *FastHTTPServer) Addr() string {
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// Handler routes a request and runs it through the middleware chain.
// Unknown paths get a JSON 404, known paths with another method a JSON 405.
func (h *FastHTTPServer) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		method := string(ctx.Method())
		path := string(ctx.Path())

		info, params, found := h.router.Lookup(method, path)
		if found {
			for name, value := range params {
				ctx.SetUserValue(name, value)
			}
			h.execute(ctx, info.Handler, info.Config)
			return
		}

		methods := h.router.Methods(path)
		switch {
		case len(methods) == 0:
			h.execute(ctx, func(ctx *fasthttp.RequestCtx) {
				utils.WriteError(ctx, fasthttp.StatusNotFound, "route not found")
			}, &types.RouteConfig{})
		case method == fasthttp.MethodOptions:
			h.execute(ctx, func(ctx *fasthttp.RequestCtx) {
				ctx.Response.Header.Set(fasthttp.HeaderAllow, strings.Join(methods, ", "))
				ctx.SetStatusCode(fasthttp.StatusNoContent)
			}, &types.RouteConfig{})
		default:
			h.execute(ctx, func(ctx *fasthttp.RequestCtx) {
				ctx.Response.Header.Set(fasthttp.HeaderAllow, strings.Join(methods, ", "))
				utils.WriteError(ctx, fasthttp.StatusMethodNotAllowed, "method not allowed")
			}, &types.RouteConfig{})
		}
	}
}

func (h *FastHTTPServer) execute(ctx *fasthttp.RequestCtx, handler types.FastHTTPHandler, config *types.RouteConfig) {
	if h.middlewares == nil {
		handler(ctx)
		return
	}
	h.middlewares.Execute(ctx, handler, config)
}

func (h *FastHTTPServer) getState() State {
	return h.state.Load().(State)
}

func (h *FastHTTPServer) setState(newState State) bool {
	currentState := h.getState()
	return h.state.CompareAndSwap(currentState, newState)
}

func (h *FastHTTPServer) transitionState(from, to State) bool {
	return h.state.CompareAndSwap(from, to)
}
