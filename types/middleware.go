package types

import "github.com/valyala/fasthttp"

type MiddlewareManager interface {
	Register(middleware Middleware) error
	Execute(ctx *fasthttp.RequestCtx, handler FastHTTPHandler, config *RouteConfig)
	Names() []string
}

type Middleware interface {
	Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), config *RouteConfig)
	Name() string
	Weight() int
}

// OptInMiddleware runs only on routes that list it in RouteConfig.Middlewares.
type OptInMiddleware interface {
	Middleware
	OptIn() bool
}

type MiddlewareEntry struct {
	Name       string
	Middleware Middleware
	Weight     int
}
