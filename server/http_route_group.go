package server

import (
	"github.com/valyala/fasthttp"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

type RouteGroup struct {
	router      *Router
	prefix      string
	middlewares []string
	disabled    []string
}

func (g *RouteGroup) WithMiddlewares(names ...string) *RouteGroup {
	g.middlewares = append(g.middlewares, names...)
	return g
}

func (g *RouteGroup) WithoutMiddlewares(names ...string) *RouteGroup {
	g.disabled = append(g.disabled, names...)
	return g
}

func (g *RouteGroup) Route(method, path string, handler types.FastHTTPHandler) types.RouteBuilder {
	config := &types.RouteConfig{
		Middlewares:         append([]string(nil), g.middlewares...),
		DisabledMiddlewares: append([]string(nil), g.disabled...),
	}
	return g.router.Add(method, g.prefix+path, handler, config)
}

func (g *RouteGroup) GET(path string, handler types.FastHTTPHandler) types.RouteBuilder {
	return g.Route(fasthttp.MethodGet, path, handler)
}

func (g *RouteGroup) POST(path string, handler types.FastHTTPHandler) types.RouteBuilder {
	return g.Route(fasthttp.MethodPost, path, handler)
}

func (g *RouteGroup) DELETE(path string, handler types.FastHTTPHandler) types.RouteBuilder {
	return g.Route(fasthttp.MethodDelete, path, handler)
}
