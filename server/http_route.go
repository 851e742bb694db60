package server

import (
	"time"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

// RouteBuilder edits the config of a route that is already registered.
// Routes are built before the server starts, so no locking is needed.
type RouteBuilder struct {
	config *types.RouteConfig
}

func (rb *RouteBuilder) WithCache(ttl time.Duration) types.RouteBuilder {
	rb.config.Cache = &types.CacheHandlerConfig{
		Enabled: true,
		TTL:     ttl,
	}
	return rb
}

func (rb *RouteBuilder) WithMiddlewares(names ...string) types.RouteBuilder {
	rb.config.Middlewares = append(rb.config.Middlewares, names...)
	return rb
}

func (rb *RouteBuilder) WithoutMiddlewares(names ...string) types.RouteBuilder {
	rb.config.DisabledMiddlewares = append(rb.config.DisabledMiddlewares, names...)
	return rb
}
