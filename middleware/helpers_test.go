package middleware

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/logger"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

func nopLogger() types.Logger {
	return logger.NewZapWrapper(zap.NewNop())
}

func newRequestCtx(method, uri string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)

	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	return ctx
}

func item(weight int, params map[string]interface{}) *types.MiddlewareItemConfig {
	return &types.MiddlewareItemConfig{Enabled: true, Weight: weight, Params: params}
}

// recorder is a middleware that appends its name on the way in.
type recorder struct {
	name   string
	weight int
	optIn  bool
	trace  *[]string
}

func (r *recorder) Name() string { return r.name }
func (r *recorder) Weight() int  { return r.weight }
func (r *recorder) OptIn() bool  { return r.optIn }

func (r *recorder) Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), _ *types.RouteConfig) {
	*r.trace = append(*r.trace, r.name)
	next(ctx)
}
