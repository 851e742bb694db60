package middleware

import (
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/utils"
)

const corsErrorBody = `{"error":"Forbidden","message":"Origin not allowed"}`

// CORSMiddleware answers preflight requests itself and decorates simple
// requests. Origins may be exact or "*.example.com" wildcards.
type CORSMiddleware struct {
	logger          types.Logger
	corsConfig      *CORSConfig
	weight          int
	allowsAll       bool
	exactOrigins    map[string]bool
	wildcardDomains []string
	allowedMethods  string
	allowedHeaders  string
	maxAge          string
}

type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

func NewCORSMiddleware(config *types.MiddlewareItemConfig, logger types.Logger) *CORSMiddleware {
	corsConfig := &CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", HeaderRequestID},
		MaxAge:         86400,
	}

	if params := paramsOf(config); params != nil {
		if err := utils.UnmarshalConfig(params, corsConfig); err != nil {
			logger.Error("Failed to unmarshal CORS middleware config", zap.Error(err))
		}
	}

	c := &CORSMiddleware{
		logger:         logger,
		corsConfig:     corsConfig,
		weight:         weightOr(config, 40),
		exactOrigins:   make(map[string]bool),
		allowedMethods: strings.Join(corsConfig.AllowedMethods, ", "),
		allowedHeaders: strings.Join(corsConfig.AllowedHeaders, ", "),
		maxAge:         strconv.Itoa(corsConfig.MaxAge),
	}

	for _, origin := range corsConfig.AllowedOrigins {
		switch {
		case origin == "*":
			c.allowsAll = true
		case strings.HasPrefix(origin, "*."):
			c.wildcardDomains = append(c.wildcardDomains, strings.TrimPrefix(origin, "*."))
		default:
			c.exactOrigins[origin] = true
		}
	}

	return c
}

func (c *CORSMiddleware) Name() string { return "cors" }
func (c *CORSMiddleware) Weight() int  { return c.weight }

func (c *CORSMiddleware) Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), _ *types.RouteConfig) {
	origin := string(ctx.Request.Header.Peek("Origin"))
	if origin == "" {
		next(ctx)
		return
	}

	if !c.allowed(origin) {
		c.logger.Warn("CORS request blocked",
			zap.String("origin", origin),
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("path", ctx.Path()))

		ctx.SetStatusCode(fasthttp.StatusForbidden)
		ctx.SetContentType(utils.ContentTypeJSON)
		ctx.SetBodyString(corsErrorBody)
		return
	}

	if ctx.IsOptions() {
		c.setOriginHeaders(ctx, origin)
		ctx.Response.Header.Set("Access-Control-Allow-Methods", c.allowedMethods)
		ctx.Response.Header.Set("Access-Control-Allow-Headers", c.allowedHeaders)
		ctx.Response.Header.Set("Access-Control-Max-Age", c.maxAge)
		ctx.SetStatusCode(fasthttp.StatusNoContent)
		return
	}

	c.setOriginHeaders(ctx, origin)
	next(ctx)
}

func (c *CORSMiddleware) setOriginHeaders(ctx *fasthttp.RequestCtx, origin string) {
	if c.allowsAll && !c.corsConfig.AllowCredentials {
		ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	} else {
		ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
		ctx.Response.Header.Add("Vary", "Origin")
	}

	if c.corsConfig.AllowCredentials {
		ctx.Response.Header.Set("Access-Control-Allow-Credentials", "true")
	}
}

func (c *CORSMiddleware) allowed(origin string) bool {
	if c.allowsAll || c.exactOrigins[origin] {
		return true
	}

	host := origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}

	for _, domain := range c.wildcardDomains {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}

	return false
}
