package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/utils"
)

const HeaderAdminToken = "X-Admin-Token"

// AuthMiddleware gates admin routes behind a static shared token. It is
// opt-in: only routes that list "auth" run it.
type AuthMiddleware struct {
	logger     types.Logger
	metrics    types.MetricsManager
	authConfig *AuthConfig
	weight     int
}

type AuthConfig struct {
	Token string `json:"token"`
}

func NewAuthMiddleware(config *types.MiddlewareItemConfig, logger types.Logger, metrics types.MetricsManager) *AuthMiddleware {
	authConfig := &AuthConfig{}

	if params := paramsOf(config); params != nil {
		if err := utils.UnmarshalConfig(params, authConfig); err != nil {
			logger.Error("Failed to unmarshal auth middleware config", zap.Error(err))
		}
	}

	if authConfig.Token == "" {
		logger.Warn("Admin token is not configured, admin routes will reject every request")
	}

	return &AuthMiddleware{
		logger:     logger,
		metrics:    metrics,
		authConfig: authConfig,
		weight:     weightOr(config, 60),
	}
}

func (a *AuthMiddleware) Name() string { return "auth" }
func (a *AuthMiddleware) Weight() int  { return a.weight }
func (a *AuthMiddleware) OptIn() bool  { return true }

func (a *AuthMiddleware) Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), _ *types.RouteConfig) {
	if ctx.IsOptions() {
		next(ctx)
		return
	}

	if err := a.verify(ctx); err != nil {
		a.logger.Warn("Authentication failed",
			zap.ByteString("path", ctx.Path()),
			zap.Error(err))

		if a.metrics != nil {
			a.metrics.Counter("http_auth_failures_total", nil).Inc()
		}

		utils.CreateUnauthorizedResponse(ctx)
		return
	}

	next(ctx)
}

func (a *AuthMiddleware) verify(ctx *fasthttp.RequestCtx) error {
	expected := a.authConfig.Token
	if expected == "" {
		return types.Errorf(types.ErrAuthTokenInvalid, "no token configured")
	}

	given := extractToken(ctx)
	if given == "" {
		return types.Errorf(types.ErrAuthTokenInvalid, "missing token")
	}

	if subtle.ConstantTimeCompare([]byte(given), []byte(expected)) != 1 {
		return types.ErrAuthTokenInvalid
	}

	return nil
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	if token := string(ctx.Request.Header.Peek(HeaderAdminToken)); token != "" {
		return token
	}

	header := string(ctx.Request.Header.Peek("Authorization"))
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return ""
}
