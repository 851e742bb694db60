package middleware

import (
	"strings"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/utils"
)

const (
	HeaderRequestID = "X-Request-ID"

	UserValueRequestID = "request_id"
	UserValueRealIP    = "real_ip"
)

// MetadataMiddleware tags every request with a request id and the client IP.
type MetadataMiddleware struct {
	logger         types.Logger
	metadataConfig *MetadataConfig
	weight         int
}

type MetadataConfig struct {
	GenerateRequestID bool `json:"generate_request_id"`
}

func NewMetadataMiddleware(config *types.MiddlewareItemConfig, logger types.Logger) *MetadataMiddleware {
	metadataConfig := &MetadataConfig{
		GenerateRequestID: true,
	}

	if params := paramsOf(config); params != nil {
		if err := utils.UnmarshalConfig(params, metadataConfig); err != nil {
			logger.Error("Failed to unmarshal metadata middleware config", zap.Error(err))
		}
	}

	return &MetadataMiddleware{
		logger:         logger,
		metadataConfig: metadataConfig,
		weight:         weightOr(config, 20),
	}
}

func (m *MetadataMiddleware) Name() string { return "metadata" }
func (m *MetadataMiddleware) Weight() int  { return m.weight }

func (m *MetadataMiddleware) Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), _ *types.RouteConfig) {
	requestID := string(ctx.Request.Header.Peek(HeaderRequestID))
	if requestID == "" && m.metadataConfig.GenerateRequestID {
		requestID = uuid.NewString()
		ctx.Request.Header.Set(HeaderRequestID, requestID)
	}

	if requestID != "" {
		ctx.SetUserValue(UserValueRequestID, requestID)
	}
	ctx.SetUserValue(UserValueRealIP, realIP(ctx))

	next(ctx)

	if requestID != "" {
		ctx.Response.Header.Set(HeaderRequestID, requestID)
	}
}

func realIP(ctx *fasthttp.RequestCtx) string {
	if ip := string(ctx.Request.Header.Peek("X-Real-IP")); ip != "" {
		return ip
	}

	if forwarded := string(ctx.Request.Header.Peek("X-Forwarded-For")); forwarded != "" {
		if comma := strings.Index(forwarded, ","); comma > 0 {
			return strings.TrimSpace(forwarded[:comma])
		}
		return strings.TrimSpace(forwarded)
	}

	return ctx.RemoteIP().String()
}
