package api

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/server"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/utils"
)

const (
	defaultKeyPrefix   = "api:"
	defaultPingTimeout = 5 * time.Second
)

// Pinger is the diagnostic side of the keep-alive job.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	repo        types.PortfolioRepository
	cache       types.CacheStore
	pinger      Pinger
	logger      types.Logger
	metrics     types.MetricsManager
	validate    *validator.Validate
	cacheTTL    time.Duration
	keyPrefix   string
	pingTimeout time.Duration
	now         func() time.Time
}

type Option func(*Handlers)

func WithCacheTTL(ttl time.Duration) Option {
	return func(h *Handlers) {
		if ttl > 0 {
			h.cacheTTL = ttl
		}
	}
}

// WithKeyPrefix must match the response cache key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(h *Handlers) {
		h.keyPrefix = prefix
	}
}

func WithPinger(pinger Pinger) Option {
	return func(h *Handlers) {
		h.pinger = pinger
	}
}

func WithMetrics(metrics types.MetricsManager) Option {
	return func(h *Handlers) {
		h.metrics = metrics
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Handlers) {
		h.now = now
	}
}

func NewHandlers(repo types.PortfolioRepository, cache types.CacheStore, logger types.Logger, opts ...Option) *Handlers {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	h := &Handlers{
		repo:        repo,
		cache:       cache,
		logger:      logger,
		validate:    validate,
		cacheTTL:    types.DefaultCacheTTL,
		keyPrefix:   defaultKeyPrefix,
		pingTimeout: defaultPingTimeout,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

const messagesPath = "/api/admin/messages"

// Register mounts the public content routes, the contact endpoint and the
// admin group. Admin routes opt into the auth middleware, which runs before
// the response cache.
func (h *Handlers) Register(router *server.Router) {
	router.GET("/api/profile", serve(h, "profile", h.repo.Profile)).WithCache(h.cacheTTL)
	router.GET("/api/education", serve(h, "education", h.repo.Education)).WithCache(h.cacheTTL)
	router.GET("/api/skills", serve(h, "skills", h.repo.Skills)).WithCache(h.cacheTTL)
	router.GET("/api/projects", serve(h, "projects", h.repo.Projects)).WithCache(h.cacheTTL)
	router.GET("/api/projects/{id}", h.handleProject).WithCache(h.cacheTTL)
	router.GET("/api/research", serve(h, "research", h.repo.Research)).WithCache(h.cacheTTL)
	router.GET("/api/achievements", serve(h, "achievements", h.repo.Achievements)).WithCache(h.cacheTTL)
	router.GET("/api/coding-stats", serve(h, "coding_stats", h.repo.CodingStats)).WithCache(h.cacheTTL)

	router.POST("/api/messages", h.handleCreateMessage).WithMiddlewares("ratelimit")

	admin := router.Group("/api/admin").WithMiddlewares("auth")
	admin.GET("/messages", serve(h, "messages", h.repo.Messages)).WithCache(h.cacheTTL)
	admin.DELETE("/cache", h.handleClearCache)
	admin.DELETE("/cache/{pattern...}", h.handleDeleteCache)
	admin.POST("/keepalive/ping", h.handlePing)
}

func serve[T any](h *Handlers, what string, load func(context.Context) (T, error)) types.FastHTTPHandler {
	return func(ctx *fasthttp.RequestCtx) {
		payload, err := load(ctx)
		if err != nil {
			h.fail(ctx, what, err)
			return
		}
		utils.WriteJSON(ctx, fasthttp.StatusOK, payload)
	}
}

func (h *Handlers) handleProject(ctx *fasthttp.RequestCtx) {
	raw, _ := ctx.UserValue("id").(string)

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		utils.WriteError(ctx, fasthttp.StatusBadRequest, "project id must be a positive integer")
		return
	}

	project, err := h.repo.Project(ctx, id)
	if err != nil {
		h.fail(ctx, "project", err)
		return
	}

	utils.WriteJSON(ctx, fasthttp.StatusOK, project)
}

// handleCreateMessage stores a contact message and drops every cached
// variant of the admin messages listing.
func (h *Handlers) handleCreateMessage(ctx *fasthttp.RequestCtx) {
	var msg types.Message
	if err := utils.Unmarshal(ctx.PostBody(), &msg); err != nil {
		utils.WriteError(ctx, fasthttp.StatusBadRequest, "request body must be a JSON object")
		return
	}

	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Subject = strings.TrimSpace(msg.Subject)
	msg.Body = strings.TrimSpace(msg.Body)

	if err := h.validate.Struct(&msg); err != nil {
		h.writeValidationError(ctx, err)
		return
	}

	msg.ID = uuid.NewString()
	msg.CreatedAt = h.now().UTC()

	if err := h.repo.CreateMessage(ctx, &msg); err != nil {
		h.fail(ctx, "message", err)
		return
	}

	h.cache.Delete(ctx, h.keyPrefix+messagesPath+"*")

	if h.metrics != nil {
		h.metrics.Counter("portfolio_messages_total", nil).Inc()
	}

	h.logger.Info("Contact message received",
		zap.String("message_id", msg.ID),
		zap.String("email", msg.Email))

	utils.WriteJSON(ctx, fasthttp.StatusCreated, msg)
}

func (h *Handlers) handleClearCache(ctx *fasthttp.RequestCtx) {
	h.cache.Clear(ctx)
	utils.WriteJSON(ctx, fasthttp.StatusOK, map[string]interface{}{"cleared": true})
}

func (h *Handlers) handleDeleteCache(ctx *fasthttp.RequestCtx) {
	pattern, _ := ctx.UserValue("pattern").(string)
	if pattern == "" {
		utils.WriteError(ctx, fasthttp.StatusBadRequest, types.ErrCacheKeyEmpty.Error())
		return
	}

	h.cache.Delete(ctx, pattern)

	h.logger.Info("Cache invalidated by admin", zap.String("pattern", pattern))
	utils.WriteJSON(ctx, fasthttp.StatusOK, map[string]interface{}{"deleted": pattern})
}

func (h *Handlers) handlePing(ctx *fasthttp.RequestCtx) {
	if h.pinger == nil {
		utils.WriteError(ctx, fasthttp.StatusServiceUnavailable, "keep-alive is disabled")
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx, h.pingTimeout)
	defer cancel()

	start := h.now()
	if err := h.pinger.Ping(pingCtx); err != nil {
		h.logger.Warn("Diagnostic ping failed", zap.Error(err))
		utils.WriteError(ctx, fasthttp.StatusServiceUnavailable, err.Error())
		return
	}

	utils.WriteJSON(ctx, fasthttp.StatusOK, map[string]interface{}{
		"status":  "ok",
		"latency": utils.HumanDuration(h.now().Sub(start)),
	})
}

func (h *Handlers) writeValidationError(ctx *fasthttp.RequestCtx, err error) {
	fields := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fe := range validationErrors {
			fields[fe.Field()] = fe.Tag()
		}
	}

	ctx.Response.Header.Set(fasthttp.HeaderCacheControl, "no-store")
	utils.WriteJSON(ctx, fasthttp.StatusBadRequest, map[string]interface{}{
		"error":   fasthttp.StatusMessage(fasthttp.StatusBadRequest),
		"message": "validation failed",
		"fields":  fields,
	})
}

func (h *Handlers) fail(ctx *fasthttp.RequestCtx, what string, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		utils.WriteError(ctx, fasthttp.StatusNotFound, what+" not found")
	case errors.Is(err, types.ErrInvalidParameter):
		utils.WriteError(ctx, fasthttp.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Request failed", zap.String("resource", what), zap.Error(err))
		utils.CreateErrorResponse(ctx)
	}
}
