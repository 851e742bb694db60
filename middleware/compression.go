package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/utils"
)

const (
	EncodingBrotli = "br"
	EncodingGzip   = "gzip"

	DefaultCompressionLevel = 6
	DefaultMinSize          = 1024
	MinCompressionRatio     = 0.05
)

var compressibleTypes = []string{
	"application/json",
	"application/javascript",
	"application/xml",
	"text/",
}

// CompressionMiddleware compresses response bodies above min_size, preferring
// brotli over gzip when the client accepts both.
type CompressionMiddleware struct {
	logger            types.Logger
	metrics           types.MetricsManager
	compressionConfig *CompressionConfig
	weight            int
	gzipPool          sync.Pool
	brotliPool        sync.Pool
	bufferPool        sync.Pool
}

type CompressionConfig struct {
	Level   int `json:"level"`
	MinSize int `json:"min_size"`
}

func NewCompressionMiddleware(config *types.MiddlewareItemConfig, logger types.Logger, metrics types.MetricsManager) *CompressionMiddleware {
	compressionConfig := &CompressionConfig{
		Level:   DefaultCompressionLevel,
		MinSize: DefaultMinSize,
	}

	if params := paramsOf(config); params != nil {
		if err := utils.UnmarshalConfig(params, compressionConfig); err != nil {
			logger.Error("Failed to unmarshal compression middleware config", zap.Error(err))
		}
	}

	if compressionConfig.Level < gzip.BestSpeed || compressionConfig.Level > gzip.BestCompression {
		logger.Warn("Invalid compression level, using default", zap.Int("level", compressionConfig.Level))
		compressionConfig.Level = DefaultCompressionLevel
	}

	c := &CompressionMiddleware{
		logger:            logger,
		metrics:           metrics,
		compressionConfig: compressionConfig,
		weight:            weightOr(config, 50),
	}

	level := compressionConfig.Level
	c.gzipPool.New = func() interface{} {
		w, _ := gzip.NewWriterLevel(io.Discard, level)
		return w
	}
	c.brotliPool.New = func() interface{} {
		return brotli.NewWriterLevel(io.Discard, level)
	}
	c.bufferPool.New = func() interface{} {
		return new(bytes.Buffer)
	}

	return c
}

func (c *CompressionMiddleware) Name() string { return "compression" }
func (c *CompressionMiddleware) Weight() int  { return c.weight }

func (c *CompressionMiddleware) Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), _ *types.RouteConfig) {
	encoding := negotiateEncoding(string(ctx.Request.Header.Peek(fasthttp.HeaderAcceptEncoding)))

	next(ctx)

	if encoding == "" || len(ctx.Response.Header.Peek(fasthttp.HeaderContentEncoding)) > 0 {
		return
	}

	body := ctx.Response.Body()
	if len(body) < c.compressionConfig.MinSize || !compressible(string(ctx.Response.Header.ContentType())) {
		return
	}

	compressed, err := c.compress(encoding, body)
	if err != nil {
		c.logger.Warn("Response compression failed", zap.String("encoding", encoding), zap.Error(err))
		return
	}

	if 1.0-float64(len(compressed))/float64(len(body)) < MinCompressionRatio {
		return
	}

	ctx.Response.Header.Set(fasthttp.HeaderContentEncoding, encoding)
	ctx.Response.Header.Add(fasthttp.HeaderVary, fasthttp.HeaderAcceptEncoding)
	ctx.Response.SetBody(compressed)

	if c.metrics != nil {
		c.metrics.Counter("http_compressed_responses_total", map[string]string{"encoding": encoding}).Inc()
	}
}

func (c *CompressionMiddleware) compress(encoding string, body []byte) ([]byte, error) {
	buf := c.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufferPool.Put(buf)

	switch encoding {
	case EncodingBrotli:
		w := c.brotliPool.Get().(*brotli.Writer)
		defer c.brotliPool.Put(w)
		w.Reset(buf)
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	default:
		w := c.gzipPool.Get().(*gzip.Writer)
		defer c.gzipPool.Put(w)
		w.Reset(buf)
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	}

	return append([]byte(nil), buf.Bytes()...), nil
}

func negotiateEncoding(acceptEncoding string) string {
	var gzipOK bool

	for _, part := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if rejected(params) {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(name)) {
		case EncodingBrotli:
			return EncodingBrotli
		case EncodingGzip:
			gzipOK = true
		}
	}

	if gzipOK {
		return EncodingGzip
	}
	return ""
}

// rejected reports an explicit q=0 weight.
func rejected(params string) bool {
	value, found := strings.CutPrefix(strings.TrimSpace(params), "q=")
	if !found {
		return false
	}
	q, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	return err == nil && q == 0
}

func compressible(contentType string) bool {
	contentType = strings.ToLower(contentType)
	for _, prefix := range compressibleTypes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}
