package utils

import (
	"github.com/valyala/fasthttp"
)

const ContentTypeJSON = "application/json"

// WriteJSON is the single emission point for API payloads. The response cache
// only stores bodies written with the JSON content type.
func WriteJSON(ctx *fasthttp.RequestCtx, status int, payload interface{}) {
	body, err := Marshal(payload)
	if err != nil {
		CreateErrorResponse(ctx)
		return
	}

	ctx.SetStatusCode(status)
	ctx.SetContentType(ContentTypeJSON)
	ctx.SetBody(body)
}

func WriteError(ctx *fasthttp.RequestCtx, status int, message string) {
	setNoCacheHeaders(ctx)
	WriteJSON(ctx, status, map[string]string{
		"error":   fasthttp.StatusMessage(status),
		"message": message,
	})
}

func CreateErrorResponse(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	ctx.SetContentType(ContentTypeJSON)
	setNoCacheHeaders(ctx)

	ctx.SetBodyString(`{"error":"Internal Server Error","message":"An unexpected error occurred"}`)
}

func CreateUnauthorizedResponse(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	ctx.SetContentType(ContentTypeJSON)
	setNoCacheHeaders(ctx)

	ctx.SetBodyString(`{"error":"Unauthorized","message":"Authentication required"}`)
}

func IsJSON(ctx *fasthttp.RequestCtx) bool {
	ct := BytesToString(ctx.Response.Header.ContentType())
	return len(ct) >= len(ContentTypeJSON) && ct[:len(ContentTypeJSON)] == ContentTypeJSON
}

func setNoCacheHeaders(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	ctx.Response.Header.Set("Pragma", "no-cache")
	ctx.Response.Header.Set("Expires", "0")

	if requestID := ctx.Request.Header.Peek("X-Request-ID"); len(requestID) > 0 {
		ctx.Response.Header.SetBytesV("X-Request-ID", requestID)
	}
}
