package middleware

import (
	"context"
	"log/slog"

	"github.com/broady/opcall"
)

// LoggingRequest creates a request interceptor that logs each outgoing
// request using slog. It runs at order 100 so it observes the request as
// later-ordered interceptors finished it.
func LoggingRequest(logger *slog.Logger) opcall.RequestInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return opcall.RequestInterceptorFunc(100, func(ctx context.Context, req *opcall.Request) (*opcall.Request, error) {
		attrs := []any{
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.Int("body_bytes", len(req.Body)),
		}
		if id, ok := opcall.InvocationIDFromContext(ctx); ok {
			attrs = append(attrs, slog.String("invocation", id))
		}
		logger.InfoContext(ctx, "outgoing request", attrs...)
		return req, nil
	})
}

// LoggingResponse creates a response interceptor that logs each raw
// response before deserialization.
func LoggingResponse(logger *slog.Logger) opcall.ResponseInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return opcall.ResponseInterceptorFunc(0, func(ctx context.Context, resp *opcall.Response) (*opcall.Response, error) {
		attrs := []any{
			slog.Int("status", resp.StatusCode),
		}
		if id, ok := opcall.InvocationIDFromContext(ctx); ok {
			attrs = append(attrs, slog.String("invocation", id))
		}
		logger.InfoContext(ctx, "incoming response", attrs...)
		return resp, nil
	})
}
