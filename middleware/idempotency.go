package middleware

import (
	"context"

	"github.com/broady/opcall"
	"github.com/google/uuid"
)

// IdempotencyHeader is the header stamped by IdempotencyKey.
const IdempotencyHeader = "Idempotency-Key"

// IdempotencyKey creates a request interceptor that stamps an
// Idempotency-Key header derived from the call's invocation ID, so retried
// attempts of one call carry the same key and the remote side can
// de-duplicate them. A header already present on the request wins.
//
// It runs at order -100 so signing-style interceptors see the header.
func IdempotencyKey() opcall.RequestInterceptor {
	return opcall.RequestInterceptorFunc(-100, func(ctx context.Context, req *opcall.Request) (*opcall.Request, error) {
		if _, ok := req.Header[IdempotencyHeader]; ok {
			return req, nil
		}
		key, ok := opcall.InvocationIDFromContext(ctx)
		if !ok {
			key = uuid.NewString()
		}
		req.Header[IdempotencyHeader] = key
		return req, nil
	})
}
