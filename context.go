package opcall

import "context"

type contextKey struct {
	name string
}

var invocationKey = &contextKey{"invocation"}

// withInvocationID stamps the per-call invocation ID into the context before
// the first attempt. The ID is stable across retries of one call.
func withInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invocationKey, id)
}

// InvocationIDFromContext returns the invocation ID of the current call.
// Interceptors can use it to correlate attempts or derive stable
// per-call values such as idempotency keys.
func InvocationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(invocationKey).(string)
	return id, ok
}
