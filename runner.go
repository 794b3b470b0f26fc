package opcall

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var validate = validator.New()

// Runner drives operation execution: one in-flight attempt at a time per
// call, with the request rebuilt from scratch before every attempt. A single
// Runner is safe for concurrent use; each call owns its own state.
type Runner struct {
	logger  *slog.Logger
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger. If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithLimiter sets a client-side rate limiter awaited before every attempt.
func WithLimiter(l *rate.Limiter) RunnerOption {
	return func(r *Runner) { r.limiter = l }
}

// WithSleep replaces the backoff wait. Tests inject a no-op sleep here
// instead of flipping any ambient test-mode state.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) RunnerOption {
	return func(r *Runner) { r.sleep = fn }
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{sleep: sleepContext}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CallOption configures a single call.
type CallOption func(*callConfig)

type callConfig struct {
	protocolID string
	client     Transport
}

// WithProtocol selects a registered protocol by ID for this call. An unknown
// ID falls back to the operation's first registered protocol.
func WithProtocol(id string) CallOption {
	return func(c *callConfig) { c.protocolID = id }
}

// WithClient overrides the transport for this call.
func WithClient(t Transport) CallOption {
	return func(c *callConfig) { c.client = t }
}

var errNoTransport = errors.New("opcall: no transport available for call")

// Run executes one operation call: protocol resolution, request assembly,
// dispatch, and response deserialization, retrying transport failures per
// the operation's retry policy. Every attempt reconstructs the request so
// that time-sensitive values are recomputed.
func Run[I, O any](ctx context.Context, r *Runner, op *Operation[I, O], input I, opts ...CallOption) (O, error) {
	var zero O
	if r == nil {
		r = NewRunner()
	}

	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	proto, err := resolveProtocol(op.protocols, cfg.protocolID)
	if err != nil {
		return zero, err
	}

	if op.validate {
		if err := validate.Struct(input); err != nil {
			return zero, newInvalidInputError(op.name, err)
		}
	}

	client := cfg.client
	if client == nil {
		client = proto.Client(input)
	}
	if client == nil {
		return zero, errNoTransport
	}

	policy := op.retry
	if policy == nil {
		policy = defaultRetryPolicy
	}

	invocationID := uuid.NewString()
	ctx = withInvocationID(ctx, invocationID)
	logger := r.logger.With(
		slog.String("operation", op.name),
		slog.String("protocol", proto.ID()),
		slog.String("invocation", invocationID),
	)

	attempt := 0
	for {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return zero, err
			}
		}

		// Mandatory per attempt: a stale request may carry expired
		// signatures or timestamps.
		req, err := op.buildRequest(ctx, input, proto)
		if err != nil {
			return zero, err
		}

		logger.Debug("sending request",
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.Int("attempt", attempt+1))

		resp, err := client.RoundTrip(ctx, req)
		if err != nil {
			backoff, retry := policy.ShouldRetry(attempt, err)
			if !retry {
				logger.Error("request failed",
					slog.Int("attempts", attempt+1),
					slog.Any("error", err))
				return zero, err
			}
			op.retries.Add(1)
			logger.Warn("retrying after transport error",
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
				slog.Any("error", err))
			if err := r.sleep(ctx, backoff); err != nil {
				return zero, err
			}
			attempt++
			continue
		}

		resp, err = applyResponseInterceptors(ctx, resp, proto.ResponseInterceptors())
		if err != nil {
			return zero, err
		}

		out, err := deserializeResponse(op, proto, resp)
		if err != nil {
			logger.Debug("call failed",
				slog.Int("status", resp.StatusCode),
				slog.Any("error", err))
			return zero, err
		}

		logger.Debug("call completed",
			slog.Int("status", resp.StatusCode),
			slog.Int("attempts", attempt+1))
		return out, nil
	}
}
