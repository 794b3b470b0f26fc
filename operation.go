package opcall

import (
	"maps"
	"net/url"
	"reflect"
	"slices"
	"sync/atomic"

	"github.com/broady/opcall/internal/meta"
)

// Operation is a typed, stateless descriptor of one remote call. It is
// configured once by generated code and then shared freely: executing it
// never mutates it, apart from the diagnostic retry counter.
type Operation[I, O any] struct {
	name       string
	method     string
	pattern    *Pattern
	hostPrefix string
	headers    map[string]string
	query      url.Values

	endpoint  Endpoint
	protocols []Protocol
	errors    []ErrorShape
	retry     RetryPolicy

	successCode func(O) int
	newOutput   func(payload any, resp *Response) (O, error)

	validate       bool
	queryFromInput bool

	// retries counts retried attempts across all calls, for diagnostics
	// and tests only.
	retries atomic.Int64
}

// NewOperation creates an operation descriptor for one remote call.
// pathTemplate may contain {label} and {label+} placeholders and a literal
// query suffix.
func NewOperation[I, O any](name, method, pathTemplate string) *Operation[I, O] {
	return &Operation[I, O]{
		name:    name,
		method:  method,
		pattern: ParsePattern(pathTemplate),
		headers: map[string]string{},
		query:   url.Values{},
	}
}

// WithEndpoint sets the base endpoint.
func (op *Operation[I, O]) WithEndpoint(e Endpoint) *Operation[I, O] {
	op.endpoint = e
	return op
}

// WithHostPrefix sets a host-prefix template prepended to the endpoint host.
// It is skipped when the endpoint is host-immutable.
func (op *Operation[I, O]) WithHostPrefix(prefix string) *Operation[I, O] {
	op.hostPrefix = prefix
	return op
}

// WithHeader adds a static request header.
func (op *Operation[I, O]) WithHeader(key, value string) *Operation[I, O] {
	op.headers[key] = value
	return op
}

// WithHeaders merges static request headers.
func (op *Operation[I, O]) WithHeaders(headers map[string]string) *Operation[I, O] {
	maps.Copy(op.headers, headers)
	return op
}

// WithQuery adds an explicit query parameter.
func (op *Operation[I, O]) WithQuery(key string, values ...string) *Operation[I, O] {
	op.query[key] = slices.Clone(values)
	return op
}

// WithQueryFrom derives explicit query parameters from the input struct via
// EncodeQuery on every call.
func (op *Operation[I, O]) WithQueryFrom() *Operation[I, O] {
	op.queryFromInput = true
	return op
}

// WithProtocols registers the wire protocols available to this operation.
// The first registered protocol is the default.
func (op *Operation[I, O]) WithProtocols(protocols ...Protocol) *Operation[I, O] {
	op.protocols = append(op.protocols, protocols...)
	return op
}

// WithErrors declares the error shapes this operation may produce.
func (op *Operation[I, O]) WithErrors(shapes ...ErrorShape) *Operation[I, O] {
	op.errors = append(op.errors, shapes...)
	return op
}

// WithRetry sets the retry policy consulted on transport failures.
func (op *Operation[I, O]) WithRetry(policy RetryPolicy) *Operation[I, O] {
	op.retry = policy
	return op
}

// WithSuccessCode sets the success-status rule. It receives the deserialized
// output because some outputs embed their own status code; when unset the
// operation expects 200.
func (op *Operation[I, O]) WithSuccessCode(fn func(O) int) *Operation[I, O] {
	op.successCode = fn
	return op
}

// WithOutput sets the hook that combines a protocol payload with response
// metadata into the output. Protocols that deserialize straight into the
// output type do not need it.
func (op *Operation[I, O]) WithOutput(fn func(payload any, resp *Response) (O, error)) *Operation[I, O] {
	op.newOutput = fn
	return op
}

// WithValidation enables client-side input validation before the first
// attempt.
func (op *Operation[I, O]) WithValidation() *Operation[I, O] {
	op.validate = true
	return op
}

// Name returns the operation name.
func (op *Operation[I, O]) Name() string { return op.name }

// Retries returns the number of retried attempts recorded across all calls.
// Diagnostic only; it is not part of execution correctness.
func (op *Operation[I, O]) Retries() int64 { return op.retries.Load() }

// Metadata returns a runtime metadata snapshot for the operation.
func (op *Operation[I, O]) Metadata() *meta.OperationMetadata {
	return &meta.OperationMetadata{
		Name:       op.name,
		HTTPMethod: op.method,
		Template:   op.pattern.raw,
		Input:      reflect.TypeFor[I](),
		Output:     reflect.TypeFor[O](),
	}
}
