package opcall

import (
	"context"
	"slices"
	"sort"
)

// RequestInterceptor inspects and may replace the outgoing request. A nil
// returned request means "keep the one I was given".
//
// Interceptors run strictly in sequence: each sees the previous one's
// output, never concurrently. Blocking work should respect ctx.
type RequestInterceptor interface {
	// Order is the primary sort key; lower runs first. Interceptors with
	// equal order keep their declaration order.
	Order() int
	InterceptRequest(ctx context.Context, req *Request) (*Request, error)
}

// ResponseInterceptor inspects and may replace the raw response before
// deserialization. An error aborts the call and skips deserialization.
type ResponseInterceptor interface {
	Order() int
	InterceptResponse(ctx context.Context, resp *Response) (*Response, error)
}

// RequestInterceptorFunc adapts a function into a RequestInterceptor with an
// explicit order.
func RequestInterceptorFunc(order int, fn func(ctx context.Context, req *Request) (*Request, error)) RequestInterceptor {
	return &requestInterceptorFunc{order: order, fn: fn}
}

type requestInterceptorFunc struct {
	order int
	fn    func(ctx context.Context, req *Request) (*Request, error)
}

func (i *requestInterceptorFunc) Order() int { return i.order }

func (i *requestInterceptorFunc) InterceptRequest(ctx context.Context, req *Request) (*Request, error) {
	return i.fn(ctx, req)
}

// ResponseInterceptorFunc adapts a function into a ResponseInterceptor with
// an explicit order.
func ResponseInterceptorFunc(order int, fn func(ctx context.Context, resp *Response) (*Response, error)) ResponseInterceptor {
	return &responseInterceptorFunc{order: order, fn: fn}
}

type responseInterceptorFunc struct {
	order int
	fn    func(ctx context.Context, resp *Response) (*Response, error)
}

func (i *responseInterceptorFunc) Order() int { return i.order }

func (i *responseInterceptorFunc) InterceptResponse(ctx context.Context, resp *Response) (*Response, error) {
	return i.fn(ctx, resp)
}

// sortInterceptors returns a copy sorted ascending by Order. The sort is
// stable so equal-order interceptors keep registration order.
func sortInterceptors[T interface{ Order() int }](in []T) []T {
	out := slices.Clone(in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order() < out[j].Order() })
	return out
}

func applyRequestInterceptors(ctx context.Context, req *Request, interceptors []RequestInterceptor) (*Request, error) {
	for _, ic := range sortInterceptors(interceptors) {
		next, err := ic.InterceptRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		if next != nil {
			req = next
		}
	}
	return req, nil
}

func applyResponseInterceptors(ctx context.Context, resp *Response, interceptors []ResponseInterceptor) (*Response, error) {
	for _, ic := range sortInterceptors(interceptors) {
		next, err := ic.InterceptResponse(ctx, resp)
		if err != nil {
			return nil, err
		}
		if next != nil {
			resp = next
		}
	}
	return resp, nil
}
