package opcall

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// Transport dispatches one concrete request and returns the raw response.
// Implementations must honor context cancellation.
type Transport interface {
	RoundTrip(ctx context.Context, req *Request) (*Response, error)
}

// Response is the raw result of one transport dispatch.
//
// The body may be consumed as a stream once, or memoized via Bytes so that
// both protocol deserialization and error-path raw-body decoding can read it.
type Response struct {
	StatusCode int
	Header     map[string]string

	body io.Reader
	buf  []byte
	read bool
}

// NewResponse wraps a status code, headers, and body into a Response.
// If body implements io.Closer it is closed after the first full read.
func NewResponse(statusCode int, header map[string]string, body io.Reader) *Response {
	if header == nil {
		header = map[string]string{}
	}
	return &Response{StatusCode: statusCode, Header: header, body: body}
}

// Bytes drains the body on the first call and replays the buffered bytes on
// every call after that.
func (r *Response) Bytes() ([]byte, error) {
	if !r.read {
		if r.body != nil {
			b, err := io.ReadAll(r.body)
			if c, ok := r.body.(io.Closer); ok {
				c.Close()
			}
			if err != nil {
				return nil, fmt.Errorf("opcall: reading response body: %w", err)
			}
			r.buf = b
		}
		r.read = true
	}
	return r.buf, nil
}

// Body returns a fresh reader over the (memoized) body bytes.
func (r *Response) Body() (io.Reader, error) {
	b, err := r.Bytes()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// HTTPTransport adapts a *http.Client to the Transport interface.
type HTTPTransport struct {
	// Client to dispatch with. Defaults to http.DefaultClient.
	Client *http.Client
}

func (t *HTTPTransport) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), body)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	res, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	header := make(map[string]string, len(res.Header))
	for k := range res.Header {
		header[k] = res.Header.Get(k)
	}
	return NewResponse(res.StatusCode, header, res.Body), nil
}
