// Package testutil provides testing helpers for opcall-based SDK clients:
// a scripted fake transport, a fluent response builder, and a configurable
// JSON test protocol.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/broady/opcall"
)

// FakeTransport replays scripted responses in order and records every
// request it receives. Safe for concurrent use.
type FakeTransport struct {
	mu       sync.Mutex
	script   []result
	requests []*opcall.Request
}

type result struct {
	resp func() *opcall.Response
	err  error
}

// NewFakeTransport creates an empty fake transport. A transport with no
// scripted results fails every round trip.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

// Respond scripts a response with the given status and body.
func (t *FakeTransport) Respond(status int, body string) *FakeTransport {
	return t.RespondWith(NewResponse().Status(status).Body(body))
}

// RespondJSON scripts a response with the given status and a JSON body.
func (t *FakeTransport) RespondJSON(status int, v any) *FakeTransport {
	return t.RespondWith(NewResponse().Status(status).JSON(v))
}

// RespondWith scripts a response from a builder. The response is built
// fresh when consumed, so one builder can be scripted several times.
func (t *FakeTransport) RespondWith(b *ResponseBuilder) *FakeTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.script = append(t.script, result{resp: b.Build})
	return t
}

// Fail scripts a transport error.
func (t *FakeTransport) Fail(err error) *FakeTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.script = append(t.script, result{err: err})
	return t
}

// RoundTrip records the request and pops the next scripted result.
func (t *FakeTransport) RoundTrip(ctx context.Context, req *opcall.Request) (*opcall.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, req.Clone())
	if len(t.script) == 0 {
		return nil, fmt.Errorf("testutil: no scripted response for %s %s", req.Method, req.URL)
	}
	next := t.script[0]
	t.script = t.script[1:]
	if next.err != nil {
		return nil, next.err
	}
	return next.resp(), nil
}

// Requests returns a copy of every request seen so far.
func (t *FakeTransport) Requests() []*opcall.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*opcall.Request, len(t.requests))
	copy(out, t.requests)
	return out
}

// ResponseBuilder constructs opcall responses with a fluent API.
type ResponseBuilder struct {
	status int
	header map[string]string
	body   []byte
}

// NewResponse creates a builder for a 200 response with no body.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{status: 200, header: map[string]string{}}
}

// Status sets the status code.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.status = code
	return b
}

// Header adds a response header.
func (b *ResponseBuilder) Header(key, value string) *ResponseBuilder {
	b.header[key] = value
	return b
}

// Body sets the raw response body.
func (b *ResponseBuilder) Body(body string) *ResponseBuilder {
	b.body = []byte(body)
	return b
}

// JSON sets the response body to the JSON encoding of v.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshaling response body: %v", err))
	}
	b.body = data
	b.header["Content-Type"] = "application/json"
	return b
}

// Build creates the response. Each call returns a fresh response with its
// own replayable body.
func (b *ResponseBuilder) Build() *opcall.Response {
	header := make(map[string]string, len(b.header))
	for k, v := range b.header {
		header[k] = v
	}
	return opcall.NewResponse(b.status, header, bytes.NewReader(b.body))
}

// Protocol is a configurable JSON wire protocol for tests. The zero value
// serializes and deserializes JSON, reports no error type, and carries no
// interceptors or transport.
type Protocol struct {
	ProtocolID       string
	DefaultHeaders   map[string]string
	ErrorType        func(*opcall.Response) string
	ReqInterceptors  []opcall.RequestInterceptor
	RespInterceptors []opcall.ResponseInterceptor
	Transport        opcall.Transport

	// SerializeFunc and DeserializeFunc override the JSON defaults.
	SerializeFunc   func(v any, hint reflect.Type) ([]byte, error)
	DeserializeFunc func(data []byte, hint reflect.Type) (any, error)
}

func (p *Protocol) ID() string {
	if p.ProtocolID == "" {
		return "test-json"
	}
	return p.ProtocolID
}

func (p *Protocol) Headers() map[string]string {
	return p.DefaultHeaders
}

func (p *Protocol) Serialize(v any, hint reflect.Type) ([]byte, error) {
	if p.SerializeFunc != nil {
		return p.SerializeFunc(v, hint)
	}
	return json.Marshal(v)
}

func (p *Protocol) Deserialize(data []byte, hint reflect.Type) (any, error) {
	if p.DeserializeFunc != nil {
		return p.DeserializeFunc(data, hint)
	}
	target := hint
	if target.Kind() == reflect.Pointer {
		target = target.Elem()
	}
	v := reflect.New(target)
	if len(data) > 0 {
		if err := json.Unmarshal(data, v.Interface()); err != nil {
			return nil, err
		}
	}
	if hint.Kind() == reflect.Pointer {
		return v.Interface(), nil
	}
	return v.Elem().Interface(), nil
}

func (p *Protocol) ResolveErrorType(resp *opcall.Response) string {
	if p.ErrorType == nil {
		return ""
	}
	return p.ErrorType(resp)
}

func (p *Protocol) RequestInterceptors() []opcall.RequestInterceptor {
	return p.ReqInterceptors
}

func (p *Protocol) ResponseInterceptors() []opcall.ResponseInterceptor {
	return p.RespInterceptors
}

func (p *Protocol) Client(input any) opcall.Transport {
	return p.Transport
}
