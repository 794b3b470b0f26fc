package opcall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// labelMap implements LabelSource over a plain map.
type labelMap map[string]string

func (m labelMap) Label(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// fakeProtocol is a JSON protocol with injectable knobs. The zero value is
// usable: it marshals/unmarshals JSON and reports no error type.
type fakeProtocol struct {
	id               string
	headers          map[string]string
	errorType        func(*Response) string
	reqInterceptors  []RequestInterceptor
	respInterceptors []ResponseInterceptor
	client           Transport
	serialize        func(v any, hint reflect.Type) ([]byte, error)
	deserialize      func(data []byte, hint reflect.Type) (any, error)
}

func (p *fakeProtocol) ID() string {
	if p.id == "" {
		return "fake"
	}
	return p.id
}

func (p *fakeProtocol) Headers() map[string]string { return p.headers }

func (p *fakeProtocol) Serialize(v any, hint reflect.Type) ([]byte, error) {
	if p.serialize != nil {
		return p.serialize(v, hint)
	}
	return json.Marshal(v)
}

func (p *fakeProtocol) Deserialize(data []byte, hint reflect.Type) (any, error) {
	if p.deserialize != nil {
		return p.deserialize(data, hint)
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

func (p *fakeProtocol) ResolveErrorType(resp *Response) string {
	if p.errorType == nil {
		return ""
	}
	return p.errorType(resp)
}

func (p *fakeProtocol) RequestInterceptors() []RequestInterceptor   { return p.reqInterceptors }
func (p *fakeProtocol) ResponseInterceptors() []ResponseInterceptor { return p.respInterceptors }
func (p *fakeProtocol) Client(input any) Transport                  { return p.client }

type scriptResult struct {
	resp *Response
	err  error
}

// scriptTransport replays canned results in order and records the requests
// it saw.
type scriptTransport struct {
	script   []scriptResult
	requests []*Request
}

func (t *scriptTransport) respond(status int, body string) *scriptTransport {
	t.script = append(t.script, scriptResult{resp: newTestResponse(status, nil, body)})
	return t
}

func (t *scriptTransport) respondJSON(status int, v any) *scriptTransport {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	t.script = append(t.script, scriptResult{resp: newTestResponse(status, nil, string(data))})
	return t
}

func (t *scriptTransport) fail(err error) *scriptTransport {
	t.script = append(t.script, scriptResult{err: err})
	return t
}

func (t *scriptTransport) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	t.requests = append(t.requests, req.Clone())
	if len(t.script) == 0 {
		return nil, fmt.Errorf("no scripted response for %s %s", req.Method, req.URL)
	}
	next := t.script[0]
	t.script = t.script[1:]
	return next.resp, next.err
}

func newTestResponse(status int, header map[string]string, body string) *Response {
	return NewResponse(status, header, bytes.NewReader([]byte(body)))
}

func mustEndpoint(raw string) Endpoint {
	e, err := ResolveEndpoint(raw)
	if err != nil {
		panic(err)
	}
	return e
}

// noSleep makes retry backoffs immediate in tests.
func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }
