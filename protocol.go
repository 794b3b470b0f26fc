package opcall

import (
	"errors"
	"reflect"
)

// Protocol is a pluggable wire-format implementation. Each protocol owns
// payload encoding, default headers, its interceptor lists, protocol-level
// error typing, and the choice of transport for a given input.
type Protocol interface {
	// ID identifies the protocol for explicit selection.
	ID() string

	// Headers returns default headers merged (lowest precedence) into every
	// request built for this protocol.
	Headers() map[string]string

	// Serialize encodes the input value into the request body. hint is the
	// declared input type.
	Serialize(v any, hint reflect.Type) ([]byte, error)

	// Deserialize decodes a payload of the hinted type from body bytes.
	Deserialize(data []byte, hint reflect.Type) (any, error)

	// ResolveErrorType extracts an opaque error-type identifier from an
	// unsuccessful response, or "" if the protocol cannot name one.
	ResolveErrorType(resp *Response) string

	// RequestInterceptors and ResponseInterceptors are applied to every
	// call, stable-sorted ascending by order.
	RequestInterceptors() []RequestInterceptor
	ResponseInterceptors() []ResponseInterceptor

	// Client selects the transport used to dispatch a request for the
	// given input.
	Client(input any) Transport
}

var errNoProtocols = errors.New("opcall: operation has no registered protocols")

// resolveProtocol picks the wire protocol for a call. An unknown explicit ID
// falls back to the first registered protocol rather than failing; generated
// clients rely on this defaulting.
func resolveProtocol(protocols []Protocol, id string) (Protocol, error) {
	if len(protocols) == 0 {
		return nil, errNoProtocols
	}
	if id != "" {
		for _, p := range protocols {
			if p.ID() == id {
				return p, nil
			}
		}
	}
	return protocols[0], nil
}
