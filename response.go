package opcall

import (
	"fmt"
	"net/http"
	"reflect"
)

// deserializeResponse turns a raw response into the operation's typed output
// or a typed error.
//
// The success check is two-phase on purpose: the declared success code can
// depend on the deserialized output, so the payload is decoded optimistically
// first and the status compared after. When the status matches but decoding
// failed, the decode error is surfaced as-is — it signals a schema mismatch,
// not a remote error, and must not be masked by the matching status.
func deserializeResponse[I, O any](op *Operation[I, O], proto Protocol, resp *Response) (O, error) {
	var zero O

	data, err := resp.Bytes()
	if err != nil {
		return zero, err
	}

	var output O
	payload, deserErr := proto.Deserialize(data, reflect.TypeFor[O]())
	if deserErr == nil {
		// Protocols may fuse payload and metadata into a full output.
		if full, ok := payload.(O); ok {
			output = full
		} else if op.newOutput != nil {
			output, deserErr = op.newOutput(payload, resp)
		} else {
			deserErr = fmt.Errorf("opcall: %s: protocol %q produced %T, want %T", op.name, proto.ID(), payload, zero)
		}
	}

	success := http.StatusOK
	if op.successCode != nil {
		success = op.successCode(output)
	}

	if resp.StatusCode == success {
		if deserErr != nil {
			return zero, deserErr
		}
		return output, nil
	}

	shape := resolveErrorShape(proto, resp, op.errors)
	if shape == nil {
		return zero, &ResponseError{
			Operation:  op.name,
			ProtocolID: proto.ID(),
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       data,
		}
	}

	errPayload, err := proto.Deserialize(data, shape.Type)
	if err != nil {
		// The declared shape did not decode either; fall back to the
		// generic error so the raw body is never dropped.
		return zero, &ResponseError{
			Operation:  op.name,
			ProtocolID: proto.ID(),
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       data,
		}
	}
	return zero, shape.New(errPayload, resp)
}
