package opcall

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MissingLabelsError reports a template that requires labels the input
// cannot supply. It is fatal and never retried.
type MissingLabelsError struct {
	Template string
	Labels   []string
}

func (e *MissingLabelsError) Error() string {
	return fmt.Sprintf("opcall: template %q has unresolved labels: %s", e.Template, strings.Join(e.Labels, ", "))
}

// ResponseError is the generic protocol-level error raised when an
// unsuccessful response matches none of an operation's declared error
// shapes. It preserves everything the caller might need to recover:
// status code, raw body, and headers.
type ResponseError struct {
	Operation  string
	ProtocolID string
	StatusCode int
	Header     map[string]string
	Body       []byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("opcall: %s: unexpected status %d (%d body bytes)", e.Operation, e.StatusCode, len(e.Body))
}

// InvalidInputError reports client-side input validation failure. The call
// never left the process; it is fatal and never retried.
type InvalidInputError struct {
	Operation string
	Fields    map[string]string
	err       error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("opcall: %s: invalid input: %v", e.Operation, e.err)
}

func (e *InvalidInputError) Unwrap() error { return e.err }

// newInvalidInputError wraps a validator error with per-field messages.
func newInvalidInputError(operation string, err error) error {
	out := &InvalidInputError{Operation: operation, err: err}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		fields := make(map[string]string, len(valErrs))
		messages := make([]string, 0, len(valErrs))
		for _, ve := range valErrs {
			msg := formatValidationError(ve)
			fields[ve.Field()] = msg
			messages = append(messages, ve.Field()+": "+msg)
		}
		out.Fields = fields
		out.err = errors.New(strings.Join(messages, "; "))
	}
	return out
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", ve.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", ve.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", ve.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}

// ErrorShape is one entry in an operation's declared error registry.
type ErrorShape struct {
	// Name identifies the shape. Protocol-reported error types are matched
	// against it by base name, ignoring any namespace qualifier.
	Name string

	// StatusCode is the HTTP status associated with the shape, used as a
	// fallback when the protocol cannot name a type.
	StatusCode int

	// Type is the payload type the error body deserializes into.
	Type reflect.Type

	// New builds the exception value from the deserialized payload and the
	// raw response.
	New func(payload any, resp *Response) error
}

// resolveErrorShape maps an unsuccessful response to a declared error shape.
//
// A protocol-reported type identifier wins: it is matched against shape
// names by base name only. Failing that, the unique shape whose status code
// equals the response's is used; if two shapes share the status code the
// match is ambiguous and treated as no match.
func resolveErrorShape(proto Protocol, resp *Response, shapes []ErrorShape) *ErrorShape {
	if id := proto.ResolveErrorType(resp); id != "" {
		want := shapeBaseName(id)
		for i := range shapes {
			if shapeBaseName(shapes[i].Name) == want {
				return &shapes[i]
			}
		}
	}

	var match *ErrorShape
	for i := range shapes {
		if shapes[i].StatusCode == resp.StatusCode {
			if match != nil {
				return nil
			}
			match = &shapes[i]
		}
	}
	return match
}

// shapeBaseName strips a namespace qualifier: "com.example#Throttled" and
// "com.example.Throttled" both yield "Throttled".
func shapeBaseName(name string) string {
	if i := strings.LastIndexAny(name, "#."); i >= 0 {
		return name[i+1:]
	}
	return name
}
