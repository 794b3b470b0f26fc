package opcall

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

type throttledError struct {
	RetryAfter int `json:"retry_after"`
}

func shapes() []ErrorShape {
	build := func(name string) func(any, *Response) error {
		return func(payload any, resp *Response) error {
			return errors.New(name)
		}
	}
	return []ErrorShape{
		{Name: "Throttled", StatusCode: 429, Type: reflect.TypeOf(throttledError{}), New: build("Throttled")},
		{Name: "NotFound", StatusCode: 404, Type: reflect.TypeOf(struct{}{}), New: build("NotFound")},
		{Name: "Conflict", StatusCode: 409, Type: reflect.TypeOf(struct{}{}), New: build("Conflict")},
		{Name: "Stale", StatusCode: 409, Type: reflect.TypeOf(struct{}{}), New: build("Stale")},
	}
}

func TestResolveErrorShape_TypeIdentifierWins(t *testing.T) {
	// Conflict and Stale share status 409; the protocol names one of them,
	// so the ambiguous status-code guess must not be used.
	proto := &fakeProtocol{errorType: func(*Response) string { return "Stale" }}
	shape := resolveErrorShape(proto, newTestResponse(409, nil, ""), shapes())
	if shape == nil || shape.Name != "Stale" {
		t.Fatalf("expected Stale, got %+v", shape)
	}
}

func TestResolveErrorShape_NamespaceIgnored(t *testing.T) {
	tests := []string{"com.example#Throttled", "com.example.Throttled", "Throttled"}
	for _, id := range tests {
		proto := &fakeProtocol{errorType: func(*Response) string { return id }}
		shape := resolveErrorShape(proto, newTestResponse(500, nil, ""), shapes())
		if shape == nil || shape.Name != "Throttled" {
			t.Errorf("identifier %q: expected Throttled, got %+v", id, shape)
		}
	}
}

func TestResolveErrorShape_StatusFallback(t *testing.T) {
	proto := &fakeProtocol{}
	shape := resolveErrorShape(proto, newTestResponse(404, nil, ""), shapes())
	if shape == nil || shape.Name != "NotFound" {
		t.Fatalf("expected NotFound, got %+v", shape)
	}
}

func TestResolveErrorShape_AmbiguousStatusIsNoMatch(t *testing.T) {
	proto := &fakeProtocol{}
	if shape := resolveErrorShape(proto, newTestResponse(409, nil, ""), shapes()); shape != nil {
		t.Fatalf("expected no match for ambiguous 409, got %+v", shape)
	}
}

func TestResolveErrorShape_UnknownTypeFallsBackToStatus(t *testing.T) {
	proto := &fakeProtocol{errorType: func(*Response) string { return "SomethingElse" }}
	shape := resolveErrorShape(proto, newTestResponse(429, nil, ""), shapes())
	if shape == nil || shape.Name != "Throttled" {
		t.Fatalf("expected Throttled via status fallback, got %+v", shape)
	}
}

func TestResolveErrorShape_NoMatch(t *testing.T) {
	proto := &fakeProtocol{}
	if shape := resolveErrorShape(proto, newTestResponse(500, nil, ""), shapes()); shape != nil {
		t.Fatalf("expected no match, got %+v", shape)
	}
}

func TestShapeBaseName(t *testing.T) {
	tests := map[string]string{
		"Throttled":             "Throttled",
		"ns#Throttled":          "Throttled",
		"com.example.Throttled": "Throttled",
		"com.example#Throttled": "Throttled",
	}
	for in, want := range tests {
		if got := shapeBaseName(in); got != want {
			t.Errorf("shapeBaseName(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestResponseError_Message(t *testing.T) {
	err := &ResponseError{Operation: "ListItems", StatusCode: 503, Body: []byte("oops")}
	msg := err.Error()
	if !strings.Contains(msg, "ListItems") || !strings.Contains(msg, "503") {
		t.Errorf("message should carry operation and status: %q", msg)
	}
}

func TestInvalidInputError_FieldMessages(t *testing.T) {
	type input struct {
		Name string `validate:"required"`
		Size int    `validate:"max=10"`
	}
	err := validate.Struct(input{Size: 50})
	if err == nil {
		t.Fatal("expected validation failure")
	}

	wrapped := newInvalidInputError("CreateItem", err)
	var invalid *InvalidInputError
	if !errors.As(wrapped, &invalid) {
		t.Fatalf("expected InvalidInputError, got %v", wrapped)
	}
	if invalid.Operation != "CreateItem" {
		t.Errorf("expected operation CreateItem, got %q", invalid.Operation)
	}
	if invalid.Fields["Name"] != "required" {
		t.Errorf("expected Name: required, got %q", invalid.Fields["Name"])
	}
	if !strings.Contains(invalid.Fields["Size"], "at most 10") {
		t.Errorf("expected Size message, got %q", invalid.Fields["Size"])
	}
}
