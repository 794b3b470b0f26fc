package opcall

import (
	"context"
	"testing"
)

func TestInvocationIDFromContext(t *testing.T) {
	if _, ok := InvocationIDFromContext(context.Background()); ok {
		t.Error("expected no invocation ID on a bare context")
	}

	ctx := withInvocationID(context.Background(), "abc-123")
	id, ok := InvocationIDFromContext(ctx)
	if !ok {
		t.Fatal("expected invocation ID")
	}
	if id != "abc-123" {
		t.Errorf("expected abc-123, got %q", id)
	}
}
