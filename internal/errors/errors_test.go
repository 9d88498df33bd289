package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestDomainErrorFormatting(t *testing.T) {
	err := Wrap(fmt.Errorf("dial tcp: timeout"), CodeSourceFetch, "fetch issues")
	msg := err.Error()
	if !strings.Contains(msg, "[SOURCE_FETCH]") {
		t.Fatalf("expected code in message, got %q", msg)
	}
	if !strings.Contains(msg, "timeout") {
		t.Fatalf("expected cause in message, got %q", msg)
	}
}

func TestIsCode(t *testing.T) {
	err := New(CodeUnknownMode, "no such mode")
	if !IsCode(err, CodeUnknownMode) {
		t.Fatalf("expected IsCode to match CodeUnknownMode")
	}
	if IsCode(err, CodeSourceFetch) {
		t.Fatalf("expected IsCode to reject CodeSourceFetch")
	}
	if IsCode(stderrors.New("plain"), CodeUnknownMode) {
		t.Fatalf("expected IsCode to reject non-domain error")
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	inner := New(CodeSourceFetch, "http 500")
	outer := fmt.Errorf("month March 2025: %w", inner)
	if !IsCode(outer, CodeSourceFetch) {
		t.Fatalf("expected IsCode to unwrap standard wrapping")
	}
}

func TestAddContext(t *testing.T) {
	err := AddContext(New(CodeSourceFetch, "http 500"), CtxMonth, "March 2025")
	var de *DomainError
	if !stderrors.As(err, &de) {
		t.Fatalf("expected DomainError")
	}
	if de.Context[CtxMonth] != "March 2025" {
		t.Fatalf("expected month context, got %v", de.Context)
	}
}
