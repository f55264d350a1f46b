package apperr

import (
	"errors"
	"fmt"
	"testing"
)

var errSample = New(ErrConflict, "sample_conflict", "sample conflict")

func TestSentinelMatchesKindAndItself(t *testing.T) {
	wrapped := fmt.Errorf("start: %w", errSample)

	if !errors.Is(wrapped, errSample) {
		t.Fatalf("expected wrapped error to match sentinel")
	}
	if !errors.Is(wrapped, ErrConflict) {
		t.Fatalf("expected wrapped error to match conflict kind")
	}
	if errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("conflict must not match not found")
	}
	if CodeOf(wrapped, "x") != "sample_conflict" {
		t.Fatalf("unexpected code %q", CodeOf(wrapped, "x"))
	}
}

func TestStoreKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Store("insert feeding session", cause)

	if !errors.Is(err, ErrStore) {
		t.Fatalf("expected store kind")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be preserved")
	}
	if err.Error() != "insert feeding session: connection reset" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestStoreDoesNotRewrapDomainErrors(t *testing.T) {
	if got := Store("lookup", errSample); got != error(errSample) {
		t.Fatalf("expected domain error to pass through, got %v", got)
	}
	if Store("noop", nil) != nil {
		t.Fatalf("expected nil for nil cause")
	}
}

func TestValidationFormatsMessage(t *testing.T) {
	err := Validation("invalid_grams", "grams must be positive, got %d", -5)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation kind")
	}
	if MessageOf(err, "") != "grams must be positive, got -5" {
		t.Fatalf("unexpected message %q", MessageOf(err, ""))
	}
}
