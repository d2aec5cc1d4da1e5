package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestWrapDrawErrorKeepsSentinel(t *testing.T) {
	sentinels := []error{
		ErrInsufficientFunds,
		ErrNoEligibleTicket,
		ErrInvalidRequest,
		ErrPoolExhausted,
		ErrOutOfStock,
	}

	for _, sentinel := range sentinels {
		wrapped := wrapDrawError(fmt.Errorf("draw: %w", sentinel))
		if !errors.Is(wrapped, sentinel) {
			t.Fatalf("wrapping must keep the sentinel; lost %v", sentinel)
		}
	}
}

func TestWrapDrawErrorConflict(t *testing.T) {
	wrapped := wrapDrawError(fmt.Errorf("query: %w", context.DeadlineExceeded))
	if !errors.Is(wrapped, ErrPersistenceConflict) {
		t.Fatalf("timeouts must surface as a persistence conflict; got %v", wrapped)
	}
}

func TestWrapDrawErrorPassthrough(t *testing.T) {
	plain := errors.New("boom")
	if got := wrapDrawError(plain); got != plain {
		t.Fatalf("unknown errors must pass through; got %v", got)
	}
}

func TestIsConflictError(t *testing.T) {
	if isConflictError(errors.New("nope")) {
		t.Fatal("plain errors are not conflicts")
	}
	if !isConflictError(context.DeadlineExceeded) {
		t.Fatal("deadline exceeded is a conflict")
	}
}
