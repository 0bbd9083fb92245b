// ABOUTME: Tests for the error taxonomy wrappers
// ABOUTME: Verifies classification predicates and wrapping behavior

package remote

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorPredicates(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name                             string
		err                              error
		transient, auth, parse, cacheErr bool
	}{
		{"transient", Transient(base), true, false, false, false},
		{"auth", Auth(base), false, true, false, false},
		{"parse", Parse(base), false, false, true, false},
		{"cache", Cache(base), false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.transient {
				t.Errorf("IsTransient = %v, want %v", got, tt.transient)
			}
			if got := IsAuth(tt.err); got != tt.auth {
				t.Errorf("IsAuth = %v, want %v", got, tt.auth)
			}
			if got := IsParse(tt.err); got != tt.parse {
				t.Errorf("IsParse = %v, want %v", got, tt.parse)
			}
			if got := IsCache(tt.err); got != tt.cacheErr {
				t.Errorf("IsCache = %v, want %v", got, tt.cacheErr)
			}
		})
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("sync feeds: %w", Auth(errors.New("rejected")))
	if !IsAuth(err) {
		t.Error("IsAuth should match a wrapped AuthError")
	}
	if IsTransient(err) {
		t.Error("IsTransient must not match an AuthError")
	}
}

func TestUnwrapPreservesCause(t *testing.T) {
	base := errors.New("disk full")
	if !errors.Is(Cache(base), base) {
		t.Error("Cache must unwrap to its cause")
	}
}

func TestPredicatesRejectNil(t *testing.T) {
	if IsTransient(nil) || IsAuth(nil) || IsParse(nil) || IsCache(nil) {
		t.Error("predicates must be false for nil")
	}
}
