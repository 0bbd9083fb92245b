// ABOUTME: Error taxonomy for remote and cache failures
// ABOUTME: TransientError retries, AuthError surfaces to the user, ParseError skips the item, CacheError is fatal

package remote

import (
	"errors"
	"fmt"
)

// TransientError wraps a failure worth retrying: network loss, timeouts,
// server-side 5xx responses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// AuthError is a permanent failure requiring user action (rejected
// credentials or expired session that could not be renewed).
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("authentication: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// ParseError marks a malformed remote payload or feed document. It is
// permanent for the affected item and must never abort sibling work.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// CacheError marks a local storage failure. Treated as fatal: it indicates
// corrupt local state and must be surfaced, never silently retried.
type CacheError struct {
	Err error
}

func (e *CacheError) Error() string { return fmt.Sprintf("cache: %v", e.Err) }
func (e *CacheError) Unwrap() error { return e.Err }

// Transient wraps err as retry-eligible.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// Auth wraps err as a permanent authentication failure.
func Auth(err error) error {
	if err == nil {
		return nil
	}
	return &AuthError{Err: err}
}

// Parse wraps err as a per-item parse failure.
func Parse(err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Err: err}
}

// Cache wraps err as a fatal local storage failure.
func Cache(err error) error {
	if err == nil {
		return nil
	}
	return &CacheError{Err: err}
}

// IsTransient reports whether err is classified retry-eligible.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsAuth reports whether err is a permanent authentication failure.
func IsAuth(err error) bool {
	var a *AuthError
	return errors.As(err, &a)
}

// IsParse reports whether err is a per-item parse failure.
func IsParse(err error) bool {
	var p *ParseError
	return errors.As(err, &p)
}

// IsCache reports whether err is a fatal local storage failure.
func IsCache(err error) bool {
	var c *CacheError
	return errors.As(err, &c)
}
