package types

import (
	"errors"
	"fmt"
)

var (
	ErrNoAccountsResolved = errors.New("no accounts resolved for the request scope. Configure accounts or AWS credentials first")
	ErrNoReportsResolved  = errors.New("no reports matched the requested names")
)

// ConfigurationError signals missing or invalid scope or settings input;
// the batch aborts immediately when one surfaces.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// BackendRequestError records a request the backend rejected or failed,
// keeping the backend-stated reason and the external query id when one was
// assigned.
type BackendRequestError struct {
	Provider string
	Report   string
	QueryID  string
	Reason   string
	Err      error
}

func (e *BackendRequestError) Error() string {
	msg := fmt.Sprintf("%s: report %q failed", e.Provider, e.Report)
	if e.QueryID != "" {
		msg += fmt.Sprintf(" (query %s)", e.QueryID)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BackendRequestError) Unwrap() error { return e.Err }

// CacheIntegrityError marks a cache entry that could not be decoded.
// Callers treat it as a cache miss and fall back to a live fetch.
type CacheIntegrityError struct {
	Fingerprint string
	Err         error
}

func (e *CacheIntegrityError) Error() string {
	return fmt.Sprintf("cache entry %s unreadable: %v", e.Fingerprint, e.Err)
}

func (e *CacheIntegrityError) Unwrap() error { return e.Err }

// DependencyError marks a report that was never executed because a base
// report it depends on did not succeed.
type DependencyError struct {
	Report  string
	Base    string
	BaseErr error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("report %q not executed: base report %q failed: %v", e.Report, e.Base, e.BaseErr)
}

func (e *DependencyError) Unwrap() error { return e.BaseErr }
