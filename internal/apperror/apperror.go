// Package apperror defines the typed error taxonomy shared by every core
// component: stage executors, the customer matching engine, the tenant
// manager, the cache layer, and the database/migration/backup subsystems.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind enumerates the semantic error categories from the error handling
// design. Kind drives both the HTTP-shaped status code a caller sees and
// whether an error is carried inside a result type or raised.
type Kind string

const (
	KindConfig         Kind = "config"
	KindConnector      Kind = "connector"
	KindValidation     Kind = "validation"
	KindDuplicate      Kind = "duplicate"
	KindRuleViolation  Kind = "rule_violation"
	KindTimeout        Kind = "timeout"
	KindDatabase       Kind = "database"
	KindCache          Kind = "cache"
	KindCircuitOpen    Kind = "circuit_open"
	KindTenantLimit    Kind = "tenant_limit"
	KindRateLimited    Kind = "rate_limited"
	KindMigration      Kind = "migration"
)

// DatabaseSubkind narrows KindDatabase errors per the error handling design.
type DatabaseSubkind string

const (
	DatabaseSubkindNone       DatabaseSubkind = ""
	DatabaseSubkindConnection DatabaseSubkind = "connection"
	DatabaseSubkindQuery      DatabaseSubkind = "query"
)

var statusByKind = map[Kind]int{
	KindConfig:        http.StatusInternalServerError,
	KindConnector:     http.StatusBadGateway,
	KindValidation:    http.StatusUnprocessableEntity,
	KindDuplicate:     http.StatusConflict,
	KindRuleViolation: http.StatusUnprocessableEntity,
	KindTimeout:       http.StatusGatewayTimeout,
	KindDatabase:      http.StatusInternalServerError,
	KindCache:         http.StatusInternalServerError,
	KindCircuitOpen:   http.StatusServiceUnavailable,
	KindTenantLimit:   http.StatusTooManyRequests,
	KindRateLimited:   http.StatusTooManyRequests,
	KindMigration:     http.StatusInternalServerError,
}

// Error is the typed error every subsystem in this module returns or wraps.
// It is intentionally small: a kind, a human message, optional free-form
// details, an optional database subkind, and an optional wrapped cause.
type Error struct {
	Kind       Kind
	Message    string
	Details    string
	DBSubkind  DatabaseSubkind
	StatusCode int
	Cause      error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, StatusCode: statusByKind[kind]}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

func Wrap(cause error, kind Kind, message string) *Error {
	e := New(kind, message)
	e.Cause = cause
	return e
}

func Wrapf(cause error, kind Kind, format string, args ...any) *Error {
	return Wrap(cause, kind, fmt.Sprintf(format, args...))
}

// Database builds a KindDatabase error carrying the connection/query subkind
// distinction the error handling design asks for.
func Database(cause error, subkind DatabaseSubkind, message string) *Error {
	e := Wrap(cause, KindDatabase, message)
	e.DBSubkind = subkind
	return e
}

func (e *Error) WithDetails(details string) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

func (e *Error) Error() string {
	s := string(e.Kind) + ": " + e.Message
	if e.Details != "" {
		s += " (" + e.Details + ")"
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is comparisons against a bare Kind sentinel created via
// New, so callers can write errors.Is(err, apperror.New(apperror.KindTimeout, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Retryable reports whether the error's kind is conventionally safe to retry
// at the engine layer (transient database/connector failures and timeouts).
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindDatabase:
		return e.DBSubkind == DatabaseSubkindConnection
	case KindConnector, KindTimeout:
		return true
	default:
		return false
	}
}
