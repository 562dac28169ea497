package apperror

import (
	"errors"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(KindValidation, "amount must be positive")

	if err.Kind != KindValidation {
		t.Errorf("Kind = %v, want %v", err.Kind, KindValidation)
	}
	if err.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want %d", err.StatusCode, http.StatusUnprocessableEntity)
	}
	if err.Error() != "validation: amount must be positive" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestWithDetails(t *testing.T) {
	err := New(KindRuleViolation, "VAT mismatch").WithDetails("expected 7500.00, got 7499.00")

	want := "rule_violation: VAT mismatch (expected 7500.00, got 7499.00)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, KindConnector, "fetch from erp-sap failed")

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap() did not return cause")
	}
}

func TestDatabaseSubkind(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Database(cause, DatabaseSubkindConnection, "acquire session")

	if err.DBSubkind != DatabaseSubkindConnection {
		t.Errorf("DBSubkind = %v, want %v", err.DBSubkind, DatabaseSubkindConnection)
	}
	if !Retryable(err) {
		t.Error("Retryable(connection error) = false, want true")
	}

	queryErr := Database(errors.New("syntax error"), DatabaseSubkindQuery, "insert failed")
	if Retryable(queryErr) {
		t.Error("Retryable(query error) = true, want false")
	}
}

func TestIsKind(t *testing.T) {
	err := New(KindCircuitOpen, "L2 cache circuit open")
	if !IsKind(err, KindCircuitOpen) {
		t.Error("IsKind = false, want true")
	}
	if IsKind(err, KindCache) {
		t.Error("IsKind(KindCache) = true, want false")
	}
	if IsKind(errors.New("plain"), KindCache) {
		t.Error("IsKind on a non-*Error = true, want false")
	}
}

func TestRetryableNonDatabase(t *testing.T) {
	if !Retryable(New(KindConnector, "upstream 503")) {
		t.Error("connector errors should be retryable")
	}
	if Retryable(New(KindValidation, "bad input")) {
		t.Error("validation errors should not be retryable")
	}
}
