package operr

import (
	"fmt"
	"testing"
)

func TestOperationError(t *testing.T) {
	tests := []struct {
		name     string
		err      *OperationError
		expected string
	}{
		{
			name: "full error",
			err: &OperationError{
				Operation: "fetch batch",
				Component: "erp-sap-adapter",
				Resource:  "invoices",
				Cause:     fmt.Errorf("read timeout"),
			},
			expected: "failed to fetch batch, component: erp-sap-adapter, resource: invoices, cause: read timeout",
		},
		{
			name:     "minimal error",
			err:      &OperationError{Operation: "parse profile", Cause: fmt.Errorf("invalid yaml")},
			expected: "failed to parse profile, cause: invalid yaml",
		},
		{
			name:     "no cause",
			err:      &OperationError{Operation: "acquire session", Component: "postgres"},
			expected: "failed to acquire session, component: postgres",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestOperationErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := &OperationError{Operation: "x", Cause: cause}
	if err.Unwrap() != cause {
		t.Error("Unwrap() did not return cause")
	}
	empty := &OperationError{Operation: "x"}
	if empty.Unwrap() != nil {
		t.Error("Unwrap() with no cause should be nil")
	}
}

func TestFailedTo(t *testing.T) {
	err := FailedTo("connect to redis", fmt.Errorf("connection refused"))
	want := "failed to connect to redis, cause: connection refused"
	if err.Error() != want {
		t.Errorf("FailedTo() = %q, want %q", err.Error(), want)
	}
}
