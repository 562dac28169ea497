// Package operr wraps infrastructure-boundary failures (adapter I/O, driver
// errors) with enough context to act on before they cross into apperror.
package operr

import "strings"

// OperationError carries the operation that failed, the component that was
// performing it, the resource it touched (if any), and the underlying cause.
type OperationError struct {
	Operation string
	Component string
	Resource  string
	Cause     error
}

func (e *OperationError) Error() string {
	var b strings.Builder
	b.WriteString("failed to ")
	b.WriteString(e.Operation)
	if e.Component != "" {
		b.WriteString(", component: ")
		b.WriteString(e.Component)
	}
	if e.Resource != "" {
		b.WriteString(", resource: ")
		b.WriteString(e.Resource)
	}
	if e.Cause != nil {
		b.WriteString(", cause: ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// FailedTo is a one-line constructor for the common case of an operation
// with only an action and a cause.
func FailedTo(action string, cause error) *OperationError {
	return &OperationError{Operation: action, Cause: cause}
}

// On attaches a component name to an operation failure.
func On(component, action string, cause error) *OperationError {
	return &OperationError{Operation: action, Component: component, Cause: cause}
}
