package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ValidationError reports a malformed request: a body that does not match
// the workflow schema, an unknown component, or an illegal change.
// It is always detected before any cluster action is taken.
type ValidationError struct {
	// Field is the offending field (JSON name), empty for whole-body errors
	Field string

	// Message describes the problem
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid workflow request: %s", e.Message)
	}
	return fmt.Sprintf("invalid workflow request: field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field.
//
// Example:
//
//	return api.NewValidationError("method", "cannot change from edge to persistent")
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError reports a request that clashes with the current registry
// state: creating an existing storeId, updating a missing one, or starting a
// transition while another one for the same storeId is still running.
type ConflictError struct {
	StoreID string
	Message string
}

// Error implements the error interface for ConflictError.
func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("workflow %s conflicts with the current state", e.StoreID)
}

// NewConflictError creates a ConflictError with a descriptive message.
func NewConflictError(storeID, format string, args ...interface{}) *ConflictError {
	return &ConflictError{
		StoreID: storeID,
		Message: fmt.Sprintf(format, args...),
	}
}

// NotFoundError represents a resource not found error with contextual information.
//
// The error includes resource type and name for precise error reporting and
// supports custom error messages for specific use cases.
type NotFoundError struct {
	// ResourceType categorizes the type of resource that was not found
	// (e.g., "workflow", "component", "service")
	ResourceType string

	// ResourceName is the specific identifier of the resource that was not found
	ResourceName string

	// Message provides a custom error message if the default format is insufficient
	Message string
}

// Error implements the error interface for NotFoundError.
// Returns either the custom message if provided, or a formatted default message
// using the resource type and name.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

// NewNotFoundError creates a new NotFoundError with the specified resource type and name.
//
// Example:
//
//	return api.NewNotFoundError("workflow", storeID)
func NewNotFoundError(resourceType, resourceName string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
	}
}

// NewWorkflowNotFoundError creates a workflow not found error.
func NewWorkflowNotFoundError(storeID string) *NotFoundError {
	return NewNotFoundError("workflow", storeID)
}

// DependencyTimeout reports a component instance that did not become
// healthy within its retry budget.
type DependencyTimeout struct {
	// Component is the catalog name, Instance the cluster service name
	Component string
	Instance  string

	// Attempts is the number of probes made before giving up
	Attempts int

	// Interval is the pause between two probes
	Interval time.Duration

	// Last is the error returned by the final probe, if any
	Last error
}

// Error implements the error interface for DependencyTimeout.
func (e *DependencyTimeout) Error() string {
	msg := fmt.Sprintf("%s (%s) not healthy after %d attempts %s apart", e.Component, e.Instance, e.Attempts, e.Interval)
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

// Unwrap returns the last probe error.
func (e *DependencyTimeout) Unwrap() error {
	return e.Last
}

// ComponentFailure is one failed action of a transition.
type ComponentFailure struct {
	Component string
	Action    string
	Err       error
}

// Error implements the error interface for ComponentFailure.
func (e *ComponentFailure) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Action, e.Component, e.Err)
}

// Unwrap returns the underlying error.
func (e *ComponentFailure) Unwrap() error {
	return e.Err
}

// PartialFailure reports a transition that was aborted because at least one
// component action failed. By the time it is returned the compensating
// actions have run and the registry is unchanged.
type PartialFailure struct {
	StoreID   string
	Operation Operation
	Failures  []error
}

// Error implements the error interface for PartialFailure.
func (e *PartialFailure) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("%s of workflow %s failed: %s", e.Operation, e.StoreID, strings.Join(parts, "; "))
}

// Unwrap exposes every component failure to errors.Is and errors.As.
func (e *PartialFailure) Unwrap() []error {
	return e.Failures
}

// Components returns the names of the failed components, in failure order.
func (e *PartialFailure) Components() []string {
	var names []string
	for _, f := range e.Failures {
		var cf *ComponentFailure
		if errors.As(f, &cf) {
			names = append(names, cf.Component)
		}
	}
	return names
}

// IsValidation checks if an error is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsConflict checks if an error is or wraps a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsNotFound checks if an error is a NotFoundError using error unwrapping.
//
// Example:
//
//	spec, err := planner.Teardown(ctx, "missing")
//	if api.IsNotFound(err) {
//	    // respond 404
//	}
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsDependencyTimeout checks if an error is or wraps a DependencyTimeout.
func IsDependencyTimeout(err error) bool {
	var target *DependencyTimeout
	return errors.As(err, &target)
}

// IsPartialFailure checks if an error is or wraps a PartialFailure.
func IsPartialFailure(err error) bool {
	var target *PartialFailure
	return errors.As(err, &target)
}

// HTTPStatus maps an error of the taxonomy to the status code the REST
// surface answers with. Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsPartialFailure(err):
		// Checked first: component failures may wrap any other kind.
		return http.StatusForbidden
	case IsValidation(err):
		return http.StatusBadRequest
	case IsConflict(err):
		return http.StatusConflict
	case IsNotFound(err):
		return http.StatusNotFound
	case IsDependencyTimeout(err):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
