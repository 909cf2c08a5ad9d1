package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value, entityType string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("is required for %s", entityType),
		}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidatePort checks that a port number is usable
func ValidatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return ValidationError{
			Field:   field,
			Value:   port,
			Message: "must be between 1 and 65535",
		}
	}
	return nil
}

// Validate checks the whole configuration and returns ValidationErrors
// listing every problem found, or nil.
func (c Config) Validate() error {
	var errs ValidationErrors

	addErr := func(err error) {
		if ve, ok := err.(ValidationError); ok {
			errs = append(errs, ve)
		}
	}

	addErr(ValidatePort("server.port", c.Server.Port))
	addErr(ValidateOneOf("runtime.type", string(c.Runtime.Type), []string{
		string(RuntimeTypeSwarm), string(RuntimeTypeKubernetes), string(RuntimeTypeMemory),
	}))
	if c.Runtime.Type == RuntimeTypeKubernetes {
		addErr(ValidateRequired("runtime.namespace", c.Runtime.Namespace, "the kubernetes runtime"))
		// Services are ClusterIP only, nothing listens on a published port.
		if c.Health.Host != "" {
			errs.Add("health.host", "is not supported by the kubernetes runtime", c.Health.Host)
		}
	}

	if c.Health.Interval < 0 {
		errs.Add("health.interval", "must not be negative", c.Health.Interval)
	}
	if c.Health.InfraAttempts < 1 {
		errs.Add("health.infraAttempts", "must be at least 1", c.Health.InfraAttempts)
	}
	if c.Health.ComponentAttempts < 1 {
		errs.Add("health.componentAttempts", "must be at least 1", c.Health.ComponentAttempts)
	}
	if c.Health.RequestTimeout <= 0 {
		errs.Add("health.requestTimeout", "must be positive", c.Health.RequestTimeout)
	}

	if c.Server.WriteTimeout < 0 {
		errs.Add("server.writeTimeout", "must not be negative", c.Server.WriteTimeout)
	} else if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= c.Health.TransitionBudget() {
		errs.Add("server.writeTimeout", fmt.Sprintf("must exceed the health budget of %s", c.Health.TransitionBudget()), c.Server.WriteTimeout)
	}

	if !c.Notifications.Disabled {
		addErr(ValidatePort("notifications.port", c.Notifications.Port))
		if !strings.HasPrefix(c.Notifications.Path, "/") {
			errs.Add("notifications.path", "must start with '/'", c.Notifications.Path)
		}
	}

	if c.Coordinator.MaxParallel < 0 {
		errs.Add("coordinator.maxParallel", "must not be negative", c.Coordinator.MaxParallel)
	}

	addErr(ValidateRequired("infraComponent", c.InfraComponent, "the engine"))

	if c.CatalogPath == "" {
		validateComponents(c.Components, &errs)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateComponents(components []ComponentConfig, errs *ValidationErrors) {
	if len(components) == 0 {
		errs.Add("components", "must have at least one item")
		return
	}

	seen := make(map[string]bool, len(components))
	for i, comp := range components {
		field := fmt.Sprintf("components[%d]", i)
		if strings.TrimSpace(comp.Name) == "" {
			errs.Add(field+".name", "is required")
			continue
		}
		if strings.ContainsAny(comp.Name, " /:") {
			errs.Add(field+".name", "cannot contain spaces, '/' or ':'", comp.Name)
		}
		if seen[comp.Name] {
			errs.Add(field+".name", "is duplicated", comp.Name)
		}
		seen[comp.Name] = true

		if err := ValidatePort(field+".port", comp.Port); err != nil {
			*errs = append(*errs, err.(ValidationError))
		}
		if comp.TargetPort != 0 {
			if err := ValidatePort(field+".targetPort", comp.TargetPort); err != nil {
				*errs = append(*errs, err.(ValidationError))
			}
		}
	}
}
