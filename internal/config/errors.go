package config

import (
	"fmt"
	"path/filepath"
)

// ConfigurationError represents a structured error that occurs while reading
// a configuration or catalog file.
type ConfigurationError struct {
	FilePath  string `json:"filePath"`  // Full path to the file that caused the error
	ErrorType string `json:"errorType"` // Type of error (parse, validation, io)
	Message   string `json:"message"`   // Human-readable error message
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ce.ErrorType, filepath.Base(ce.FilePath), ce.Message)
}
