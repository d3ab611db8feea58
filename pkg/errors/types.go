package errors

import (
	"fmt"
)

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// NotADirectory represents a path that exists but is not a directory.
type NotADirectory struct {
	Path string
}

func (err NotADirectory) Error() string {
	return fmt.Sprintf("%q is not a directory", err.Path)
}
