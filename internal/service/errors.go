package service

import (
	"errors"
	"fmt"
)

var (
	ErrIDRequired = errors.New("id is required")
	ErrNotFound   = errors.New("resource not found")
	ErrForbidden  = errors.New("only the uploader can delete this resource")
	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrStorage marks a failed catalog or blob store call. Retrying may succeed.
	ErrStorage = errors.New("storage failure")
	// ErrPartialWrite matches every PartialWriteError.
	ErrPartialWrite = errors.New("partial write")
)

// ValidationError reports bad input. It is always raised before any network write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PartialWriteError means one store was written and the other was not, and the
// compensating action failed too. Key names the blob left behind.
type PartialWriteError struct {
	Op         string
	Key        string
	ResourceID string
	Err        error
}

func (e *PartialWriteError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s of resource %s left an unreferenced object: %v", e.Op, e.ResourceID, e.Err)
	}
	return fmt.Sprintf("%s left object %q without a catalog entry: %v", e.Op, e.Key, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

func (e *PartialWriteError) Is(target error) bool {
	return target == ErrPartialWrite
}
