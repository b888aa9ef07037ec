package kgstore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Sentinel errors for common store error conditions.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrPermissionDenied indicates the acting role is not authorized for
	// the requested triple mutation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotInitialized indicates the manager was used before Initialize
	// or after Shutdown.
	ErrNotInitialized = errors.New("store not initialized")

	// ErrInvalidConfig indicates the provided configuration is invalid or incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrImportEmpty indicates an imported version history carried no versions.
	ErrImportEmpty = errors.New("imported history is empty")
)

// Error kinds categorize errors by their type.
const (
	// KindNotFound represents errors where a resource was not found.
	KindNotFound = "not_found"

	// KindValidation represents errors related to input validation.
	KindValidation = "validation"

	// KindPermission represents errors related to access control decisions.
	KindPermission = "permission"

	// KindPersistence represents errors reading or writing the persisted graph.
	KindPersistence = "persistence"

	// KindConfiguration represents errors related to configuration.
	KindConfiguration = "configuration"

	// KindInternal represents internal store errors.
	KindInternal = "internal"
)

// StoreError is a structured error type that wraps underlying errors with
// additional context about the operation that failed and the category of error.
//
// StoreError implements the error interface and supports error unwrapping,
// making it compatible with errors.Is() and errors.As().
//
// Example usage:
//
//	err := &StoreError{
//		Op:   "Manager.AddTriple",
//		Kind: KindPermission,
//		Err:  ErrPermissionDenied,
//	}
type StoreError struct {
	// Op is the operation that failed (e.g., "Manager.AddTriple", "Manager.Rollback").
	Op string

	// Kind categorizes the error (e.g., KindNotFound, KindPermission).
	Kind string

	// Err is the underlying error that caused this error.
	Err error

	// Context provides additional context about the error (optional).
	// This can include triple components, version indices, or other
	// debugging information.
	Context map[string]any
}

// Error implements the error interface, returning a formatted error message
// that includes the operation, kind, and underlying error.
func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("kgstore: %s: %s", e.Op, e.Kind)
	}

	if len(e.Context) > 0 {
		return fmt.Sprintf("kgstore: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}

	return fmt.Sprintf("kgstore: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error, allowing errors.Is() and errors.As()
// to work correctly with wrapped errors.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements error matching for StoreError, allowing comparison based on
// the underlying error or the StoreError itself.
func (e *StoreError) Is(target error) bool {
	if target == nil {
		return false
	}

	if t, ok := target.(*StoreError); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}

	return errors.Is(e.Err, target)
}

// WithContext returns a new StoreError with the provided context added.
// This is useful for attaching triple components or version indices to errors.
func (e *StoreError) WithContext(ctx map[string]any) *StoreError {
	newErr := *e
	if newErr.Context == nil {
		newErr.Context = make(map[string]any)
	}
	for k, v := range ctx {
		newErr.Context[k] = v
	}
	return &newErr
}

// NewNotFoundError creates a new StoreError with KindNotFound.
func NewNotFoundError(op string, err error) *StoreError {
	return &StoreError{
		Op:   op,
		Kind: KindNotFound,
		Err:  err,
	}
}

// NewValidationError creates a new StoreError with KindValidation.
func NewValidationError(op string, err error) *StoreError {
	return &StoreError{
		Op:   op,
		Kind: KindValidation,
		Err:  err,
	}
}

// NewPermissionError creates a new StoreError with KindPermission.
func NewPermissionError(op string, err error) *StoreError {
	return &StoreError{
		Op:   op,
		Kind: KindPermission,
		Err:  err,
	}
}

// NewPersistenceError creates a new StoreError with KindPersistence.
func NewPersistenceError(op string, err error) *StoreError {
	return &StoreError{
		Op:   op,
		Kind: KindPersistence,
		Err:  err,
	}
}

// NewConfigurationError creates a new StoreError with KindConfiguration.
func NewConfigurationError(op string, err error) *StoreError {
	return &StoreError{
		Op:   op,
		Kind: KindConfiguration,
		Err:  err,
	}
}

// NewInternalError creates a new StoreError with KindInternal.
func NewInternalError(op string, err error) *StoreError {
	return &StoreError{
		Op:   op,
		Kind: KindInternal,
		Err:  err,
	}
}

// CloseWithLog attempts to close the provided resource and logs any error
// at warning level. This is intended for use in defer statements so cleanup
// errors are not silently ignored.
//
// Example:
//
//	defer CloseWithLog(cache, logger, "query cache")
func CloseWithLog(c io.Closer, logger *slog.Logger, name string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
