package errors

import "errors"

// IsNotFound checks if an error indicates a resource was not found.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr) || errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}

	var validationErr *ValidationError
	return errors.As(err, &validationErr) || errors.Is(err, ErrInvalidInput)
}

// IsUnauthorized checks if an error indicates lack of authentication or of
// conversation membership.
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}

	var unauthorizedErr *UnauthorizedError
	return errors.As(err, &unauthorizedErr) || errors.Is(err, ErrUnauthorized)
}

// IsForbidden checks if an error indicates the caller is not a member.
func IsForbidden(err error) bool {
	if err == nil {
		return false
	}

	var forbiddenErr *ForbiddenError
	return errors.As(err, &forbiddenErr) || errors.Is(err, ErrForbidden)
}

// IsConflict checks if an error indicates a resource conflict.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}

	var conflictErr *ConflictError
	return errors.As(err, &conflictErr) || errors.Is(err, ErrConflict)
}

// IsCorrupt checks if an error reports an undecodable stored record.
func IsCorrupt(err error) bool {
	if err == nil {
		return false
	}

	var corruptErr *CorruptError
	return errors.As(err, &corruptErr) || errors.Is(err, ErrCorrupt)
}

// IsDecryption checks if an error reports an unreadable payload.
func IsDecryption(err error) bool {
	if err == nil {
		return false
	}

	var decErr *DecryptionError
	return errors.As(err, &decErr) || errors.Is(err, ErrUndecryptable)
}

// DecryptionReason returns the reason carried by a DecryptionError, or an
// empty reason when err is not one.
func DecryptionReason(err error) DecryptReason {
	var decErr *DecryptionError
	if errors.As(err, &decErr) {
		return decErr.Reason
	}
	return ""
}

// IsServiceUnavailable checks if an error indicates a service is unavailable.
func IsServiceUnavailable(err error) bool {
	if err == nil {
		return false
	}

	var serviceErr *ServiceError
	return errors.As(err, &serviceErr) || errors.Is(err, ErrServiceUnavailable)
}

// IsInternal checks if an error is an internal error.
func IsInternal(err error) bool {
	if err == nil {
		return false
	}

	var internalErr *InternalError
	return errors.As(err, &internalErr) || errors.Is(err, ErrInternal)
}

// ShouldRetry checks if an operation should be retried based on the error.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	if IsServiceUnavailable(err) {
		return true
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return IsRetryable(customErr.Code())
	}

	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	if err == nil {
		return CodeOK
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return customErr.Code()
	}

	switch {
	case IsNotFound(err):
		return CodeNotFound
	case IsValidation(err):
		return CodeValidation
	case IsForbidden(err):
		return CodeForbidden
	case IsUnauthorized(err):
		return CodeUnauthorized
	case IsConflict(err):
		return CodeConflict
	case IsCorrupt(err):
		return CodeCorrupt
	case IsDecryption(err):
		return CodeDecryption
	case IsServiceUnavailable(err):
		return CodeServiceUnavailable
	default:
		return CodeInternal
	}
}

// GetErrorMessage extracts a human-readable message from an error.
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return customErr.Message()
	}

	return err.Error()
}

// Cause returns the underlying cause of an error.
func Cause(err error) error {
	for {
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		underlying := unwrapper.Unwrap()
		if underlying == nil {
			return err
		}
		err = underlying
	}
}
