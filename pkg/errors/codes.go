package errors

// Error codes for categorizing errors.
// These codes map to HTTP status codes at the gateway boundary.
const (
	// CodeOK indicates success (not an error).
	CodeOK = "OK"

	// CodeInternal indicates internal errors.
	CodeInternal = "INTERNAL"

	// CodeValidation indicates input validation failed.
	CodeValidation = "VALIDATION_ERROR"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound = "NOT_FOUND"

	// CodeUnauthorized indicates authentication is required or failed.
	CodeUnauthorized = "UNAUTHORIZED"

	// CodeForbidden indicates the caller is authenticated but not a member
	// of the conversation it is acting on.
	CodeForbidden = "FORBIDDEN"

	// CodeConflict indicates a resource already exists (duplicate contact
	// pair, duplicate conversation id).
	CodeConflict = "CONFLICT"

	// CodeCorrupt indicates stored bytes failed to parse into the expected
	// record shape.
	CodeCorrupt = "DATA_CORRUPT"

	// CodeDecryption indicates a payload could not be opened by the reader.
	CodeDecryption = "DECRYPTION_FAILED"

	// CodeServiceUnavailable indicates a downstream service is unavailable.
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// CodeStorageError indicates a storage operation failed.
	CodeStorageError = "STORAGE_ERROR"
)

// ErrorCategory represents a high-level error category.
type ErrorCategory string

const (
	// CategoryClient indicates a client-side error (4xx).
	CategoryClient ErrorCategory = "CLIENT_ERROR"

	// CategoryServer indicates a server-side error (5xx).
	CategoryServer ErrorCategory = "SERVER_ERROR"

	// CategoryNetwork indicates a network-related error.
	CategoryNetwork ErrorCategory = "NETWORK_ERROR"

	// CategoryAuth indicates an authentication/authorization error.
	CategoryAuth ErrorCategory = "AUTH_ERROR"
)

// GetCategory returns the category for an error code.
func GetCategory(code string) ErrorCategory {
	switch code {
	case CodeValidation, CodeNotFound, CodeConflict, CodeDecryption:
		return CategoryClient

	case CodeUnauthorized, CodeForbidden:
		return CategoryAuth

	case CodeServiceUnavailable:
		return CategoryNetwork

	default:
		return CategoryServer
	}
}

// IsRetryable returns true if an error with the given code should be retried.
func IsRetryable(code string) bool {
	switch code {
	case CodeServiceUnavailable, CodeStorageError:
		return true
	default:
		return false
	}
}
