// internal/api/error_codes.go
package api

// API error codes
const (
	// generic
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"
	ErrorRateLimited   = "RATE_LIMIT_EXCEEDED"
	ErrorCancelled     = "REQUEST_CANCELLED"

	// view state machine
	ErrorInvalidTransition = "INVALID_TRANSITION"

	// generation
	ErrorAPIKeyMissing     = "API_KEY_MISSING"
	ErrorMalformedResponse = "MALFORMED_RESPONSE"
	ErrorProviderError     = "PROVIDER_ERROR"

	// project
	ErrorChapterNotFound = "CHAPTER_NOT_FOUND"
	ErrorImageNotFound   = "IMAGE_NOT_FOUND"
	ErrorImageInvalid    = "IMAGE_INVALID"

	// export
	ErrorExportFailed        = "EXPORT_FAILED"
	ErrorExportFormatInvalid = "EXPORT_FORMAT_INVALID"
)
