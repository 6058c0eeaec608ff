package dto

import "net/http"

// Transport-level error codes for failures that happen before a request
// reaches the application layer.
const (
	// ErrCodeBadRequest is used for malformed requests and bind failures
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeInternal is used for unexpected server errors
	ErrCodeInternal = "INTERNAL_ERROR"
)

// errorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Business rule violations map to 422, conflicts on shared state to 409.
var errorCodeHTTPStatus = map[string]int{
	"NOT_FOUND":          http.StatusNotFound,
	"MOVEMENT_NOT_FOUND": http.StatusNotFound,

	"ALREADY_EXISTS":          http.StatusConflict,
	"CONCURRENT_MODIFICATION": http.StatusConflict,
	"ALREADY_REVERSED":        http.StatusConflict,
	"STOCK_DRIFT":             http.StatusConflict,

	"VALIDATION_ERROR": http.StatusBadRequest,
	ErrCodeBadRequest:  http.StatusBadRequest,

	"INVALID_TRANSITION": http.StatusUnprocessableEntity,
	"INVALID_STATE":      http.StatusUnprocessableEntity,
	"INSUFFICIENT_STOCK": http.StatusUnprocessableEntity,
	"CURRENCY_MISMATCH":  http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status for an error code. Unknown codes,
// including invariant violations like UNBALANCED_ENTRY, fall back to 500.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
