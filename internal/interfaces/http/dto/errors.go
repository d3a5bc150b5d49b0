package dto

import "net/http"

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
)

// Resource error codes
const (
	ErrCodeNotFound = "ERR_NOT_FOUND"
	ErrCodeConflict = "ERR_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes. Domain
// error codes that are not listed here fall through to 422: they are
// business rule refusals, not transport failures.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeNotFound: http.StatusNotFound,
	ErrCodeConflict: http.StatusConflict,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodeBusinessRule: http.StatusUnprocessableEntity,

	// Domain codes surfaced by the form editing flow
	"NOT_FOUND":                  http.StatusNotFound,
	"ALREADY_FINALISED":          http.StatusConflict,
	"UNSAVED_CHANGES":            http.StatusConflict,
	"LINES_UNCONFIRMED":          http.StatusUnprocessableEntity,
	"SESSION_CLOSED":             http.StatusConflict,
	"CONFIRMATION_REQUIRED":      http.StatusConflict,
	"VALUES_DO_NOT_BALANCE":      http.StatusUnprocessableEntity,
	"NEGATIVE_FINAL_BALANCE":     http.StatusUnprocessableEntity,
	"LINE_NOT_FOUND":             http.StatusUnprocessableEntity,
	"STOCK_OUT_EXCEEDS_PERIOD":   http.StatusUnprocessableEntity,
	"REQUESTED_QUANTITY_NEGATIVE": http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusUnprocessableEntity
}
