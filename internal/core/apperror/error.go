// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Business rule violations (422)
	CodeBusinessRule            = "BUSINESS_RULE_VIOLATION"
	CodeInsufficientStock       = "INSUFFICIENT_STOCK"
	CodeInsufficientLotQuantity = "INSUFFICIENT_LOT_QUANTITY"
	CodeAllocationExceeded      = "ALLOCATION_EXCEEDED"

	// Data integrity (409): ledger and lots disagree
	CodeLotDesynchronization = "LOT_DESYNCHRONIZATION"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict = "CONFLICT"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewInsufficientStock creates a stock shortage error.
// Quantities are passed as decimal strings so no precision is lost in the response.
func NewInsufficientStock(materialID string, requested, available, shortfall string) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "Insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"material_id": materialID,
			"requested":   requested,
			"available":   available,
			"shortfall":   shortfall,
		},
	}
}

// NewInsufficientLotQuantity creates a lot shortage error for lot-targeted deductions.
func NewInsufficientLotQuantity(lotID string, requested, available, shortfall string) *AppError {
	return &AppError{
		Code:       CodeInsufficientLotQuantity,
		Message:    "Insufficient quantity in lot",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"lot_id":    lotID,
			"requested": requested,
			"available": available,
			"shortfall": shortfall,
		},
	}
}

// NewLotDesynchronization reports that the ledger balance covers a deduction
// but the material's lots in aggregate do not.
func NewLotDesynchronization(materialID string, requested, lotAvailable, ledgerBalance string) *AppError {
	return &AppError{
		Code:       CodeLotDesynchronization,
		Message:    "Lot quantities are out of sync with the stock ledger",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"material_id":    materialID,
			"requested":      requested,
			"lot_available":  lotAvailable,
			"ledger_balance": ledgerBalance,
		},
	}
}

// NewAllocationExceeded is returned when revenue assigned to materials and labor
// exceeds the sale's total price.
func NewAllocationExceeded(allocated, totalPrice string) *AppError {
	return &AppError{
		Code:       CodeAllocationExceeded,
		Message:    "Allocated amounts exceed total price",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"allocated":   allocated,
			"total_price": totalPrice,
		},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err carries the given AppError code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsValidation checks if error is CodeValidation
func IsValidation(err error) bool {
	return HasCode(err, CodeValidation)
}

// IsInsufficientStock checks if error is CodeInsufficientStock
func IsInsufficientStock(err error) bool {
	return HasCode(err, CodeInsufficientStock)
}

// IsInsufficientLotQuantity checks if error is CodeInsufficientLotQuantity
func IsInsufficientLotQuantity(err error) bool {
	return HasCode(err, CodeInsufficientLotQuantity)
}

// IsLotDesynchronization checks if error is CodeLotDesynchronization
func IsLotDesynchronization(err error) bool {
	return HasCode(err, CodeLotDesynchronization)
}

// IsAllocationExceeded checks if error is CodeAllocationExceeded
func IsAllocationExceeded(err error) bool {
	return HasCode(err, CodeAllocationExceeded)
}
