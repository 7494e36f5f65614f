package dto

import (
	"net/http"
	"strings"
)

// Error codes returned to clients, formatted ERR_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
	ErrCodeValidationLength   = "ERR_VALIDATION_LENGTH"
)

// Authentication error codes
const (
	ErrCodeUnauthorized       = "ERR_UNAUTHORIZED"
	ErrCodeForbidden          = "ERR_FORBIDDEN"
	ErrCodeTokenExpired       = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid       = "ERR_TOKEN_INVALID"
	ErrCodeTokenRevoked       = "ERR_TOKEN_REVOKED"
	ErrCodeInvalidCredentials = "ERR_INVALID_CREDENTIALS"
	ErrCodeUserLocked         = "ERR_USER_LOCKED"
	ErrCodeUserInactive       = "ERR_USER_INACTIVE"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState         = "ERR_INVALID_STATE"
	ErrCodeBusinessRule         = "ERR_BUSINESS_RULE"
	ErrCodeInsufficientStock    = "ERR_INSUFFICIENT_STOCK"
	ErrCodeInsufficientPayment  = "ERR_INSUFFICIENT_PAYMENT"
	ErrCodeProductExpired       = "ERR_PRODUCT_EXPIRED"
	ErrCodeProductInactive      = "ERR_PRODUCT_INACTIVE"
	ErrCodePrescriptionRequired = "ERR_PRESCRIPTION_REQUIRED"
	ErrCodeVoidWindowExpired    = "ERR_VOID_WINDOW_EXPIRED"
	ErrCodeCategoryHasProducts  = "ERR_CATEGORY_HAS_PRODUCTS"
	ErrCodeRoleInUse            = "ERR_ROLE_IN_USE"
	ErrCodeSystemRole           = "ERR_SYSTEM_ROLE"
	ErrCodeCannotDeleteSelf     = "ERR_CANNOT_DELETE_SELF"
)

// Input error codes
const (
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeInvalidID       = "ERR_INVALID_ID"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Availability error codes
const (
	ErrCodeRateLimited        = "ERR_RATE_LIMITED"
	ErrCodeFeatureUnavailable = "ERR_FEATURE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,
	ErrCodeValidationLength:   http.StatusBadRequest,

	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeTokenExpired:       http.StatusUnauthorized,
	ErrCodeTokenInvalid:       http.StatusUnauthorized,
	ErrCodeTokenRevoked:       http.StatusUnauthorized,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeUserLocked:         http.StatusForbidden,
	ErrCodeUserInactive:       http.StatusForbidden,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState:         http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:         http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:    http.StatusUnprocessableEntity,
	ErrCodeInsufficientPayment:  http.StatusUnprocessableEntity,
	ErrCodeProductExpired:       http.StatusUnprocessableEntity,
	ErrCodeProductInactive:      http.StatusUnprocessableEntity,
	ErrCodePrescriptionRequired: http.StatusUnprocessableEntity,
	ErrCodeVoidWindowExpired:    http.StatusUnprocessableEntity,
	ErrCodeCategoryHasProducts:  http.StatusConflict,
	ErrCodeRoleInUse:            http.StatusConflict,
	ErrCodeSystemRole:           http.StatusUnprocessableEntity,
	ErrCodeCannotDeleteSelf:     http.StatusUnprocessableEntity,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidID:       http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeRateLimited:        http.StatusTooManyRequests,
	ErrCodeFeatureUnavailable: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status for an error code.
// Unlisted ERR_INVALID_* codes are input errors; anything else unknown is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "ERR_INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// DomainCodeMapping maps domain error codes whose ERR_ form differs or is shared
var DomainCodeMapping = map[string]string{
	"NOT_FOUND":               ErrCodeNotFound,
	"PRODUCT_NOT_FOUND":       ErrCodeNotFound,
	"ALREADY_EXISTS":          ErrCodeAlreadyExists,
	"EMAIL_TAKEN":             ErrCodeAlreadyExists,
	"ROLE_CODE_TAKEN":         ErrCodeAlreadyExists,
	"INVALID_INPUT":           ErrCodeInvalidInput,
	"INVALID_STATE":           ErrCodeInvalidState,
	"ALREADY_ACTIVE":          ErrCodeInvalidState,
	"ALREADY_INACTIVE":        ErrCodeInvalidState,
	"NOT_DELETED":             ErrCodeInvalidState,
	"NOT_LOCKED":              ErrCodeInvalidState,
	"NOT_A_CUSTOMER":          ErrCodeInvalidState,
	"UNAUTHORIZED":            ErrCodeUnauthorized,
	"FORBIDDEN":               ErrCodeForbidden,
	"CANNOT_MODIFY_SELF":      ErrCodeForbidden,
	"ROLE_PROTECTED":          ErrCodeSystemRole,
	"CONCURRENCY_CONFLICT":    ErrCodeConcurrencyConflict,
	"TOKEN_MAX_REFRESH":       ErrCodeTokenInvalid,
	"EMPTY_SALE":              ErrCodeValidation,
	"DUPLICATE_ITEM":          ErrCodeValidation,
	"REASON_REQUIRED":         ErrCodeValidation,
	"LICENSE_REQUIRED":        ErrCodeValidation,
	"VALIDATION_ERROR":        ErrCodeValidation,
	"BAD_REQUEST":             ErrCodeBadRequest,
	"INTERNAL_ERROR":          ErrCodeInternal,
	"PASSWORD_HASH_ERROR":     ErrCodeInternal,
	"ADMIN_SEED_MISSING":      ErrCodeInternal,
	"IMAGE_TOO_LARGE":         ErrCodeRequestTooLarge,
	"STORAGE_DISABLED":        ErrCodeFeatureUnavailable,
	"RECEIPT_UNAVAILABLE":     ErrCodeFeatureUnavailable,
	"RECEIPT_PDF_UNAVAILABLE": ErrCodeFeatureUnavailable,
}

// NormalizeErrorCode converts a domain error code to its ERR_ form.
// Codes already prefixed with ERR_ are returned unchanged.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainCodeMapping[code]; ok {
		return newCode
	}
	if code == "" {
		return ErrCodeUnknown
	}
	if strings.HasPrefix(code, "ERR_") {
		return code
	}
	return "ERR_" + code
}
