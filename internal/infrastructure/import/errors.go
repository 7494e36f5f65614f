package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

// Row error codes
const (
	ErrCodeMalformedRow     = "ERR_IMPORT_MALFORMED_ROW"
	ErrCodeRequiredField    = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeInvalidType      = "ERR_IMPORT_INVALID_TYPE"
	ErrCodeInvalidValue     = "ERR_IMPORT_INVALID_VALUE"
	ErrCodeDuplicateInFile  = "ERR_IMPORT_DUPLICATE_IN_FILE"
	ErrCodeTooManyRows      = "ERR_IMPORT_TOO_MANY_ROWS"
	ErrCodeReferenceMissing = "ERR_IMPORT_REFERENCE_NOT_FOUND"
)

var (
	ErrEmptyFile       = errors.New("CSV file is empty")
	ErrInvalidEncoding = errors.New("CSV file is not valid UTF-8")
	ErrMissingHeader   = errors.New("CSV file missing header row")
	ErrNoDataRows      = errors.New("CSV file contains no data rows")
)

// maxCollectedErrors bounds how many row errors are kept for the response
const maxCollectedErrors = 100

// RowError is a problem with one line of the file
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowError creates a new RowError
func NewRowError(row int, column, code, message string) RowError {
	return RowError{Row: row, Column: column, Code: code, Message: message}
}

// ErrorCollection accumulates row errors, keeping the first maxCollectedErrors
type ErrorCollection struct {
	errors     []RowError
	totalCount int
}

// NewErrorCollection creates an empty ErrorCollection
func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{}
}

// Add records an error
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < maxCollectedErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddRequired records a missing mandatory value
func (ec *ErrorCollection) AddRequired(row int, column string) {
	ec.Add(NewRowError(row, column, ErrCodeRequiredField, fmt.Sprintf("field '%s' is required", column)))
}

// AddInvalid records a value that could not be interpreted
func (ec *ErrorCollection) AddInvalid(row int, column, code, message, value string) {
	e := NewRowError(row, column, code, message)
	e.Value = value
	ec.Add(e)
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// HasErrors reports whether any error was recorded
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// TotalCount includes errors dropped past the collection limit
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d error(s) found", ec.totalCount)
	if ec.totalCount > len(ec.errors) {
		fmt.Fprintf(&sb, " (showing first %d)", len(ec.errors))
	}
	sb.WriteString(":\n")
	for _, err := range ec.errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}
