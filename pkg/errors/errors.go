package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError is the base interface for all application errors
type AppError interface {
	error
	HTTPStatus() int
	Code() string
}

// NotFoundError represents a resource that was not found
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with ID '%s' not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) HTTPStatus() int {
	return http.StatusNotFound
}

func (e *NotFoundError) Code() string {
	return "NOT_FOUND"
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewBulkNotFoundError creates a NotFoundError listing every missing ID in a bulk operation
func NewBulkNotFoundError(resource string, ids []string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: strings.Join(ids, ", ")}
}

// ValidationError represents invalid input on a specific field
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e *ValidationError) Code() string {
	return "VALIDATION_ERROR"
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError represents a conflict with existing data (duplicate api_name etc.)
type ConflictError struct {
	Resource string
	Field    string
	Value    string
}

func (e *ConflictError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("%s already exists with %s='%s'", e.Resource, e.Field, e.Value)
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

func (e *ConflictError) HTTPStatus() int {
	return http.StatusConflict
}

func (e *ConflictError) Code() string {
	return "CONFLICT"
}

// NewConflictError creates a new ConflictError
func NewConflictError(resource, field, value string) *ConflictError {
	return &ConflictError{Resource: resource, Field: field, Value: value}
}

// ProtectedResourceError represents an attempted mutation on a system-protected resource
type ProtectedResourceError struct {
	Resource string
	ID       string
}

func (e *ProtectedResourceError) Error() string {
	return fmt.Sprintf("%s '%s' is system-protected and cannot be modified", e.Resource, e.ID)
}

func (e *ProtectedResourceError) HTTPStatus() int {
	return http.StatusForbidden
}

func (e *ProtectedResourceError) Code() string {
	return "PROTECTED_RESOURCE"
}

// NewProtectedResourceError creates a new ProtectedResourceError
func NewProtectedResourceError(resource, id string) *ProtectedResourceError {
	return &ProtectedResourceError{Resource: resource, ID: id}
}

// InactiveModuleError represents a write against a deactivated module
type InactiveModuleError struct {
	Module string
}

func (e *InactiveModuleError) Error() string {
	return fmt.Sprintf("module '%s' is inactive", e.Module)
}

func (e *InactiveModuleError) HTTPStatus() int {
	return http.StatusUnprocessableEntity
}

func (e *InactiveModuleError) Code() string {
	return "INACTIVE_MODULE"
}

// NewInactiveModuleError creates a new InactiveModuleError
func NewInactiveModuleError(module string) *InactiveModuleError {
	return &InactiveModuleError{Module: module}
}

// IntegrityViolationError represents a schema-level integrity breach
// (self-relationship, malformed api_name, module deletion while records exist)
type IntegrityViolationError struct {
	Message string
}

func (e *IntegrityViolationError) Error() string {
	return fmt.Sprintf("integrity violation: %s", e.Message)
}

func (e *IntegrityViolationError) HTTPStatus() int {
	return http.StatusUnprocessableEntity
}

func (e *IntegrityViolationError) Code() string {
	return "INTEGRITY_VIOLATION"
}

// NewIntegrityViolationError creates a new IntegrityViolationError
func NewIntegrityViolationError(message string) *IntegrityViolationError {
	return &IntegrityViolationError{Message: message}
}

// TooManyTargetsError represents a cardinality breach when linking records
type TooManyTargetsError struct {
	Relationship string
	Count        int
}

func (e *TooManyTargetsError) Error() string {
	return fmt.Sprintf("relationship '%s' accepts at most one target, got %d", e.Relationship, e.Count)
}

func (e *TooManyTargetsError) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e *TooManyTargetsError) Code() string {
	return "TOO_MANY_TARGETS"
}

// NewTooManyTargetsError creates a new TooManyTargetsError
func NewTooManyTargetsError(relationship string, count int) *TooManyTargetsError {
	return &TooManyTargetsError{Relationship: relationship, Count: count}
}

// InternalError represents unexpected server errors
type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal error: %s (caused by: %v)", e.Message, e.Cause)
	}
	return fmt.Sprintf("internal error: %s", e.Message)
}

func (e *InternalError) HTTPStatus() int {
	return http.StatusInternalServerError
}

func (e *InternalError) Code() string {
	return "INTERNAL_ERROR"
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

// NewInternalError creates a new InternalError
func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{Message: message, Cause: cause}
}

// Helper functions for error checking

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// IsValidation checks if an error is a ValidationError or ValidationErrors
func IsValidation(err error) bool {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return true
	}
	var validations ValidationErrors
	return errors.As(err, &validations)
}

// IsConflict checks if an error is a ConflictError
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

// IsProtectedResource checks if an error is a ProtectedResourceError
func IsProtectedResource(err error) bool {
	var protected *ProtectedResourceError
	return errors.As(err, &protected)
}

// IsInactiveModule checks if an error is an InactiveModuleError
func IsInactiveModule(err error) bool {
	var inactive *InactiveModuleError
	return errors.As(err, &inactive)
}

// IsIntegrityViolation checks if an error is an IntegrityViolationError
func IsIntegrityViolation(err error) bool {
	var integrity *IntegrityViolationError
	return errors.As(err, &integrity)
}

// IsTooManyTargets checks if an error is a TooManyTargetsError
func IsTooManyTargets(err error) bool {
	var tooMany *TooManyTargetsError
	return errors.As(err, &tooMany)
}

// GetHTTPStatus returns the HTTP status code for an error
// Returns 500 if the error doesn't implement AppError
func GetHTTPStatus(err error) int {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// GetErrorCode returns the error code for an error
// Returns "UNKNOWN_ERROR" if the error doesn't implement AppError
func GetErrorCode(err error) string {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}
	return "UNKNOWN_ERROR"
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ToResponse converts an error to an ErrorResponse
func ToResponse(err error) ErrorResponse {
	return ErrorResponse{
		Code:    GetErrorCode(err),
		Message: err.Error(),
	}
}
