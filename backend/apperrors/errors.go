// Package apperrors defines the error taxonomy shared by services, stores and controllers.
package apperrors

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindAuthorization
	KindExternalService
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindNotFound:
		return "NotFoundError"
	case KindConflict:
		return "ConflictError"
	case KindAuthorization:
		return "AuthorizationError"
	case KindExternalService:
		return "ExternalServiceError"
	default:
		return "InternalError"
	}
}

// Error is a classified error. Sentinels are compared by identity, so wrap them
// with fmt.Errorf("...: %w", ErrX) to add context.
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Status: defaultStatus(kind), Message: message}
}

func NewWithStatus(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}

func defaultStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthorization:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

var (
	ErrMissingFields    = New(KindValidation, "All fields are required")
	ErrInvalidID        = New(KindValidation, "Invalid identifier")
	ErrInvalidSignature = New(KindValidation, "Payment verification failed: invalid signature")
	ErrOrderMismatch    = New(KindValidation, "Payment verification failed: order does not match the courses")

	ErrUserNotFound       = New(KindNotFound, "User not found")
	ErrCourseNotFound     = New(KindNotFound, "Course not found")
	ErrCategoryNotFound   = New(KindNotFound, "Category not found")
	ErrSectionNotFound    = New(KindNotFound, "Section not found")
	ErrSubSectionNotFound = New(KindNotFound, "SubSection not found")
	ErrProgressNotFound   = New(KindNotFound, "Course progress not found")
	ErrNotEnrolled        = New(KindNotFound, "Student is not enrolled in the course")

	ErrAlreadyEnrolled  = New(KindConflict, "Student is already enrolled")
	ErrAlreadyCompleted = New(KindConflict, "SubSection already completed")
	ErrAlreadyReviewed  = NewWithStatus(KindConflict, http.StatusForbidden, "Course is already reviewed by the user")
	ErrUserExists       = NewWithStatus(KindConflict, http.StatusUnauthorized, "User already exists")

	ErrUnauthorized = New(KindAuthorization, "Unauthorized")
	ErrForbidden    = NewWithStatus(KindAuthorization, http.StatusForbidden, "You are not allowed to access this resource")

	ErrPaymentGateway = New(KindExternalService, "Could not initiate order")
	ErrOrderLookup    = New(KindExternalService, "Could not fetch order")
	ErrEmailDelivery  = New(KindExternalService, "Could not send email")
	ErrStorage        = New(KindExternalService, "Could not upload file")
)

// As returns the classified error inside err, or nil.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// Status maps any error to an HTTP status; unclassified errors are internal.
func Status(err error) int {
	if e := As(err); e != nil {
		return e.Status
	}
	return http.StatusInternalServerError
}

func IsKind(err error, kind Kind) bool {
	e := As(err)
	return e != nil && e.Kind == kind
}
