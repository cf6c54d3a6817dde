// Package apperr is the error taxonomy shared by the booking domain and the
// HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	default:
		return "internal"
	}
}

// Error carries a machine code and a message safe to show to customers.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind and Code so predefined errors work with errors.Is even
// after WithError copies them.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func (e *Error) WithError(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

func NotFound(code, msg string) *Error   { return &Error{Kind: KindNotFound, Code: code, Message: msg} }
func Validation(code, msg string) *Error { return &Error{Kind: KindValidation, Code: code, Message: msg} }
func Conflict(code, msg string) *Error   { return &Error{Kind: KindConflict, Code: code, Message: msg} }

func Transient(msg string, err error) *Error {
	return &Error{Kind: KindTransient, Code: "temporarily_unavailable", Message: msg, Err: err}
}

var (
	ErrOrganizationNotFound = NotFound("organization_not_found", "organization not found")
	ErrServiceNotFound      = NotFound("service_not_found", "service not found")
	ErrProfessionalNotFound = NotFound("professional_not_found", "professional not found")
	ErrCustomerNotFound     = NotFound("customer_not_found", "customer not found")
	ErrAppointmentNotFound  = NotFound("appointment_not_found", "appointment not found")
	ErrDraftNotFound        = NotFound("draft_not_found", "your booking session expired, please start again")

	ErrSlotTaken = Conflict("slot_taken", "that time was just taken, please choose another slot")
)

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the code and message for a response body. Internal errors
// never leak their text.
func Public(err error) (code, message string) {
	if e, ok := As(err); ok && e.Kind != KindInternal {
		return e.Code, e.Message
	}
	return "internal", "something went wrong, please try again"
}
