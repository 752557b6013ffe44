package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies engine errors so transports can map them without
// inspecting message text.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindInvalidTransition
	KindTerminalState
	KindConflict
	KindNotFound
	KindPromoRejected
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindTerminalState:
		return "terminal_state"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindPromoRejected:
		return "promo_rejected"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    Kind
	Field   string // set for validation errors
	Reason  string // set for promo rejections
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func Validationf(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func InvalidTransition(from, to string) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf("illegal transition from %q to %q", from, to)}
}

func TerminalState(entity, status string) *Error {
	return &Error{Kind: KindTerminalState, Message: fmt.Sprintf("%s is %s and cannot change", entity, status)}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

func PromoRejected(reason string) *Error {
	return &Error{Kind: KindPromoRejected, Reason: reason, Message: "promo code rejected: " + reason}
}

// KindOf unwraps err and reports its Kind, or KindUnknown for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus maps an error to the status code handlers respond with.
// Conflict-class errors share 409; callers distinguish them by the
// kind field in the response body.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindPromoRejected:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidTransition, KindTerminalState, KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
