package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind adalah kategori error yang dilihat oleh caller
type Kind string

const (
	KindUnauthorized        Kind = "unauthorized"
	KindForbidden           Kind = "forbidden"
	KindNotFound            Kind = "not_found"
	KindAlreadyExists       Kind = "already_exists"
	KindInvalidInput        Kind = "invalid_input"
	KindInsufficientBalance Kind = "insufficient_balance"
	KindGateway             Kind = "gateway_error"
	KindFulfillment         Kind = "fulfillment_error"
	KindInternal            Kind = "internal_error"
)

// Error membawa Kind + pesan singkat untuk client.
// errors.Is(err, ErrNotFound) cocok berdasarkan Kind, bukan pointer.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnauthorized        = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrForbidden           = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
	ErrAlreadyExists       = &Error{Kind: KindAlreadyExists, Message: "already exists"}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance, Message: "insufficient points"}
	ErrGateway             = &Error{Kind: KindGateway, Message: "payment gateway error"}
	ErrFulfillment         = &Error{Kind: KindFulfillment, Message: "fulfillment failed"}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error      { return New(KindNotFound, message) }
func Forbidden(message string) *Error     { return New(KindForbidden, message) }
func InvalidInput(message string) *Error  { return New(KindInvalidInput, message) }
func AlreadyExists(message string) *Error { return New(KindAlreadyExists, message) }

// KindOf mengembalikan Kind dari error, KindInternal kalau bukan *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf mengembalikan pesan yang aman ditampilkan ke client
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus memetakan Kind ke status code HTTP
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists:
		return http.StatusConflict
	case KindInvalidInput, KindInsufficientBalance:
		return http.StatusBadRequest
	case KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
