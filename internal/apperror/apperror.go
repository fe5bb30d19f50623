// Package apperror задает категории ошибок бизнес-логики, которые HTTP слой превращает в коды ответа.
package apperror

import "errors"

// Kind категория ошибки
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	// KindUnavailable означает, что нужная зависимость не настроена или недоступна
	KindUnavailable Kind = "unavailable"
)

// Error ошибка с категорией. Msg показывается клиенту, Err остается во внутренних логах.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func NotFound(msg string, err error) error     { return New(KindNotFound, msg, err) }
func Validation(msg string, err error) error   { return New(KindValidation, msg, err) }
func Conflict(msg string, err error) error     { return New(KindConflict, msg, err) }
func Unauthorized(msg string, err error) error { return New(KindUnauthorized, msg, err) }
func Forbidden(msg string, err error) error    { return New(KindForbidden, msg, err) }
func Unavailable(msg string, err error) error  { return New(KindUnavailable, msg, err) }

// KindOf возвращает категорию первой типизированной ошибки в цепочке
func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) || e == nil {
		return "", false
	}
	return e.Kind, true
}

// Is сообщает, относится ли ошибка к категории kind
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
