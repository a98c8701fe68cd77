package apperr

import (
	"errors"
	"fmt"
)

// Kind классифицирует ошибку предметной области
type Kind int

const (
	KindUnknown Kind = iota
	KindForbidden
	KindInvalidState
	KindInvalidTransition
	KindValidation
	KindNotFound
	KindRoomClosed
	KindTransport
)

// Error — ошибка предметной области с сообщением для пользователя
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New создает ошибку с заданным типом и сообщением
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf создает ошибку с форматированным сообщением
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap оборачивает исходную ошибку, сохраняя тип и сообщение
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf возвращает тип ошибки или KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf возвращает пользовательское сообщение ошибки
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func IsForbidden(err error) bool    { return KindOf(err) == KindForbidden }
func IsValidation(err error) bool   { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsRoomClosed(err error) bool   { return KindOf(err) == KindRoomClosed }
func IsTransport(err error) bool    { return KindOf(err) == KindTransport }

// IsConflict сообщает, что операция выполнена из недопустимого статуса —
// в том числе проигранная гонка принятия предложения
func IsConflict(err error) bool {
	k := KindOf(err)
	return k == KindInvalidState || k == KindInvalidTransition
}
