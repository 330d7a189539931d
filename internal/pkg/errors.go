package pkg

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindUnavailable
)

// AppError 业务错误，Msg 可以直接返回给客户端
type AppError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *AppError) Unwrap() error { return e.Err }

func Validation(msg string) error      { return &AppError{Kind: KindValidation, Msg: msg} }
func Unauthenticated(msg string) error { return &AppError{Kind: KindUnauthenticated, Msg: msg} }
func Forbidden(msg string) error       { return &AppError{Kind: KindForbidden, Msg: msg} }
func NotFound(msg string) error        { return &AppError{Kind: KindNotFound, Msg: msg} }
func Conflict(msg string) error        { return &AppError{Kind: KindConflict, Msg: msg} }
func Unavailable(msg string) error     { return &AppError{Kind: KindUnavailable, Msg: msg} }

// KindOf 对任意错误分类，未知错误一律视为 Internal
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return KindConflict
	}
	return KindInternal
}

// PublicMessage 返回客户端可见的信息；Internal 使用 fallback
func PublicMessage(err error, fallback string) string {
	var ae *AppError
	if errors.As(err, &ae) && ae.Kind != KindInternal {
		return ae.Msg
	}
	switch KindOf(err) {
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	}
	return fallback
}

func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
