// Package apperr 统一的错误分类，HTTP 层只依赖 Kind 做状态码映射
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindNotFound          Kind = "not_found"
	KindTagNotFound       Kind = "tag_not_found"
	KindRateLimited       Kind = "rate_limited"
	KindUpstream          Kind = "upstream_error"
	KindDuplicate         Kind = "duplicate"
	KindInvalidExternalID Kind = "invalid_external_id"
	KindInternal          Kind = "internal"
)

// 哨兵错误，配合 errors.Is 使用：errors.Is(err, apperr.ErrNotFound)
var (
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrTagNotFound       = &Error{Kind: KindTagNotFound}
	ErrRateLimited       = &Error{Kind: KindRateLimited}
	ErrUpstream          = &Error{Kind: KindUpstream}
	ErrDuplicate         = &Error{Kind: KindDuplicate}
	ErrInvalidExternalID = &Error{Kind: KindInvalidExternalID}
	ErrInternal          = &Error{Kind: KindInternal}
)

// Error 带类别的错误。Msg 面向调用方，Err 为底层原因
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is 同类别即视为匹配
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New 创建指定类别的错误
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap 用指定类别包装底层错误
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func InvalidInput(format string, args ...interface{}) *Error {
	return New(KindInvalidInput, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

func TagNotFound(slug string) *Error {
	return New(KindTagNotFound, "Tag not found for slug: %s", slug)
}

func RateLimited() *Error {
	return New(KindRateLimited, "Polymarket API rate limited")
}

func Upstream(err error, format string, args ...interface{}) *Error {
	return Wrap(KindUpstream, err, format, args...)
}

func Duplicate(format string, args ...interface{}) *Error {
	return New(KindDuplicate, format, args...)
}

func Internal(err error, format string, args ...interface{}) *Error {
	return Wrap(KindInternal, err, format, args...)
}

// KindOf 取出错误链上第一个 *Error 的类别，非 *Error 视为 Internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus 错误类别到 HTTP 状态码的唯一映射
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput, KindInvalidExternalID:
		return http.StatusBadRequest
	case KindNotFound, KindTagNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstream:
		return http.StatusBadGateway
	case KindDuplicate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
