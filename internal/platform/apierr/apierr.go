package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeRateLimit    = "RATE_LIMIT"
	CodeExternalAPI  = "EXTERNAL_API_ERROR"
	CodeInternal     = "INTERNAL_ERROR"
)

// Error is a caller-facing failure. Message is what the client sees; Err is the
// underlying cause and is only ever logged.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		if e.Message != "" {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func New(status int, code, message string, err error) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(http.StatusBadRequest, CodeValidation, message, nil)
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "로그인이 필요합니다"
	}
	return New(http.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "접근 권한이 없습니다"
	}
	return New(http.StatusForbidden, CodeForbidden, message, nil)
}

func NotFound(message string) *Error {
	if message == "" {
		message = "리소스를 찾을 수 없습니다"
	}
	return New(http.StatusNotFound, CodeNotFound, message, nil)
}

func RateLimit(message string) *Error {
	if message == "" {
		message = "잠시 후 다시 시도해주세요"
	}
	return New(http.StatusTooManyRequests, CodeRateLimit, message, nil)
}

func ExternalAPI(message string, err error) *Error {
	return New(http.StatusBadGateway, CodeExternalAPI, message, err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, "서버 오류가 발생했습니다", err)
}

// From returns err as an *Error, wrapping anything unclassified as Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}
