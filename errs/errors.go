package errs

import (
	"errors"
	"fmt"
)

type ErrCode string

const (
	CodePermissionDenied ErrCode = "PERMISSION_DENIED"
	CodeNotFound         ErrCode = "NOT_FOUND"
	CodeConflict         ErrCode = "CONFLICT"
	CodeUploadFailed     ErrCode = "UPLOAD_FAILED"
	CodeStoreWriteFailed ErrCode = "STORE_WRITE_FAILED"
	CodeSubscriptionLost ErrCode = "SUBSCRIPTION_LOST"
	CodeInvalidArgument  ErrCode = "INVALID_ARGUMENT"
	CodeInternal         ErrCode = "INTERNAL"
)

// AppError - ошибка с кодом для маппинга на HTTP-статус
type AppError struct {
	ErrCode ErrCode `json:"code"`
	Message string  `json:"message"`
	Cause   error   `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code ErrCode, message string) error {
	return &AppError{ErrCode: code, Message: message}
}

func Wrap(code ErrCode, message string, cause error) error {
	return &AppError{ErrCode: code, Message: message, Cause: cause}
}

func PermissionDenied(msg string) error { return New(CodePermissionDenied, msg) }
func NotFound(msg string) error         { return New(CodeNotFound, msg) }
func Conflict(msg string) error         { return New(CodeConflict, msg) }
func InvalidArg(msg string) error       { return New(CodeInvalidArgument, msg) }
func Internal(msg string) error         { return New(CodeInternal, msg) }

func UploadFailed(cause error) error {
	return Wrap(CodeUploadFailed, "media upload failed", cause)
}

func StoreWriteFailed(op string, cause error) error {
	return Wrap(CodeStoreWriteFailed, op+" rejected by store", cause)
}

func SubscriptionLost(cause error) error {
	return Wrap(CodeSubscriptionLost, "change feed subscription lost", cause)
}

// Code возвращает код ошибки или CodeInternal для необернутых ошибок
func Code(err error) ErrCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ErrCode
	}
	return CodeInternal
}

func Is(err error, code ErrCode) bool {
	return Code(err) == code
}
