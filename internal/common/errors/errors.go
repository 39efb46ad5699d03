package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode представляет код ошибки
type ErrorCode string

const (
	// Общие ошибки
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeForbidden  ErrorCode = "FORBIDDEN"

	// Identity and session
	ErrCodeIdentityAbsent ErrorCode = "IDENTITY_ABSENT"
	ErrCodeMountNotFound  ErrorCode = "MOUNT_NOT_FOUND"
	ErrCodeLinkingFailure ErrorCode = "LINKING_FAILURE"
	ErrCodeProofInvalid   ErrorCode = "WALLET_PROOF_INVALID"

	// Arena actions
	ErrCodePrecondition  ErrorCode = "PRECONDITION_FAILED"
	ErrCodeWriteRejected ErrorCode = "WRITE_REJECTED"
	ErrCodeActionBusy    ErrorCode = "ACTION_IN_PROGRESS"

	// Chain
	ErrCodeReadFailure ErrorCode = "READ_FAILURE"

	// Хранилища
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeCacheError    ErrorCode = "CACHE_ERROR"
)

// AppError представляет типизированную ошибку приложения
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Context   map[string]string      `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	Wallet    string                 `json:"wallet,omitempty"`
	Cause     error                  `json:"-"`
}

// Error возвращает строковое представление ошибки
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap возвращает причину ошибки
func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsNotFound проверяет, является ли ошибка ошибкой "не найдено"
func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeMountNotFound
}

// IsValidation проверяет, является ли ошибка ошибкой валидации
func (e *AppError) IsValidation() bool {
	return e.Code == ErrCodeValidation || e.Code == ErrCodePrecondition
}

// IsUnauthorized проверяет, является ли ошибка ошибкой авторизации
func (e *AppError) IsUnauthorized() bool {
	return e.Code == ErrCodeForbidden ||
		e.Code == ErrCodeIdentityAbsent ||
		e.Code == ErrCodeProofInvalid
}

// IsInternal проверяет, является ли ошибка внутренней ошибкой
func (e *AppError) IsInternal() bool {
	return e.Code == ErrCodeInternal ||
		e.Code == ErrCodeDatabaseError ||
		e.Code == ErrCodeCacheError
}

// WithContext добавляет контекст к ошибке
func (e *AppError) WithContext(key, value string) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithDetail добавляет детальную информацию к ошибке
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithRequestID добавляет ID запроса к ошибке
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// WithWallet привязывает ошибку к адресу кошелька
func (e *AppError) WithWallet(wallet string) *AppError {
	e.Wallet = wallet
	return e
}

// New создает новую ошибку приложения
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap оборачивает существующую ошибку
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Конструкторы для часто используемых ошибок

// NewValidationError создает ошибку валидации
func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

func NewMountNotFoundError(mountID string) *AppError {
	return New(ErrCodeMountNotFound, fmt.Sprintf("Mount not found: %s", mountID)).
		WithDetail("mount_id", mountID)
}

// NewForbiddenError создает ошибку доступа
func NewForbiddenError(reason string) *AppError {
	return New(ErrCodeForbidden, fmt.Sprintf("Forbidden: %s", reason)).
		WithDetail("reason", reason)
}

// NewIdentityAbsentError is returned when one of the two identities is missing.
func NewIdentityAbsentError(which string) *AppError {
	return New(ErrCodeIdentityAbsent, fmt.Sprintf("%s identity is not connected", which)).
		WithDetail("identity", which)
}

// NewPreconditionError carries the user-visible message verbatim.
func NewPreconditionError(action, message string) *AppError {
	return New(ErrCodePrecondition, message).
		WithDetail("action", action)
}

// NewWriteRejectedError keeps the chain's own message as the user-visible text.
func NewWriteRejectedError(action string, err error) *AppError {
	return Wrap(err, ErrCodeWriteRejected, err.Error()).
		WithDetail("action", action)
}

func NewActionBusyError(action, state string) *AppError {
	return New(ErrCodeActionBusy, fmt.Sprintf("%s is already in progress", action)).
		WithDetail("action", action).
		WithDetail("state", state)
}

func NewReadFailureError(query string, err error) *AppError {
	return Wrap(err, ErrCodeReadFailure, fmt.Sprintf("Chain read failed: %s", query)).
		WithDetail("query", query)
}

func NewLinkingError(wallet string, err error) *AppError {
	return Wrap(err, ErrCodeLinkingFailure, "Failed to link social identity to wallet").
		WithWallet(wallet)
}

// NewDatabaseError создает ошибку базы данных
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, fmt.Sprintf("Database operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// NewCacheError создает ошибку кэша
func NewCacheError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeCacheError, fmt.Sprintf("Cache operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// AsAppError приводит ошибку к AppError, учитывая обертки fmt.Errorf("%w")
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err == nil {
		return nil, false
	}
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
