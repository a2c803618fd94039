package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode - код ошибки для API
type ErrorCode string

const (
	ErrorCodeSyncInProgress ErrorCode = "SYNC_IN_PROGRESS"
	ErrorCodePlanInProgress ErrorCode = "PLAN_IN_PROGRESS"
	ErrorCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrorCodeTrackerError   ErrorCode = "TRACKER_ERROR"
	ErrorCodeAgentError     ErrorCode = "AGENT_ERROR"
	ErrorCodeInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrorCodeInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrorCodeForbidden      ErrorCode = "FORBIDDEN"
)

// Error - доменная ошибка с HTTP статусом и кодом
type Error struct {
	Status  int       // HTTP status code
	Code    ErrorCode // Код ошибки для API
	Message string    // Сообщение об ошибке
	Err     error     // Wrapped error для контекста
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap позволяет использовать errors.Is и errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError создаёт новую доменную ошибку
func NewError(status int, code ErrorCode, message string, err error) *Error {
	return &Error{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Предопределённые доменные ошибки
var (
	// ErrLockHeld - синхронизация для команды уже запущена другим процессом
	ErrLockHeld = NewError(
		http.StatusConflict,
		ErrorCodeSyncInProgress,
		"sync already running for this team",
		nil,
	)

	// ErrPlanInProgress - построение плана для команды уже запущено
	ErrPlanInProgress = NewError(
		http.StatusConflict,
		ErrorCodePlanInProgress,
		"plan generation already running for this team",
		nil,
	)

	// ErrResourceNotFound - ресурс не найден
	ErrResourceNotFound = NewError(
		http.StatusNotFound,
		ErrorCodeNotFound,
		"resource not found",
		nil,
	)

	// ErrInternal - внутренняя ошибка сервера
	ErrInternal = NewError(
		http.StatusInternalServerError,
		ErrorCodeInternalError,
		"internal server error",
		nil,
	)

	// ErrInvalidInput - невалидные входные данные
	ErrInvalidInput = NewError(
		http.StatusBadRequest,
		ErrorCodeInvalidInput,
		"invalid input data",
		nil,
	)

	// ErrPreviewForbidden - превью контекста доступно только в debug окружениях
	ErrPreviewForbidden = NewError(
		http.StatusForbidden,
		ErrorCodeForbidden,
		"context preview is disabled in this environment",
		nil,
	)
)

// IsDomainError проверяет, является ли ошибка доменной
func IsDomainError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// WrapError оборачивает обычную ошибку в доменную с контекстом
func WrapError(err error, status int, code ErrorCode, message string) *Error {
	return NewError(status, code, message, err)
}
