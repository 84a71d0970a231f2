package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error представляет кастомную ошибку с дополнительной информацией
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// ErrorCode представляет код ошибки
type ErrorCode string

// Определение кодов ошибок
const (
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrValidation   ErrorCode = "VALIDATION_ERROR"
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrForbidden    ErrorCode = "FORBIDDEN"
	ErrConflict     ErrorCode = "CONFLICT"
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
)

// Error возвращает сообщение об ошибке
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap возвращает причину ошибки
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is проверяет, является ли ошибка указанного типа
func (e *Error) Is(target error) bool {
	if targetError, ok := target.(*Error); ok {
		return e.Code == targetError.Code
	}
	return false
}

// New создает новую кастомную ошибку
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap оборачивает существующую ошибку в кастомную
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WithDetails добавляет детали к ошибке
func (e *Error) WithDetails(details string) *Error {
	if e == nil {
		return nil
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// HTTPStatus возвращает соответствующий HTTP статус для ошибки
func (e *Error) HTTPStatus() int {
	if e == nil {
		return http.StatusOK
	}

	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrValidation:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrConflict:
		return http.StatusConflict
	case ErrInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ProblemDetail представляет тело ошибки в формате RFC 7807 (application/problem+json)
type ProblemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// problemType возвращает URI типа проблемы для кода ошибки
func problemType(code ErrorCode) string {
	switch code {
	case ErrNotFound:
		return "https://nexia.dev/problems/not-found"
	case ErrValidation:
		return "https://nexia.dev/problems/validation"
	case ErrUnauthorized:
		return "https://nexia.dev/problems/unauthorized"
	case ErrForbidden:
		return "https://nexia.dev/problems/forbidden"
	case ErrConflict:
		return "https://nexia.dev/problems/conflict"
	default:
		return "https://nexia.dev/problems/internal"
	}
}

// problemTitle возвращает человекочитаемый заголовок для кода ошибки
func problemTitle(code ErrorCode) string {
	switch code {
	case ErrNotFound:
		return "Not Found"
	case ErrValidation:
		return "Validation failed"
	case ErrUnauthorized:
		return "Unauthorized"
	case ErrForbidden:
		return "Forbidden"
	case ErrConflict:
		return "Conflict"
	default:
		return "Internal Server Error"
	}
}

// Problem строит ProblemDetail из ошибки
func (e *Error) Problem() ProblemDetail {
	detail := e.Message
	if e.Details != "" {
		detail = e.Details
	}
	return ProblemDetail{
		Type:   problemType(e.Code),
		Title:  problemTitle(e.Code),
		Status: e.HTTPStatus(),
		Detail: detail,
	}
}

// WriteProblem записывает ошибку в ответ в формате application/problem+json.
// Неизвестные ошибки маскируются как внутренние, чтобы не раскрывать детали.
func WriteProblem(w http.ResponseWriter, err error) {
	customErr, ok := err.(*Error)
	if !ok {
		customErr = Wrap(err, ErrInternal, "internal server error")
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(customErr.HTTPStatus())

	if encodeErr := json.NewEncoder(w).Encode(customErr.Problem()); encodeErr != nil {
		// Тело уже не отправить корректно, статус записан
		return
	}
}

// Middleware перехватывает панику в HTTP обработчиках и отвечает problem+json
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err := New(ErrInternal, "internal server error").
					WithDetails(fmt.Sprintf("panic: %v", recovered))
				WriteProblem(w, err)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
