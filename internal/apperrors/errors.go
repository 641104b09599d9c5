package apperrors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode - тип для кодов ошибок
type ErrorCode string

// AppError - основная структура ошибки приложения.
// Fields заполняется для пополевых ошибок валидации и рендерится
// как {"errors": {field: [messages]}}; иначе клиент получает
// {"error": message}.
type AppError struct {
	Code     ErrorCode           `json:"code"`
	Message  string              `json:"message"`
	Fields   map[string][]string `json:"fields,omitempty"`
	Err      error               `json:"-"`
	HTTPCode int                 `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Конструктор
func New(code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: httpCode,
	}
}

// С цепочкой ошибок
func Wrap(err error, code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Err:      err,
		HTTPCode: httpCode,
	}
}

// WithField возвращает копию ошибки с одной пополевой ошибкой.
// Копия нужна, чтобы не мутировать предопределенные sentinel-ошибки.
func (e *AppError) WithField(field, message string) *AppError {
	clone := *e
	clone.Fields = map[string][]string{field: {message}}
	return &clone
}

// WithFields возвращает копию ошибки с картой пополевых ошибок
func (e *AppError) WithFields(fields map[string][]string) *AppError {
	clone := *e
	clone.Fields = fields
	return &clone
}

func (e *AppError) WithError(err error) *AppError {
	clone := *e
	clone.Err = err
	return &clone
}

// Is - обертка над стандартной функцией errors.Is
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As - обертка над стандартной функцией errors.As
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Предопределенные ошибки
var (
	// Аутентификация. Логин намеренно отвечает 404, чтобы не
	// подтверждать существование аккаунта.
	ErrLoginFailed  = New(CodeInvalidCredentials, "Email or Password is not Valid", http.StatusNotFound)
	ErrUnauthorized = New(CodeUnauthorized, "Authentication required", http.StatusUnauthorized)
	ErrForbidden    = New(CodeForbidden, "Access denied", http.StatusForbidden)

	// Токены. Invalid и expired для клиента неразличимы.
	ErrInvalidToken     = New(CodeInvalidToken, "Token is invalid or expired", http.StatusUnauthorized)
	ErrTokenBlacklisted = New(CodeTokenBlacklisted, "Token is blacklisted", http.StatusUnauthorized)
	ErrInvalidLink      = New(CodeInvalidLink, "Invalid activation link", http.StatusBadRequest)
	ErrInvalidOrExpired = New(CodeInvalidLink, "Invalid or expired token", http.StatusBadRequest)

	// Пользователи
	ErrUserNotFound       = New(CodeUserNotFound, "User not found", http.StatusNotFound)
	ErrEmailAlreadyExists = New(CodeEmailAlreadyExists, "A user with that email already exists.", http.StatusBadRequest)
	ErrUserNotVerified    = New(CodeUserNotVerified, "Email is not verified", http.StatusForbidden)
	ErrWeakPassword       = New(CodeWeakPassword, "Password must be at least 8 characters long.", http.StatusBadRequest)
	ErrInvalidUserRole    = New(CodeInvalidUserRole, "Invalid user role", http.StatusBadRequest)

	// Валидация и конфликты
	ErrValidationFailed = New(CodeValidationFailed, "Validation failed", http.StatusBadRequest)
	ErrConflict         = New(CodeConflict, "Could not process your request due to a database conflict. Please try again.", http.StatusBadRequest)

	// Троттлинг
	ErrRateLimited = New(CodeRateLimited, "Request was throttled. Please try again later.", http.StatusTooManyRequests)
)

// Функции-помощники для создания ошибок с деталями

func ValidationError(fields map[string][]string) *AppError {
	return ErrValidationFailed.WithFields(fields)
}

func FieldError(field, message string) *AppError {
	return ErrValidationFailed.WithField(field, message)
}

func InternalError(err error) *AppError {
	return Wrap(err, CodeInternalError, "Internal server error", http.StatusInternalServerError)
}

func NewBadRequestError(message string) *AppError {
	return New(CodeValidationFailed, message, http.StatusBadRequest)
}
