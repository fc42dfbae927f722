package service

// Доменная таксономия: тип ошибки определяет HTTP-код в хендлере,
// всё незнакомое маскируется generic-ответом

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

func NewAuthorizationError(message string) *AuthorizationError {
	return &AuthorizationError{Message: message}
}

// AccountError несёт caller-facing код и имя ошибки
type AccountError struct {
	Name       string
	Message    string
	StatusCode int
}

func (e *AccountError) Error() string { return e.Message }

func NewAccountError(name string, statusCode int, message string) *AccountError {
	return &AccountError{Name: name, Message: message, StatusCode: statusCode}
}
