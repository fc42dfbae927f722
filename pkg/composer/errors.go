package composer

// PaymentError - ошибка компоновки или бродкаста; её message
// отдаётся клиенту как есть (с кодом 500)
type PaymentError struct {
	Message string
}

func (e *PaymentError) Error() string {
	return e.Message
}

func NewPaymentError(message string) *PaymentError {
	return &PaymentError{Message: message}
}
