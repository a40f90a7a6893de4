package sync

import (
	"errors"
	"fmt"
)

var (
	ErrStateNotFound = errors.New("sync state not found")
	ErrNoInvoice     = errors.New("order has no synced invoice")
)

// ValidationError нарушение бизнес-правила на удаленной стороне.
// Требует вмешательства человека, автоматически не повторяется.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation проверяет, является ли ошибка ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
