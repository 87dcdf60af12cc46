package submit

import "fmt"

type ErrorKind string

const (
	MissingDimension ErrorKind = "missing_dimension"
	MissingField     ErrorKind = "missing_field"
)

// ValidationError: одна ошибка за раз: мастер возвращает пользователя ровно на один шаг.
type ValidationError struct {
	Kind ErrorKind `json:"code"`
	// Field: имя измерения или ключ поля
	Field string `json:"field"`
	Label string `json:"label,omitempty"`
	// Section: индекс секции в отфильтрованной структуре; -1 для измерений
	Section int `json:"section"`
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case MissingDimension:
		return fmt.Sprintf("%s is required", e.Field)
	default:
		name := e.Label
		if name == "" {
			name = e.Field
		}
		return fmt.Sprintf("%s is required", name)
	}
}
