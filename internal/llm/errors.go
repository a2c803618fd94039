package llm

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse - ответ reasoning-сервиса не удалось привести к схеме
// даже после best-effort извлечения JSON
var ErrMalformedResponse = errors.New("malformed structured response")

// SchemaError оборачивает ошибку разбора/валидации с фрагментом ответа для логов
type SchemaError struct {
	Reason error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("structured response does not match schema: %v", e.Reason)
}

func (e *SchemaError) Unwrap() error {
	return ErrMalformedResponse
}
