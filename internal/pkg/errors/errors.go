package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для нарушений уникальности в хранилище
	// (например, два одновременных первых входа с одной внешней личностью).
	// Резолвер связывания аккаунтов обязан восстанавливаться после неё локально.
	ErrConflict = errors.New("resource state conflict")

	// ErrUnavailable используется, когда хранилище идентичностей недоступно.
	ErrUnavailable = errors.New("identity store unavailable")
)
