package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/yourusername/hosting-api/internal/pkg/errors"
)

// Код SQLSTATE для нарушения уникального ограничения
const uniqueViolationCode = "23505"

// translateError приводит ошибки драйвера к ошибкам приложения.
// Нарушение уникальности — это сигнал "кто-то выиграл гонку", а не сбой:
// вызывающий код обязан уметь восстанавливаться после apperrors.ErrConflict.
// Всё остальное от драйвера — недоступность хранилища: наружу уходит
// apperrors.ErrUnavailable, чтобы сбой не перепутали с "не найдено".
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return apperrors.ErrConflict
	}
	return fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
}
