package repository

import (
	"context"
	"errors"

	"NexiaCore/internal/domain"
)

// Ошибки репозиториев
var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate запись с таким уникальным ключом уже существует
	ErrDuplicate = errors.New("record already exists")
)

// UserRepository интерфейс для работы с пользователями
type UserRepository interface {
	// Create создает нового пользователя.
	// Возвращает ErrDuplicate, если email уже занят.
	Create(ctx context.Context, user *domain.User) error

	// FindByID находит пользователя по идентификатору
	FindByID(ctx context.Context, id string) (*domain.User, error)

	// FindByEmail находит пользователя по email
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// ExistsByEmail проверяет существование пользователя с заданным email
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// FindAll возвращает страницу пользователей, упорядоченных по дате создания
	FindAll(ctx context.Context, page, size int) ([]*domain.User, error)

	// Count возвращает общее количество пользователей
	Count(ctx context.Context) (int64, error)

	// Delete удаляет пользователя по идентификатору.
	// Возвращает ErrNotFound, если пользователь не существует.
	Delete(ctx context.Context, id string) error
}

// ProcessedMessageRepository интерфейс для журнала примененных событий
type ProcessedMessageRepository interface {
	// IsProcessed проверяет, было ли событие уже применено
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// MarkProcessed записывает событие в журнал примененных.
	// Возвращает ErrDuplicate, если событие уже было записано.
	MarkProcessed(ctx context.Context, eventID string) error
}
