package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"NexiaCore/internal/domain"
	"NexiaCore/internal/repository"
	apperrors "NexiaCore/pkg/errors"
	"NexiaCore/pkg/logger"
)

// Значения пагинации по умолчанию
const (
	DefaultPageSize = 20
)

// UserPage страница пользователей с метаданными пагинации
type UserPage struct {
	Users      []*domain.User `json:"users"`
	Page       int            `json:"page"`
	Size       int            `json:"size"`
	TotalCount int64          `json:"total_count"`
}

// UserService интерфейс административного управления пользователями
type UserService interface {
	// Create создает пользователя без учетных данных
	Create(ctx context.Context, email, fullName string) (*domain.User, error)

	// GetByID возвращает пользователя по идентификатору
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail возвращает пользователя по email
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List возвращает страницу пользователей
	List(ctx context.Context, page, size int) (*UserPage, error)

	// Delete удаляет пользователя по идентификатору
	Delete(ctx context.Context, id string) error
}

// UserServiceImpl реализация UserService
type UserServiceImpl struct {
	users  repository.UserRepository
	logger logger.Logger
}

// NewUserService создает новый сервис управления пользователями
func NewUserService(users repository.UserRepository, log logger.Logger) *UserServiceImpl {
	return &UserServiceImpl{users: users, logger: log}
}

// Create создает пользователя без учетных данных.
// Такая учетная запись не может войти по паролю, пока пароль не будет задан.
func (s *UserServiceImpl) Create(ctx context.Context, email, fullName string) (*domain.User, error) {
	email = NormalizeEmail(email)

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal, "failed to check email availability")
	}
	if exists {
		return nil, apperrors.New(apperrors.ErrConflict, "email is already taken")
	}

	user := &domain.User{
		ID:        uuid.New().String(),
		Email:     email,
		FullName:  strings.TrimSpace(fullName),
		CreatedAt: time.Now().UTC(),
		Role:      domain.RoleUser,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.New(apperrors.ErrConflict, "email is already taken")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrInternal, "failed to create user")
	}

	s.logger.Info("user created by administrator",
		logger.String("user_id", user.ID),
		logger.String("email", user.Email))

	return user, nil
}

// GetByID возвращает пользователя по идентификатору
func (s *UserServiceImpl) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "user not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrInternal, "failed to find user")
	}

	return user, nil
}

// GetByEmail возвращает пользователя по email
func (s *UserServiceImpl) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "user not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrInternal, "failed to find user")
	}

	return user, nil
}

// List возвращает страницу пользователей.
// Некорректные параметры пагинации не являются ошибкой: отрицательная
// страница заменяется нулевой, неположительный размер — значением по умолчанию.
func (s *UserServiceImpl) List(ctx context.Context, page, size int) (*UserPage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}

	users, err := s.users.FindAll(ctx, page, size)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal, "failed to list users")
	}

	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal, "failed to count users")
	}

	return &UserPage{
		Users:      users,
		Page:       page,
		Size:       size,
		TotalCount: total,
	}, nil
}

// Delete удаляет пользователя по идентификатору
func (s *UserServiceImpl) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.New(apperrors.ErrNotFound, "user not found")
		}
		return apperrors.Wrap(err, apperrors.ErrInternal, "failed to delete user")
	}

	s.logger.Info("user deleted", logger.String("user_id", id))

	return nil
}
