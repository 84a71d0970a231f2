package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"NexiaCore/internal/domain"
	"NexiaCore/internal/messaging"
	"NexiaCore/internal/pkg/jwt"
	"NexiaCore/internal/pkg/password"
	"NexiaCore/internal/repository"
	apperrors "NexiaCore/pkg/errors"
	"NexiaCore/pkg/logger"
)

// AuthSession результат успешной аутентификации
type AuthSession struct {
	AccessToken      string
	TokenType        string
	ExpiresInSeconds int64
}

// AuthService интерфейс сервиса аутентификации
type AuthService interface {
	// Register регистрирует нового пользователя и выпускает токен доступа
	Register(ctx context.Context, email, fullName, rawPassword string) (*AuthSession, error)

	// Login аутентифицирует пользователя по email и паролю
	Login(ctx context.Context, email, rawPassword string) (*AuthSession, error)
}

// AuthServiceImpl реализация AuthService
type AuthServiceImpl struct {
	users     repository.UserRepository
	hasher    password.Hasher
	tokens    *jwt.Manager
	publisher messaging.EventPublisher
	logger    logger.Logger
}

// NewAuthService создает новый сервис аутентификации
func NewAuthService(
	users repository.UserRepository,
	hasher password.Hasher,
	tokens *jwt.Manager,
	publisher messaging.EventPublisher,
	log logger.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		publisher: publisher,
		logger:    log,
	}
}

// Register регистрирует нового пользователя.
// Событие регистрации публикуется после фиксации пользователя в базе:
// отказ брокера не откатывает регистрацию.
func (s *AuthServiceImpl) Register(ctx context.Context, email, fullName, rawPassword string) (*AuthSession, error) {
	email = NormalizeEmail(email)

	// Предварительная проверка занятости email дает понятную ошибку,
	// уникальный индекс в базе закрывает гонку между конкурентными запросами
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal, "failed to check email availability")
	}
	if exists {
		return nil, apperrors.New(apperrors.ErrConflict, "email is already taken")
	}

	hash, err := s.hasher.Hash(rawPassword)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal, "failed to hash password")
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		CreatedAt:    time.Now().UTC(),
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.New(apperrors.ErrConflict, "email is already taken")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrInternal, "failed to create user")
	}

	s.logger.Info("user registered",
		logger.String("user_id", user.ID),
		logger.String("email", user.Email))

	// Best-effort публикация: ошибки не распространяются на вызывающего
	event := domain.NewUserRegisteredEvent(user.ID, user.Email)
	s.publisher.PublishUserRegistered(ctx, event)

	return s.mintSession(user)
}

// Login аутентифицирует пользователя по email и паролю.
// Все отказы неразличимы для вызывающего: один и тот же ответ для
// несуществующего email, неверного пароля и учетной записи без пароля.
func (s *AuthServiceImpl) Login(ctx context.Context, email, rawPassword string) (*AuthSession, error) {
	email = NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.New(apperrors.ErrUnauthorized, "invalid credentials")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrInternal, "failed to find user")
	}

	if !s.hasher.Check(rawPassword, user.PasswordHash) {
		return nil, apperrors.New(apperrors.ErrUnauthorized, "invalid credentials")
	}

	s.logger.Info("user logged in", logger.String("user_id", user.ID))

	return s.mintSession(user)
}

func (s *AuthServiceImpl) mintSession(user *domain.User) (*AuthSession, error) {
	token, err := s.tokens.Mint(user)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal, "failed to issue access token")
	}

	return &AuthSession{
		AccessToken:      token,
		TokenType:        "Bearer",
		ExpiresInSeconds: s.tokens.TTLSeconds(),
	}, nil
}

// NormalizeEmail приводит email к каноническому виду: обрезка пробелов
// и нижний регистр. Одна и та же нормализация применяется при записи
// и при поиске, иначе уникальность email не работает.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
