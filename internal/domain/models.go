package domain

import (
	"time"

	"github.com/google/uuid"
)

// Роли пользователей
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User представляет учетную запись пользователя.
// PasswordHash может быть пустым: такая учетная запись создана администратором
// и не может аутентифицироваться по паролю.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	CreatedAt    time.Time `json:"created_at"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
}

// IsAdmin проверяет, имеет ли пользователь роль администратора
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserRegisteredEvent представляет событие регистрации пользователя.
// EventID генерируется один раз при создании события и никогда не
// перегенерируется при повторной публикации: это идентификатор для дедупликации.
type UserRegisteredEvent struct {
	EventID    string    `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
}

// NewUserRegisteredEvent создает событие регистрации с новым EventID
func NewUserRegisteredEvent(userID, email string) *UserRegisteredEvent {
	return &UserRegisteredEvent{
		EventID:    uuid.New().String(),
		OccurredAt: time.Now().UTC(),
		UserID:     userID,
		Email:      email,
	}
}

// ProcessedMessage представляет запись о примененном событии.
// Существование записи для EventID — единственный признак дедупликации.
type ProcessedMessage struct {
	EventID     string    `json:"event_id"`
	ProcessedAt time.Time `json:"processed_at"`
}
