package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher интерфейс для хеширования и проверки паролей
type Hasher interface {
	// Hash возвращает хеш пароля
	Hash(password string) (string, error)

	// Check проверяет пароль против сохраненного хеша
	Check(password, hash string) bool
}

// BcryptHasher реализация Hasher на основе bcrypt
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher создает новый BcryptHasher со стандартной стоимостью
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: bcrypt.DefaultCost}
}

// Hash возвращает bcrypt хеш пароля
func (h *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// Check проверяет пароль против сохраненного хеша.
// Пустой хеш означает учетную запись без пароля: проверка всегда неуспешна.
func (h *BcryptHasher) Check(password, hash string) bool {
	if hash == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
