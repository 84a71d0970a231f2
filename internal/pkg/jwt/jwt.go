package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"NexiaCore/internal/domain"
)

// MinSecretLength минимальная длина секрета подписи.
// Секрет короче не обеспечивает достаточной энтропии для HS256.
const MinSecretLength = 32

// Ошибки проверки токенов
var (
	// ErrMalformed токен имеет неверный формат
	ErrMalformed = errors.New("token is malformed")
	// ErrBadSignature подпись токена не прошла проверку
	ErrBadSignature = errors.New("token signature is invalid")
	// ErrExpired срок действия токена истек
	ErrExpired = errors.New("token is expired")
)

// Claims представляет полезную нагрузку токена доступа
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Manager отвечает за выпуск и проверку токенов доступа.
// Токены без состояния: вся информация о сессии содержится в подписанных
// claims, серверного хранилища сессий нет.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewManager создает новый Manager.
// Возвращает ошибку, если секрет короче MinSecretLength символов:
// запуск сервиса со слабым секретом недопустим.
func NewManager(secret, issuer string, ttl time.Duration) (*Manager, error) {
	if len(strings.TrimSpace(secret)) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", MinSecretLength)
	}

	return &Manager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}, nil
}

// Mint выпускает подписанный токен доступа для пользователя
func (m *Manager) Mint(user *domain.User) (string, error) {
	now := time.Now()

	claims := Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify проверяет токен и возвращает его claims.
// Различает три класса отказа: ErrMalformed, ErrBadSignature, ErrExpired.
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		default:
			return nil, ErrMalformed
		}
	}

	return claims, nil
}

// TTLSeconds возвращает срок действия выпускаемых токенов в секундах
func (m *Manager) TTLSeconds() int64 {
	return int64(m.ttl.Seconds())
}
