package middleware

import (
	"context"
	"net/http"
	"strings"

	"NexiaCore/internal/domain"
	"NexiaCore/internal/pkg/jwt"
	"NexiaCore/internal/repository"
	apperrors "NexiaCore/pkg/errors"
	"NexiaCore/pkg/logger"
)

// contextKey тип ключа контекста, исключающий коллизии с другими пакетами
type contextKey string

const principalKey contextKey = "principal"

const bearerPrefix = "Bearer "

// Identity разрешает личность запроса из заголовка Authorization.
// Отказ проверки токена не прерывает запрос: запрос продолжается анонимным,
// решение о доступе принимают guard-обработчики.
type Identity struct {
	tokens *jwt.Manager
	users  repository.UserRepository
	logger logger.Logger
}

// NewIdentity создает новый резолвер личности
func NewIdentity(tokens *jwt.Manager, users repository.UserRepository, log logger.Logger) *Identity {
	return &Identity{tokens: tokens, users: users, logger: log}
}

// Resolve middleware разрешения личности запроса
func (i *Identity) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Личность уже разрешена выше по цепочке — не перезаписываем
		if PrincipalFromContext(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r.Header.Get("Authorization"))
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := i.tokens.Verify(token)
		if err != nil {
			// Невалидный токен эквивалентен его отсутствию
			i.logger.Debug("token verification failed", logger.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		// Роль и статус учетной записи всегда перечитываются из хранилища:
		// отозванный или удаленный пользователь не проходит, даже если
		// его токен еще не истек
		user, err := i.users.FindByEmail(r.Context(), claims.Email)
		if err != nil {
			i.logger.Debug("token subject not found", logger.String("email", claims.Email))
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken извлекает токен из значения заголовка Authorization.
// Префикс "Bearer " удаляется без учета регистра и столько раз, сколько
// он повторяется: клиенты иногда склеивают префикс дважды.
func extractToken(header string) string {
	token := strings.TrimSpace(header)

	for len(token) >= len(bearerPrefix) && strings.EqualFold(token[:len(bearerPrefix)], bearerPrefix) {
		token = strings.TrimSpace(token[len(bearerPrefix):])
	}

	return token
}

// PrincipalFromContext возвращает пользователя запроса или nil для анонимного
func PrincipalFromContext(ctx context.Context) *domain.User {
	user, ok := ctx.Value(principalKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}

// ContextWithPrincipal возвращает контекст с установленным пользователем
func ContextWithPrincipal(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, principalKey, user)
}

// RequireUser guard, пропускающий только аутентифицированные запросы
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFromContext(r.Context()) == nil {
			apperrors.WriteProblem(w, apperrors.New(apperrors.ErrUnauthorized, "authentication required"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAdmin guard, пропускающий только администраторов.
// Анонимный запрос получает 401, аутентифицированный без роли ADMIN — 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := PrincipalFromContext(r.Context())
		if user == nil {
			apperrors.WriteProblem(w, apperrors.New(apperrors.ErrUnauthorized, "authentication required"))
			return
		}

		if !user.IsAdmin() {
			apperrors.WriteProblem(w, apperrors.New(apperrors.ErrForbidden, "admin role required"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
