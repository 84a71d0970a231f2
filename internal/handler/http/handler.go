package http

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"NexiaCore/internal/middleware"
	"NexiaCore/internal/service"
	apperrors "NexiaCore/pkg/errors"
	"NexiaCore/pkg/logger"
	"NexiaCore/pkg/metrics"
)

// Ограничения валидации входных данных
const (
	MinFullNameLength = 2
	MaxFullNameLength = 255
	MinPasswordLength = 8
	MaxPasswordLength = 100
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// RegisterRequest тело запроса регистрации
type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// LoginRequest тело запроса входа
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateUserRequest тело административного запроса создания пользователя
type CreateUserRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// AuthResponse тело ответа на успешную аутентификацию
type AuthResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
}

// Handler обрабатывает HTTP запросы сервиса
type Handler struct {
	auth     service.AuthService
	users    service.UserService
	identity *middleware.Identity
	limiter  *middleware.RateLimit
	logger   logger.Logger
	metrics  *metrics.Metrics
}

// NewHandler создает новый Handler
func NewHandler(
	auth service.AuthService,
	users service.UserService,
	identity *middleware.Identity,
	limiter *middleware.RateLimit,
	log logger.Logger,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		auth:     auth,
		users:    users,
		identity: identity,
		limiter:  limiter,
		logger:   log,
		metrics:  m,
	}
}

// Routes собирает маршруты сервиса.
// Личность разрешается для всех запросов, guard-обработчики навешиваются
// на отдельные маршруты.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// Аутентификация: эндпоинты анонимные, но с ограничением частоты
	mux.Handle("POST /api/auth/register", h.limiter.Limit(http.HandlerFunc(h.register)))
	mux.Handle("POST /api/auth/login", h.limiter.Limit(http.HandlerFunc(h.login)))

	// Профиль текущего пользователя
	mux.Handle("GET /api/v1/users/me", middleware.RequireUser(http.HandlerFunc(h.me)))

	// Административное управление пользователями
	mux.Handle("GET /api/v1/users", middleware.RequireAdmin(http.HandlerFunc(h.listUsers)))
	mux.Handle("POST /api/v1/users", middleware.RequireAdmin(http.HandlerFunc(h.createUser)))
	mux.Handle("GET /api/v1/users/by-email", middleware.RequireAdmin(http.HandlerFunc(h.getUserByEmail)))
	mux.Handle("GET /api/v1/users/{id}", middleware.RequireAdmin(http.HandlerFunc(h.getUser)))
	mux.Handle("DELETE /api/v1/users/{id}", middleware.RequireAdmin(http.HandlerFunc(h.deleteUser)))

	return apperrors.Middleware(h.observe(h.identity.Resolve(mux)))
}

// register обрабатывает POST /api/auth/register
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteProblem(w, apperrors.New(apperrors.ErrValidation, "invalid request body"))
		return
	}

	if err := validateEmail(req.Email); err != nil {
		apperrors.WriteProblem(w, err)
		return
	}
	if err := validateFullName(req.FullName); err != nil {
		apperrors.WriteProblem(w, err)
		return
	}
	if err := validatePassword(req.Password); err != nil {
		apperrors.WriteProblem(w, err)
		return
	}

	session, err := h.auth.Register(r.Context(), req.Email, req.FullName, req.Password)
	if err != nil {
		apperrors.WriteProblem(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse(session))
}

// login обрабатывает POST /api/auth/login
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteProblem(w, apperrors.New(apperrors.ErrValidation, "invalid request body"))
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		apperrors.WriteProblem(w, apperrors.New(apperrors.ErrValidation, "email and password are required"))
		return
	}

	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		apperrors.WriteProblem(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse(session))
}

// me обрабатывает GET /api/v1/users/me
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user := middleware.PrincipalFromContext(r.Context())

	writeJSON(w, http.StatusOK, user)
}

// listUsers обрабатывает GET /api/v1/users
func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page := parseIntParam(r, "page", 0)
	size := parseIntParam(r, "size", service.DefaultPageSize)

	result, err := h.users.List(r.Context(), page, size)
	if err != nil {
		apperrors.WriteProblem(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// createUser обрабатывает POST /api/v1/users
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteProblem(w, apperrors.New(apperrors.ErrValidation, "invalid request body"))
		return
	}

	if err := validateEmail(req.Email); err != nil {
		apperrors.WriteProblem(w, err)
		return
	}
	if err := validateFullName(req.FullName); err != nil {
		apperrors.WriteProblem(w, err)
		return
	}

	user, err := h.users.Create(r.Context(), req.Email, req.FullName)
	if err != nil {
		apperrors.WriteProblem(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// getUser обрабатывает GET /api/v1/users/{id}
func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		apperrors.WriteProblem(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// getUserByEmail обрабатывает GET /api/v1/users/by-email?email=
func (h *Handler) getUserByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if strings.TrimSpace(email) == "" {
		apperrors.WriteProblem(w, apperrors.New(apperrors.ErrValidation, "email parameter is required"))
		return
	}

	user, err := h.users.GetByEmail(r.Context(), email)
	if err != nil {
		apperrors.WriteProblem(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// deleteUser обрабатывает DELETE /api/v1/users/{id}
func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), r.PathValue("id")); err != nil {
		apperrors.WriteProblem(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// observe middleware записи метрик HTTP запросов
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		h.metrics.ObserveRequest(r.Method, r.URL.Path, recorder.status, time.Since(start))
	})
}

// statusRecorder запоминает статус ответа для метрик
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.New(apperrors.ErrValidation, "email is required")
	}
	if !emailPattern.MatchString(email) {
		return apperrors.New(apperrors.ErrValidation, "email has invalid format")
	}
	return nil
}

func validateFullName(fullName string) error {
	length := len(strings.TrimSpace(fullName))
	if length < MinFullNameLength || length > MaxFullNameLength {
		return apperrors.New(apperrors.ErrValidation, "full name must be between 2 and 255 characters")
	}
	return nil
}

func validatePassword(pass string) error {
	if len(pass) < MinPasswordLength || len(pass) > MaxPasswordLength {
		return apperrors.New(apperrors.ErrValidation, "password must be between 8 and 100 characters")
	}
	return nil
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return value
}

func authResponse(session *service.AuthSession) AuthResponse {
	return AuthResponse{
		AccessToken:      session.AccessToken,
		TokenType:        session.TokenType,
		ExpiresInSeconds: session.ExpiresInSeconds,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Статус уже записан, тело восстановить нельзя
		return
	}
}
