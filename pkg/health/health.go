package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Checker функция проверки одной зависимости
type Checker func(ctx context.Context) error

// HealthStatus представляет статус здоровья сервиса
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]Status `json:"services,omitempty"`
	Version   string            `json:"version,omitempty"`
}

// Status представляет статус одной зависимости
type Status struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// Service агрегирует проверки зависимостей сервиса
type Service struct {
	version  string
	checkers map[string]Checker
}

// NewService создает новый Service
func NewService(version string) *Service {
	return &Service{
		version:  version,
		checkers: make(map[string]Checker),
	}
}

// Register регистрирует проверку зависимости под заданным именем
func (s *Service) Register(name string, checker Checker) {
	s.checkers[name] = checker
}

// Check выполняет все зарегистрированные проверки
func (s *Service) Check(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Services:  make(map[string]Status),
		Version:   s.version,
	}

	for name, checker := range s.checkers {
		if err := checker(ctx); err != nil {
			status.Status = "unhealthy"
			status.Services[name] = Status{Status: "unhealthy", Details: err.Error()}
		} else {
			status.Services[name] = Status{Status: "healthy"}
		}
	}

	return status
}

// Handler создает HTTP обработчик для health check эндпоинта
func Handler(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := service.Check(ctx)

		w.Header().Set("Content-Type", "application/json")
		if status.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		json.NewEncoder(w).Encode(status)
	}
}

// LiveHandler создает HTTP обработчик для live check эндпоинта.
// Возвращает 200 если процесс жив.
func LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}
