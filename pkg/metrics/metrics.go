package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// Metrics представляет систему метрик сервиса
type Metrics struct {
	// Стандартные метрики Prometheus
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Метрики конвейера событий
	EventsPublished       *prometheus.CounterVec
	EventsPublishFailures *prometheus.CounterVec
	EventsConsumed        *prometheus.CounterVec
	EventsDuplicate       *prometheus.CounterVec

	// OpenTelemetry Tracer
	Tracer trace.Tracer
}

// NewMetrics создает новую систему метрик
func NewMetrics(serviceName string) *Metrics {
	requestCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	eventsPublished := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of domain events published",
		},
		[]string{"routing_key"},
	)

	eventsPublishFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "events",
			Name:      "publish_failures_total",
			Help:      "Total number of failed event publish attempts",
		},
		[]string{"routing_key"},
	)

	eventsConsumed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "events",
			Name:      "consumed_total",
			Help:      "Total number of domain events applied by the consumer",
		},
		[]string{"queue"},
	)

	eventsDuplicate := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "events",
			Name:      "duplicate_total",
			Help:      "Total number of duplicate deliveries discarded by the consumer",
		},
		[]string{"queue"},
	)

	// Регистрируем метрики в Prometheus
	for _, collector := range []prometheus.Collector{
		requestCount,
		requestDuration,
		eventsPublished,
		eventsPublishFailures,
		eventsConsumed,
		eventsDuplicate,
	} {
		if err := prometheus.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}

	// Создаем OpenTelemetry Tracer
	tracer := otel.Tracer(serviceName)

	return &Metrics{
		RequestCount:          requestCount,
		RequestDuration:       requestDuration,
		EventsPublished:       eventsPublished,
		EventsPublishFailures: eventsPublishFailures,
		EventsConsumed:        eventsConsumed,
		EventsDuplicate:       eventsDuplicate,
		Tracer:                tracer,
	}
}

// InitTracer инициализирует глобальный OpenTelemetry tracer provider
func InitTracer(serviceName, serviceVersion string) (*tracesdk.TracerProvider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create otel resource: %w", err)
	}

	tp := tracesdk.NewTracerProvider(tracesdk.WithResource(res))
	otel.SetTracerProvider(tp)

	return tp, nil
}

// Handler возвращает HTTP обработчик для эндпоинта /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest записывает метрики одного HTTP запроса
func (m *Metrics) ObserveRequest(method, endpoint string, status int, duration time.Duration) {
	m.RequestCount.WithLabelValues(method, endpoint, fmt.Sprintf("%d", status)).Inc()
	m.RequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
