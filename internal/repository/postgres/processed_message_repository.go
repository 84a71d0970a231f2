package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"NexiaCore/internal/repository"
)

// ProcessedMessageRepository реализация repository.ProcessedMessageRepository
// для PostgreSQL. Первичный ключ по event_id гарантирует, что конкурентные
// вставки одного события завершатся ровно одной успешной записью.
type ProcessedMessageRepository struct {
	pool *pgxpool.Pool
}

// NewProcessedMessageRepository создает новый экземпляр ProcessedMessageRepository
func NewProcessedMessageRepository(pool *pgxpool.Pool) *ProcessedMessageRepository {
	return &ProcessedMessageRepository{pool: pool}
}

// IsProcessed проверяет, было ли событие уже применено
func (r *ProcessedMessageRepository) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM processed_messages WHERE event_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, eventID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check processed message: %w", err)
	}

	return exists, nil
}

// MarkProcessed записывает событие в журнал примененных
func (r *ProcessedMessageRepository) MarkProcessed(ctx context.Context, eventID string) error {
	query := `INSERT INTO processed_messages (event_id, processed_at) VALUES ($1, $2)`

	_, err := r.pool.Exec(ctx, query, eventID, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to mark message as processed: %w", err)
	}

	return nil
}
