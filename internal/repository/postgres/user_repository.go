package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"NexiaCore/internal/domain"
	"NexiaCore/internal/repository"
)

// Код ошибки PostgreSQL для нарушения уникального ограничения
const uniqueViolationCode = "23505"

// UserRepository реализация repository.UserRepository для PostgreSQL
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository создает новый экземпляр UserRepository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create создает нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, full_name, created_at, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6)`

	passwordHash := sql.NullString{String: user.PasswordHash, Valid: user.PasswordHash != ""}

	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Email, user.FullName, user.CreatedAt, passwordHash, user.Role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// FindByID находит пользователя по идентификатору
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, email, full_name, created_at, password_hash, role
		FROM users
		WHERE id = $1`

	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

// FindByEmail находит пользователя по email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, email, full_name, created_at, password_hash, role
		FROM users
		WHERE email = $1`

	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

// ExistsByEmail проверяет существование пользователя с заданным email
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}

// FindAll возвращает страницу пользователей.
// Упорядочивание всегда по created_at ASC: порядок выдачи стабилен
// независимо от параметров запроса.
func (r *UserRepository) FindAll(ctx context.Context, page, size int) ([]*domain.User, error) {
	query := `
		SELECT id, email, full_name, created_at, password_hash, role
		FROM users
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, size, page*size)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := r.scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// Count возвращает общее количество пользователей
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}

	return count, nil
}

// Delete удаляет пользователя по идентификатору
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// scanUser сканирует одну строку результата в domain.User
func (r *UserRepository) scanUser(row pgx.Row) (*domain.User, error) {
	user, err := scanInto(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return user, nil
}

// scanUserRow сканирует строку из rows без преобразования ErrNoRows
func (r *UserRepository) scanUserRow(rows pgx.Rows) (*domain.User, error) {
	user, err := scanInto(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return user, nil
}

func scanInto(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var passwordHash sql.NullString

	err := row.Scan(&user.ID, &user.Email, &user.FullName, &user.CreatedAt, &passwordHash, &user.Role)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = passwordHash.String

	return &user, nil
}
