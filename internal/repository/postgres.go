// Package repository содержит реализацию хранилища заказов и проводок в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим email.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotFound возвращается, если запись не найдена или не принадлежит вызывающему.
	ErrNotFound = errors.New("not found")
	// ErrVendorNotFound возвращается, если пользователь не управляет ни одной точкой.
	ErrVendorNotFound = errors.New("vendor not found")
	// ErrInsufficientBalance возвращается при попытке списания суммы, превышающей баланс.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	// ErrMenuItemExists возвращается при нарушении уникальности (точка, название, цена).
	ErrMenuItemExists = errors.New("menu item with this name and price already exists")
	// ErrPaymentAlreadySettled возвращается при повторном проведении того же платежа.
	ErrPaymentAlreadySettled = errors.New("payment already settled")
)

// querier объединяет методы пула и транзакции, используемые для чтения.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// WithinTx выполняет fn в одной транзакции. Любая ошибка fn откатывает всю транзакцию.
// Транзакции, прерванные конфликтом сериализации или взаимоблокировкой, повторяются целиком.
func (r *PostgresRepository) WithinTx(ctx context.Context, fn func(Ledger) error) error {
	return r.withinPgTx(ctx, func(tx pgx.Tx) error {
		return fn(&pgLedger{tx: tx})
	})
}

// commitError помечает сбой фиксации: транзакция могла примениться, повтор недопустим.
type commitError struct {
	err error
}

func (e *commitError) Error() string { return "commit tx: " + e.err.Error() }

func (e *commitError) Unwrap() error { return e.err }

func (r *PostgresRepository) withinPgTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := fn(tx); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return &commitError{err: err}
		}
		return nil
	})
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.WithJitterPercent(20, retry.NewFibonacci(50*time.Millisecond)))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// isRetryable сообщает, можно ли повторить транзакцию целиком.
// Сетевые сбои повторяются, только если pgconn гарантирует, что запрос не ушёл на сервер.
func isRetryable(err error) bool {
	var commitErr *commitError
	if errors.As(err, &commitErr) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return pgconn.SafeToRetry(err)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
