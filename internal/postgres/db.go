package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	DSN               string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ApplicationName   string

	// StatementTimeout ограничивает запросы на стороне сервера: архив пишется
	// из диспетчера событий, и зависший INSERT не должен его держать.
	StatementTimeout time.Duration
	// ConnectAttempts — сколько раз пробовать Ping на старте (postgres в compose поднимается позже).
	ConnectAttempts int
}

type DB struct {
	Pool *pgxpool.Pool
}

// New открывает пул и ждёт, пока база ответит на Ping.
func New(ctx context.Context, cfg Config) (*DB, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	applyPoolConfig(pc, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	db := &DB{Pool: pool}
	if err := db.waitReady(ctx, cfg.ConnectAttempts); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

func applyPoolConfig(pc *pgxpool.Config, cfg Config) {
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckPeriod > 0 {
		pc.HealthCheckPeriod = cfg.HealthCheckPeriod
	}

	params := pc.ConnConfig.RuntimeParams
	if params == nil {
		params = map[string]string{}
		pc.ConnConfig.RuntimeParams = params
	}
	if cfg.ApplicationName != "" {
		params["application_name"] = cfg.ApplicationName
	}
	if cfg.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}
}

func (db *DB) waitReady(ctx context.Context, attempts int) error {
	if attempts <= 0 {
		attempts = 1
	}
	backoff := 500 * time.Millisecond

	var err error
	for i := 1; i <= attempts; i++ {
		if err = db.Ping(ctx); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		slog.Warn("postgres not ready", "attempt", i, "retry_in", backoff, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 5*time.Second {
			backoff *= 2
		}
	}
	return fmt.Errorf("ping postgres: %w", err)
}

func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return db.Pool.Ping(ctx)
}

func (db *DB) Close() {
	db.Pool.Close()
}
