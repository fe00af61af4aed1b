package postgres

import (
	"context"
	"fmt"
	"sync"

	"fintrack/pkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Manager owns the process-wide connection pool. The pool is created on the
// first GetConnection call and shared by every request until Close.
type Manager struct {
	cfg    *config.DatabaseConfig
	logger *zap.Logger

	mu   sync.Mutex
	pool *pgxpool.Pool
}

func NewManager(cfg *config.DatabaseConfig, logger *zap.Logger) *Manager {
	return &Manager{cfg: cfg, logger: logger}
}

// GetConnection returns the shared pool, connecting on first use. A failed
// attempt is not cached, so the next call tries again.
func (m *Manager) GetConnection(ctx context.Context) (*pgxpool.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool != nil {
		return m.pool, nil
	}

	pool, err := NewPool(ctx, m.cfg, m.logger)
	if err != nil {
		return nil, err
	}
	m.pool = pool
	return pool, nil
}

// Close releases the pool. It is safe to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool != nil {
		m.pool.Close()
		m.pool = nil
		m.logger.Info("Database connection pool closed")
	}
}

func NewPool(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.DBName),
		zap.Int32("max_conns", poolConfig.MaxConns),
	)

	return pool, nil
}
