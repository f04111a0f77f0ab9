package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"refill-pricing/internal/config"
	"refill-pricing/internal/logger"

	_ "github.com/lib/pq"
)

// DB оборачивает пул соединений Postgres
type DB struct {
	*sql.DB
}

// schema создаёт таблицу истории расчётов.
const schema = `
CREATE TABLE IF NOT EXISTS quotes (
	id                 UUID PRIMARY KEY,
	price_input        TEXT NOT NULL,
	refills_input      TEXT NOT NULL,
	subscribed         BOOLEAN NOT NULL,
	coupon             BOOLEAN NOT NULL,
	price_per_refill   DOUBLE PRECISION NOT NULL,
	refills            DOUBLE PRECISION NOT NULL,
	initial_cost       DOUBLE PRECISION NOT NULL,
	after_subscription DOUBLE PRECISION NOT NULL,
	final_cost         DOUBLE PRECISION NOT NULL,
	clamped            BOOLEAN NOT NULL DEFAULT FALSE,
	display            TEXT NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quotes_created_at ON quotes (created_at DESC);
`

// Connect создает подключение к базе данных
func Connect(cfg *config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connect_timeout=5",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Successfully connected to database")
	return &DB{DB: sqlDB}, nil
}

// EnsureSchema создаёт таблицы, если их ещё нет
func (db *DB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.DB == nil {
		return fmt.Errorf("database is not initialized")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close закрывает подключение к базе данных
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

// Health проверяет доступность базы данных
func (db *DB) Health() error {
	if db == nil || db.DB == nil {
		return fmt.Errorf("database is not initialized")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
