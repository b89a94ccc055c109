package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ds124wfegd/imgenhance/config"
	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
)

func ConnString(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)
}

func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithField("host", cfg.Host).Info("Successfully connected to PostgreSQL")
	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS enhancement_jobs (
		id          VARCHAR(36) PRIMARY KEY,
		status      VARCHAR(20) NOT NULL,
		preset      VARCHAR(20) NOT NULL,
		scale       INTEGER NOT NULL,
		strength    INTEGER NOT NULL,
		metadata    JSONB,
		error       TEXT,
		error_code  VARCHAR(32),
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_enhancement_jobs_status ON enhancement_jobs(status)`,
	`CREATE INDEX IF NOT EXISTS idx_enhancement_jobs_created_at ON enhancement_jobs(created_at)`,
}

func RunMigrations(db *sql.DB) error {
	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}
