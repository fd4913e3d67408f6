// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/unclebandit/crm-backend/internal/config"
)

// Open connects to Postgres through lib/pq, applies pool limits and pings
// so a bad DSN fails at startup instead of on the first request.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	slog.Info("connecting to database", "host", cfg.Host, "name", cfg.Name, "user", cfg.User, "url_override", cfg.URL != "")

	conn, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("✅ Connected to database")
	return conn, nil
}
