package repository

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"volunteer_chat/pkg/logger"
)

//go:embed schema.sql
var schema string

// Migrate applies the idempotent schema. Safe to run on every start.
func Migrate(ctx context.Context, db *pgxpool.Pool, log logger.Logger) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		log.Error("Failed to apply schema", "error", err)
		return fmt.Errorf("apply schema: %w", err)
	}
	log.Info("Database schema applied")
	return nil
}
