package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/driplinehq/dripline/pkg/persistence"
	"github.com/driplinehq/dripline/pkg/persistence/file"
	"github.com/driplinehq/dripline/pkg/persistence/postgresql"
)

// NewPersistence creates a persistence backend from the database URL scheme.
// postgres:// selects PostgreSQL; anything else falls back to the file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseScheme(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create PostgreSQL persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parseScheme(databaseURL string) string {
	parts := strings.SplitN(databaseURL, "://", 2)

	return parts[0]
}
