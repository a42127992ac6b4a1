package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureCorpusSchema creates the ncc_chunks table and its indexes if they do
// not exist. The embedding column dimension must match the configured
// embedding provider's output dimension exactly.
func EnsureCorpusSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS ncc_chunks (
			id UUID PRIMARY KEY,
			content TEXT NOT NULL,
			volume INT NOT NULL,
			part TEXT,
			section TEXT,
			title TEXT,
			applicable_classes INT[] NOT NULL,
			state_specific BOOLEAN NOT NULL DEFAULT FALSE,
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dimension),
		"CREATE INDEX IF NOT EXISTS idx_ncc_chunks_volume ON ncc_chunks(volume)",
		"CREATE INDEX IF NOT EXISTS idx_ncc_chunks_embedding ON ncc_chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)",
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}

	return nil
}
