package query

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// CorpusStore is the read-only similarity-search boundary to the
// regulatory corpus. An empty result is a valid outcome, not an error.
type CorpusStore interface {
	Search(ctx context.Context, embedding []float32, partition Partition, minSimilarity float64, limit int) ([]ScoredPassage, error)
}

type PostgresCorpusStore struct {
	pool *pgxpool.Pool
}

func NewPostgresCorpusStore(pool *pgxpool.Pool) *PostgresCorpusStore {
	return &PostgresCorpusStore{pool: pool}
}

// Search returns passages in the partition's volume that apply to its
// class, scored by cosine similarity, at or above minSimilarity, capped
// at limit. Results are ordered by similarity descending with passage id
// as tie-break; the service re-sorts anyway so ordering never depends on
// index nondeterminism.
func (s *PostgresCorpusStore) Search(ctx context.Context, embedding []float32, partition Partition, minSimilarity float64, limit int) ([]ScoredPassage, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding is empty")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	probes := limit * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT
            id,
            section,
            title,
            part,
            volume,
            content,
            applicable_classes,
            state_specific,
            1 - (embedding <=> $1::vector) AS similarity
        FROM ncc_chunks
        WHERE volume = $2
          AND applicable_classes @> $3::int[]
          AND 1 - (embedding <=> $1::vector) >= $4
        ORDER BY embedding <=> $1::vector ASC, id ASC
        LIMIT $5
    `, pgvector.NewVector(embedding), partition.Volume, []int32{int32(partition.ClassID)}, minSimilarity, limit)
	if err != nil {
		return nil, fmt.Errorf("query similar passages: %w", err)
	}
	defer rows.Close()

	results := make([]ScoredPassage, 0, limit)
	for rows.Next() {
		var item ScoredPassage
		var section, title, part *string
		if scanErr := rows.Scan(
			&item.Passage.ID,
			&section,
			&title,
			&part,
			&item.Passage.Volume,
			&item.Passage.Content,
			&item.Passage.ApplicableClasses,
			&item.Passage.StateSpecific,
			&item.Similarity,
		); scanErr != nil {
			return nil, fmt.Errorf("scan similar passage: %w", scanErr)
		}
		if section != nil {
			item.Passage.Section = *section
		}
		if title != nil {
			item.Passage.Title = *title
		}
		if part != nil {
			item.Passage.Part = *part
		}
		results = append(results, item)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return results, nil
}

var _ CorpusStore = (*PostgresCorpusStore)(nil)
