package ingestion

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledongthuc/pdf"
	"github.com/pgvector/pgvector-go"

	"github.com/fabfab/ncc-advisor/database"
	"github.com/fabfab/ncc-advisor/embeddings"
)

const (
	embedBatchSize  = 20
	uploadBatchSize = 50
	embedRetries    = 5
)

type Service struct {
	pool      *pgxpool.Pool
	embedder  embeddings.Embedder
	logger    *log.Logger
	dimension int
}

func NewService(pool *pgxpool.Pool, embedder embeddings.Embedder, logger *log.Logger, dimension int) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		pool:      pool,
		embedder:  embedder,
		logger:    logger,
		dimension: dimension,
	}
}

// IngestPDF extracts one NCC volume PDF, embeds its chunks in document
// mode and stores them. The query pipeline never writes to the corpus;
// this is the only writer.
func (s *Service) IngestPDF(ctx context.Context, path string, volume int) error {
	if s.embedder == nil {
		return fmt.Errorf("embedder not configured")
	}
	if err := database.EnsureCorpusSchema(ctx, s.pool, s.dimension); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	chunks, err := ExtractChunks(path, volume)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		s.logger.Printf("no chunks extracted from %s", path)
		return nil
	}
	s.logger.Printf("extracted %d chunks from %s (volume %d)", len(chunks), path, volume)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		vectors, err := s.embedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}

		if err := s.storeBatch(ctx, batch, vectors); err != nil {
			return fmt.Errorf("store chunks %d-%d: %w", start, end, err)
		}

		s.logger.Printf("ingested %d/%d chunks", end, len(chunks))
	}

	return nil
}

// ExtractChunks parses an NCC volume PDF into corpus chunks without
// touching providers or the database.
func ExtractChunks(path string, volume int) ([]Chunk, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		if cleaned := cleanPageText(text); cleaned != "" {
			pages = append(pages, cleaned)
		}
	}

	return chunkPages(pages, volume), nil
}

// embedBatch retries rate-limited embedding calls with linear backoff.
// Ingestion is offline tooling; the per-request query pipeline performs
// no retries.
func (s *Service) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < embedRetries; attempt++ {
		vectors, err := s.embedder.EmbedDocuments(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !retryableEmbedError(err) || attempt == embedRetries-1 {
			return nil, err
		}

		wait := time.Duration(attempt+1) * 15 * time.Second
		s.logger.Printf("embedding batch rate limited, waiting %s: %v", wait, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

func retryableEmbedError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "connection reset")
}

func (s *Service) storeBatch(ctx context.Context, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	batch := &pgx.Batch{}
	for i, chunk := range chunks {
		batch.Queue(`
			INSERT INTO ncc_chunks (id, content, volume, part, section, title, applicable_classes, state_specific, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector)
		`, uuid.New(), chunk.Content, chunk.Volume, chunk.Part, chunk.Section, chunk.Title,
			chunk.ApplicableClasses, chunk.StateSpecific, pgvector.NewVector(vectors[i]))
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}
	return nil
}

// PrintDryRun reports chunk statistics without calling any provider.
func PrintDryRun(logger *log.Logger, chunks []Chunk) {
	totalChars := 0
	sections := make(map[string]struct{})
	long := 0
	for _, chunk := range chunks {
		totalChars += len(chunk.Content)
		if chunk.Section != "" {
			sections[chunk.Section] = struct{}{}
		}
		if len(chunk.Content) > maxChunkChars {
			long++
			logger.Printf("oversized chunk %s %q: %d chars", chunk.Section, chunk.Title, len(chunk.Content))
		}
	}

	avg := 0
	if len(chunks) > 0 {
		avg = totalChars / len(chunks)
	}
	logger.Printf("total chunks: %d", len(chunks))
	logger.Printf("unique sections: %d", len(sections))
	logger.Printf("total chars: %d (avg %d)", totalChars, avg)
	logger.Printf("chunks over %d chars: %d", maxChunkChars, long)
}
