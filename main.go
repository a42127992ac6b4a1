package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fabfab/ncc-advisor/api"
	"github.com/fabfab/ncc-advisor/config"
	"github.com/fabfab/ncc-advisor/database"
	"github.com/fabfab/ncc-advisor/embeddings"
	"github.com/fabfab/ncc-advisor/ingestion"
	"github.com/fabfab/ncc-advisor/llm"
	"github.com/fabfab/ncc-advisor/query"
)

const serverShutdownTimeout = 10 * time.Second

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "ingest":
		ingestCmd(cfg, logger, os.Args[2:])
	case "ask":
		askCmd(cfg, logger, os.Args[2:])
	case "clear":
		clearCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func serveCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.ListenAddr, "listen address")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pgPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pgPool.Close()

	svc, err := newQueryService(cfg, pgPool, logger)
	if err != nil {
		logger.Fatalf("query service setup: %v", err)
	}

	server := &http.Server{
		Addr:    *addr,
		Handler: api.New(svc, cfg.AllowedOrigin, logger),
	}

	shutdownDone := shutdownOnCancel(ctx, server, logger)

	logger.Printf("serving on %s using %s/%s embeddings and %s/%s generation",
		*addr,
		strings.ToUpper(cfg.Embeddings.Provider), cfg.Embeddings.Model,
		strings.ToUpper(cfg.LLM.Provider), cfg.LLM.Model)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("serve: %v", err)
	}

	// ListenAndServe returns as soon as Shutdown is invoked; wait for the
	// drain to finish before tearing down the pool.
	cancel()
	<-shutdownDone
}

// shutdownOnCancel shuts the server down gracefully once ctx is
// cancelled. The returned channel closes only after Shutdown has
// finished draining in-flight requests, so callers must wait on it
// before releasing the server's dependencies.
func shutdownOnCancel(ctx context.Context, server *http.Server, logger *log.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("server shutdown: %v", err)
		}
	}()
	return done
}

func ingestCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	pdfPath := flags.String("pdf", "", "path to NCC volume PDF (required)")
	volume := flags.Int("volume", 2, "NCC volume number (1 or 2)")
	dryRun := flags.Bool("dry-run", false, "print chunk statistics without embedding or storing")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ingest flags: %v", err)
	}

	if *pdfPath == "" {
		logger.Fatal("pdf path is required")
	}
	if *volume != 1 && *volume != 2 {
		logger.Fatalf("volume must be 1 or 2, got %d", *volume)
	}
	if _, err := os.Stat(*pdfPath); err != nil {
		logger.Fatalf("pdf file: %v", err)
	}

	if *dryRun {
		chunks, err := ingestion.ExtractChunks(*pdfPath, *volume)
		if err != nil {
			logger.Fatalf("extract chunks: %v", err)
		}
		ingestion.PrintDryRun(logger, chunks)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pgPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pgPool.Close()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	svc := ingestion.NewService(pgPool, embedder, logger, cfg.Embeddings.Dimension)
	logger.Printf("ingesting %s (volume %d) using %s/%s embeddings", *pdfPath, *volume, strings.ToUpper(cfg.Embeddings.Provider), cfg.Embeddings.Model)

	if err := svc.IngestPDF(ctx, *pdfPath, *volume); err != nil {
		logger.Fatalf("ingestion failed: %v", err)
	}
}

func askCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	question := flags.String("question", "", "compliance question to ask")
	buildingClass := flags.String("class", "", "building classification (e.g. 1a, 5)")
	state := flags.String("state", "", "state or territory (e.g. VIC)")
	construction := flags.String("construction", "", "construction type (e.g. A, B, C)")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ask flags: %v", err)
	}

	if strings.TrimSpace(*question) == "" {
		fmt.Print("Enter your question: ")
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			*question = scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			logger.Fatalf("read question: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pgPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pgPool.Close()

	svc, err := newQueryService(cfg, pgPool, logger)
	if err != nil {
		logger.Fatalf("query service setup: %v", err)
	}

	resp, err := svc.Ask(ctx, query.Request{
		Question: *question,
		Context: query.ProjectContext{
			BuildingClass:    *buildingClass,
			Jurisdiction:     *state,
			ConstructionType: *construction,
		},
	})
	if err != nil {
		logger.Fatalf("query failed: %v", err)
	}

	fmt.Println(resp.Answer)
	if len(resp.References) > 0 {
		fmt.Println()
		fmt.Println("References:")
		for idx, ref := range resp.References {
			fmt.Printf("%d. %s - %s\n", idx+1, ref.Section, ref.Title)
		}
	}
}

func clearCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("clear", flag.ExitOnError)
	confirmed := flags.Bool("confirm", false, "skip confirmation prompt")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse clear flags: %v", err)
	}

	if !*confirmed {
		fmt.Print("This will permanently delete the ingested NCC corpus. Continue? [y/N]: ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				logger.Fatalf("read confirmation: %v", err)
			}
			logger.Println("clear aborted")
			return
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer != "y" && answer != "yes" {
			logger.Println("clear aborted")
			return
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pgPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pgPool.Close()

	if _, err := pgPool.Exec(ctx, "TRUNCATE ncc_chunks"); err != nil {
		logger.Fatalf("truncate ncc_chunks: %v", err)
	}
	logger.Println("NCC corpus cleared")
}

func newQueryService(cfg config.Config, pgPool *pgxpool.Pool, logger *log.Logger) (*query.Service, error) {
	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("embedder setup: %w", err)
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("llm setup: %w", err)
	}

	corpus := query.NewPostgresCorpusStore(pgPool)
	return query.NewService(corpus, embedder, llmClient, logger), nil
}

func printUsage() {
	fmt.Println("Usage: ncc-advisor <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve    Run the compliance-query HTTP API")
	fmt.Println("  ingest   Ingest an NCC volume PDF into the corpus (use --pdf and --volume)")
	fmt.Println("  ask      Ask a one-shot compliance question from the terminal")
	fmt.Println("  clear    Remove the ingested corpus")
}
