package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/conorbowles51/owl-n4j-sub001/internal/config"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/ai"
	ollamaai "github.com/conorbowles51/owl-n4j-sub001/pkg/ai/ollama"
	openaiai "github.com/conorbowles51/owl-n4j-sub001/pkg/ai/openai"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/geo"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/graph"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/logger"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/logger/console"
	casestorage "github.com/conorbowles51/owl-n4j-sub001/pkg/store/pgx"
)

// ingest reads local text files and runs them through the same pipeline
// the queue worker uses:
//
//	ingest -case <case-id> file.txt [file.txt ...]
func main() {
	caseID := flag.String("case", "", "case to ingest the documents into (required)")
	sourceType := flag.String("source-type", "text", "source type tag attached to the documents")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: cfg.Debug,
	})
	logger.Init(consoleLogger)

	if *caseID == "" || flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ingest -case <case-id> file.txt [file.txt ...]")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs := make([]graph.IngestDocumentParams, 0, flag.NArg())
	for _, path := range flag.Args() {
		text, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading %s: %v\n", path, err)
			os.Exit(1)
		}
		docs = append(docs, graph.IngestDocumentParams{
			CaseID:     *caseID,
			Name:       filepath.Base(path),
			SourceType: *sourceType,
			Text:       string(text),
			Metadata:   map[string]string{"file_path": path},
		})
	}

	aiClient := newAIClient(cfg)

	storage, err := casestorage.NewCaseDBStorage(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer storage.Close()

	var geocoder geo.Geocoder
	if cfg.GeocoderEnabled {
		geocoder = geo.NewNominatimGeocoder(geo.NewNominatimGeocoderParams{
			BaseURL:   cfg.GeocoderBaseURL,
			UserAgent: cfg.GeocoderUserAgent,
			Timeout:   cfg.GeocodeTimeout,
		})
	}

	client, err := graph.NewIngestClient(graph.NewIngestClientParams{
		Store:       storage,
		AIClient:    aiClient,
		Geocoder:    geocoder,
		WorkerLimit: cfg.WorkerLimit,
		HintListCap: cfg.HintListCap,
		ChunkOpts:   cfg.ChunkOpts(),
		Timeouts:    cfg.Timeouts(),
	})
	if err != nil {
		logger.Fatal("Could not create ingest client", "err", err)
	}

	summary := client.IngestBatch(ctx, docs)

	for _, r := range summary.Results {
		switch r.Status {
		case graph.StatusCompleted:
			fmt.Printf("%-10s %s (%d chunks, %d entities, %d relationships)\n",
				r.Status, r.Document, r.Chunks, r.Entities, r.Relationships)
		case graph.StatusSkipped:
			fmt.Printf("%-10s %s (%s)\n", r.Status, r.Document, r.Reason)
		default:
			fmt.Printf("%-10s %s (%s: %v)\n", r.Status, r.Document, r.Reason, r.Err)
		}
	}
	fmt.Printf("%d completed, %d skipped, %d failed in %s\n",
		summary.Completed, summary.Skipped, summary.Failed, summary.Duration.Round(time.Second))

	// partial success exits differently from total failure
	switch {
	case summary.Failed == 0:
		os.Exit(0)
	case summary.Completed > 0 || summary.Skipped > 0:
		os.Exit(1)
	default:
		os.Exit(2)
	}
}

func newAIClient(cfg *config.Config) ai.CaseAIClient {
	switch cfg.AIProvider {
	case "ollama":
		client, err := ollamaai.NewCaseOllamaClient(ollamaai.NewCaseOllamaClientParams{
			CompletionModel:       cfg.CompletionModel,
			ExtractionModel:       cfg.ExtractionModel,
			BaseURL:               cfg.AIBaseURL,
			ApiKey:                cfg.AIAPIKey,
			MaxConcurrentRequests: int64(cfg.AIMaxConcurrent),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		return client
	default:
		return openaiai.NewCaseOpenAIClient(openaiai.NewCaseOpenAIClientParams{
			CompletionModel: cfg.CompletionModel,
			ExtractionModel: cfg.ExtractionModel,
			ChatURL:         cfg.AIBaseURL,
			ChatKey:         cfg.AIAPIKey,
		})
	}
}
