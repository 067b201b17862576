package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/FranAva001/CarMate/internal/api"
	"github.com/FranAva001/CarMate/internal/catalog"
	"github.com/FranAva001/CarMate/internal/config"
	"github.com/FranAva001/CarMate/internal/core"
	"github.com/FranAva001/CarMate/internal/ingest"
	"github.com/FranAva001/CarMate/internal/search"
	"github.com/FranAva001/CarMate/internal/store"
	"github.com/FranAva001/CarMate/internal/vectorstore/pinecone"
)

func main() {
	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	config.LoadConfig()
	if level, err := zerolog.ParseLevel(config.AppConfig.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	// Command line flag for data ingestion
	ingestDataFlag := flag.Bool("ingest", false, "Ingest the car catalog and the search seed file, then exit")
	flag.Parse()

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer dbStore.Close()

	// External service clients
	embeddingService := core.NewEmbeddingService()
	defer embeddingService.Close()

	vectorStore := pinecone.NewStore(pinecone.Config{
		Host:   config.AppConfig.PineconeIndexHost,
		APIKey: config.AppConfig.PineconeAPIKey,
	})

	searchClient, err := search.NewClient(config.AppConfig.ElasticHost, config.AppConfig.File.SearchIndex)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize search client")
	}

	// Handle data ingestion if flag is set
	if *ingestDataFlag {
		runIngestion(embeddingService, vectorStore, searchClient)
		os.Exit(0)
	}

	// Initialize services
	llmService := core.NewLLMService(core.LLMConfig{
		BaseURL: config.AppConfig.GroqBaseURL,
		APIKey:  config.AppConfig.GroqAPIKey,
		Model:   config.AppConfig.File.ChatModel,
	})

	ragService := core.NewRAGService(
		embeddingService.GetEmbedding,
		vectorStore,
		searchClient,
		config.AppConfig.File.VectorTopK,
		config.AppConfig.File.SearchSize,
	)

	chatService := core.NewChatService(dbStore, ragService, llmService)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(chatService, searchClient)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Info().Str("addr", serverAddr).Msg("starting server, press Ctrl+C to quit")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Str("addr", serverAddr).Msg("could not listen")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exiting gracefully")
}

// runIngestion rebuilds both indexes: the catalog goes into the vector
// collection, the seed file into the search index. Vector upsert failures
// abort; per-document seed failures end up in the report.
func runIngestion(embeddingService *core.EmbeddingService, vectorStore *pinecone.Store, searchClient *search.Client) {
	ctx := context.Background()
	cfg := config.AppConfig.File

	log.Info().Str("dataset", cfg.DatasetPath).Msg("starting catalog ingestion")
	records, err := catalog.Load(cfg.DatasetPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load catalog")
	}

	count, err := ingest.BuildVectorIndex(ctx, records, embeddingService.GetEmbedding, vectorStore, cfg.BatchSize)
	if err != nil {
		log.Fatal().Err(err).Int("upserted", count).Msg("vector ingestion failed")
	}
	log.Info().Int("upserted", count).Str("index", cfg.VectorIndex).Msg("vector ingestion complete")

	if err := searchClient.Recreate(ctx); err != nil {
		log.Fatal().Err(err).Str("index", cfg.SearchIndex).Msg("failed to recreate search index")
	}

	report, err := ingest.LoadSeed(ctx, cfg.SeedPath, searchClient)
	if err != nil {
		log.Fatal().Err(err).Str("seed", cfg.SeedPath).Msg("seed load failed")
	}
	if len(report.Failed) > 0 {
		for _, id := range report.FailedIDs() {
			log.Warn().Str("id", id).Err(report.Failed[id]).Msg("seed document not indexed")
		}
	}
	log.Info().Int("indexed", report.Indexed).Int("failed", len(report.Failed)).Str("index", cfg.SearchIndex).Msg("seed load complete")
}
