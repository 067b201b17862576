package core

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/FranAva001/CarMate/internal/config"
)

// EmbeddingService computes dense embeddings through the hosted Gemini
// embedding model. The same model is used at ingestion time and at query
// time, so vectors live in one space.
type EmbeddingService struct {
	client *genai.Client
	model  string
}

func NewEmbeddingService() *EmbeddingService {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.AppConfig.GeminiAPIKey))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create GenAI client")
	}

	return &EmbeddingService{
		client: client,
		model:  config.AppConfig.File.EmbeddingModel,
	}
}

func (s *EmbeddingService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Error().Err(err).Msg("error closing GenAI client")
		}
	}
}

func (s *EmbeddingService) GetEmbedding(text string) ([]float32, error) {
	ctx := context.Background()
	em := s.client.EmbeddingModel(s.model)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}

	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}
