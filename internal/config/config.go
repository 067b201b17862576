package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// FileConfig holds the non-secret settings that can be tuned through an
// optional config.yaml. A missing file or missing fields fall back to the
// defaults below.
type FileConfig struct {
	DatasetPath    string `yaml:"dataset_path"`
	SeedPath       string `yaml:"seed_path"`
	VectorIndex    string `yaml:"vector_index"`
	SearchIndex    string `yaml:"search_index"`
	BatchSize      int    `yaml:"batch_size"`
	VectorTopK     int    `yaml:"vector_top_k"`
	SearchSize     int    `yaml:"search_size"`
	ChatModel      string `yaml:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model"`
}

type Config struct {
	GroqAPIKey        string
	GroqBaseURL       string
	PineconeAPIKey    string
	PineconeIndexHost string
	GeminiAPIKey      string
	ElasticHost       string
	JWTSecret         string
	DatabaseURL       string
	HTTPPort          string
	LogLevel          string

	File FileConfig
}

var AppConfig Config

// LoadConfig populates AppConfig from config.yaml (if present) and the
// environment. A missing API key is fatal: the component that needs it
// cannot start without it.
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, relying on environment variables")
	}

	file, err := loadFile(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config file")
	}

	AppConfig = Config{
		GroqAPIKey:        getEnv("GROQ_API_KEY", ""),
		GroqBaseURL:       getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		PineconeAPIKey:    getEnv("PINECONE_API_KEY", ""),
		PineconeIndexHost: getEnv("PINECONE_INDEX_HOST", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		ElasticHost:       getEnv("ELASTIC_HOST", "http://elasticsearch:9200"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		DatabaseURL:       getEnv("DATABASE_URL", "carmate.db"),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		File:              *file,
	}

	for name, value := range map[string]string{
		"GROQ_API_KEY":        AppConfig.GroqAPIKey,
		"PINECONE_API_KEY":    AppConfig.PineconeAPIKey,
		"PINECONE_INDEX_HOST": AppConfig.PineconeIndexHost,
		"GEMINI_API_KEY":      AppConfig.GeminiAPIKey,
		"JWT_SECRET":          AppConfig.JWTSecret,
	} {
		if value == "" {
			log.Fatal().Msgf("%s environment variable is required", name)
		}
	}
}

func loadFile(path string) (*FileConfig, error) {
	cfg := defaultFileConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyFileDefaults(cfg)
	return cfg, nil
}

func defaultFileConfig() *FileConfig {
	return &FileConfig{
		DatasetPath:    "Cars_Datasets_2025.csv",
		SeedPath:       "cars_info.json",
		VectorIndex:    "availablecars",
		SearchIndex:    "index_es",
		BatchSize:      32,
		VectorTopK:     3,
		SearchSize:     5,
		ChatModel:      "meta-llama/llama-4-scout-17b-16e-instruct",
		EmbeddingModel: "text-embedding-004",
	}
}

func applyFileDefaults(cfg *FileConfig) {
	def := defaultFileConfig()
	if cfg.DatasetPath == "" {
		cfg.DatasetPath = def.DatasetPath
	}
	if cfg.SeedPath == "" {
		cfg.SeedPath = def.SeedPath
	}
	if cfg.VectorIndex == "" {
		cfg.VectorIndex = def.VectorIndex
	}
	if cfg.SearchIndex == "" {
		cfg.SearchIndex = def.SearchIndex
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.VectorTopK == 0 {
		cfg.VectorTopK = def.VectorTopK
	}
	if cfg.SearchSize == 0 {
		cfg.SearchSize = def.SearchSize
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = def.ChatModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = def.EmbeddingModel
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
