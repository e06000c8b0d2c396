// Package config loads medrag configuration from file or environment.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	internal "github.com/ragstack/medrag/medrag"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	QA       QAConfig       `mapstructure:"qa"`
	Database DatabaseConfig `mapstructure:"database"`
	Ollama   OllamaConfig   `mapstructure:"ollama"`
	Qdrant   QdrantConfig   `mapstructure:"qdrant"`
}

// QAConfig stores the query-pipeline knobs.
type QAConfig struct {
	RetrievalK          int    `mapstructure:"retrieval_k"`           // chunks fetched per query
	MaxHistoryLength    int    `mapstructure:"max_history_length"`    // entries kept per session
	MaxContextChars     int    `mapstructure:"max_context_chars"`     // document text budget in prompts
	MaxAnswerTokens     int    `mapstructure:"max_answer_tokens"`     // generation budget per answer
	ClassifierMaxTokens int    `mapstructure:"classifier_max_tokens"` // label completion budget
	PromptStyle         string `mapstructure:"prompt_style"`          // basic | medical | detailed
	BaseDisclaimer      string `mapstructure:"base_disclaimer"`       // empty = built-in disclaimer
	EnableTracing       bool   `mapstructure:"enable_tracing"`
}

// DatabaseConfig stores conversation persistence details.
type DatabaseConfig struct {
	Path string `mapstructure:"path"` // embedded libsql database file
}

// OllamaConfig stores generation/embedding backend details.
type OllamaConfig struct {
	Host           string `mapstructure:"host"`
	Model          string `mapstructure:"model"`
	VisionModel    string `mapstructure:"vision_model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// QdrantConfig stores the vector index connection details.
type QdrantConfig struct {
	Addr       string `mapstructure:"addr"` // gRPC host:port
	Collection string `mapstructure:"collection"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetDefault("qa.retrieval_k", 3)
	viper.SetDefault("qa.max_history_length", 10)
	viper.SetDefault("qa.max_context_chars", 8000)
	viper.SetDefault("qa.max_answer_tokens", 1000)
	viper.SetDefault("qa.classifier_max_tokens", 5)
	viper.SetDefault("qa.prompt_style", "basic")
	viper.SetDefault("qa.base_disclaimer", "")
	viper.SetDefault("qa.enable_tracing", true)

	viper.SetDefault("database.path", internal.DefaultDatabasePath)

	viper.SetDefault("ollama.host", "http://localhost:11434")
	viper.SetDefault("ollama.model", "llama3.2")
	viper.SetDefault("ollama.vision_model", "llama3.2-vision")
	viper.SetDefault("ollama.embedding_model", "nomic-embed-text")

	viper.SetDefault("qdrant.addr", "localhost:6334")
	viper.SetDefault("qdrant.collection", "medrag_documents")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine; defaults and env cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}
