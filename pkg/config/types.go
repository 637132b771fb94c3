// Package config loads and validates sous's YAML + environment configuration:
// LLM/retrieval/web-search gateway credentials, the relational store DSN, and
// the dialog pipeline's per-request deadline and retrieval fan-out.
package config

import "time"

// WebSearchProvider selects which Web Search Gateway adapter to use.
type WebSearchProvider string

const (
	WebSearchProviderHTTP        WebSearchProvider = "http"
	WebSearchProviderDuckDuckGo  WebSearchProvider = "duckduckgo"
)

// Config is the fully loaded, validated, ready-to-use application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	LLM        LLMConfig        `yaml:"llm"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	WebSearch  WebSearchConfig  `yaml:"web_search"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
}

// ServerConfig groups HTTP/websocket transport settings.
type ServerConfig struct {
	HTTPPort         string   `yaml:"http_port"`
	AllowedWSOrigins []string `yaml:"allowed_ws_origins"`
}

// DatabaseConfig configures the pgx-backed relational store connection pool.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// LLMConfig configures the LLM Gateway used for classification, extraction,
// query rewriting, relevance grading, generation, recipe modification, and
// cooking-question calls.
type LLMConfig struct {
	// BaseURL, when set, points at an OpenAI-API-compatible endpoint.
	// Empty uses the provider's default endpoint.
	BaseURL string `yaml:"base_url,omitempty"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env" validate:"required"`

	// Model is used for generation, rewriting, and grading calls.
	Model string `yaml:"model" validate:"required"`

	// ClassifierModel is used for the low-temperature intent/declaration
	// classification calls. Defaults to Model if empty.
	ClassifierModel string `yaml:"classifier_model,omitempty"`

	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// RequestTimeout bounds a single LLM call in addition to the pipeline
	// deadline, so a hung provider call doesn't starve other stages' share
	// of the budget.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// RetrievalConfig configures the dense-vector Retrieval Gateway.
type RetrievalConfig struct {
	Addr           string `yaml:"addr" validate:"required"`
	APIKeyEnv      string `yaml:"api_key_env,omitempty"`
	CollectionName string `yaml:"collection_name" validate:"required"`

	// TopK is the default k for dense search.
	TopK int `yaml:"top_k"`

	// RerankEnabled toggles the optional reranking stage.
	RerankEnabled bool `yaml:"rerank_enabled"`

	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// WebSearchConfig configures the fallback Web Search Gateway.
type WebSearchConfig struct {
	Provider WebSearchProvider `yaml:"provider"`
	BaseURL  string            `yaml:"base_url,omitempty"`
	APIKeyEnv string           `yaml:"api_key_env,omitempty"`

	// ResultCount is the number of snippets fetched per query.
	ResultCount int `yaml:"result_count"`

	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// PipelineConfig configures per-request behavior of the Pipeline Executor and
// Dialog Controller.
type PipelineConfig struct {
	// RequestDeadline bounds one search-pipeline run end-to-end.
	RequestDeadline time.Duration `yaml:"request_deadline"`

	// ProgressInterval is how often the progress emitter sends a progress frame.
	ProgressInterval time.Duration `yaml:"progress_interval"`
}
