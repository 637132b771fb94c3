package config

import "time"

// Builtin returns the built-in default configuration. User-provided YAML is
// merged on top of this via mergo, with user values winning on conflict.
func Builtin() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:         "8080",
			AllowedWSOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		LLM: LLMConfig{
			Temperature:    0.2,
			MaxTokens:      1024,
			RequestTimeout: 12 * time.Second,
		},
		Retrieval: RetrievalConfig{
			TopK:           3,
			RerankEnabled:  false,
			RequestTimeout: 5 * time.Second,
		},
		WebSearch: WebSearchConfig{
			Provider:       WebSearchProviderDuckDuckGo,
			ResultCount:    3,
			RequestTimeout: 5 * time.Second,
		},
		Pipeline: PipelineConfig{
			RequestDeadline:  20 * time.Second,
			ProgressInterval: 3 * time.Second,
		},
	}
}
