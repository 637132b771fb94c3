package config

import (
	"errors"
	"fmt"
)

// validate runs component-level validation over the fully merged configuration.
// It returns a joined error so callers see every violation at once rather than
// fixing one field per run.
func validate(cfg *Config) error {
	var errs []error

	if cfg.LLM.APIKeyEnv == "" {
		errs = append(errs, NewValidationError("llm", "api_key_env", ErrMissingRequiredField))
	}
	if cfg.LLM.Model == "" {
		errs = append(errs, NewValidationError("llm", "model", ErrMissingRequiredField))
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		errs = append(errs, NewValidationError("llm", "temperature",
			fmt.Errorf("%w: must be between 0 and 2, got %v", ErrInvalidValue, cfg.LLM.Temperature)))
	}
	if cfg.LLM.RequestTimeout <= 0 {
		errs = append(errs, NewValidationError("llm", "request_timeout", ErrInvalidValue))
	}

	if cfg.Retrieval.Addr == "" {
		errs = append(errs, NewValidationError("retrieval", "addr", ErrMissingRequiredField))
	}
	if cfg.Retrieval.CollectionName == "" {
		errs = append(errs, NewValidationError("retrieval", "collection_name", ErrMissingRequiredField))
	}
	if cfg.Retrieval.TopK <= 0 {
		errs = append(errs, NewValidationError("retrieval", "top_k",
			fmt.Errorf("%w: must be positive, got %d", ErrInvalidValue, cfg.Retrieval.TopK)))
	}

	switch cfg.WebSearch.Provider {
	case WebSearchProviderHTTP:
		if cfg.WebSearch.BaseURL == "" {
			errs = append(errs, NewValidationError("web_search", "base_url", ErrMissingRequiredField))
		}
	case WebSearchProviderDuckDuckGo:
		// no credentials required
	case "":
		errs = append(errs, NewValidationError("web_search", "provider", ErrMissingRequiredField))
	default:
		errs = append(errs, NewValidationError("web_search", "provider",
			fmt.Errorf("%w: unknown provider %q", ErrInvalidValue, cfg.WebSearch.Provider)))
	}
	if cfg.WebSearch.ResultCount <= 0 {
		errs = append(errs, NewValidationError("web_search", "result_count", ErrInvalidValue))
	}

	if cfg.Pipeline.RequestDeadline <= 0 {
		errs = append(errs, NewValidationError("pipeline", "request_deadline", ErrInvalidValue))
	}
	if cfg.Pipeline.ProgressInterval <= 0 {
		errs = append(errs, NewValidationError("pipeline", "progress_interval", ErrInvalidValue))
	}
	if cfg.Pipeline.ProgressInterval >= cfg.Pipeline.RequestDeadline {
		errs = append(errs, NewValidationError("pipeline", "progress_interval",
			fmt.Errorf("%w: must be shorter than request_deadline", ErrInvalidValue)))
	}

	if cfg.Database.Host == "" {
		errs = append(errs, NewValidationError("database", "host", ErrMissingRequiredField))
	}
	if cfg.Database.Database == "" {
		errs = append(errs, NewValidationError("database", "database", ErrMissingRequiredField))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidationFailed, errors.Join(errs...))
}
