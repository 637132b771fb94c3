// Package llmgateway exposes a single, uniform synchronous prompt→completion
// call over an OpenAI-API-compatible provider. It reads the provider's
// prompt/completion/total usage counts, and falls back to local token
// estimation when a response reports none of them.
package llmgateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/pkoukk/tiktoken-go"

	"github.com/sousline/sous/pkg/config"
)

// ErrEmptyCompletion is returned when the provider responds with no choices.
var ErrEmptyCompletion = errors.New("llm gateway: completion returned no choices")

// ChatMessage is a single turn in a completion request, independent of the
// wire-level session.Message so this package carries no dependency on
// pkg/session.
type ChatMessage struct {
	Role    string // "system", "user", or "assistant"
	Content string
}

// Usage reports normalized token counts for one completion call. It carries
// the provider's prompt/completion/total counts when any is non-zero;
// otherwise it carries a local tiktoken estimate, with Estimated set.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	// Estimated is true when the provider reported no usage and these counts
	// come from the local tiktoken fallback instead.
	Estimated bool
}

// CompletionRequest is one synchronous prompt→completion call.
type CompletionRequest struct {
	Messages    []ChatMessage
	Model       string // empty uses the gateway's configured default model
	Temperature *float64
	MaxTokens   int
}

// CompletionResult is the normalized response to a CompletionRequest.
type CompletionResult struct {
	Content string
	Usage   Usage
	Elapsed time.Duration
}

// Gateway is the uniform request path to the completion service.
type Gateway struct {
	client      openai.Client
	cfg         config.LLMConfig
	fallbackEnc *tiktoken.Tiktoken
}

// New constructs a Gateway from an already-resolved API key and config.
func New(apiKey string, cfg config.LLMConfig) (*Gateway, error) {
	if apiKey == "" {
		return nil, errors.New("llm gateway: api key is empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("llm gateway: failed to load fallback encoding: %w", err)
	}

	return &Gateway{client: client, cfg: cfg, fallbackEnc: enc}, nil
}

// Complete runs one synchronous completion call bounded by the gateway's
// configured request timeout in addition to whatever deadline the caller's
// context already carries (whichever expires first applies), so one hung
// call cannot starve the rest of a pipeline run's budget.
func (g *Gateway) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = g.cfg.Model
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: g.buildMessages(req.Messages),
	}

	temperature := g.cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	params.Temperature = openai.Float(temperature)

	maxTokens := g.cfg.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("llm gateway: completion call failed: %w", err)
	}
	elapsed := time.Since(start)

	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	content := resp.Choices[0].Message.Content
	usage := g.normalizeUsage(resp, req.Messages, content)

	return &CompletionResult{Content: content, Usage: usage, Elapsed: elapsed}, nil
}

func (g *Gateway) buildMessages(messages []ChatMessage) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			params = append(params, openai.SystemMessage(m.Content))
		case "assistant":
			params = append(params, openai.AssistantMessage(m.Content))
		default:
			params = append(params, openai.UserMessage(m.Content))
		}
	}
	return params
}

// normalizeUsage converts the provider's prompt/completion/total counts
// into the single Usage representation every downstream stage reads. A
// response reporting none of them is not an error and is not attributed
// zero tokens: its counts are estimated locally with tiktoken and Estimated
// is set, so per-stage accounting is never silently zero for a real call.
// Usage fields outside the prompt/completion/total shape are not read.
func (g *Gateway) normalizeUsage(resp *openai.ChatCompletion, requestMessages []ChatMessage, completion string) Usage {
	u := resp.Usage
	if u.TotalTokens > 0 || u.PromptTokens > 0 || u.CompletionTokens > 0 {
		return Usage{
			PromptTokens:     int(u.PromptTokens),
			CompletionTokens: int(u.CompletionTokens),
			TotalTokens:      int(u.TotalTokens),
		}
	}

	prompt := g.estimateTokens(requestMessages)
	completionTokens := len(g.fallbackEnc.Encode(completion, nil, nil))
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: completionTokens,
		TotalTokens:      prompt + completionTokens,
		Estimated:        true,
	}
}

func (g *Gateway) estimateTokens(messages []ChatMessage) int {
	total := 0
	for _, m := range messages {
		total += len(g.fallbackEnc.Encode(m.Content, nil, nil))
	}
	return total
}
