package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tangerg/lynx/pkg/sets"

	"github.com/sousline/sous/pkg/extractor"
	"github.com/sousline/sous/pkg/llmgateway"
	"github.com/sousline/sous/pkg/postprocess"
	"github.com/sousline/sous/pkg/session"
)

// ErrNoPriorRecipe is returned when RunModification is invoked without a
// findable prior recipe in history; the caller must fall back to the search
// path.
var ErrNoPriorRecipe = errors.New("pipeline: no prior recipe in history")

// ModificationRequest is the input to the single-shot modification path.
type ModificationRequest struct {
	Utterance   string
	PriorRecipe string
	PriorImage  string
	ModType     session.ModificationType
}

// ModificationResult is the modification path's output: the mutated recipe
// text, the preserved prior image (flagged hidden in the UI but retained for
// internal continuity), and the ledger entry to append.
type ModificationResult struct {
	Content     string
	Image       string
	HideImage   bool
	LedgerEntry session.ModificationEntry
	Accounting  *Accounting
}

// RunModification mutates PriorRecipe per Utterance via a single LLM call,
// then runs the Ingredient Extractor (its own separate call) to get the
// ingredients the ledger entry should record. ErrNoPriorRecipe must be treated by the caller as "fall back to
// the search path", not as a hard failure.
func (e *Executor) RunModification(ctx context.Context, extractorComponent *extractor.Extractor, req ModificationRequest) (*ModificationResult, error) {
	if req.PriorRecipe == "" {
		return nil, ErrNoPriorRecipe
	}

	acc := newAccounting()

	prompt := fmt.Sprintf(`# 레시피 수정
[기존 레시피]
%s

[수정 요청]
%s

# 규칙: 기존 레시피 형식을 유지하고, 요청된 수정사항만 반영한 전체 레시피만 출력

답변:`, req.PriorRecipe, req.Utterance)

	var content string
	genElapsed := timed(func() {
		result, err := e.llm.Complete(ctx, llmgateway.CompletionRequest{
			Messages: []llmgateway.ChatMessage{{Role: "user", Content: prompt}},
		})
		if err != nil {
			content = req.PriorRecipe
			return
		}
		acc.record(StageModify, 0, result.Usage.TotalTokens)
		content = result.Content
	})
	acc.record(StageModify, genElapsed, 0)

	extraction := extractorComponent.Extract(ctx, req.Utterance, req.ModType)

	removeSet := sets.NewHashSet[string](len(extraction.Remove))
	removeSet.AddAll(extraction.Remove...)
	addSet := sets.NewHashSet[string](len(extraction.Add))
	addSet.AddAll(extraction.Add...)

	entry := session.ModificationEntry{
		Request:           req.Utterance,
		Type:              req.ModType,
		RemoveIngredients: removeSet,
		AddIngredients:    addSet,
		Timestamp:         time.Now(),
	}

	return &ModificationResult{
		Content:     postprocess.Process(content),
		Image:       req.PriorImage,
		HideImage:   true,
		LedgerEntry: entry,
		Accounting:  acc,
	}, nil
}
