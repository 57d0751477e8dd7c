package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

type classifierImpl struct {
	runner compose.Runnable[map[string]any, classifierLLMOutput]
}

type classifierLLMOutput struct {
	Category    string `json:"category"`
	HandoffNote string `json:"handoff_note,omitempty"`
	Reply       string `json:"reply,omitempty"`
}

func newClassifier(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*classifierImpl, error) {
	runner, err := compileStructuredLLMGraph[classifierLLMOutput](ctx, chatModel, systemPrompt, "master.classifier_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile classifier graph: %v", contractx.ErrModelInvoke, err)
	}
	return &classifierImpl{runner: runner}, nil
}

func (c *classifierImpl) Classify(ctx context.Context, req contractx.RouteRequest) (contractx.Classification, error) {
	if strings.TrimSpace(req.Text) == "" {
		return contractx.Classification{}, fmt.Errorf("%w: user message is required", contractx.ErrValidation)
	}

	input, err := json.Marshal(map[string]any{
		"user_message": req.Text,
		"history":      summarizeHistory(req.History),
	})
	if err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: marshal classifier payload: %v", contractx.ErrValidation, err)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: classifier invoke: %v", contractx.ErrModelInvoke, err)
	}

	return validateClassification(out)
}

func validateClassification(out classifierLLMOutput) (contractx.Classification, error) {
	category, ok := contractx.ParseCategory(out.Category)
	if !ok {
		return contractx.Classification{}, fmt.Errorf("%w: unsupported category=%q", contractx.ErrSchemaViolation, out.Category)
	}

	res := contractx.Classification{
		Category:    category,
		HandoffNote: strings.TrimSpace(out.HandoffNote),
		Reply:       strings.TrimSpace(out.Reply),
	}
	if category == contractx.CategoryNone && res.Reply == "" {
		return contractx.Classification{}, fmt.Errorf("%w: reply required when no category is chosen", contractx.ErrSchemaViolation)
	}
	if category != contractx.CategoryNone {
		res.Reply = ""
	}
	return res, nil
}

const maxHistoryExchanges = 6

// summarizeHistory keeps the most recent exchanges, oldest first.
func summarizeHistory(history []contractx.Exchange) []map[string]any {
	if len(history) > maxHistoryExchanges {
		history = history[len(history)-maxHistoryExchanges:]
	}
	out := make([]map[string]any, 0, len(history))
	for _, ex := range history {
		out = append(out, map[string]any{
			"user":     ex.Query.Text,
			"agent":    ex.Response.Text,
			"category": ex.Response.Category,
		})
	}
	return out
}
