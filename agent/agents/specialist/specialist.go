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

type specialistImpl struct {
	category contractx.Category
	runner   compose.Runnable[map[string]any, specialistLLMOutput]
}

type specialistLLMOutput struct {
	Message string `json:"message"`
}

func newSpecialist(
	ctx context.Context,
	category contractx.Category,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (*specialistImpl, error) {
	runner, err := compileStructuredLLMGraph[specialistLLMOutput](ctx, chatModel, systemPrompt, "specialist."+string(category)+"_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile specialist graph category=%s: %v", contractx.ErrModelInvoke, category, err)
	}
	return &specialistImpl{category: category, runner: runner}, nil
}

// Answer replies to req. A handoff note from the master may ride along in ctx.
func (s *specialistImpl) Answer(ctx context.Context, req contractx.RouteRequest) (string, error) {
	input, err := json.Marshal(map[string]any{
		"user_message": req.Text,
		"handoff_note": handoffNoteFrom(ctx),
		"history":      summarizeHistory(req.History),
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal specialist payload: %v", contractx.ErrValidation, err)
	}

	out, err := s.runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return "", fmt.Errorf("%w: specialist=%s invoke: %v", contractx.ErrModelInvoke, s.category, err)
	}

	message := strings.TrimSpace(out.Message)
	if message == "" {
		return "", fmt.Errorf("%w: specialist=%s message is empty", contractx.ErrSchemaViolation, s.category)
	}
	return message, nil
}

type handoffNoteKey struct{}

func withHandoffNote(ctx context.Context, note string) context.Context {
	if note == "" {
		return ctx
	}
	return context.WithValue(ctx, handoffNoteKey{}, note)
}

func handoffNoteFrom(ctx context.Context) string {
	note, _ := ctx.Value(handoffNoteKey{}).(string)
	return note
}
