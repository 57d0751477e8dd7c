// Package labs runs the career-exploration labs: role options, a day-in-the-life
// simulation, the spark identity lab and the confidence lab. Model or JSON failures never
// reach the caller; each lab answers with fixed fallback content instead.
package labs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
	promptx "github.com/tanpawarit/sparkpath-gateway/agent/prompt"
	"github.com/tanpawarit/sparkpath-gateway/pkg/jsonx"
)

type completionRunner = compose.Runnable[map[string]any, string]

type Labs struct {
	roles      completionRunner
	simulation completionRunner
	identity   completionRunner
	confidence completionRunner
}

func New(ctx context.Context, chatModel einomodel.BaseChatModel, prompts promptx.PromptSet) (*Labs, error) {
	if chatModel == nil {
		return nil, errors.New("labs chat model is required")
	}

	l := &Labs{}
	var err error
	if l.roles, err = compileCompletionGraph(ctx, chatModel, prompts.RoleOptions, "role_options"); err != nil {
		return nil, err
	}
	if l.simulation, err = compileCompletionGraph(ctx, chatModel, prompts.DaySimulation, "day_simulation"); err != nil {
		return nil, err
	}
	if l.identity, err = compileCompletionGraph(ctx, chatModel, prompts.SparkIdentity, "spark_identity"); err != nil {
		return nil, err
	}
	if l.confidence, err = compileCompletionGraph(ctx, chatModel, prompts.Confidence, "confidence"); err != nil {
		return nil, err
	}
	return l, nil
}

func compileCompletionGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	lab string,
) (completionRunner, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: %s", contractx.ErrPromptMissing, lab)
	}

	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	graph := compose.NewGraph[map[string]any, string]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add lab prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add lab model node: %w", err)
	}
	if err := graph.AddLambdaNode("content",
		compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (string, error) {
			if msg == nil || strings.TrimSpace(msg.Content) == "" {
				return "", fmt.Errorf("%w: empty completion", contractx.ErrSchemaViolation)
			}
			return msg.Content, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add lab content node: %w", err)
	}

	edges := [][2]string{
		{compose.START, "prompt"},
		{"prompt", "model"},
		{"model", "content"},
		{"content", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add lab edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("labs."+lab))
	if err != nil {
		return nil, fmt.Errorf("compile %s graph: %w", lab, err)
	}
	return runner, nil
}

// complete runs one lab and returns the JSON value found in the completion.
func complete(ctx context.Context, runner completionRunner, input string) (json.RawMessage, error) {
	raw, err := runner.Invoke(ctx, map[string]any{"input": input})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contractx.ErrModelInvoke, err)
	}
	value, err := jsonx.ExtractRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contractx.ErrSchemaViolation, err)
	}
	return value, nil
}

func warnFallback(ctx context.Context, lab string, err error) {
	log.Ctx(ctx).Warn().Err(err).Str("lab", lab).Msg("lab model output unusable, using fallback")
}

func marshalInput(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
