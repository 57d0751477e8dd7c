package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
	"github.com/tanpawarit/sparkpath-gateway/pkg/jsonx"
)

type routeState struct {
	Req      contractx.RouteRequest
	Decision contractx.Classification
}

const (
	nodeClassify         = "classify"
	nodeMasterReply      = "master_reply"
	nodeSpecialistAnswer = "specialist_answer"
)

// compileRouterGraph wires master classification to either a direct master reply or a
// category specialist.
func compileRouterGraph(
	ctx context.Context,
	classify func(context.Context, contractx.RouteRequest) (contractx.Classification, error),
	masterReply func(context.Context, *routeState) (contractx.AgentResponse, error),
	specialistAnswer func(context.Context, *routeState) (contractx.AgentResponse, error),
) (compose.Runnable[contractx.RouteRequest, contractx.AgentResponse], error) {
	graph := compose.NewGraph[contractx.RouteRequest, contractx.AgentResponse]()

	if err := graph.AddLambdaNode(nodeClassify,
		compose.InvokableLambda(func(ctx context.Context, req contractx.RouteRequest) (*routeState, error) {
			if strings.TrimSpace(req.Text) == "" {
				return nil, fmt.Errorf("%w: route text is required", contractx.ErrValidation)
			}
			decision, err := classify(ctx, req)
			if err != nil {
				return nil, err
			}
			return &routeState{Req: req, Decision: decision}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add router classify node: %w", err)
	}

	if err := graph.AddLambdaNode(nodeMasterReply, compose.InvokableLambda(masterReply)); err != nil {
		return nil, fmt.Errorf("add router master reply node: %w", err)
	}
	if err := graph.AddLambdaNode(nodeSpecialistAnswer, compose.InvokableLambda(specialistAnswer)); err != nil {
		return nil, fmt.Errorf("add router specialist node: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *routeState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: router graph state is nil", contractx.ErrValidation)
			}
			if in.Decision.Category == contractx.CategoryNone {
				return nodeMasterReply, nil
			}
			return nodeSpecialistAnswer, nil
		},
		map[string]bool{
			nodeMasterReply:      true,
			nodeSpecialistAnswer: true,
		},
	)

	if err := graph.AddEdge(compose.START, nodeClassify); err != nil {
		return nil, fmt.Errorf("add router edge start->classify: %w", err)
	}
	if err := graph.AddBranch(nodeClassify, branch); err != nil {
		return nil, fmt.Errorf("add router branch: %w", err)
	}
	if err := graph.AddEdge(nodeMasterReply, compose.END); err != nil {
		return nil, fmt.Errorf("add router edge master->end: %w", err)
	}
	if err := graph.AddEdge(nodeSpecialistAnswer, compose.END); err != nil {
		return nil, fmt.Errorf("add router edge specialist->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("specialist.router_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile router graph: %w", err)
	}
	return runner, nil
}

func compileStructuredLLMGraph[T any](
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
) (compose.Runnable[map[string]any, T], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	parser := schema.NewMessageJSONParser[T](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, T]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add structured prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add structured model node: %w", err)
	}
	if err := graph.AddLambdaNode("extract_json", compose.InvokableLambda(extractJSONContent)); err != nil {
		return nil, fmt.Errorf("add structured extract node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add structured parser node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add structured edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add structured edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", "extract_json"); err != nil {
		return nil, fmt.Errorf("add structured edge model->extract: %w", err)
	}
	if err := graph.AddEdge("extract_json", "parse_json"); err != nil {
		return nil, fmt.Errorf("add structured edge extract->parse: %w", err)
	}
	if err := graph.AddEdge("parse_json", compose.END); err != nil {
		return nil, fmt.Errorf("add structured edge parse->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile structured graph: %w", err)
	}
	return runner, nil
}

// extractJSONContent trims prose and code fences around the model's JSON so the parser
// sees a bare value. Content without any JSON is passed through for the parser to reject.
func extractJSONContent(ctx context.Context, msg *schema.Message) (*schema.Message, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
	}
	raw, err := jsonx.ExtractRaw(msg.Content)
	if err != nil {
		return msg, nil
	}
	out := *msg
	out.Content = string(raw)
	return &out, nil
}
