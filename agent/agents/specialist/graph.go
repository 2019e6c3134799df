package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/codcoz/chefia/agent/contract"
)

// specialistTemplate is shared by both graphs: system prompt with tenant
// context, the running conversation, then the staged payload.
func specialistTemplate(systemPrompt string) einoprompt.ChatTemplate {
	return einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.MessagesPlaceholder("chat_history", true),
		schema.UserMessage("{input}"),
	)
}

// compileAnswerGraph builds the finalization pipeline: the model emits the
// answer JSON and the parser node decodes it into the answer struct.
func compileAnswerGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
) (compose.Runnable[map[string]any, contractx.SpecialistAnswer], error) {
	parser := schema.NewMessageJSONParser[contractx.SpecialistAnswer](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, contractx.SpecialistAnswer]()
	if err := graph.AddChatTemplateNode("prompt", specialistTemplate(systemPrompt)); err != nil {
		return nil, fmt.Errorf("add answer prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add answer model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add answer parser node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add answer edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add answer edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", "parse_json"); err != nil {
		return nil, fmt.Errorf("add answer edge model->parse: %w", err)
	}
	if err := graph.AddEdge("parse_json", compose.END); err != nil {
		return nil, fmt.Errorf("add answer edge parse->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile answer graph: %w", err)
	}
	return runner, nil
}

// compileToolPlanningGraph builds the planning pipeline. The model carries
// the bound tool catalog, so its output message may hold tool calls.
func compileToolPlanningGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", specialistTemplate(systemPrompt)); err != nil {
		return nil, fmt.Errorf("add tool planning prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add tool planning model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add tool planning edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add tool planning edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add tool planning edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile tool planning graph: %w", err)
	}
	return runner, nil
}

// compileRuntimeGraph wires validation ahead of the resolution loop so a
// malformed envelope never reaches the model.
func compileRuntimeGraph(
	ctx context.Context,
	route contractx.Route,
	resolve func(context.Context, contractx.SpecialistRequest) (contractx.SpecialistAnswer, error),
) (compose.Runnable[contractx.SpecialistRequest, contractx.SpecialistAnswer], error) {
	graph := compose.NewGraph[contractx.SpecialistRequest, contractx.SpecialistAnswer]()

	if err := graph.AddLambdaNode("validate_envelope",
		compose.InvokableLambda(func(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistRequest, error) {
			if req.Envelope.Route != route {
				return contractx.SpecialistRequest{}, fmt.Errorf("%w: envelope route %q does not match specialist %q",
					contractx.ErrValidation, req.Envelope.Route, route)
			}
			if strings.TrimSpace(req.Envelope.OriginalQuestion) == "" {
				return contractx.SpecialistRequest{}, fmt.Errorf("%w: original question is required", contractx.ErrValidation)
			}
			return req, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add runtime validate node: %w", err)
	}

	if err := graph.AddLambdaNode("resolve",
		compose.InvokableLambda(func(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistAnswer, error) {
			return resolve(ctx, req)
		}),
	); err != nil {
		return nil, fmt.Errorf("add runtime resolve node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "validate_envelope"); err != nil {
		return nil, fmt.Errorf("add runtime edge start->validate: %w", err)
	}
	if err := graph.AddEdge("validate_envelope", "resolve"); err != nil {
		return nil, fmt.Errorf("add runtime edge validate->resolve: %w", err)
	}
	if err := graph.AddEdge("resolve", compose.END); err != nil {
		return nil, fmt.Errorf("add runtime edge resolve->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(fmt.Sprintf("specialist.%s.runtime_graph", route)))
	if err != nil {
		return nil, fmt.Errorf("compile runtime graph: %w", err)
	}
	return runner, nil
}
