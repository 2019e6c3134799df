package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/codcoz/chefia/agent/contract"
	historyx "github.com/codcoz/chefia/agent/history"
	renderx "github.com/codcoz/chefia/agent/render"
)

type GraphInput struct {
	Session *historyx.Session
	Text    string
	Tenant  contractx.TenantContext
	Today   string
}

type GraphOutput struct {
	Reply     string
	Forwarded bool
}

// GraphState carries one turn through the pipeline. History is snapshotted
// before the user message is appended, so every model stage sees the log as
// it stood when the turn began.
type GraphState struct {
	In      GraphInput
	History []contractx.Message

	Router contractx.RouterResult
	Answer contractx.SpecialistAnswer

	Reply     string
	Forwarded bool
}

func (f *Flow) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[GraphInput, GraphOutput], error) {
	graph := compose.NewGraph[GraphInput, GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in GraphInput) (*GraphState, error) {
			return validateRequest(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("classify_route",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (*GraphState, error) {
			return f.classifyRoute(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify_route: %w", err)
	}

	if err := graph.AddLambdaNode("direct_reply",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (*GraphState, error) {
			in.Reply = in.Router.Outcome.Direct
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node direct_reply: %w", err)
	}

	if err := graph.AddLambdaNode("dispatch_specialist",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (*GraphState, error) {
			return f.dispatchSpecialist(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch_specialist: %w", err)
	}

	if err := graph.AddLambdaNode("render_reply",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (*GraphState, error) {
			reply, err := renderx.Render(in.Answer)
			if err != nil {
				return nil, err
			}
			in.Reply = reply
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node render_reply: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (GraphOutput, error) {
			return finalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *GraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: flow graph state is nil", contractx.ErrValidation)
			}
			if in.Router.Outcome.IsForward() {
				return "dispatch_specialist", nil
			}
			return "direct_reply", nil
		},
		map[string]bool{
			"direct_reply":        true,
			"dispatch_specialist": true,
		},
	)

	if err := graph.AddBranch("classify_route", branch); err != nil {
		return nil, fmt.Errorf("add flow branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "classify_route"},
		{"dispatch_specialist", "render_reply"},
		{"direct_reply", "finalize_reply"},
		{"render_reply", "finalize_reply"},
		{"finalize_reply", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("flow.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile flow graph: %w", err)
	}
	return runner, nil
}

func validateRequest(in GraphInput) (*GraphState, error) {
	if in.Session == nil {
		return nil, fmt.Errorf("%w: session is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("%w: user message is required", contractx.ErrValidation)
	}
	return &GraphState{
		In:      in,
		History: in.Session.Messages(),
	}, nil
}

// classifyRoute runs the router and records the user turn. The append
// happens after classification so the router never sees the message twice.
func (f *Flow) classifyRoute(ctx context.Context, in *GraphState) (*GraphState, error) {
	result, err := f.registry.Router().Classify(ctx, contractx.RouterRequest{
		UserMessage: in.In.Text,
		History:     in.History,
		Tenant:      in.In.Tenant,
		Today:       in.In.Today,
	})
	if err != nil {
		return nil, err
	}

	in.Router = result
	in.In.Session.Append(contractx.Message{Role: contractx.RoleUser, Content: in.In.Text})
	return in, nil
}

func (f *Flow) dispatchSpecialist(ctx context.Context, in *GraphState) (*GraphState, error) {
	env := in.Router.Outcome.Forward
	if env == nil {
		return nil, fmt.Errorf("%w: dispatch without forward envelope", contractx.ErrValidation)
	}

	spec, err := f.registry.SpecialistFor(env.Route)
	if err != nil {
		return nil, err
	}

	answer, err := spec.Resolve(ctx, contractx.SpecialistRequest{
		Envelope:    *env,
		RawEnvelope: in.Router.Raw,
		History:     in.History,
		Tenant:      in.In.Tenant,
		Today:       in.In.Today,
	})
	if err != nil {
		return nil, err
	}

	in.Answer = answer
	in.Forwarded = true
	return in, nil
}

func finalizeReply(in *GraphState) (GraphOutput, error) {
	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: empty reply at end of turn", contractx.ErrSchemaViolation)
	}

	in.In.Session.Append(contractx.Message{Role: contractx.RoleAssistant, Content: reply})
	return GraphOutput{Reply: reply, Forwarded: in.Forwarded}, nil
}
