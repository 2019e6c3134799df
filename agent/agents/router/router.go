// Package router implements the classification stage: every user message
// enters here and leaves either as a direct reply or as a forwarding
// envelope bound for a specialist.
package router

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/codcoz/chefia/agent/contract"
)

type routerImpl struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

var _ contractx.Router = (*routerImpl)(nil)

func New(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (contractx.Router, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: router prompt is empty", contractx.ErrPromptMissing)
	}
	runner, err := compileRouterGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	return &routerImpl{runner: runner}, nil
}

// Classify runs the router model over the message plus history and parses
// the raw text into the tagged outcome exactly once.
func (r *routerImpl) Classify(ctx context.Context, req contractx.RouterRequest) (contractx.RouterResult, error) {
	if strings.TrimSpace(req.UserMessage) == "" {
		return contractx.RouterResult{}, fmt.Errorf("%w: user message is required", contractx.ErrValidation)
	}

	msg, err := r.runner.Invoke(ctx, map[string]any{
		"input":        req.UserMessage,
		"chat_history": historyMessages(req.History),
		"today":        req.Today,
		"empresa_id":   req.Tenant.EmpresaID,
		"gestor_id":    req.Tenant.GestorID,
	})
	if err != nil {
		return contractx.RouterResult{}, fmt.Errorf("%w: router invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return contractx.RouterResult{}, fmt.Errorf("%w: router returned empty content", contractx.ErrSchemaViolation)
	}

	raw := strings.TrimSpace(msg.Content)
	outcome, err := contractx.ParseRouterOutput(raw)
	if err != nil {
		return contractx.RouterResult{}, err
	}

	return contractx.RouterResult{Outcome: outcome, Raw: raw}, nil
}

func historyMessages(history []contractx.Message) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case contractx.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		default:
			msgs = append(msgs, schema.UserMessage(m.Content))
		}
	}
	return msgs
}
