// Package specialist implements the route-bound agents. A specialist plans
// tool calls in an agentic loop, executes them through the gateway, and
// finalizes a structured answer for the renderer.
package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/codcoz/chefia/agent/contract"
	toolx "github.com/codcoz/chefia/agent/tool"
)

// maxToolRounds caps the planning loop. Hitting the ceiling degrades the
// final answer into clarify mode instead of looping forever.
const maxToolRounds = 6

const (
	modePlan     = "consultar_ferramentas"
	modeFinalize = "finalizar"
	modeClarify  = "esclarecer"
)

type specialistImpl struct {
	route         contractx.Route
	answerRunner  compose.Runnable[map[string]any, contractx.SpecialistAnswer]
	toolRunner    compose.Runnable[map[string]any, *schema.Message]
	runtimeRunner compose.Runnable[contractx.SpecialistRequest, contractx.SpecialistAnswer]
	gateway       contractx.ToolGateway
}

var _ contractx.Specialist = (*specialistImpl)(nil)

func newSpecialist(
	ctx context.Context,
	route contractx.Route,
	chatModel einomodel.ToolCallingChatModel,
	systemPrompt string,
	gateway contractx.ToolGateway,
) (*specialistImpl, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: prompt for specialist=%s is empty", contractx.ErrPromptMissing, route)
	}
	if gateway == nil {
		return nil, fmt.Errorf("%w: tool gateway is required", contractx.ErrValidation)
	}

	answerRunner, err := compileAnswerGraph(ctx, chatModel, systemPrompt,
		fmt.Sprintf("specialist.%s.answer_graph", route))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}

	toolModel, err := chatModel.WithTools(toolx.InfosFor(route))
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools for specialist=%s: %v", contractx.ErrModelInvoke, route, err)
	}
	toolRunner, err := compileToolPlanningGraph(ctx, toolModel, systemPrompt,
		fmt.Sprintf("specialist.%s.tool_planning_graph", route))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}

	spec := &specialistImpl{
		route:        route,
		answerRunner: answerRunner,
		toolRunner:   toolRunner,
		gateway:      gateway,
	}

	runtimeRunner, err := compileRuntimeGraph(ctx, route, spec.resolve)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	spec.runtimeRunner = runtimeRunner

	return spec, nil
}

func (s *specialistImpl) Resolve(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistAnswer, error) {
	return s.runtimeRunner.Invoke(ctx, req)
}

// resolve is the agentic loop: plan tool calls, execute them, feed results
// back, and finalize once the model stops asking for tools or the round
// ceiling is hit.
func (s *specialistImpl) resolve(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistAnswer, error) {
	var results []contractx.ToolResult
	mode := modeClarify

	for round := 0; round < maxToolRounds; round++ {
		reqs, err := s.planTools(ctx, req, results)
		if err != nil {
			return contractx.SpecialistAnswer{}, err
		}
		if len(reqs) == 0 {
			mode = modeFinalize
			break
		}

		executed, err := s.gateway.Execute(ctx, s.route, req.Tenant, reqs)
		if err != nil {
			return contractx.SpecialistAnswer{}, fmt.Errorf("%w: execute tools for specialist=%s: %v",
				contractx.ErrToolUnavailable, s.route, err)
		}
		results = append(results, executed...)

		log.Debug().
			Str("route", string(s.route)).
			Int("round", round+1).
			Int("tools", len(reqs)).
			Msg("specialist tool round")
	}

	return s.finalize(ctx, req, results, mode)
}

func (s *specialistImpl) planTools(
	ctx context.Context,
	req contractx.SpecialistRequest,
	results []contractx.ToolResult,
) ([]contractx.ToolRequest, error) {
	input, err := stagePayload(modePlan, req.Envelope, results)
	if err != nil {
		return nil, err
	}

	msg, err := s.toolRunner.Invoke(ctx, s.templateVars(req, input))
	if err != nil {
		return nil, fmt.Errorf("%w: tool planning invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: empty tool planning response", contractx.ErrSchemaViolation)
	}

	return toToolRequests(msg.ToolCalls)
}

func (s *specialistImpl) finalize(
	ctx context.Context,
	req contractx.SpecialistRequest,
	results []contractx.ToolResult,
	mode string,
) (contractx.SpecialistAnswer, error) {
	input, err := stagePayload(mode, req.Envelope, results)
	if err != nil {
		return contractx.SpecialistAnswer{}, err
	}

	answer, err := s.answerRunner.Invoke(ctx, s.templateVars(req, input))
	if err != nil {
		return contractx.SpecialistAnswer{}, fmt.Errorf("%w: specialist invoke: %v", contractx.ErrModelInvoke, err)
	}

	if err := answer.Normalize(s.route); err != nil {
		return contractx.SpecialistAnswer{}, err
	}
	return answer, nil
}

func (s *specialistImpl) templateVars(req contractx.SpecialistRequest, input string) map[string]any {
	return map[string]any{
		"input":        input,
		"chat_history": historyMessages(req.History),
		"today":        req.Today,
		"empresa_id":   req.Tenant.EmpresaID,
		"gestor_id":    req.Tenant.GestorID,
	}
}

// stagePayload is the JSON the specialist sees as the user turn: the parsed
// envelope, the accumulated tool results, and the stage mode.
func stagePayload(mode string, env contractx.ForwardEnvelope, results []contractx.ToolResult) (string, error) {
	payload := map[string]any{
		"mode":              mode,
		"pergunta_original": env.OriginalQuestion,
		"persona":           env.Persona,
		"clarify":           env.Clarify,
	}
	if len(results) > 0 {
		payload["tool_results"] = results
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal specialist payload: %v", contractx.ErrValidation, err)
	}
	return string(raw), nil
}

func toToolRequests(calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		tool := strings.TrimSpace(call.Function.Name)
		if tool == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		args := map[string]any{}
		rawArgs := strings.TrimSpace(call.Function.Arguments)
		if rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, tool, err)
			}
		}

		reqs = append(reqs, contractx.ToolRequest{Tool: tool, Args: args})
	}
	return reqs, nil
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
