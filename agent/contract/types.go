package contract

import (
	"fmt"
	"strings"
	"time"
)

// Route identifies which specialist a forwarded message is bound for.
type Route string

const (
	RouteReceitas Route = "receitas"
	RouteTarefas  Route = "tarefas"
)

func ParseRoute(s string) (Route, error) {
	switch Route(strings.TrimSpace(strings.ToLower(s))) {
	case RouteReceitas:
		return RouteReceitas, nil
	case RouteTarefas:
		return RouteTarefas, nil
	default:
		return "", fmt.Errorf("%w: unknown route %q", ErrSchemaViolation, s)
	}
}

// Role marks who produced a history message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a session's conversation log. Immutable once
// appended; ordering is the append order.
type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// TenantContext carries the scoping identifiers through every stage. Stages
// pass it along untouched; only the tool gateway consumes it.
type TenantContext struct {
	EmpresaID string `json:"empresa_id"`
	GestorID  string `json:"gestor_id"`
}

// ForwardEnvelope is the message the router hands to a specialist. The
// original user question travels verbatim; Clarify holds at most one
// minimal question.
type ForwardEnvelope struct {
	Route            Route  `json:"route"`
	OriginalQuestion string `json:"pergunta_original"`
	Persona          string `json:"persona"`
	Clarify          string `json:"clarify,omitempty"`
}

// RouterOutcome is the tagged result of the router stage: either a direct
// reply to the user or a forward to a specialist. Exactly one side is set.
type RouterOutcome struct {
	Direct  string
	Forward *ForwardEnvelope
}

func (o RouterOutcome) IsForward() bool {
	return o.Forward != nil
}

// Intent values accepted per domain.
var (
	RecipeIntents = map[string]struct{}{
		"consultar": {},
		"resumo":    {},
	}
	TaskIntents = map[string]struct{}{
		"consultar": {},
		"criar":     {},
		"atualizar": {},
		"cancelar":  {},
		"listar":    {},
	}
)

// TimeWindow is the optional resolved date range a task answer may carry.
type TimeWindow struct {
	From  string `json:"de,omitempty"`
	To    string `json:"ate,omitempty"`
	Label string `json:"rotulo,omitempty"`
}

// SpecialistAnswer is the structured answer a specialist returns, consumed by
// the renderer. Resposta is mandatory; at most one of Esclarecer and
// Acompanhamento is populated after normalization.
type SpecialistAnswer struct {
	Dominio        string             `json:"dominio"`
	Intencao       string             `json:"intencao"`
	Resposta       string             `json:"resposta"`
	Recomendacao   string             `json:"recomendacao"`
	Acompanhamento string             `json:"acompanhamento,omitempty"`
	Esclarecer     string             `json:"esclarecer,omitempty"`
	Indicadores    map[string]float64 `json:"indicadores,omitempty"`
	JanelaTempo    *TimeWindow        `json:"janela_tempo,omitempty"`
}

// dominio aliases the original prompts use interchangeably.
var domainAliases = map[string]Route{
	"receitas": RouteReceitas,
	"tarefas":  RouteTarefas,
	"agenda":   RouteTarefas,
}

// Normalize validates the answer against the schema for the given route and
// resolves field conflicts in place. It returns ErrSchemaViolation when the
// answer cannot be made contract-valid.
func (a *SpecialistAnswer) Normalize(route Route) error {
	if a == nil {
		return fmt.Errorf("%w: nil specialist answer", ErrSchemaViolation)
	}

	a.Resposta = strings.TrimSpace(a.Resposta)
	if a.Resposta == "" {
		return fmt.Errorf("%w: resposta is required", ErrSchemaViolation)
	}

	dom, ok := domainAliases[strings.TrimSpace(strings.ToLower(a.Dominio))]
	if !ok || dom != route {
		return fmt.Errorf("%w: dominio %q does not match route %q", ErrSchemaViolation, a.Dominio, route)
	}
	a.Dominio = string(dom)

	intents := RecipeIntents
	if route == RouteTarefas {
		intents = TaskIntents
	}
	a.Intencao = strings.TrimSpace(strings.ToLower(a.Intencao))
	if _, ok := intents[a.Intencao]; !ok {
		return fmt.Errorf("%w: intencao %q is not valid for dominio %q", ErrSchemaViolation, a.Intencao, a.Dominio)
	}

	a.Recomendacao = strings.TrimSpace(a.Recomendacao)
	a.Esclarecer = strings.TrimSpace(a.Esclarecer)
	a.Acompanhamento = strings.TrimSpace(a.Acompanhamento)

	// Esclarecer wins when the model fills both follow-up fields.
	if a.Esclarecer != "" && a.Acompanhamento != "" {
		a.Acompanhamento = ""
	}

	return nil
}

// ToolRequest is one tool call a specialist asks the gateway to perform.
type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult carries a tool's structured result or error back into the
// specialist loop. Error is a plain message, never a Go error chain.
type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
