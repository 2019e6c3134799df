// Package tool is the invocation layer specialists call against the backing
// stores. Every data-accessing call is scoped by the tenant id from context;
// the gateway injects it and fails closed when it is absent.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/codcoz/chefia/agent/contract"
)

const (
	ToolQueryReceitas     = "query_receitas"
	ToolAddTarefa         = "add_tarefa"
	ToolQueryTarefas      = "query_tarefas"
	ToolUpdateTarefa      = "update_tarefa"
	ToolCancelTarefas     = "cancel_tarefas"
	ToolAddTransaction    = "add_transaction"
	ToolQueryTransactions = "query_transactions"
	ToolTotalBalance      = "total_balance"
	ToolDailyBalance      = "daily_balance"
)

// InfosFor returns the tool schemas exposed to the specialist for a route.
// Tenant ids are deliberately absent: the gateway injects them from context
// and never trusts model- or user-supplied values.
func InfosFor(route contractx.Route) []*schema.ToolInfo {
	switch route {
	case contractx.RouteReceitas:
		return []*schema.ToolInfo{
			{
				Name: ToolQueryReceitas,
				Desc: "Consulta receitas da empresa por similaridade com filtros opcionais de nome, ingredientes, descrição e modo de preparo.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"nome_receita": {Type: schema.String, Desc: "Nome da receita a ser pesquisada."},
					"ingrediente":  {Type: schema.String, Desc: "Ingredientes identificados na pergunta, separados por vírgula. Ex.: 'alface, arroz'."},
					"descricao":    {Type: schema.String, Desc: "Descrição básica ou apresentação da receita."},
					"modo_preparo": {Type: schema.String, Desc: "Detalhes sobre o modo de preparo."},
				}),
			},
			calcToolInfo(),
		}
	case contractx.RouteTarefas:
		return []*schema.ToolInfo{
			{
				Name: ToolAddTarefa,
				Desc: "Cadastra uma tarefa para um funcionário da empresa.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"responsavel":    {Type: schema.String, Desc: "Nome da pessoa que irá realizar a tarefa.", Required: true},
					"situacao":       {Type: schema.String, Desc: "Situação: 'PENDENTE' | 'CONCLUÍDA' | 'CANCELADA'. Se ausente, cadastra como 'PENDENTE'."},
					"tipo_tarefa":    {Type: schema.String, Desc: "Tipo da tarefa que será realizada."},
					"ingrediente":    {Type: schema.String, Desc: "Ingrediente associado à tarefa, se houver."},
					"pedido_id":      {Type: schema.Integer, Desc: "ID do pedido associado à tarefa."},
					"data_limite":    {Type: schema.String, Desc: "Data limite para conclusão (YYYY-MM-DD)."},
					"data_conclusao": {Type: schema.String, Desc: "Data em que a tarefa foi concluída (YYYY-MM-DD)."},
				}),
			},
			{
				Name: ToolQueryTarefas,
				Desc: "Consulta tarefas da empresa com filtros opcionais de responsável, situação e janela de datas.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"responsavel": {Type: schema.String, Desc: "Nome (ou parte) do responsável."},
					"situacao":    {Type: schema.String, Desc: "Situação: 'PENDENTE' | 'CONCLUÍDA' | 'CANCELADA'."},
					"de":          {Type: schema.String, Desc: "Início da janela de data limite (YYYY-MM-DD)."},
					"ate":         {Type: schema.String, Desc: "Fim da janela de data limite (YYYY-MM-DD)."},
					"limit":       {Type: schema.Integer, Desc: "Número máximo de tarefas a retornar.", Required: true},
				}),
			},
			{
				Name: ToolUpdateTarefa,
				Desc: "Atualiza uma tarefa existente por ID ou pelo responsável mais recente.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"id":               {Type: schema.Integer, Desc: "ID da tarefa a atualizar. Se ausente, localiza a tarefa pendente mais recente pela combinação responsavel + tipo_tarefa."},
					"responsavel":      {Type: schema.String, Desc: "Responsável usado para localizar a tarefa."},
					"tipo_tarefa":      {Type: schema.String, Desc: "Tipo usado para refinar a localização."},
					"novo_responsavel": {Type: schema.String, Desc: "Novo responsável pela tarefa."},
					"novo_tipo_tarefa": {Type: schema.String, Desc: "Novo tipo da tarefa."},
					"situacao":         {Type: schema.String, Desc: "Nova situação: 'PENDENTE' | 'CONCLUÍDA' | 'CANCELADA'."},
					"data_limite":      {Type: schema.String, Desc: "Nova data limite (YYYY-MM-DD)."},
					"data_conclusao":   {Type: schema.String, Desc: "Nova data de conclusão (YYYY-MM-DD)."},
				}),
			},
			{
				Name: ToolCancelTarefas,
				Desc: "Cancela tarefas pendentes de um responsável, com janela de datas opcional.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"responsavel": {Type: schema.String, Desc: "Nome do responsável.", Required: true},
					"de":          {Type: schema.String, Desc: "Início da janela de data limite (YYYY-MM-DD)."},
					"ate":         {Type: schema.String, Desc: "Fim da janela de data limite (YYYY-MM-DD)."},
				}),
			},
			{
				Name: ToolAddTransaction,
				Desc: "Insere uma transação financeira.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"amount":         {Type: schema.Number, Desc: "Valor da transação (use positivo).", Required: true},
					"source_text":    {Type: schema.String, Desc: "Texto original do usuário.", Required: true},
					"occurred_at":    {Type: schema.String, Desc: "Timestamp ISO 8601; se ausente, usa o horário do banco."},
					"type_name":      {Type: schema.String, Desc: "Tipo: INCOME | EXPENSES | TRANSFER (ou um sinônimo em pt-br)."},
					"category_name":  {Type: schema.String, Desc: "Nome da categoria em pt-br (comida, estudo, transporte, contas, ...)."},
					"description":    {Type: schema.String, Desc: "Descrição (opcional)."},
					"payment_method": {Type: schema.String, Desc: "Forma de pagamento (opcional)."},
				}),
			},
			{
				Name: ToolQueryTransactions,
				Desc: "Consulta transações com filtros por texto, tipo e datas locais (America/Sao_Paulo).",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"text":            {Type: schema.String, Desc: "Texto a buscar em source_text ou description."},
					"type_name":       {Type: schema.String, Desc: "Tipo: INCOME | EXPENSES | TRANSFER."},
					"date_local":      {Type: schema.String, Desc: "Data específica (YYYY-MM-DD)."},
					"date_from_local": {Type: schema.String, Desc: "Início do intervalo (YYYY-MM-DD)."},
					"date_to_local":   {Type: schema.String, Desc: "Fim do intervalo (YYYY-MM-DD)."},
					"limit":           {Type: schema.Integer, Desc: "Número máximo de transações a retornar.", Required: true},
				}),
			},
			{
				Name: ToolTotalBalance,
				Desc: "Retorna o saldo (INCOME - EXPENSES) de todo o histórico da empresa, ignorando TRANSFER.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
			},
			{
				Name: ToolDailyBalance,
				Desc: "Retorna o saldo (INCOME - EXPENSES) do dia local informado, ignorando TRANSFER.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"date_local": {Type: schema.String, Desc: "Dia local (YYYY-MM-DD) em America/Sao_Paulo.", Required: true},
				}),
			},
			calcToolInfo(),
		}
	default:
		return nil
	}
}

func calcToolInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolCalcEvaluate,
		Desc: "Avalia uma expressão aritmética (escalar quantidades, somar totais).",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"expression": {Type: schema.String, Desc: "Expressão a avaliar.", Required: true},
		}),
	}
}

// NamesFor returns the allowed tool names for a route.
func NamesFor(route contractx.Route) map[string]struct{} {
	infos := InfosFor(route)
	names := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		if info == nil || strings.TrimSpace(info.Name) == "" {
			continue
		}
		names[info.Name] = struct{}{}
	}
	return names
}

// Gateway dispatches tool requests to the backing stores.
type Gateway struct {
	recipes *RecipeStore
	tasks   *TaskStore
}

var _ contractx.ToolGateway = (*Gateway)(nil)

func NewGateway(recipes *RecipeStore, tasks *TaskStore) *Gateway {
	return &Gateway{recipes: recipes, tasks: tasks}
}

// Execute runs each request in order. Tool failures come back as structured
// errors inside the results; the error return is reserved for broken
// invariants in the caller.
func (g *Gateway) Execute(ctx context.Context, route contractx.Route, tenant contractx.TenantContext, reqs []contractx.ToolRequest) ([]contractx.ToolResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	allowed := NamesFor(route)
	results := make([]contractx.ToolResult, 0, len(reqs))
	for _, req := range reqs {
		name := strings.TrimSpace(req.Tool)
		if name == "" {
			return nil, fmt.Errorf("%w: tool name is empty", contractx.ErrValidation)
		}
		if _, ok := allowed[name]; !ok {
			results = append(results, contractx.ToolResult{
				Tool:  name,
				Error: fmt.Sprintf("ferramenta %s não está disponível para %s", name, route),
			})
			continue
		}

		res := g.dispatch(ctx, name, tenant, req.Args)
		log.Debug().
			Str("tool", name).
			Str("route", string(route)).
			Bool("error", res.Error != "").
			Msg("tool call")
		results = append(results, res)
	}
	return results, nil
}

func (g *Gateway) dispatch(ctx context.Context, name string, tenant contractx.TenantContext, args map[string]any) contractx.ToolResult {
	if name == ToolCalcEvaluate {
		return executeCalcTool(args)
	}

	// Everything else touches a backing store: resolve the tenant first and
	// fail closed when it is unusable. Model-supplied ids are discarded.
	empresaID, err := tenantID(tenant)
	if err != nil {
		return contractx.ToolResult{
			Tool:  name,
			Error: "consulta bloqueada: ID da empresa ausente ou inválido no contexto",
		}
	}

	switch name {
	case ToolQueryReceitas:
		return g.recipes.Query(ctx, empresaID, args)
	case ToolAddTarefa:
		return g.tasks.AddTarefa(ctx, empresaID, tenant.GestorID, args)
	case ToolQueryTarefas:
		return g.tasks.QueryTarefas(ctx, empresaID, args)
	case ToolUpdateTarefa:
		return g.tasks.UpdateTarefa(ctx, empresaID, args)
	case ToolCancelTarefas:
		return g.tasks.CancelTarefas(ctx, empresaID, args)
	case ToolAddTransaction:
		return g.tasks.AddTransaction(ctx, empresaID, args)
	case ToolQueryTransactions:
		return g.tasks.QueryTransactions(ctx, empresaID, args)
	case ToolTotalBalance:
		return g.tasks.TotalBalance(ctx, empresaID)
	case ToolDailyBalance:
		return g.tasks.DailyBalance(ctx, empresaID, args)
	default:
		return contractx.ToolResult{
			Tool:  name,
			Error: fmt.Sprintf("ferramenta %s não está implementada", name),
		}
	}
}

// tenantID parses the opaque tenant id into the numeric form the stores key
// on. An unusable id blocks the call instead of querying unscoped.
func tenantID(tenant contractx.TenantContext) (int64, error) {
	raw := strings.TrimSpace(tenant.EmpresaID)
	if raw == "" {
		return 0, contractx.ErrTenantMissing
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: empresa_id=%q", contractx.ErrTenantMissing, raw)
	}
	return id, nil
}

// decodeArgs maps loosely-typed tool arguments onto a typed struct.
func decodeArgs(args map[string]any, dst any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode tool args: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode tool args: %w", err)
	}
	return nil
}
