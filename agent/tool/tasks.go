package tool

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/codcoz/chefia/agent/contract"
)

const (
	SituacaoPendente  = "PENDENTE"
	SituacaoConcluida = "CONCLUÍDA"
	SituacaoCancelada = "CANCELADA"
)

const (
	defaultTaskLimit = 20
	maxTaskLimit     = 100
)

// Tarefa is a kitchen task row. empresa_id scopes every query; rows from one
// tenant are never visible to another.
type Tarefa struct {
	bun.BaseModel `bun:"table:tarefas,alias:t"`

	ID            int64      `bun:"id,pk,autoincrement" json:"id"`
	EmpresaID     int64      `bun:"empresa_id,notnull" json:"empresa_id"`
	Responsavel   string     `bun:"responsavel,notnull" json:"responsavel"`
	Situacao      string     `bun:"situacao,notnull" json:"situacao"`
	TipoTarefa    string     `bun:"tipo_tarefa,nullzero" json:"tipo_tarefa,omitempty"`
	Ingrediente   string     `bun:"ingrediente,nullzero" json:"ingrediente,omitempty"`
	PedidoID      *int64     `bun:"pedido_id" json:"pedido_id,omitempty"`
	RelatorID     *int64     `bun:"relator_id" json:"relator_id,omitempty"`
	DataLimite    *time.Time `bun:"data_limite" json:"data_limite,omitempty"`
	DataConclusao *time.Time `bun:"data_conclusao" json:"data_conclusao,omitempty"`
	CriadoEm      time.Time  `bun:"criado_em,nullzero,notnull,default:current_timestamp" json:"criado_em"`
}

// TaskStore runs the relational tools (tasks and transactions) over bun.
// Everything goes through the query builder, so user text never reaches the
// SQL layer as anything but a bind parameter.
type TaskStore struct {
	db  *bun.DB
	loc *time.Location
}

func NewTaskStore(db *bun.DB, loc *time.Location) *TaskStore {
	if loc == nil {
		loc = time.UTC
	}
	return &TaskStore{db: db, loc: loc}
}

type addTarefaArgs struct {
	Responsavel   string `json:"responsavel"`
	Situacao      string `json:"situacao"`
	TipoTarefa    string `json:"tipo_tarefa"`
	Ingrediente   string `json:"ingrediente"`
	PedidoID      *int64 `json:"pedido_id"`
	DataLimite    string `json:"data_limite"`
	DataConclusao string `json:"data_conclusao"`
}

// AddTarefa inserts a task. relator_id defaults to the acting manager from
// the tenant context; the model cannot override it.
func (s *TaskStore) AddTarefa(ctx context.Context, empresaID int64, gestorID string, args map[string]any) contractx.ToolResult {
	var in addTarefaArgs
	if err := decodeArgs(args, &in); err != nil {
		return contractx.ToolResult{Tool: ToolAddTarefa, Error: err.Error()}
	}

	responsavel := strings.TrimSpace(in.Responsavel)
	if responsavel == "" {
		return contractx.ToolResult{Tool: ToolAddTarefa, Error: "responsavel é obrigatório"}
	}

	situacao, err := normalizeSituacao(in.Situacao, SituacaoPendente)
	if err != nil {
		return contractx.ToolResult{Tool: ToolAddTarefa, Error: err.Error()}
	}

	tarefa := Tarefa{
		EmpresaID:   empresaID,
		Responsavel: responsavel,
		Situacao:    situacao,
		TipoTarefa:  strings.TrimSpace(in.TipoTarefa),
		Ingrediente: strings.TrimSpace(in.Ingrediente),
		PedidoID:    in.PedidoID,
	}

	if relator, err := strconv.ParseInt(strings.TrimSpace(gestorID), 10, 64); err == nil && relator > 0 {
		tarefa.RelatorID = &relator
	}

	if tarefa.DataLimite, err = s.optionalDate(in.DataLimite); err != nil {
		return contractx.ToolResult{Tool: ToolAddTarefa, Error: err.Error()}
	}
	if tarefa.DataConclusao, err = s.optionalDate(in.DataConclusao); err != nil {
		return contractx.ToolResult{Tool: ToolAddTarefa, Error: err.Error()}
	}

	if _, err := s.db.NewInsert().Model(&tarefa).Returning("id, criado_em").Exec(ctx); err != nil {
		return contractx.ToolResult{Tool: ToolAddTarefa, Error: fmt.Sprintf("falha ao cadastrar tarefa: %v", err)}
	}

	return contractx.ToolResult{
		Tool: ToolAddTarefa,
		Result: map[string]any{
			"mensagem": fmt.Sprintf("tarefa %d cadastrada para %s com situação %s", tarefa.ID, tarefa.Responsavel, tarefa.Situacao),
			"tarefa":   tarefa,
		},
	}
}

type queryTarefasArgs struct {
	Responsavel string `json:"responsavel"`
	Situacao    string `json:"situacao"`
	De          string `json:"de"`
	Ate         string `json:"ate"`
	Limit       int    `json:"limit"`
}

func (s *TaskStore) QueryTarefas(ctx context.Context, empresaID int64, args map[string]any) contractx.ToolResult {
	var in queryTarefasArgs
	if err := decodeArgs(args, &in); err != nil {
		return contractx.ToolResult{Tool: ToolQueryTarefas, Error: err.Error()}
	}

	limit := clampLimit(in.Limit)

	q := s.db.NewSelect().
		Model((*Tarefa)(nil)).
		Where("t.empresa_id = ?", empresaID)

	if v := strings.TrimSpace(in.Responsavel); v != "" {
		q = q.Where("t.responsavel ILIKE ?", "%"+v+"%")
	}
	if v := strings.TrimSpace(in.Situacao); v != "" {
		situacao, err := normalizeSituacao(v, "")
		if err != nil {
			return contractx.ToolResult{Tool: ToolQueryTarefas, Error: err.Error()}
		}
		q = q.Where("t.situacao = ?", situacao)
	}
	if v := strings.TrimSpace(in.De); v != "" {
		from, err := s.parseLocalDate(v)
		if err != nil {
			return contractx.ToolResult{Tool: ToolQueryTarefas, Error: err.Error()}
		}
		q = q.Where("t.data_limite >= ?", from)
	}
	if v := strings.TrimSpace(in.Ate); v != "" {
		to, err := s.parseLocalDate(v)
		if err != nil {
			return contractx.ToolResult{Tool: ToolQueryTarefas, Error: err.Error()}
		}
		q = q.Where("t.data_limite < ?", to.AddDate(0, 0, 1))
	}

	var tarefas []Tarefa
	if err := q.OrderExpr("t.data_limite ASC NULLS LAST, t.id DESC").Limit(limit).Scan(ctx, &tarefas); err != nil {
		return contractx.ToolResult{Tool: ToolQueryTarefas, Error: fmt.Sprintf("falha ao consultar tarefas: %v", err)}
	}

	return contractx.ToolResult{
		Tool: ToolQueryTarefas,
		Result: map[string]any{
			"total":   len(tarefas),
			"tarefas": tarefas,
		},
	}
}

type updateTarefaArgs struct {
	ID              *int64 `json:"id"`
	Responsavel     string `json:"responsavel"`
	TipoTarefa      string `json:"tipo_tarefa"`
	NovoResponsavel string `json:"novo_responsavel"`
	NovoTipoTarefa  string `json:"novo_tipo_tarefa"`
	Situacao        string `json:"situacao"`
	DataLimite      string `json:"data_limite"`
	DataConclusao   string `json:"data_conclusao"`
}

// UpdateTarefa changes an existing task. Without an explicit id it targets
// the most recent pending task matching responsavel (and tipo_tarefa when
// given); reassignment goes through novo_responsavel / novo_tipo_tarefa so
// locator fields never double as new values.
func (s *TaskStore) UpdateTarefa(ctx context.Context, empresaID int64, args map[string]any) contractx.ToolResult {
	var in updateTarefaArgs
	if err := decodeArgs(args, &in); err != nil {
		return contractx.ToolResult{Tool: ToolUpdateTarefa, Error: err.Error()}
	}

	var tarefa Tarefa
	find := s.db.NewSelect().
		Model(&tarefa).
		Where("t.empresa_id = ?", empresaID)

	switch {
	case in.ID != nil && *in.ID > 0:
		find = find.Where("t.id = ?", *in.ID)
	case strings.TrimSpace(in.Responsavel) != "":
		find = find.Where("t.responsavel ILIKE ?", "%"+strings.TrimSpace(in.Responsavel)+"%").
			Where("t.situacao = ?", SituacaoPendente)
		if v := strings.TrimSpace(in.TipoTarefa); v != "" {
			find = find.Where("t.tipo_tarefa ILIKE ?", "%"+v+"%")
		}
		find = find.OrderExpr("t.id DESC")
	default:
		return contractx.ToolResult{Tool: ToolUpdateTarefa, Error: "informe id ou responsavel para localizar a tarefa"}
	}

	if err := find.Limit(1).Scan(ctx); err != nil {
		return contractx.ToolResult{Tool: ToolUpdateTarefa, Error: "tarefa não encontrada"}
	}

	changed, err := s.applyTarefaUpdate(in, &tarefa)
	if err != nil {
		return contractx.ToolResult{Tool: ToolUpdateTarefa, Error: err.Error()}
	}
	if !changed {
		return contractx.ToolResult{Tool: ToolUpdateTarefa, Error: "nenhum campo para atualizar foi informado"}
	}

	_, err = s.db.NewUpdate().
		Model(&tarefa).
		Column("responsavel", "tipo_tarefa", "situacao", "data_limite", "data_conclusao").
		Where("t.id = ?", tarefa.ID).
		Where("t.empresa_id = ?", empresaID).
		Exec(ctx)
	if err != nil {
		return contractx.ToolResult{Tool: ToolUpdateTarefa, Error: fmt.Sprintf("falha ao atualizar tarefa: %v", err)}
	}

	return contractx.ToolResult{
		Tool: ToolUpdateTarefa,
		Result: map[string]any{
			"mensagem": fmt.Sprintf("tarefa %d atualizada", tarefa.ID),
			"tarefa":   tarefa,
		},
	}
}

// applyTarefaUpdate writes the requested changes onto the fetched row and
// reports whether any updatable field was set.
func (s *TaskStore) applyTarefaUpdate(in updateTarefaArgs, tarefa *Tarefa) (bool, error) {
	changed := false
	if v := strings.TrimSpace(in.NovoResponsavel); v != "" {
		tarefa.Responsavel = v
		changed = true
	}
	if v := strings.TrimSpace(in.NovoTipoTarefa); v != "" {
		tarefa.TipoTarefa = v
		changed = true
	}
	if v := strings.TrimSpace(in.Situacao); v != "" {
		situacao, err := normalizeSituacao(v, "")
		if err != nil {
			return false, err
		}
		tarefa.Situacao = situacao
		changed = true
	}
	if v := strings.TrimSpace(in.DataLimite); v != "" {
		t, err := s.parseLocalDate(v)
		if err != nil {
			return false, err
		}
		tarefa.DataLimite = &t
		changed = true
	}
	if v := strings.TrimSpace(in.DataConclusao); v != "" {
		t, err := s.parseLocalDate(v)
		if err != nil {
			return false, err
		}
		tarefa.DataConclusao = &t
		changed = true
	}

	// Completing a task stamps the conclusion date when the caller omitted it.
	if tarefa.Situacao == SituacaoConcluida && tarefa.DataConclusao == nil {
		now := time.Now().In(s.loc)
		tarefa.DataConclusao = &now
	}
	return changed, nil
}

type cancelTarefasArgs struct {
	Responsavel string `json:"responsavel"`
	De          string `json:"de"`
	Ate         string `json:"ate"`
}

// CancelTarefas cancels pending tasks of a responsible person, optionally
// limited to a due-date window.
func (s *TaskStore) CancelTarefas(ctx context.Context, empresaID int64, args map[string]any) contractx.ToolResult {
	var in cancelTarefasArgs
	if err := decodeArgs(args, &in); err != nil {
		return contractx.ToolResult{Tool: ToolCancelTarefas, Error: err.Error()}
	}

	responsavel := strings.TrimSpace(in.Responsavel)
	if responsavel == "" {
		return contractx.ToolResult{Tool: ToolCancelTarefas, Error: "responsavel é obrigatório"}
	}

	q := s.db.NewUpdate().
		Model((*Tarefa)(nil)).
		Set("situacao = ?", SituacaoCancelada).
		Where("t.empresa_id = ?", empresaID).
		Where("t.responsavel ILIKE ?", "%"+responsavel+"%").
		Where("t.situacao = ?", SituacaoPendente)

	if v := strings.TrimSpace(in.De); v != "" {
		from, err := s.parseLocalDate(v)
		if err != nil {
			return contractx.ToolResult{Tool: ToolCancelTarefas, Error: err.Error()}
		}
		q = q.Where("t.data_limite >= ?", from)
	}
	if v := strings.TrimSpace(in.Ate); v != "" {
		to, err := s.parseLocalDate(v)
		if err != nil {
			return contractx.ToolResult{Tool: ToolCancelTarefas, Error: err.Error()}
		}
		q = q.Where("t.data_limite < ?", to.AddDate(0, 0, 1))
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return contractx.ToolResult{Tool: ToolCancelTarefas, Error: fmt.Sprintf("falha ao cancelar tarefas: %v", err)}
	}
	affected, _ := res.RowsAffected()

	return contractx.ToolResult{
		Tool: ToolCancelTarefas,
		Result: map[string]any{
			"mensagem":   fmt.Sprintf("%d tarefa(s) de %s cancelada(s)", affected, responsavel),
			"canceladas": affected,
		},
	}
}

func normalizeSituacao(raw, fallback string) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if v == "" {
		if fallback != "" {
			return fallback, nil
		}
		return "", fmt.Errorf("situacao é obrigatória")
	}
	if v == "CONCLUIDA" {
		v = SituacaoConcluida
	}
	switch v {
	case SituacaoPendente, SituacaoConcluida, SituacaoCancelada:
		return v, nil
	default:
		return "", fmt.Errorf("situacao inválida %q: use PENDENTE, CONCLUÍDA ou CANCELADA", raw)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultTaskLimit
	}
	if limit > maxTaskLimit {
		return maxTaskLimit
	}
	return limit
}

// parseLocalDate reads YYYY-MM-DD as midnight in the store's timezone.
func (s *TaskStore) parseLocalDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(raw), s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("data inválida %q: use o formato YYYY-MM-DD", raw)
	}
	return t, nil
}

func (s *TaskStore) optionalDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := s.parseLocalDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
