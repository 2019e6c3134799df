package tool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/codcoz/chefia/agent/contract"
)

// Canonical transaction type names as stored in transaction_types.
const (
	TypeIncome   = "INCOME"
	TypeExpenses = "EXPENSES"
	TypeTransfer = "TRANSFER"
)

// typeAliases maps pt-br synonyms onto the canonical type names.
var typeAliases = map[string]string{
	"INCOME":        TypeIncome,
	"RECEITA":       TypeIncome,
	"ENTRADA":       TypeIncome,
	"GANHO":         TypeIncome,
	"VENDA":         TypeIncome,
	"EXPENSES":      TypeExpenses,
	"EXPENSE":       TypeExpenses,
	"DESPESA":       TypeExpenses,
	"GASTO":         TypeExpenses,
	"SAIDA":         TypeExpenses,
	"SAÍDA":         TypeExpenses,
	"COMPRA":        TypeExpenses,
	"TRANSFER":      TypeTransfer,
	"TRANSFERENCIA": TypeTransfer,
	"TRANSFERÊNCIA": TypeTransfer,
	"PIX":           TypeTransfer,
}

type TransactionType struct {
	bun.BaseModel `bun:"table:transaction_types,alias:tt"`

	ID   int64  `bun:"id,pk" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
}

type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID   int64  `bun:"id,pk" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
}

type Transaction struct {
	bun.BaseModel `bun:"table:transactions,alias:tx"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	EmpresaID     int64     `bun:"empresa_id,notnull" json:"empresa_id"`
	Amount        float64   `bun:"amount,notnull" json:"amount"`
	SourceText    string    `bun:"source_text,notnull" json:"source_text"`
	Description   string    `bun:"description,nullzero" json:"description,omitempty"`
	PaymentMethod string    `bun:"payment_method,nullzero" json:"payment_method,omitempty"`
	OccurredAt    time.Time `bun:"occurred_at,nullzero,notnull,default:current_timestamp" json:"occurred_at"`
	TypeID        *int64    `bun:"type_id" json:"type_id,omitempty"`
	CategoryID    *int64    `bun:"category_id" json:"category_id,omitempty"`
}

type addTransactionArgs struct {
	Amount        float64 `json:"amount"`
	SourceText    string  `json:"source_text"`
	OccurredAt    string  `json:"occurred_at"`
	TypeName      string  `json:"type_name"`
	CategoryName  string  `json:"category_name"`
	Description   string  `json:"description"`
	PaymentMethod string  `json:"payment_method"`
}

func (s *TaskStore) AddTransaction(ctx context.Context, empresaID int64, args map[string]any) contractx.ToolResult {
	var in addTransactionArgs
	if err := decodeArgs(args, &in); err != nil {
		return contractx.ToolResult{Tool: ToolAddTransaction, Error: err.Error()}
	}

	if in.Amount <= 0 {
		return contractx.ToolResult{Tool: ToolAddTransaction, Error: "amount deve ser positivo"}
	}
	if strings.TrimSpace(in.SourceText) == "" {
		return contractx.ToolResult{Tool: ToolAddTransaction, Error: "source_text é obrigatório"}
	}

	tx := Transaction{
		EmpresaID:     empresaID,
		Amount:        in.Amount,
		SourceText:    strings.TrimSpace(in.SourceText),
		Description:   strings.TrimSpace(in.Description),
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
	}

	if v := strings.TrimSpace(in.OccurredAt); v != "" {
		occurred, err := s.parseTimestamp(v)
		if err != nil {
			return contractx.ToolResult{Tool: ToolAddTransaction, Error: err.Error()}
		}
		tx.OccurredAt = occurred
	}

	if v := strings.TrimSpace(in.TypeName); v != "" {
		typeID, err := s.resolveTypeID(ctx, v)
		if err != nil {
			return contractx.ToolResult{Tool: ToolAddTransaction, Error: err.Error()}
		}
		tx.TypeID = &typeID
	}

	if v := strings.TrimSpace(in.CategoryName); v != "" {
		categoryID, err := s.resolveCategoryID(ctx, v)
		if err != nil {
			return contractx.ToolResult{Tool: ToolAddTransaction, Error: err.Error()}
		}
		tx.CategoryID = &categoryID
	}

	if _, err := s.db.NewInsert().Model(&tx).Returning("id, occurred_at").Exec(ctx); err != nil {
		return contractx.ToolResult{Tool: ToolAddTransaction, Error: fmt.Sprintf("falha ao inserir transação: %v", err)}
	}

	return contractx.ToolResult{
		Tool: ToolAddTransaction,
		Result: map[string]any{
			"mensagem":  fmt.Sprintf("transação %d registrada no valor de %.2f", tx.ID, tx.Amount),
			"transacao": tx,
		},
	}
}

type queryTransactionsArgs struct {
	Text          string `json:"text"`
	TypeName      string `json:"type_name"`
	DateLocal     string `json:"date_local"`
	DateFromLocal string `json:"date_from_local"`
	DateToLocal   string `json:"date_to_local"`
	Limit         int    `json:"limit"`
}

// QueryTransactions lists transactions with optional text, type and local
// date filters. Results come back ascending when a date window was given,
// most recent first otherwise.
func (s *TaskStore) QueryTransactions(ctx context.Context, empresaID int64, args map[string]any) contractx.ToolResult {
	var in queryTransactionsArgs
	if err := decodeArgs(args, &in); err != nil {
		return contractx.ToolResult{Tool: ToolQueryTransactions, Error: err.Error()}
	}

	limit := clampLimit(in.Limit)

	q := s.db.NewSelect().
		Model((*Transaction)(nil)).
		Where("tx.empresa_id = ?", empresaID)

	if v := strings.TrimSpace(in.Text); v != "" {
		pattern := "%" + v + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.WhereOr("tx.source_text ILIKE ?", pattern).
				WhereOr("tx.description ILIKE ?", pattern)
		})
	}

	if v := strings.TrimSpace(in.TypeName); v != "" {
		typeID, err := s.resolveTypeID(ctx, v)
		if err != nil {
			return contractx.ToolResult{Tool: ToolQueryTransactions, Error: err.Error()}
		}
		q = q.Where("tx.type_id = ?", typeID)
	}

	ranged := false
	if v := strings.TrimSpace(in.DateLocal); v != "" {
		day, err := s.parseLocalDate(v)
		if err != nil {
			return contractx.ToolResult{Tool: ToolQueryTransactions, Error: err.Error()}
		}
		q = q.Where("tx.occurred_at >= ?", day).Where("tx.occurred_at < ?", day.AddDate(0, 0, 1))
		ranged = true
	} else {
		if v := strings.TrimSpace(in.DateFromLocal); v != "" {
			from, err := s.parseLocalDate(v)
			if err != nil {
				return contractx.ToolResult{Tool: ToolQueryTransactions, Error: err.Error()}
			}
			q = q.Where("tx.occurred_at >= ?", from)
			ranged = true
		}
		if v := strings.TrimSpace(in.DateToLocal); v != "" {
			to, err := s.parseLocalDate(v)
			if err != nil {
				return contractx.ToolResult{Tool: ToolQueryTransactions, Error: err.Error()}
			}
			q = q.Where("tx.occurred_at < ?", to.AddDate(0, 0, 1))
			ranged = true
		}
	}

	if ranged {
		q = q.OrderExpr("tx.occurred_at ASC, tx.id ASC")
	} else {
		q = q.OrderExpr("tx.occurred_at DESC, tx.id DESC")
	}

	var txs []Transaction
	if err := q.Limit(limit).Scan(ctx, &txs); err != nil {
		return contractx.ToolResult{Tool: ToolQueryTransactions, Error: fmt.Sprintf("falha ao consultar transações: %v", err)}
	}

	return contractx.ToolResult{
		Tool: ToolQueryTransactions,
		Result: map[string]any{
			"total":      len(txs),
			"transacoes": txs,
		},
	}
}

// TotalBalance sums INCOME minus EXPENSES over the tenant's whole history.
// TRANSFER rows do not move the balance.
func (s *TaskStore) TotalBalance(ctx context.Context, empresaID int64) contractx.ToolResult {
	var balance float64
	err := s.db.NewSelect().
		Model((*Transaction)(nil)).
		ColumnExpr("COALESCE(SUM(CASE tt.name WHEN ? THEN tx.amount WHEN ? THEN -tx.amount ELSE 0 END), 0)", TypeIncome, TypeExpenses).
		Join("JOIN transaction_types AS tt ON tt.id = tx.type_id").
		Where("tx.empresa_id = ?", empresaID).
		Scan(ctx, &balance)
	if err != nil {
		return contractx.ToolResult{Tool: ToolTotalBalance, Error: fmt.Sprintf("falha ao calcular saldo: %v", err)}
	}

	return contractx.ToolResult{
		Tool: ToolTotalBalance,
		Result: map[string]any{
			"saldo": balance,
		},
	}
}

type dailyBalanceArgs struct {
	DateLocal string `json:"date_local"`
}

func (s *TaskStore) DailyBalance(ctx context.Context, empresaID int64, args map[string]any) contractx.ToolResult {
	var in dailyBalanceArgs
	if err := decodeArgs(args, &in); err != nil {
		return contractx.ToolResult{Tool: ToolDailyBalance, Error: err.Error()}
	}
	if strings.TrimSpace(in.DateLocal) == "" {
		return contractx.ToolResult{Tool: ToolDailyBalance, Error: "date_local é obrigatório"}
	}

	day, err := s.parseLocalDate(in.DateLocal)
	if err != nil {
		return contractx.ToolResult{Tool: ToolDailyBalance, Error: err.Error()}
	}

	var balance float64
	err = s.db.NewSelect().
		Model((*Transaction)(nil)).
		ColumnExpr("COALESCE(SUM(CASE tt.name WHEN ? THEN tx.amount WHEN ? THEN -tx.amount ELSE 0 END), 0)", TypeIncome, TypeExpenses).
		Join("JOIN transaction_types AS tt ON tt.id = tx.type_id").
		Where("tx.empresa_id = ?", empresaID).
		Where("tx.occurred_at >= ?", day).
		Where("tx.occurred_at < ?", day.AddDate(0, 0, 1)).
		Scan(ctx, &balance)
	if err != nil {
		return contractx.ToolResult{Tool: ToolDailyBalance, Error: fmt.Sprintf("falha ao calcular saldo do dia: %v", err)}
	}

	return contractx.ToolResult{
		Tool: ToolDailyBalance,
		Result: map[string]any{
			"dia":   day.Format("2006-01-02"),
			"saldo": balance,
		},
	}
}

// resolveTypeID maps a pt-br alias or canonical name onto transaction_types.
func (s *TaskStore) resolveTypeID(ctx context.Context, name string) (int64, error) {
	canonical, ok := typeAliases[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("tipo de transação desconhecido %q: use INCOME, EXPENSES ou TRANSFER", name)
	}

	var tt TransactionType
	err := s.db.NewSelect().
		Model(&tt).
		Where("UPPER(tt.name) = ?", canonical).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("tipo de transação %s não cadastrado", canonical)
	}
	if err != nil {
		return 0, fmt.Errorf("falha ao resolver tipo de transação: %w", err)
	}
	return tt.ID, nil
}

func (s *TaskStore) resolveCategoryID(ctx context.Context, name string) (int64, error) {
	var c Category
	err := s.db.NewSelect().
		Model(&c).
		Where("LOWER(c.name) = LOWER(?)", strings.TrimSpace(name)).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("categoria %q não cadastrada", name)
	}
	if err != nil {
		return 0, fmt.Errorf("falha ao resolver categoria: %w", err)
	}
	return c.ID, nil
}

// parseTimestamp accepts RFC 3339 or a plain local date.
func (s *TaskStore) parseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := s.parseLocalDate(raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("occurred_at inválido %q: use ISO 8601 ou YYYY-MM-DD", raw)
}
