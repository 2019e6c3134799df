package tool

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/codcoz/chefia/agent/contract"
)

func TestInfosForRoutes(t *testing.T) {
	t.Parallel()

	recipeNames := NamesFor(contractx.RouteReceitas)
	if _, ok := recipeNames[ToolQueryReceitas]; !ok {
		t.Fatal("receitas route must expose query_receitas")
	}
	if _, ok := recipeNames[ToolCalcEvaluate]; !ok {
		t.Fatal("receitas route must expose calc.evaluate")
	}
	if _, ok := recipeNames[ToolAddTarefa]; ok {
		t.Fatal("receitas route must not expose task tools")
	}

	taskNames := NamesFor(contractx.RouteTarefas)
	for _, name := range []string{
		ToolAddTarefa, ToolQueryTarefas, ToolUpdateTarefa, ToolCancelTarefas,
		ToolAddTransaction, ToolQueryTransactions, ToolTotalBalance, ToolDailyBalance,
		ToolCalcEvaluate,
	} {
		if _, ok := taskNames[name]; !ok {
			t.Fatalf("tarefas route missing tool %s", name)
		}
	}
	if _, ok := taskNames[ToolQueryReceitas]; ok {
		t.Fatal("tarefas route must not expose recipe tools")
	}
}

func TestExecuteRejectsToolOutsideRoute(t *testing.T) {
	t.Parallel()

	g := NewGateway(nil, nil)
	results, err := g.Execute(context.Background(), contractx.RouteReceitas,
		contractx.TenantContext{EmpresaID: "42"},
		[]contractx.ToolRequest{{Tool: ToolAddTarefa}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Error == "" || !strings.Contains(results[0].Error, "não está disponível") {
		t.Fatalf("expected availability error, got %q", results[0].Error)
	}
}

func TestExecuteFailsClosedWithoutTenant(t *testing.T) {
	t.Parallel()

	g := NewGateway(nil, nil)
	for _, tenant := range []contractx.TenantContext{
		{},
		{EmpresaID: "  "},
		{EmpresaID: "abc"},
		{EmpresaID: "-1"},
	} {
		results, err := g.Execute(context.Background(), contractx.RouteReceitas, tenant,
			[]contractx.ToolRequest{{Tool: ToolQueryReceitas, Args: map[string]any{"ingrediente": "frango"}}})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if results[0].Error == "" || !strings.Contains(results[0].Error, "bloqueada") {
			t.Fatalf("tenant %#v must block the call, got %q", tenant, results[0].Error)
		}
	}
}

func TestExecuteIgnoresModelSuppliedTenant(t *testing.T) {
	t.Parallel()

	// The args carry a forged empresa_id but the context has none; the call
	// must still be blocked.
	g := NewGateway(nil, nil)
	results, err := g.Execute(context.Background(), contractx.RouteTarefas, contractx.TenantContext{},
		[]contractx.ToolRequest{{Tool: ToolQueryTarefas, Args: map[string]any{"empresa_id": 99}}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if results[0].Error == "" {
		t.Fatal("forged tenant args must not unlock the store")
	}
}

func TestExecuteCalcNeedsNoTenant(t *testing.T) {
	t.Parallel()

	g := NewGateway(nil, nil)
	results, err := g.Execute(context.Background(), contractx.RouteTarefas, contractx.TenantContext{},
		[]contractx.ToolRequest{{Tool: ToolCalcEvaluate, Args: map[string]any{"expression": "2 * 21"}}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if results[0].Error != "" {
		t.Fatalf("calc must not require a tenant, got error %q", results[0].Error)
	}
	out := results[0].Result.(CalcOutput)
	if out.Result != 42 {
		t.Fatalf("unexpected calc result: %v", out.Result)
	}
}

func TestExecuteEmptyToolNameIsInvariantError(t *testing.T) {
	t.Parallel()

	g := NewGateway(nil, nil)
	_, err := g.Execute(context.Background(), contractx.RouteTarefas,
		contractx.TenantContext{EmpresaID: "1"},
		[]contractx.ToolRequest{{Tool: "  "}})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestTenantID(t *testing.T) {
	t.Parallel()

	id, err := tenantID(contractx.TenantContext{EmpresaID: " 42 "})
	if err != nil || id != 42 {
		t.Fatalf("tenantID() = %d, %v", id, err)
	}
	if _, err := tenantID(contractx.TenantContext{EmpresaID: "0"}); !errors.Is(err, contractx.ErrTenantMissing) {
		t.Fatalf("expected ErrTenantMissing, got %v", err)
	}
}
