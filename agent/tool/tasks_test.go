package tool

import (
	"testing"
	"time"
)

func TestNormalizeSituacao(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw      string
		fallback string
		want     string
		wantErr  bool
	}{
		{"pendente", "", SituacaoPendente, false},
		{"CONCLUÍDA", "", SituacaoConcluida, false},
		{"concluida", "", SituacaoConcluida, false},
		{"Cancelada", "", SituacaoCancelada, false},
		{"", SituacaoPendente, SituacaoPendente, false},
		{"", "", "", true},
		{"em andamento", "", "", true},
	}

	for _, tc := range cases {
		got, err := normalizeSituacao(tc.raw, tc.fallback)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("normalizeSituacao(%q) expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("normalizeSituacao(%q) error = %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("normalizeSituacao(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestClampLimit(t *testing.T) {
	t.Parallel()

	if got := clampLimit(0); got != defaultTaskLimit {
		t.Fatalf("clampLimit(0) = %d", got)
	}
	if got := clampLimit(-5); got != defaultTaskLimit {
		t.Fatalf("clampLimit(-5) = %d", got)
	}
	if got := clampLimit(7); got != 7 {
		t.Fatalf("clampLimit(7) = %d", got)
	}
	if got := clampLimit(1000); got != maxTaskLimit {
		t.Fatalf("clampLimit(1000) = %d", got)
	}
}

func TestParseLocalDateUsesStoreTimezone(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("LoadLocation() error = %v", err)
	}
	s := NewTaskStore(nil, loc)

	got, err := s.parseLocalDate("2026-08-28")
	if err != nil {
		t.Fatalf("parseLocalDate() error = %v", err)
	}
	if got.Location() != loc {
		t.Fatalf("expected %v location, got %v", loc, got.Location())
	}
	if got.Hour() != 0 || got.Day() != 28 {
		t.Fatalf("expected local midnight, got %v", got)
	}

	if _, err := s.parseLocalDate("28/08/2026"); err == nil {
		t.Fatal("expected error for non ISO date")
	}
}

func TestParseTimestampAcceptsBothShapes(t *testing.T) {
	t.Parallel()

	s := NewTaskStore(nil, time.UTC)

	if _, err := s.parseTimestamp("2026-08-28T10:30:00Z"); err != nil {
		t.Fatalf("RFC 3339 rejected: %v", err)
	}
	if _, err := s.parseTimestamp("2026-08-28"); err != nil {
		t.Fatalf("plain date rejected: %v", err)
	}
	if _, err := s.parseTimestamp("ontem"); err == nil {
		t.Fatal("expected error for free text")
	}
}

func TestTypeAliasesResolveToCanonicalNames(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"RECEITA":       TypeIncome,
		"VENDA":         TypeIncome,
		"DESPESA":       TypeExpenses,
		"GASTO":         TypeExpenses,
		"SAÍDA":         TypeExpenses,
		"TRANSFERÊNCIA": TypeTransfer,
		"PIX":           TypeTransfer,
		"INCOME":        TypeIncome,
	}
	for alias, want := range cases {
		if got := typeAliases[alias]; got != want {
			t.Fatalf("typeAliases[%q] = %q, want %q", alias, got, want)
		}
	}
	if _, ok := typeAliases["EMPRESTIMO"]; ok {
		t.Fatal("unknown aliases must stay unmapped")
	}
}

func TestApplyTarefaUpdateReassignsResponsavel(t *testing.T) {
	t.Parallel()

	s := NewTaskStore(nil, time.UTC)
	tarefa := Tarefa{ID: 5, Responsavel: "João", TipoTarefa: "corte", Situacao: SituacaoPendente}

	changed, err := s.applyTarefaUpdate(updateTarefaArgs{NovoResponsavel: "Maria"}, &tarefa)
	if err != nil {
		t.Fatalf("applyTarefaUpdate() error = %v", err)
	}
	if !changed {
		t.Fatal("reassignment must count as a change")
	}
	if tarefa.Responsavel != "Maria" {
		t.Fatalf("responsavel = %q, want Maria", tarefa.Responsavel)
	}
	if tarefa.TipoTarefa != "corte" || tarefa.Situacao != SituacaoPendente {
		t.Fatalf("untouched fields must survive: %#v", tarefa)
	}
}

func TestApplyTarefaUpdateChangesTipo(t *testing.T) {
	t.Parallel()

	s := NewTaskStore(nil, time.UTC)
	tarefa := Tarefa{ID: 5, Responsavel: "João", TipoTarefa: "corte"}

	changed, err := s.applyTarefaUpdate(updateTarefaArgs{NovoTipoTarefa: "montagem"}, &tarefa)
	if err != nil {
		t.Fatalf("applyTarefaUpdate() error = %v", err)
	}
	if !changed || tarefa.TipoTarefa != "montagem" {
		t.Fatalf("tipo_tarefa = %q (changed=%v), want montagem", tarefa.TipoTarefa, changed)
	}
}

func TestApplyTarefaUpdateLocatorFieldsAreNotChanges(t *testing.T) {
	t.Parallel()

	s := NewTaskStore(nil, time.UTC)
	tarefa := Tarefa{ID: 5, Responsavel: "João"}

	changed, err := s.applyTarefaUpdate(updateTarefaArgs{Responsavel: "João", TipoTarefa: "corte"}, &tarefa)
	if err != nil {
		t.Fatalf("applyTarefaUpdate() error = %v", err)
	}
	if changed {
		t.Fatal("locator-only args must not count as an update")
	}
	if tarefa.Responsavel != "João" {
		t.Fatalf("locator must not overwrite the row: %#v", tarefa)
	}
}

func TestApplyTarefaUpdateStampsConclusao(t *testing.T) {
	t.Parallel()

	s := NewTaskStore(nil, time.UTC)
	tarefa := Tarefa{ID: 5, Responsavel: "João", Situacao: SituacaoPendente}

	changed, err := s.applyTarefaUpdate(updateTarefaArgs{Situacao: "concluida"}, &tarefa)
	if err != nil {
		t.Fatalf("applyTarefaUpdate() error = %v", err)
	}
	if !changed || tarefa.Situacao != SituacaoConcluida {
		t.Fatalf("situacao = %q (changed=%v), want %s", tarefa.Situacao, changed, SituacaoConcluida)
	}
	if tarefa.DataConclusao == nil {
		t.Fatal("completing without a date must stamp data_conclusao")
	}
}

func TestApplyTarefaUpdateRejectsBadDate(t *testing.T) {
	t.Parallel()

	s := NewTaskStore(nil, time.UTC)
	tarefa := Tarefa{ID: 5, Responsavel: "João"}

	if _, err := s.applyTarefaUpdate(updateTarefaArgs{DataLimite: "31/12/2026"}, &tarefa); err == nil {
		t.Fatal("expected error for non ISO date")
	}
}
