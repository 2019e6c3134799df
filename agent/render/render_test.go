package render

import (
	"errors"
	"strings"
	"testing"

	contractx "github.com/codcoz/chefia/agent/contract"
)

func TestRenderAllSections(t *testing.T) {
	t.Parallel()

	out, err := Render(contractx.SpecialistAnswer{
		Resposta:       "Você tem 3 tarefas pendentes hoje.",
		Recomendacao:   "Priorize a conferência de estoque.",
		Acompanhamento: "Quer ver os detalhes de alguma?",
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := "Você tem 3 tarefas pendentes hoje.\n" +
		"- *Recomendação*:\n" +
		"Priorize a conferência de estoque.\n" +
		"- *Acompanhamento* (opcional):\n" +
		"Quer ver os detalhes de alguma?"
	if out != want {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRenderOmitsEmptySections(t *testing.T) {
	t.Parallel()

	out, err := Render(contractx.SpecialistAnswer{
		Resposta: "Uma boa pedida seria o Ossobuco com nhoque ao limone.",
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "Uma boa pedida seria o Ossobuco com nhoque ao limone." {
		t.Fatalf("expected bare resposta, got:\n%s", out)
	}
	if strings.Contains(out, "Recomendação") || strings.Contains(out, "Acompanhamento") {
		t.Fatal("empty sections must be omitted")
	}
}

func TestRenderEsclarecerTakesPrecedence(t *testing.T) {
	t.Parallel()

	out, err := Render(contractx.SpecialistAnswer{
		Resposta:       "Preciso do responsável para prosseguir.",
		Acompanhamento: "Quer cadastrar outra tarefa?",
		Esclarecer:     "Quem será o responsável dessa tarefa?",
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "Quem será o responsável dessa tarefa?") {
		t.Fatalf("esclarecer missing from output:\n%s", out)
	}
	if strings.Contains(out, "Quer cadastrar outra tarefa?") {
		t.Fatalf("acompanhamento must lose to esclarecer:\n%s", out)
	}
	if strings.Contains(out, "Recomendação") {
		t.Fatalf("empty recomendacao must not produce a section:\n%s", out)
	}
}

func TestRenderFirstLineIsResposta(t *testing.T) {
	t.Parallel()

	out, err := Render(contractx.SpecialistAnswer{
		Resposta:     "Saldo do dia: R$ 1.250,00.",
		Recomendacao: "Revise as despesas de transporte.",
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	first := strings.SplitN(out, "\n", 2)[0]
	if first != "Saldo do dia: R$ 1.250,00." {
		t.Fatalf("resposta must be the first line, got %q", first)
	}
}

func TestRenderRejectsEmptyResposta(t *testing.T) {
	t.Parallel()

	_, err := Render(contractx.SpecialistAnswer{Recomendacao: "algo"})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}
