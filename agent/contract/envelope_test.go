package contract

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRouterOutputDirectReply(t *testing.T) {
	t.Parallel()

	out, err := ParseRouterOutput("Olá! Posso te ajudar com quais consultas hoje?")
	if err != nil {
		t.Fatalf("ParseRouterOutput() error = %v", err)
	}
	if out.IsForward() {
		t.Fatal("expected direct outcome")
	}
	if out.Direct != "Olá! Posso te ajudar com quais consultas hoje?" {
		t.Fatalf("unexpected direct reply: %q", out.Direct)
	}
}

func TestParseRouterOutputForward(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"ROUTE=tarefas",
		"PERGUNTA_ORIGINAL=Adicione uma tarefa de Conferência de Estoque para Bruno Galvão.",
		"PERSONA=Você é o ChefIA.",
		"CLARIFY=",
	}, "\n")

	out, err := ParseRouterOutput(raw)
	if err != nil {
		t.Fatalf("ParseRouterOutput() error = %v", err)
	}
	if !out.IsForward() {
		t.Fatal("expected forward outcome")
	}
	env := out.Forward
	if env.Route != RouteTarefas {
		t.Fatalf("unexpected route: %s", env.Route)
	}
	if env.OriginalQuestion != "Adicione uma tarefa de Conferência de Estoque para Bruno Galvão." {
		t.Fatalf("original question was altered: %q", env.OriginalQuestion)
	}
	if env.Clarify != "" {
		t.Fatalf("expected empty clarify, got %q", env.Clarify)
	}
}

func TestParseEnvelopeMultiLinePersona(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"ROUTE=receitas",
		"PERGUNTA_ORIGINAL=Quais receitas com frango?",
		"PERSONA=Você é o ChefIA.",
		"- Evite jargões.",
		"- Não invente dados.",
		"CLARIFY=",
	}, "\n")

	env, err := ParseEnvelope(raw)
	if err != nil {
		t.Fatalf("ParseEnvelope() error = %v", err)
	}
	if !strings.Contains(env.Persona, "Evite jargões.") {
		t.Fatalf("persona lost continuation lines: %q", env.Persona)
	}
	if !strings.Contains(env.Persona, "Não invente dados.") {
		t.Fatalf("persona lost continuation lines: %q", env.Persona)
	}
}

func TestParseEnvelopeClarifyKeepsSingleLine(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"ROUTE=tarefas",
		"PERGUNTA_ORIGINAL=Cancela as tarefas.",
		"PERSONA=ChefIA",
		"CLARIFY=De qual responsável?",
		"E de qual período?",
	}, "\n")

	env, err := ParseEnvelope(raw)
	if err != nil {
		t.Fatalf("ParseEnvelope() error = %v", err)
	}
	if env.Clarify != "De qual responsável?" {
		t.Fatalf("clarify must be a single question, got %q", env.Clarify)
	}
}

func TestParseEnvelopeDiscardsPreamble(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"Encaminhando para o especialista:",
		"ROUTE=receitas",
		"PERGUNTA_ORIGINAL=Que massa eu posso fazer hoje?",
		"PERSONA=ChefIA",
		"CLARIFY=",
	}, "\n")

	env, err := ParseEnvelope(raw)
	if err != nil {
		t.Fatalf("ParseEnvelope() error = %v", err)
	}
	if env.Route != RouteReceitas {
		t.Fatalf("unexpected route: %s", env.Route)
	}
}

func TestParseEnvelopeMissingQuestion(t *testing.T) {
	t.Parallel()

	raw := "ROUTE=receitas\nPERGUNTA_ORIGINAL=\nPERSONA=ChefIA\nCLARIFY="
	_, err := ParseEnvelope(raw)
	if err == nil {
		t.Fatal("expected error but got nil")
	}
	if !errors.Is(err, ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestParseEnvelopeUnknownRoute(t *testing.T) {
	t.Parallel()

	raw := "ROUTE=financeiro\nPERGUNTA_ORIGINAL=Qual o saldo?\nPERSONA=\nCLARIFY="
	_, err := ParseEnvelope(raw)
	if !errors.Is(err, ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	t.Parallel()

	in := ForwardEnvelope{
		Route:            RouteTarefas,
		OriginalQuestion: "Liste as tarefas pendentes do João.",
		Persona:          "Você é o ChefIA.\n- Seja objetivo.",
		Clarify:          "",
	}

	out, err := ParseEnvelope(in.Encode())
	if err != nil {
		t.Fatalf("ParseEnvelope() error = %v", err)
	}
	if out.OriginalQuestion != in.OriginalQuestion {
		t.Fatalf("question changed across round trip: %q", out.OriginalQuestion)
	}
	if out.Persona != in.Persona {
		t.Fatalf("persona changed across round trip: %q", out.Persona)
	}
}
