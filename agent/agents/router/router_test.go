package router

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/codcoz/chefia/agent/contract"
)

type fakeChatModel struct {
	responses []*schema.Message
	err       error
	idx       int
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func TestClassifyDirectReply(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: "Olá! Posso te ajudar com quais consultas hoje?"},
		},
	}

	r, err := New(context.Background(), fake, "router prompt")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	out, err := r.Classify(context.Background(), contractx.RouterRequest{
		UserMessage: "Oi, tudo bem?",
		Tenant:      contractx.TenantContext{EmpresaID: "1", GestorID: "2"},
		Today:       "2026-08-28",
	})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if out.Outcome.IsForward() {
		t.Fatal("greeting must resolve to a direct reply")
	}
	if out.Outcome.Direct != "Olá! Posso te ajudar com quais consultas hoje?" {
		t.Fatalf("unexpected direct reply: %q", out.Outcome.Direct)
	}
}

func TestClassifyForwardsTaskMessage(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: "ROUTE=tarefas\nPERGUNTA_ORIGINAL=Liste as tarefas pendentes do João.\nPERSONA=ChefIA\nCLARIFY="},
		},
	}

	r, err := New(context.Background(), fake, "router prompt")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	out, err := r.Classify(context.Background(), contractx.RouterRequest{
		UserMessage: "Liste as tarefas pendentes do João.",
		Today:       "2026-08-28",
	})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if !out.Outcome.IsForward() {
		t.Fatal("task message must be forwarded")
	}
	if out.Outcome.Forward.Route != contractx.RouteTarefas {
		t.Fatalf("unexpected route: %s", out.Outcome.Forward.Route)
	}
	if out.Raw == "" {
		t.Fatal("raw router text must be preserved")
	}
}

func TestClassifyMalformedEnvelope(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: "ROUTE=estoque\nPERGUNTA_ORIGINAL=algo\nPERSONA=\nCLARIFY="},
		},
	}

	r, err := New(context.Background(), fake, "router prompt")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = r.Classify(context.Background(), contractx.RouterRequest{UserMessage: "algo"})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestClassifyEmptyMessage(t *testing.T) {
	t.Parallel()

	r, err := New(context.Background(), &fakeChatModel{}, "router prompt")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = r.Classify(context.Background(), contractx.RouterRequest{UserMessage: "   "})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestClassifyEmptyModelOutput(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{responses: []*schema.Message{{Content: "   "}}}
	r, err := New(context.Background(), fake, "router prompt")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = r.Classify(context.Background(), contractx.RouterRequest{UserMessage: "oi"})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}
