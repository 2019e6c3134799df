package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	contractx "github.com/codcoz/chefia/agent/contract"
	flowx "github.com/codcoz/chefia/agent/flow"
	historyx "github.com/codcoz/chefia/agent/history"
)

type fakeRouter struct {
	reply string
	err   error
}

func (f *fakeRouter) Classify(ctx context.Context, req contractx.RouterRequest) (contractx.RouterResult, error) {
	if f.err != nil {
		return contractx.RouterResult{}, f.err
	}
	return contractx.RouterResult{
		Outcome: contractx.RouterOutcome{Direct: f.reply},
		Raw:     f.reply,
	}, nil
}

type fakeSpecialist struct{}

func (fakeSpecialist) Resolve(context.Context, contractx.SpecialistRequest) (contractx.SpecialistAnswer, error) {
	return contractx.SpecialistAnswer{}, errors.New("not used")
}

type fakeRegistry struct {
	router contractx.Router
}

func (f *fakeRegistry) Router() contractx.Router      { return f.router }
func (f *fakeRegistry) Recipes() contractx.Specialist { return fakeSpecialist{} }
func (f *fakeRegistry) Tasks() contractx.Specialist   { return fakeSpecialist{} }
func (f *fakeRegistry) SpecialistFor(contractx.Route) (contractx.Specialist, error) {
	return fakeSpecialist{}, nil
}

func newTestServer(t *testing.T, router contractx.Router, store historyx.Store) *httptest.Server {
	t.Helper()

	flow, err := flowx.New(store, &fakeRegistry{router: router}, time.UTC)
	if err != nil {
		t.Fatalf("flow.New() error = %v", err)
	}

	srv := New(Config{Addr: ":0", AllowedOrigins: []string{"*"}}, flow)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postChat(t *testing.T, ts *httptest.Server, body string) (*http.Response, map[string]string) {
	t.Helper()

	resp, err := http.Post(ts.URL+"/chat", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /chat error = %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestChatSuccess(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeRouter{reply: "Olá! Como posso ajudar?"}, historyx.NewMemoryStore())

	resp, body := postChat(t, ts, `{"user_message":"Oi!","empresa_id":42,"gestor_id":7,"session_id":"s1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %q", body["status"])
	}
	if body["resposta"] != "Olá! Como posso ajudar?" {
		t.Fatalf("resposta = %q", body["resposta"])
	}
}

func TestChatRejectsInvalidBody(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeRouter{reply: "ok"}, historyx.NewMemoryStore())

	resp, body := postChat(t, ts, `not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["error"] == "" {
		t.Fatal("expected error field")
	}
}

func TestChatRejectsMissingMessage(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeRouter{reply: "ok"}, historyx.NewMemoryStore())

	resp, body := postChat(t, ts, `{"empresa_id":42}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["error"] != "Mensagem não fornecida" {
		t.Fatalf("error = %q", body["error"])
	}
}

func TestChatInternalFailure(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeRouter{err: errors.New("model down")}, historyx.NewMemoryStore())

	resp, body := postChat(t, ts, `{"user_message":"Oi!"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if body["status"] != "error" {
		t.Fatalf("status field = %q", body["status"])
	}
	if body["resposta"] != processingErrorReply {
		t.Fatalf("resposta = %q", body["resposta"])
	}
}

func TestChatDefaultsToSharedSession(t *testing.T) {
	t.Parallel()

	store := historyx.NewMemoryStore()
	ts := newTestServer(t, &fakeRouter{reply: "ok"}, store)

	if resp, _ := postChat(t, ts, `{"user_message":"primeira"}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("first turn status = %d", resp.StatusCode)
	}
	if resp, _ := postChat(t, ts, `{"user_message":"segunda"}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("second turn status = %d", resp.StatusCode)
	}

	msgs := store.GetOrCreate(defaultSessionID).Messages()
	if len(msgs) != 4 {
		t.Fatalf("shared session should hold both turns, got %d messages", len(msgs))
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeRouter{reply: "ok"}, historyx.NewMemoryStore())

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %q", body["status"])
	}
	if _, err := time.Parse(time.RFC3339, body["timestamp"]); err != nil {
		t.Fatalf("timestamp not RFC 3339: %q", body["timestamp"])
	}
}
