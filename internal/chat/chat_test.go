package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/herkey/asha/internal/models"
)

func TestOllamaClientGenerate(t *testing.T) {
	var seen ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&seen); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: Message{Role: "assistant", Content: "Ask for the salary band first."},
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(OllamaOptions{Host: srv.URL, Model: "mistral:latest", MaxTokens: 200})
	history := []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}
	reply, err := c.Generate(context.Background(), history, "how do I negotiate?")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "Ask for the salary band first." {
		t.Errorf("reply = %q", reply)
	}

	if seen.Model != "mistral:latest" || seen.Stream {
		t.Errorf("request: %+v", seen)
	}
	// system + 2 history + user message
	if len(seen.Messages) != 4 {
		t.Fatalf("sent %d messages", len(seen.Messages))
	}
	if seen.Messages[0].Role != "system" {
		t.Errorf("first message role = %s", seen.Messages[0].Role)
	}
	if seen.Messages[3].Content != "how do I negotiate?" {
		t.Errorf("last message = %q", seen.Messages[3].Content)
	}
}

func TestOllamaClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewOllamaClient(OllamaOptions{Host: srv.URL, Model: "missing"})
	if _, err := c.Generate(context.Background(), nil, "hi"); err == nil {
		t.Error("expected error from 404")
	}
}

func TestSimulatedTemplates(t *testing.T) {
	s := NewSimulated()
	cases := []struct {
		message string
		expect  string
	}{
		{"how should I negotiate my salary?", "market data"},
		{"can you review my resume?", "measurable outcomes"},
		{"I have an interview next week", "storytelling"},
		{"what's the weather like", "career questions"},
	}
	for _, c := range cases {
		reply, err := s.Generate(context.Background(), nil, c.message)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(reply, c.expect) {
			t.Errorf("%q: reply %q does not mention %q", c.message, reply, c.expect)
		}
	}
}

// failingGenerator always errors, standing in for an unreachable model.
type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, []Message, string) (string, error) {
	return "", errors.New("connection refused")
}
func (failingGenerator) Name() string { return "broken" }

// echoGenerator replies with the message and reports how much history it saw.
type echoGenerator struct {
	lastHistoryLen int
}

func (g *echoGenerator) Generate(_ context.Context, history []Message, message string) (string, error) {
	g.lastHistoryLen = len(history)
	return "echo: " + message, nil
}
func (g *echoGenerator) Name() string { return "echo" }

func TestBotFallsBackWhenModelFails(t *testing.T) {
	b := NewBot(zap.NewNop(), failingGenerator{}, nil, 10)
	resp, err := b.Respond(context.Background(), &models.ChatRequest{UserID: "u1", Message: "help with my resume"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Source != "simulated" {
		t.Errorf("source = %s", resp.Source)
	}
	if !strings.Contains(resp.Reply, "resume") {
		t.Errorf("reply = %q", resp.Reply)
	}
}

func TestBotKeepsBoundedHistory(t *testing.T) {
	gen := &echoGenerator{}
	b := NewBot(zap.NewNop(), gen, nil, 2)

	for i := 0; i < 5; i++ {
		_, err := b.Respond(context.Background(), &models.ChatRequest{UserID: "u1", Message: "turn"})
		if err != nil {
			t.Fatal(err)
		}
	}
	// Limit of 2 exchanges: the generator sees at most 4 prior messages.
	if gen.lastHistoryLen != 4 {
		t.Errorf("history length = %d", gen.lastHistoryLen)
	}

	// Histories are per user.
	_, err := b.Respond(context.Background(), &models.ChatRequest{UserID: "u2", Message: "first"})
	if err != nil {
		t.Fatal(err)
	}
	if gen.lastHistoryLen != 0 {
		t.Errorf("new user saw %d history messages", gen.lastHistoryLen)
	}
}

func TestBotEvictsIdleUsers(t *testing.T) {
	b := NewBot(zap.NewNop(), &echoGenerator{}, nil, 2)
	b.maxUsers = 2

	for _, user := range []string{"u1", "u2", "u3"} {
		if _, err := b.Respond(context.Background(), &models.ChatRequest{UserID: user, Message: "hi"}); err != nil {
			t.Fatal(err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.histories) != 2 {
		t.Errorf("tracked users = %d", len(b.histories))
	}
	// The active user is never the eviction victim.
	if b.histories["u3"] == nil {
		t.Error("most recent user was evicted")
	}
}

func TestBotEmptyMessage(t *testing.T) {
	b := NewBot(zap.NewNop(), &echoGenerator{}, nil, 10)
	resp, err := b.Respond(context.Background(), &models.ChatRequest{Message: "   "})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Reply == "" || resp.Source != "simulated" {
		t.Errorf("response: %+v", resp)
	}
}

func TestWantsSessions(t *testing.T) {
	if !wantsSessions("any workshops on public speaking?") {
		t.Error("workshop message should trigger recommendations")
	}
	if wantsSessions("thanks, that helps") {
		t.Error("plain message should not trigger recommendations")
	}
}
