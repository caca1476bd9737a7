package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/herkey/asha/internal/chat"
	"github.com/herkey/asha/internal/config"
	"github.com/herkey/asha/internal/keyword"
	"github.com/herkey/asha/internal/models"
	"github.com/herkey/asha/internal/recommender"
	"github.com/herkey/asha/internal/retrieval"
	"github.com/herkey/asha/internal/sessions"
)

// stubEmbedder knows the search texts of the test corpus plus a few queries.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return nil, errors.New("unknown text: " + text)
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }
func (s *stubEmbedder) Model() string   { return "stub" }
func (s *stubEmbedder) Close() error    { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	logger := zap.NewNop()

	store, err := sessions.NewSQLiteStore(filepath.Join(dir, "asha.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	kw, err := keyword.New(filepath.Join(dir, "keyword.bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { kw.Close() })

	corpus := []*models.Session{
		{ID: "salary", Title: "Negotiating Your Salary", Description: "Practical pay negotiation tactics", Host: "Priya Nair", Tags: []string{"salary"}},
		{ID: "resume", Title: "Resume Clinic", Description: "Rework your resume with a recruiter", Host: "Dana Cole", Tags: []string{"resume"}},
	}
	newSession := &models.Session{ID: "leading", Title: "Leading Small Teams", Description: "First time manager essentials", Host: "Ana Ruiz", Tags: []string{"leadership"}}

	emb := &stubEmbedder{vectors: map[string][]float32{
		corpus[0].SearchText():    {1, 0, 0},
		corpus[1].SearchText():    {0, 1, 0},
		newSession.SearchText():   {0, 0, 1},
		"how to negotiate pay":    {0.9, 0.1, 0},
		"becoming a team lead":    {0, 0.1, 0.9},
		"any sessions on salary?": {0.8, 0.2, 0},
	}}
	manager := retrieval.NewManager(logger, emb, retrieval.Options{})

	ctx := context.Background()
	for _, s := range corpus {
		if err := store.UpsertSession(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	rec := recommender.New(logger, manager, kw, store, recommender.Options{})
	if err := rec.Reindex(ctx); err != nil {
		t.Fatal(err)
	}

	bot := chat.NewBot(logger, nil, rec, 10)
	srv := NewServer(bot, rec, manager, store, &config.ServerConfig{}, logger)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestHandleRecommend(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/recommend", models.RecommendQuery{Query: "how to negotiate pay", TopK: 1})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out models.RecommendResponse
	decode(t, resp, &out)
	if out.Total != 1 || out.Results[0].Session.ID != "salary" {
		t.Errorf("results: %+v", out.Results)
	}
}

func TestHandleRecommendBadBody(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/v1/recommend", "application/json", bytes.NewReader([]byte("{broken")))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestHandleChat(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/chat", models.ChatRequest{UserID: "u1", Message: "any sessions on salary?"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out models.ChatResponse
	decode(t, resp, &out)
	if out.Reply == "" {
		t.Error("empty reply")
	}
	if out.Source != "simulated" {
		t.Errorf("source = %s", out.Source)
	}
	if len(out.Recommendations) == 0 {
		t.Fatal("expected attached recommendations")
	}
	if out.Recommendations[0].Session.ID != "salary" {
		t.Errorf("top recommendation = %s", out.Recommendations[0].Session.ID)
	}
}

func TestHandleChatRequiresMessage(t *testing.T) {
	ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/api/v1/chat", models.ChatRequest{UserID: "u1"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestHandleUpsertSessionIndexesIncrementally(t *testing.T) {
	ts := newTestServer(t)

	sess := models.Session{ID: "leading", Title: "Leading Small Teams", Description: "First time manager essentials", Host: "Ana Ruiz", Tags: []string{"leadership"}}
	resp := postJSON(t, ts.URL+"/api/v1/sessions", sess)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The new session is immediately searchable.
	resp = postJSON(t, ts.URL+"/api/v1/recommend", models.RecommendQuery{Query: "becoming a team lead", TopK: 1})
	var out models.RecommendResponse
	decode(t, resp, &out)
	if out.Total != 1 || out.Results[0].Session.ID != "leading" {
		t.Errorf("results: %+v", out.Results)
	}
}

func TestHandleUpsertSessionValidation(t *testing.T) {
	ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/api/v1/sessions", models.Session{Title: "No ID"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestHandleGetSession(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/sessions/salary")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var sess models.Session
	decode(t, resp, &sess)
	if sess.Title != "Negotiating Your Salary" {
		t.Errorf("title = %q", sess.Title)
	}

	resp, err = http.Get(ts.URL + "/api/v1/sessions/absent")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing session status = %d", resp.StatusCode)
	}
}

func TestHandleStatusAndHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Sessions int64            `json:"sessions"`
		Index    retrieval.Status `json:"index"`
	}
	decode(t, resp, &out)
	if out.Sessions != 2 {
		t.Errorf("sessions = %d", out.Sessions)
	}
	if !out.Index.Ready || out.Index.Size != 2 {
		t.Errorf("index status: %+v", out.Index)
	}

	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
}

func TestHandleReindex(t *testing.T) {
	ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/api/v1/reindex", struct{}{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
