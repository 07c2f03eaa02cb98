package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garnizeh/prepwise/api"
	dbfs "github.com/garnizeh/prepwise/db"
	"github.com/garnizeh/prepwise/internal/ai"
	"github.com/garnizeh/prepwise/internal/config"
	dbpkg "github.com/garnizeh/prepwise/internal/db"
	"github.com/garnizeh/prepwise/internal/models"
	sqlite "github.com/garnizeh/prepwise/internal/repository/sqlite"
	"github.com/garnizeh/prepwise/internal/voice"
	"github.com/garnizeh/prepwise/internal/webhook"
)

const (
	testJWTSecret     = "test-jwt-secret"
	testWebhookSecret = "abc"
	adminEmail        = "admin@example.com"
)

var errGenerator = errors.New("model unavailable")

// fakeGenerator answers question prompts and feedback prompts separately.
type fakeGenerator struct {
	mu          sync.Mutex
	questions   string
	questionErr error
	feedback    string
	feedbackErr error
	calls       int
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if strings.Contains(prompt, "Transcript:") {
		return g.feedback, g.feedbackErr
	}
	return g.questions, g.questionErr
}

func (g *fakeGenerator) Provider() string { return "fake" }

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeVoice struct {
	session *voice.Session
	err     error
}

func (f *fakeVoice) CreateSession(ctx context.Context) (*voice.Session, error) {
	return f.session, f.err
}

func (f *fakeVoice) Agents() voice.Agents {
	return voice.Agents{QuestionAgentID: "agent-q", InterviewAgentID: "agent-i"}
}

type testServer struct {
	repo    *sqlite.SQLiteRepo
	gen     *fakeGenerator
	voice   *fakeVoice
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	d, err := dbpkg.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := sqlite.New(d, nil)
	gen := &fakeGenerator{feedback: validFeedback()}
	engine, err := ai.NewEngine(ctx, gen, config.EngineConfig{Timeout: 5 * time.Second, QuestionType: "balanced"}, repo, repo)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	cfg := &config.Config{
		JWTSecret:      testJWTSecret,
		TokenDuration:  time.Hour,
		FreeInterviews: 3,
		AdminEmails:    []string{adminEmail},
	}
	fv := &fakeVoice{session: &voice.Session{Token: "ek_test", ExpiresAt: time.Unix(1700000000, 0)}}
	r := api.SetupRoutes(cfg, "test", "now", api.Deps{
		Repo:     repo,
		Engine:   engine,
		Verifier: webhook.NewVerifier(testWebhookSecret, 30*time.Minute),
		Voice:    fv,
	})

	return &testServer{repo: repo, gen: gen, voice: fv, handler: r}
}

// addUser stores a user and returns a bearer token for it.
func (s *testServer) addUser(t *testing.T, email string, left int) (int64, string) {
	t.Helper()
	id, err := s.repo.CreateUser(context.Background(), &models.User{Username: "user", Email: email, PasswordHash: "x", InterviewsLeft: left})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id, signToken(t, id, email)
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

// deliver posts body to the webhook signed at ts.
func (s *testServer) deliver(t *testing.T, body string, ts time.Time) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhook", strings.NewReader(body))
	req.Header.Set(webhook.SignatureHeader, webhook.Sign([]byte(testWebhookSecret), ts, []byte(body)))
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func signToken(t *testing.T, userID int64, email string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":   email,
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return e.Error
}

func validFeedback() string {
	return fmt.Sprintf(`{"totalScore": 64, "categoryScores": [{"name": %q, "score": 60, "comment": "ok"}], "strengths": ["clarity"], "areasForImprovement": ["depth"], "finalAssessment": "Keep practicing."}`, ai.Categories[0])
}

func questionPayload(conversationID, email string) string {
	return fmt.Sprintf(`{"type":"post_call_transcription","data":{"agent_id":"agent-q","conversation_id":%q,"analysis":{"level":"junior","role":"backend","tech_stack":"node,sql","amount":5},"conversation_initiation_client_data":{"dynamic_variables":{"user_id":%q}}}}`, conversationID, email)
}
