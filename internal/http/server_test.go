package httpapi_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hperssn/steady/internal/assessment"
	"github.com/hperssn/steady/internal/domain"
	httpapi "github.com/hperssn/steady/internal/http"
	"github.com/hperssn/steady/internal/runner"
	"github.com/hperssn/steady/internal/storage"
)

// stillTicks never fires, so runs only move on explicit commands.
func stillTicks() (<-chan time.Time, func()) {
	return make(chan time.Time), func() {}
}

type testEnv struct {
	handler http.Handler
	manager *runner.SessionManager
}

func newEnv(t *testing.T, repo storage.Repository) *testEnv {
	t.Helper()

	questions, err := assessment.DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog: %v", err)
	}
	sessions, err := domain.DefaultCatalog()
	if err != nil {
		t.Fatalf("domain.DefaultCatalog: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	manager := runner.NewSessionManager(ctx, stillTicks)

	api := httpapi.NewServer(httpapi.Options{
		Questions: questions,
		Sessions:  sessions,
		Manager:   manager,
		Repo:      repo,
	})
	return &testEnv{handler: api.Routes(), manager: manager}
}

func newSQLite(t *testing.T) storage.Repository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "steady.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Auth-User", "alice")

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func zeroAnswers(t *testing.T) []assessment.Answer {
	t.Helper()
	questions, err := assessment.DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog: %v", err)
	}
	answers := make([]assessment.Answer, 0, len(questions.Questions))
	for _, q := range questions.Questions {
		answers = append(answers, assessment.Answer{QuestionID: q.ID, Value: 0})
	}
	return answers
}

type scoreBody struct {
	assessment.Report
	ID    string `json:"id"`
	Saved bool   `json:"saved"`
}

func TestHealthz(t *testing.T) {
	env := newEnv(t, nil)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d want 200", rec.Code)
	}
}

func TestRequiresUser(t *testing.T) {
	env := newEnv(t, nil)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d want 401", rec.Code)
	}
}

func TestListQuestions(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/assessments/questions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d want 200", rec.Code)
	}
	questions := decode[[]assessment.Question](t, rec)
	if len(questions) != 21 {
		t.Fatalf("got %d questions want 21", len(questions))
	}
}

func TestScoreAssessment(t *testing.T) {
	env := newEnv(t, nil)

	answers := zeroAnswers(t)
	rec := env.do(t, http.MethodPost, "/assessments/score", map[string]any{"answers": answers})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d want 200: %s", rec.Code, rec.Body.String())
	}

	got := decode[scoreBody](t, rec)
	if got.Depression.Level != "Minimal" || got.Anxiety.Level != "Minimal" {
		t.Errorf("levels = %s/%s want Minimal/Minimal", got.Depression.Level, got.Anxiety.Level)
	}
	if got.Wellbeing.Percentage == nil || *got.Wellbeing.Percentage != 0 || got.Wellbeing.Level != "Poor" {
		t.Errorf("wellbeing = %+v want 0%% Poor", got.Wellbeing)
	}
	if got.SafetyFlag {
		t.Errorf("safety flag set for all-zero answers")
	}
	if got.Saved {
		t.Errorf("saved without save request")
	}
}

func TestScoreAssessment_SafetyFlag(t *testing.T) {
	env := newEnv(t, nil)

	answers := append(zeroAnswers(t), assessment.Answer{QuestionID: "Q14", Value: 1})
	rec := env.do(t, http.MethodPost, "/assessments/score", map[string]any{"answers": answers})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d want 200", rec.Code)
	}
	if got := decode[scoreBody](t, rec); !got.SafetyFlag {
		t.Fatalf("safety flag not raised")
	}
}

func TestScoreAssessment_InvalidInput(t *testing.T) {
	env := newEnv(t, nil)

	tests := []struct {
		name string
		body any
	}{
		{"unknown question", map[string]any{"answers": []assessment.Answer{{QuestionID: "Q99", Value: 0}}}},
		{"value out of range", map[string]any{"answers": []assessment.Answer{{QuestionID: "Q6", Value: 4}}}},
		{"malformed", "not an object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/assessments/score", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d want 400", rec.Code)
			}
		})
	}
}

func TestScoreAssessment_SaveWithoutRepo(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/assessments/score", map[string]any{"answers": zeroAnswers(t), "save": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d want 200", rec.Code)
	}
	if got := decode[scoreBody](t, rec); got.Saved || got.ID != "" {
		t.Fatalf("saved = %v id = %q without repository", got.Saved, got.ID)
	}

	if rec := env.do(t, http.MethodGet, "/assessments", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("list status = %d want 503", rec.Code)
	}
}

func TestScoreAssessment_SaveAndList(t *testing.T) {
	env := newEnv(t, newSQLite(t))

	rec := env.do(t, http.MethodPost, "/assessments/score", map[string]any{"answers": zeroAnswers(t), "save": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d want 200: %s", rec.Code, rec.Body.String())
	}
	saved := decode[scoreBody](t, rec)
	if !saved.Saved || saved.ID == "" {
		t.Fatalf("saved = %v id = %q", saved.Saved, saved.ID)
	}

	rec = env.do(t, http.MethodGet, "/assessments", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d want 200", rec.Code)
	}
	records := decode[[]storage.AssessmentRecord](t, rec)
	if len(records) != 1 || records[0].ID != saved.ID {
		t.Fatalf("records = %+v want the saved assessment", records)
	}
}

func TestSessions(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/sessions?category=cardio", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d want 200", rec.Code)
	}
	sessions := decode[[]domain.Session](t, rec)
	if len(sessions) != 2 {
		t.Fatalf("got %d cardio sessions want 2", len(sessions))
	}
	for _, s := range sessions {
		if s.Category != "cardio" {
			t.Errorf("session %s has category %s", s.ID, s.Category)
		}
	}

	rec = env.do(t, http.MethodGet, "/sessions/core-builder", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d want 200", rec.Code)
	}
	if s := decode[domain.Session](t, rec); s.TotalSeconds() != 185 {
		t.Errorf("core-builder total = %d want 185", s.TotalSeconds())
	}

	if rec := env.do(t, http.MethodGet, "/sessions/nope", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown session status = %d want 404", rec.Code)
	}
}

func TestRunLifecycle(t *testing.T) {
	env := newEnv(t, nil)

	if rec := env.do(t, http.MethodPost, "/runs/current/pause", nil); rec.Code != http.StatusConflict {
		t.Fatalf("command without run status = %d want 409", rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/runs", map[string]string{"sessionId": "core-builder"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d want 201: %s", rec.Code, rec.Body.String())
	}
	snap := decode[runner.Snapshot](t, rec)
	if snap.State != runner.StateRunning || snap.RemainingSeconds != 45 || snap.ExerciseCount != 5 {
		t.Fatalf("start snapshot = %+v", snap)
	}

	if rec := env.do(t, http.MethodPost, "/runs", map[string]string{"sessionId": "hiit-blast"}); rec.Code != http.StatusConflict {
		t.Fatalf("second start status = %d want 409", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/runs/current/pause", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pause status = %d want 200", rec.Code)
	}
	if ev := decode[runner.Event](t, rec); ev.Kind != runner.EventPaused || ev.Snapshot.State != runner.StatePaused {
		t.Fatalf("pause event = %+v", ev)
	}

	rec = env.do(t, http.MethodPost, "/runs/current/next", nil)
	if ev := decode[runner.Event](t, rec); ev.Snapshot.ExerciseIndex != 1 || ev.Snapshot.State != runner.StateRunning {
		t.Fatalf("next event = %+v", ev)
	}

	if rec := env.do(t, http.MethodPost, "/runs/current/tick", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("tick status = %d want 400", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/runs/current/jump", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown command status = %d want 404", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/runs/current/abort", nil)
	if ev := decode[runner.Event](t, rec); ev.Kind != runner.EventAborted {
		t.Fatalf("abort event = %+v", ev)
	}

	rec = env.do(t, http.MethodGet, "/runs/current", nil)
	if snap := decode[runner.Snapshot](t, rec); snap.State != runner.StateIdle {
		t.Fatalf("current after abort = %s want idle", snap.State)
	}
}

func TestStartCustomRun(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/runs/custom", map[string]int{"targetSec": 600})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d want 201: %s", rec.Code, rec.Body.String())
	}
	snap := decode[runner.Snapshot](t, rec)
	if !strings.HasPrefix(snap.SessionID, "custom-") {
		t.Fatalf("session id = %q want custom- prefix", snap.SessionID)
	}

	if rec := env.do(t, http.MethodPost, "/runs/custom", map[string]int{"targetSec": 0}); rec.Code != http.StatusBadRequest {
		t.Fatalf("zero target status = %d want 400", rec.Code)
	}
}

func TestHistory(t *testing.T) {
	if rec := newEnv(t, nil).do(t, http.MethodGet, "/history/stats", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("stats without repo status = %d want 503", rec.Code)
	}

	repo := newSQLite(t)
	now := time.Now().UTC().Truncate(time.Second)
	err := repo.SaveRun(context.Background(), &storage.RunRecord{
		ID: "r1", UserID: "alice", SessionID: "core-builder", SessionName: "Core Builder",
		Outcome: storage.OutcomeCompleted, ExerciseIndex: 4, ExerciseCount: 5, ElapsedSec: 185,
		StartedAt: now.Add(-time.Hour), FinishedAt: now.Add(-time.Hour + 185*time.Second),
	})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	env := newEnv(t, repo)

	rec := env.do(t, http.MethodGet, "/history/runs", nil)
	if runs := decode[[]storage.RunRecord](t, rec); len(runs) != 1 || runs[0].ID != "r1" {
		t.Fatalf("runs = %+v", runs)
	}

	rec = env.do(t, http.MethodGet, "/history/runs?since="+now.Format(time.RFC3339), nil)
	if runs := decode[[]storage.RunRecord](t, rec); len(runs) != 0 {
		t.Fatalf("runs since now = %+v want none", runs)
	}

	if rec := env.do(t, http.MethodGet, "/history/runs?since=yesterday", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad since status = %d want 400", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/history/stats", nil)
	if stats := decode[storage.RunStats](t, rec); stats.TotalRuns != 1 || stats.CompletionRate != 100 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestStreamRunEvents(t *testing.T) {
	env := newEnv(t, nil)
	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	if _, err := env.manager.StartRun("alice", mustSession(t, "hiit-blast")); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/runs/current/events", nil)
	req.Header.Set("X-Auth-User", "alice")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	events := make(chan runner.Event, 4)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok {
				continue
			}
			var ev runner.Event
			if json.Unmarshal([]byte(data), &ev) == nil {
				events <- ev
			}
		}
	}()

	first := waitEvent(t, events)
	if first.Snapshot.State != runner.StateRunning || first.Snapshot.SessionID != "hiit-blast" {
		t.Fatalf("initial event = %+v", first)
	}

	if _, err := env.manager.Apply("alice", runner.CmdPause); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if ev := waitEvent(t, events); ev.Kind != runner.EventPaused {
		t.Fatalf("event = %s want paused", ev.Kind)
	}
}

func TestRunSocket(t *testing.T) {
	env := newEnv(t, nil)
	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	if _, err := env.manager.StartRun("alice", mustSession(t, "stress-release")); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	header := http.Header{}
	header.Set("X-Auth-User", "alice")
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/runs/current/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	type message struct {
		Type  string        `json:"type"`
		Event *runner.Event `json:"event"`
		Error string        `json:"error"`
	}

	var msg message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if msg.Event == nil || msg.Event.Snapshot.SessionID != "stress-release" {
		t.Fatalf("initial message = %+v", msg)
	}

	if err := conn.WriteJSON(map[string]string{"command": "pause"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg = message{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if msg.Event == nil || msg.Event.Kind != runner.EventPaused {
		t.Fatalf("message = %+v want paused event", msg)
	}

	if err := conn.WriteJSON(map[string]string{"command": "tick"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg = message{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read error: %v", err)
	}
	if msg.Type != "error" {
		t.Fatalf("message = %+v want error for tick", msg)
	}
}

func mustSession(t *testing.T, id string) domain.Session {
	t.Helper()
	sessions, err := domain.DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog: %v", err)
	}
	s, ok := sessions.Get(id)
	if !ok {
		t.Fatalf("session %s missing from default catalog", id)
	}
	return s
}

func waitEvent(t *testing.T, events <-chan runner.Event) runner.Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return runner.Event{}
}
