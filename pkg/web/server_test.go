package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"bioask/pkg/ai"
	"bioask/pkg/chat"
	"bioask/pkg/config"
	"bioask/pkg/session"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
)

type fakeStream struct {
	deltas []string
	err    error
	index  int
}

func (s *fakeStream) Next() bool {
	if s.index >= len(s.deltas) {
		return false
	}
	s.index++
	return true
}

func (s *fakeStream) Content() string { return s.deltas[s.index-1] }

func (s *fakeStream) Err() error {
	if s.index >= len(s.deltas) {
		return s.err
	}
	return nil
}

func (s *fakeStream) Close() error { return nil }

type fakeProvider struct {
	mu       sync.Mutex
	replies  [][]string
	err      error
	requests []ai.ChatRequest
}

func (p *fakeProvider) CreateChatCompletion(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return ai.ChatResponse{}, p.err
	}
	var reply string
	if len(p.replies) > 0 {
		reply = strings.Join(p.replies[0], "")
		p.replies = p.replies[1:]
	}
	return ai.ChatResponse{Content: reply, Model: req.Model}, nil
}

func (p *fakeProvider) CreateChatCompletionStream(ctx context.Context, req ai.ChatRequest) (ai.ChatStream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if len(p.replies) == 0 {
		return &fakeStream{err: p.err}, nil
	}
	deltas := p.replies[0]
	p.replies = p.replies[1:]
	return &fakeStream{deltas: deltas, err: p.err}, nil
}

const structuredReply = "## Answer\nPhotosynthesis turns light into sugar.\n## Confidence Score\n88%\n## Related Topics\n- Chlorophyll\n- Calvin cycle"

type testEnv struct {
	server   *Server
	store    *session.Store
	provider *fakeProvider
	http     *httptest.Server
}

func newTestEnv(t *testing.T, provider *fakeProvider, origins ...string) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewStore(time.Hour)
	srv := NewServer(Options{
		Service:        chat.NewService(provider, config.Default(), logger),
		Store:          store,
		Defaults:       session.Settings{Model: "llama3", ExplainLevel: ai.LevelHighSchool},
		Endpoint:       "http://localhost:11434/v1",
		AllowedOrigins: origins,
		Logger:         logger,
	})
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return &testEnv{server: srv, store: store, provider: provider, http: ts}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.http.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest() failed: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) createSession(t *testing.T) session.Snapshot {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/sessions", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	var snap session.Snapshot
	decode(t, resp, &snap)
	return snap
}

func (e *testEnv) dial(t *testing.T, id string, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/api/sessions/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{})
	env.createSession(t)

	resp := env.do(t, http.MethodGet, "/healthz", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}
	decode(t, resp, &body)
	if body.Status != "ok" || body.Sessions != 1 {
		t.Errorf("Unexpected health body: %+v", body)
	}
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{})

	resp := env.do(t, http.MethodGet, "/", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected HTML content type, got %q", ct)
	}
	page, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(page, []byte("Connected to local LLM at:")) {
		t.Error("Expected page to contain the endpoint label")
	}
}

func TestConfigEndpoint(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{})

	resp := env.do(t, http.MethodGet, "/api/config", "")
	var body configResponse
	decode(t, resp, &body)

	want := configResponse{
		Endpoint: "http://localhost:11434/v1",
		Levels: []levelOption{
			{Value: "middle-school", Audience: "a Middle School Student"},
			{Value: "high-school", Audience: "a High School Student"},
			{Value: "undergraduate", Audience: "an Undergraduate"},
		},
		Defaults: session.Settings{Model: "llama3", ExplainLevel: ai.LevelHighSchool},
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateSession(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{})

	snap := env.createSession(t)
	if snap.ID == "" {
		t.Fatal("Expected a session id")
	}
	if snap.Settings.Model != "llama3" || snap.Settings.ExplainLevel != ai.LevelHighSchool {
		t.Errorf("Expected default settings, got %+v", snap.Settings)
	}
	if len(snap.History) != 0 {
		t.Errorf("Expected empty history, got %d", len(snap.History))
	}
}

func TestCreateSession_WithSettings(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{})

	resp := env.do(t, http.MethodPost, "/api/sessions", `{"model":"mistral","explain_level":"undergraduate"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	var snap session.Snapshot
	decode(t, resp, &snap)
	if snap.Settings.Model != "mistral" || snap.Settings.ExplainLevel != ai.LevelUndergraduate {
		t.Errorf("Expected requested settings, got %+v", snap.Settings)
	}
}

func TestCreateSession_BadRequests(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{})

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"model":`},
		{name: "unknown field", body: `{"temperature":1}`},
		{name: "invalid level", body: `{"explain_level":"kindergarten"}`},
		{name: "blank model", body: `{"model":"  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/sessions", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d", resp.StatusCode)
			}
			var body map[string]string
			decode(t, resp, &body)
			if body["error"] == "" {
				t.Error("Expected error message in body")
			}
		})
	}
}

func TestGetSession_NotFound(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{})

	for _, path := range []string{"/api/sessions/nope", "/api/sessions/nope/settings"} {
		method := http.MethodGet
		body := ""
		if strings.HasSuffix(path, "/settings") {
			method = http.MethodPut
			body = `{"model":"x"}`
		}
		if resp := env.do(t, method, path, body); resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", method, path, resp.StatusCode)
		}
	}
}

func TestUpdateSettings(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{})
	snap := env.createSession(t)

	resp := env.do(t, http.MethodPut, "/api/sessions/"+snap.ID+"/settings", `{"explain_level":"middle-school"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var updated session.Snapshot
	decode(t, resp, &updated)

	want := session.Settings{Model: "llama3", ExplainLevel: ai.LevelMiddleSchool}
	if diff := cmp.Diff(want, updated.Settings); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}

	if resp := env.do(t, http.MethodPut, "/api/sessions/"+snap.ID+"/settings", "not json"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid JSON, got %d", resp.StatusCode)
	}
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{})
	snap := env.createSession(t)

	if resp := env.do(t, http.MethodDelete, "/api/sessions/"+snap.ID, ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/api/sessions/"+snap.ID, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodDelete, "/api/sessions/"+snap.ID, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 on second delete, got %d", resp.StatusCode)
	}
}

func TestQuestion_IsolatesSessions(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{replies: [][]string{{structuredReply[:30], structuredReply[30:]}}})
	first := env.createSession(t)
	second := env.createSession(t)

	resp := env.do(t, http.MethodPost, "/api/sessions/"+first.ID+"/questions", `{"question":"How do plants make food?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var body questionResponse
	decode(t, resp, &body)
	if body.Answer.Confidence != "88%" {
		t.Errorf("Expected confidence 88%%, got %q", body.Answer.Confidence)
	}
	if diff := cmp.Diff([]string{"Chlorophyll", "Calvin cycle"}, body.Answer.Topics); diff != "" {
		t.Errorf("topics mismatch (-want +got):\n%s", diff)
	}
	if body.Text != structuredReply || body.Model != "llama3" {
		t.Errorf("Unexpected text or model: %q %q", body.Text, body.Model)
	}

	var snap session.Snapshot
	decode(t, env.do(t, http.MethodGet, "/api/sessions/"+first.ID, ""), &snap)
	if len(snap.History) != 2 || snap.LastAnswer == nil {
		t.Errorf("Expected 2 history entries and a last answer, got %+v", snap)
	}

	var other session.Snapshot
	decode(t, env.do(t, http.MethodGet, "/api/sessions/"+second.ID, ""), &other)
	if len(other.History) != 0 || other.LastAnswer != nil {
		t.Errorf("Expected untouched second session, got %+v", other)
	}
}

func TestQuestion_Errors(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{err: errors.New("model not found")})
	snap := env.createSession(t)
	path := "/api/sessions/" + snap.ID + "/questions"

	if resp := env.do(t, http.MethodPost, path, `{"question":"  "}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for blank question, got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodPost, path, `{"question":`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid JSON, got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodPost, path, `{"question":"What is a gene?"}`); resp.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected 502 for stream failure, got %d", resp.StatusCode)
	}

	sess, err := env.store.Get(snap.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if err := sess.TryBegin(); err != nil {
		t.Fatalf("TryBegin() failed: %v", err)
	}
	defer sess.End()

	resp := env.do(t, http.MethodPost, path, `{"question":"What is a gene?"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for busy session, got %d", resp.StatusCode)
	}
}

func readFrames(t *testing.T, conn *websocket.Conn) (string, wsFrame) {
	t.Helper()
	var deltas strings.Builder
	for {
		if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
			t.Fatalf("SetReadDeadline() failed: %v", err)
		}
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("ReadJSON() failed: %v", err)
		}
		if frame.Type != frameDelta {
			return deltas.String(), frame
		}
		deltas.WriteString(frame.Delta)
	}
}

func TestWebSocket_StreamsAnswer(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{replies: [][]string{{structuredReply[:10], structuredReply[10:50], structuredReply[50:]}}})
	snap := env.createSession(t)
	conn := env.dial(t, snap.ID, nil)

	if err := conn.WriteJSON(questionRequest{Question: "How do plants make food?"}); err != nil {
		t.Fatalf("WriteJSON() failed: %v", err)
	}
	text, last := readFrames(t, conn)

	if text != structuredReply {
		t.Errorf("Expected deltas to rebuild the reply, got %q", text)
	}
	if last.Type != frameAnswer || last.Answer == nil {
		t.Fatalf("Expected answer frame, got %+v", last)
	}
	if last.Answer.Answer != "Photosynthesis turns light into sugar." {
		t.Errorf("Unexpected answer body %q", last.Answer.Answer)
	}

	sess, _ := env.store.Get(snap.ID)
	if sess.Len() != 2 {
		t.Errorf("Expected 2 history entries, got %d", sess.Len())
	}
}

func TestWebSocket_ErrorFrames(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{replies: [][]string{{"partial"}}, err: errors.New("connection reset")})
	snap := env.createSession(t)
	conn := env.dial(t, snap.ID, nil)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("WriteMessage() failed: %v", err)
	}
	_, frame := readFrames(t, conn)
	if frame.Type != frameError || frame.Code != "invalid_message" {
		t.Errorf("Expected invalid_message error, got %+v", frame)
	}

	if err := conn.WriteJSON(questionRequest{Question: "What is a cell?"}); err != nil {
		t.Fatalf("WriteJSON() failed: %v", err)
	}
	text, frame := readFrames(t, conn)
	if text != "partial" {
		t.Errorf("Expected the partial delta before the error, got %q", text)
	}
	if frame.Type != frameError || frame.Code != "llm_error" || !strings.Contains(frame.Error, "connection reset") {
		t.Errorf("Expected llm_error frame, got %+v", frame)
	}

	sess, _ := env.store.Get(snap.ID)
	history := sess.History()
	if len(history) != 2 || !ai.IsErrorEntry(history[1].Content) {
		t.Errorf("Expected one error entry, got %+v", history)
	}
}

func TestWebSocket_BusySession(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{})
	snap := env.createSession(t)
	conn := env.dial(t, snap.ID, nil)

	sess, _ := env.store.Get(snap.ID)
	if err := sess.TryBegin(); err != nil {
		t.Fatalf("TryBegin() failed: %v", err)
	}
	defer sess.End()

	if err := conn.WriteJSON(questionRequest{Question: "What is a cell?"}); err != nil {
		t.Fatalf("WriteJSON() failed: %v", err)
	}
	_, frame := readFrames(t, conn)
	if frame.Type != frameError || frame.Code != "busy" {
		t.Errorf("Expected busy error frame, got %+v", frame)
	}
	if len(env.provider.requests) != 0 {
		t.Error("Busy session must not reach the provider")
	}
}

func TestWebSocket_UnknownSession(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{})
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/api/sessions/missing/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 response, got %+v", resp)
	}
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{}, "http://localhost:8501")
	snap := env.createSession(t)
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/api/sessions/" + snap.ID + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	if err == nil {
		t.Fatal("Expected dial from a foreign origin to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403 response, got %+v", resp)
	}

	conn := env.dial(t, snap.ID, http.Header{"Origin": {"http://localhost:8501"}})
	if conn == nil {
		t.Fatal("Expected allowed origin to connect")
	}
}

func TestCheckOrigin(t *testing.T) {
	open := NewServer(Options{Store: session.NewStore(time.Minute)})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://anything")
	if !open.checkOrigin(req) {
		t.Error("Expected any origin to pass without an allow list")
	}

	strict := NewServer(Options{Store: session.NewStore(time.Minute), AllowedOrigins: []string{"http://a"}})
	if strict.checkOrigin(req) {
		t.Error("Expected foreign origin to be rejected")
	}
	req.Header.Del("Origin")
	if !strict.checkOrigin(req) {
		t.Error("Expected non-browser client without Origin to pass")
	}
}
