package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/events"
	"github.com/tjfontaine/polyglot-image-studio/internal/orchestrator"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider"
	"github.com/tjfontaine/polyglot-image-studio/internal/providerconfig"
	"github.com/tjfontaine/polyglot-image-studio/internal/registration"
	"github.com/tjfontaine/polyglot-image-studio/internal/session"
)

type testStudio struct {
	server  *Server
	session *session.Store
	configs *providerconfig.Store
	hub     *events.Hub
}

func newTestStudio(t *testing.T) *testStudio {
	t.Helper()
	reg, err := registration.NewRegistry(registration.Options{})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	sess := session.NewStore()
	configs := providerconfig.NewStore(reg)
	pool, err := provider.NewPool(reg, 4)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	hub := events.NewHub(nil)
	orch := orchestrator.New(reg, configs, sess, pool, orchestrator.WithPublisher(hub))

	h := NewHandler(reg, configs, sess, orch, hub, nil)
	return &testStudio{
		server:  New(0, 30*time.Second, nil, h),
		session: sess,
		configs: configs,
		hub:     hub,
	}
}

func (s *testStudio) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.server.Router.ServeHTTP(rec, req)
	return rec
}

func (s *testStudio) activateProcedural(t *testing.T) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/configs", `{"id":"geo","providerId":"geometric","isActive":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create config status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestHealth(t *testing.T) {
	s := newTestStudio(t)
	rec := s.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}
}

func TestRequestIDMiddleware_ReusesIncoming(t *testing.T) {
	s := newTestStudio(t)
	id := "0b5f4a8e-7d1c-4d8a-9a36-0f6e2c1b9d11"
	rec := s.do(t, http.MethodGet, "/health", "", "X-Request-ID", id)
	if got := rec.Header().Get("X-Request-ID"); got != id {
		t.Errorf("X-Request-ID = %q, want %q", got, id)
	}
	rec = s.do(t, http.MethodGet, "/health", "", "X-Request-ID", "not-a-uuid")
	if got := rec.Header().Get("X-Request-ID"); got == "not-a-uuid" {
		t.Error("malformed request id should be replaced")
	}
}

func TestProviders(t *testing.T) {
	s := newTestStudio(t)

	rec := s.do(t, http.MethodGet, "/v1/providers", "")
	var body struct {
		Providers []domain.ProviderDescriptor `json:"providers"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(body.Providers) != 10 {
		t.Errorf("providers = %d, want 10", len(body.Providers))
	}

	if rec := s.do(t, http.MethodGet, "/v1/providers/openai", ""); rec.Code != http.StatusOK {
		t.Errorf("get openai status = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/v1/providers/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get unknown status = %d, want 404", rec.Code)
	}
}

func TestConfigs_RedactsSensitiveCredentials(t *testing.T) {
	s := newTestStudio(t)

	rec := s.do(t, http.MethodPost, "/v1/configs", `{"id":"oa","providerId":"openai","credentials":{"apiKey":"sk-live-1234567890"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if strings.Contains(rec.Body.String(), "sk-live-1234567890") {
		t.Error("response leaked the api key")
	}

	rec = s.do(t, http.MethodGet, "/v1/configs", "")
	if strings.Contains(rec.Body.String(), "sk-live-1234567890") {
		t.Error("list leaked the api key")
	}

	cfg, _ := s.configs.Get("oa")
	if cfg.Credentials["apiKey"] != "sk-live-1234567890" {
		t.Error("stored config should keep the real key")
	}
}

func TestConfigs_ActivateAndValidate(t *testing.T) {
	s := newTestStudio(t)
	s.do(t, http.MethodPost, "/v1/configs", `{"id":"oa","providerId":"openai"}`)
	s.activateProcedural(t)

	rec := s.do(t, http.MethodGet, "/v1/configs/oa/validation", "")
	var res domain.ValidationResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(res.Missing) != 1 || res.Missing[0] != "apiKey" {
		t.Errorf("Missing = %v, want [apiKey]", res.Missing)
	}

	if rec := s.do(t, http.MethodPost, "/v1/configs/oa/activate", ""); rec.Code != http.StatusOK {
		t.Fatalf("activate status = %d", rec.Code)
	}
	active, _ := s.configs.Active()
	if active.ID != "oa" {
		t.Errorf("active = %s, want oa", active.ID)
	}

	if rec := s.do(t, http.MethodPost, "/v1/configs/missing/activate", ""); rec.Code != http.StatusNotFound {
		t.Errorf("activate missing status = %d, want 404", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, "/v1/configs/oa", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/v1/configs/oa", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", rec.Code)
	}
}

func TestSession_PatchAndClear(t *testing.T) {
	s := newTestStudio(t)

	rec := s.do(t, http.MethodPatch, "/v1/session", `{"prompt":"koi pond","mode":"refine","perModuleParameters":{"image":{"aspectRatio":"16:9"}}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", rec.Code, rec.Body)
	}
	st := s.session.Snapshot()
	if st.Prompt != "koi pond" || st.Mode != domain.ModeRefine {
		t.Errorf("session = %+v", st)
	}

	rec = s.do(t, http.MethodPatch, "/v1/session", `{"prompt":"changed","activeModule":"audio"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown module status = %d, want 422", rec.Code)
	}
	if s.session.Snapshot().Prompt != "koi pond" {
		t.Error("rejected patch must not apply any field")
	}

	if rec := s.do(t, http.MethodDelete, "/v1/session", ""); rec.Code != http.StatusPreconditionRequired {
		t.Errorf("clear without confirm status = %d, want 428", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, "/v1/session", "", "X-Confirm", ConfirmClearAll); rec.Code != http.StatusNoContent {
		t.Errorf("clear status = %d", rec.Code)
	}
	if s.session.Snapshot().Prompt != "" {
		t.Error("session should be reset")
	}

	if rec := s.do(t, http.MethodDelete, "/v1/session/history/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("remove missing artifact status = %d, want 404", rec.Code)
	}
}

func TestGenerations_JSON(t *testing.T) {
	s := newTestStudio(t)

	rec := s.do(t, http.MethodPost, "/v1/generations", `{"prompt":"sunset"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("without active config status = %d, want 422", rec.Code)
	}

	s.activateProcedural(t)
	rec = s.do(t, http.MethodPost, "/v1/generations", `{"prompt":"sunset over mountains","count":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var res events.ResultPayload
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if res.Outcome != domain.OutcomeSuccess || len(res.Artifacts) != 2 {
		t.Errorf("result = %+v", res)
	}
	if !strings.HasPrefix(res.Artifacts[0].URI, "data:image/png;base64,") {
		t.Errorf("artifact URI = %.40s", res.Artifacts[0].URI)
	}
	if n := len(s.session.Snapshot().History); n != 2 {
		t.Errorf("history = %d, want 2", n)
	}

	rec = s.do(t, http.MethodPost, "/v1/generations", `{"prompt":"x","count":9}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("count 9 status = %d, want 422", rec.Code)
	}
}

func TestGenerations_SSE(t *testing.T) {
	s := newTestStudio(t)
	s.activateProcedural(t)

	ts := httptest.NewServer(s.server.Router)
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/generations", strings.NewReader(`{"prompt":"aurora","count":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	var eventsSeen []string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			eventsSeen = append(eventsSeen, name)
		}
	}
	want := []string{"started", "artifact", "completed"}
	if strings.Join(eventsSeen, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", eventsSeen, want)
	}
}

func TestEvents_WebSocket(t *testing.T) {
	s := newTestStudio(t)
	s.activateProcedural(t)

	ts := httptest.NewServer(s.server.Router)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/events", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for s.hub.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, ts.URL+"/v1/generations", strings.NewReader(`{"prompt":"nebula"}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("generation error = %v", err)
	}
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg events.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if msg.Type == domain.EventCompleted {
			if msg.Result == nil || msg.Result.Outcome != domain.OutcomeSuccess {
				t.Errorf("completed message = %+v", msg)
			}
			return
		}
	}
}

func TestSession_ClearHistoryAndCancel(t *testing.T) {
	s := newTestStudio(t)
	s.activateProcedural(t)

	rec := s.do(t, http.MethodPost, "/v1/generations", `{"prompt":"tide pools","count":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("generation status = %d, body = %s", rec.Code, rec.Body)
	}
	if n := len(s.session.Snapshot().History); n != 1 {
		t.Fatalf("history = %d, want 1", n)
	}

	rec = s.do(t, http.MethodDelete, "/v1/session/history", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear history status = %d", rec.Code)
	}
	if n := len(s.session.Snapshot().History); n != 0 {
		t.Errorf("history after clear = %d, want 0", n)
	}

	rec = s.do(t, http.MethodDelete, "/v1/generations/not-running", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("cancel unknown status = %d, want 404", rec.Code)
	}
}
