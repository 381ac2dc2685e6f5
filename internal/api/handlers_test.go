package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campfireai/companion/internal/chat"
	"github.com/campfireai/companion/internal/store"
	"github.com/campfireai/companion/internal/types"
)

type stubChats struct {
	result *chat.TurnResult
	err    error
}

func (s *stubChats) Send(_ context.Context, _ *types.Character, text string, onDelta func(string)) (*chat.TurnResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if onDelta != nil {
		onDelta("chunk")
	}
	return s.result, nil
}

type stubMedia struct{ deleted int64 }

func (s *stubMedia) RetryImage(_ context.Context, c *types.Character, _ string, _ bool) (*types.Media, error) {
	return &types.Media{ID: 1, MIMEType: "image/png"}, nil
}

func (s *stubMedia) DeleteMedia(_ context.Context, c *types.Character, id int64) error {
	s.deleted = id
	kept := c.Media[:0]
	for _, m := range c.Media {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	c.Media = kept
	return nil
}

type stubSessions struct{ resets int }

func (s *stubSessions) Reset(_ context.Context, c *types.Character) error {
	s.resets++
	c.SessionContext = nil
	return nil
}

func newTestServer(t *testing.T, signingKey string) (*Server, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	blob, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	st := store.NewStore(blob)
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("failed to load store: %v", err)
	}

	reply := &chat.TurnResult{
		Reply: "hello",
		Messages: []types.Message{
			{Sender: types.SenderUser, Content: "hi", Type: types.MessageText, Timestamp: time.Now()},
			{Sender: types.SenderAI, Content: "hello", Type: types.MessageText, Timestamp: time.Now()},
		},
	}
	return NewServer(st, &stubChats{result: reply}, &stubMedia{}, &stubSessions{}, signingKey), st
}

func seedCharacter(t *testing.T, st *store.Store) *types.Character {
	t.Helper()
	c := &types.Character{
		Profile: types.CharacterProfile{BasicInfo: types.BasicInfo{Name: "Mira"}},
		Media:   []types.Media{{ID: 1, Type: types.MediaImage, Data: []byte("img"), MIMEType: "image/png"}},
	}
	if err := st.AddCharacter(context.Background(), c); err != nil {
		t.Fatalf("failed to seed character: %v", err)
	}
	return c
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestCharacterLifecycle(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := doRequest(t, s, http.MethodPost, "/api/characters", createCharacterRequest{
		Profile: types.CharacterProfile{BasicInfo: types.BasicInfo{Name: "Mira"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	var created characterSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad create response: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("created character has no id")
	}

	rec = doRequest(t, s, http.MethodGet, "/api/characters", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodDelete, "/api/characters/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doRequest(t, s, http.MethodGet, "/api/characters/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestSendMessage(t *testing.T) {
	s, st := newTestServer(t, "")
	c := seedCharacter(t, st)

	rec := doRequest(t, s, http.MethodPost, "/api/characters/"+c.ID+"/messages", sendMessageRequest{Text: "hi"})
	if rec.Code != http.StatusOK {
		t.Fatalf("send status = %d: %s", rec.Code, rec.Body)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if payload["reply"] != "hello" {
		t.Fatalf("reply = %v", payload["reply"])
	}
}

func TestSendMessageBusy(t *testing.T) {
	s, st := newTestServer(t, "")
	c := seedCharacter(t, st)
	s.chats = &stubChats{err: chat.ErrBusy}

	rec := doRequest(t, s, http.MethodPost, "/api/characters/"+c.ID+"/messages", sendMessageRequest{Text: "hi"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestMediaEndpoints(t *testing.T) {
	s, st := newTestServer(t, "")
	c := seedCharacter(t, st)

	rec := doRequest(t, s, http.MethodGet, "/api/characters/"+c.ID+"/media/1", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "img" {
		t.Fatalf("get media: status=%d body=%q", rec.Code, rec.Body)
	}

	rec = doRequest(t, s, http.MethodDelete, "/api/characters/"+c.ID+"/media/1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete media status = %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/characters/"+c.ID+"/media/notanumber", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := doRequest(t, s, http.MethodPut, "/api/settings", types.UserProfile{Name: "Alex", ShowIntimacyMeter: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("put settings status = %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/settings", nil)
	var profile types.UserProfile
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("bad settings response: %v", err)
	}
	if profile.Name != "Alex" || !profile.ShowIntimacyMeter {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestExportImportEndpoints(t *testing.T) {
	s, st := newTestServer(t, "")
	seedCharacter(t, st)

	rec := doRequest(t, s, http.MethodGet, "/api/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	archive := rec.Body.Bytes()

	req := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(archive))
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body)
	}
	if len(st.Characters()) != 1 {
		t.Fatalf("character count after import = %d", len(st.Characters()))
	}
}

func TestAuthMiddleware(t *testing.T) {
	s, _ := newTestServer(t, "test-signing-key")

	rec := doRequest(t, s, http.MethodGet, "/api/characters", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, err := IssueToken("alex", "test-signing-key", time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/characters", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/characters", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}
}
