package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"edskill-hub/internal/ai"
	appsvc "edskill-hub/internal/app"
	"edskill-hub/internal/bootstrap"
	"edskill-hub/internal/config"
	"edskill-hub/internal/identity"
	"edskill-hub/internal/model"
	"edskill-hub/internal/prompt"
)

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(ctx context.Context, token string) (*identity.Identity, error) {
	args := m.Called(ctx, token)
	caller, _ := args.Get(0).(*identity.Identity)
	return caller, args.Error(1)
}

type mockCompletion struct {
	mock.Mock
}

func (m *mockCompletion) Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error) {
	args := m.Called(ctx, cfg, messages)
	return args.String(0), args.Error(1)
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, messages []model.Message) error {
	return m.Called(ctx, messages).Error(0)
}

type relayFixture struct {
	router     http.Handler
	verifier   *mockVerifier
	completion *mockCompletion
	writer     *mockWriter
}

func newRelayFixture(t *testing.T) relayFixture {
	t.Helper()
	cfg := &config.Config{
		App:  config.AppConfig{Name: "edskill-hub", GinMode: "test"},
		Auth: config.AuthConfig{Mode: config.AuthModeJWT},
	}
	f := relayFixture{
		verifier:   new(mockVerifier),
		completion: new(mockCompletion),
		writer:     new(mockWriter),
	}
	app := &bootstrap.App{
		Config:   cfg,
		Logger:   zap.NewNop(),
		Verifier: f.verifier,
		ChatService: appsvc.NewChatService(f.completion, f.writer, zap.NewNop(), appsvc.ChatServiceOptions{
			LLM: ai.ChatConfig{BaseURL: "http://llm.invalid/v1", Model: "google/gemini-2.5-flash"},
		}),
	}
	f.router = NewRouter(app)
	return f
}

func (f relayFixture) assertNoCollaborators(t *testing.T) {
	t.Helper()
	f.completion.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	f.writer.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
}

func relayRequest(body, authorization string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/functions/v1/chat-ai", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func assertCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestRelay_MissingAuthorization(t *testing.T) {
	f := newRelayFixture(t)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, relayRequest(`{"conversationId":"c1","message":"hi","categoryName":"Mentorship"}`, ""))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authorization required", decodeBody(t, rec)["error"])
	assertCORS(t, rec)
	f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	f.assertNoCollaborators(t)
}

func TestRelay_InvalidToken(t *testing.T) {
	f := newRelayFixture(t)
	f.verifier.On("Verify", mock.Anything, "expired").Return(nil, identity.ErrInvalidToken).Once()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, relayRequest(`{"conversationId":"c1","message":"hi","categoryName":"Mentorship"}`, "Bearer expired"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", decodeBody(t, rec)["error"])
	f.verifier.AssertExpectations(t)
	f.assertNoCollaborators(t)
}

func TestRelay_Entrepreneurship(t *testing.T) {
	f := newRelayFixture(t)
	f.verifier.On("Verify", mock.Anything, "good").Return(&identity.Identity{UserID: "u1"}, nil)
	f.completion.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(messages []ai.ChatMessage) bool {
		return len(messages) == 2 &&
			messages[0].Role == "system" &&
			messages[0].Content == prompt.Select(prompt.CategoryEntrepreneurship) &&
			messages[1].Role == model.RoleUser &&
			messages[1].Content == "How do I price my tutoring?"
	})).Return("Start with the local market rate.", nil).Once()
	f.writer.On("WriteMessages", mock.Anything, mock.MatchedBy(func(messages []model.Message) bool {
		return len(messages) == 2 &&
			messages[0].ConversationID == "c1" && messages[0].Role == model.RoleUser &&
			messages[0].Content == "How do I price my tutoring?" &&
			messages[1].ConversationID == "c1" && messages[1].Role == model.RoleAssistant &&
			messages[1].Content == "Start with the local market rate."
	})).Return(nil).Once()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, relayRequest(
		`{"conversationId":"c1","message":"How do I price my tutoring?","categoryName":"Entrepreneurship"}`,
		"Bearer good",
	))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Start with the local market rate.", decodeBody(t, rec)["message"])
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assertCORS(t, rec)
	f.completion.AssertExpectations(t)
	f.writer.AssertExpectations(t)
}

func TestRelay_UnknownCategoryUsesCustomAdvice(t *testing.T) {
	f := newRelayFixture(t)
	f.verifier.On("Verify", mock.Anything, "good").Return(&identity.Identity{UserID: "u1"}, nil)
	f.completion.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(messages []ai.ChatMessage) bool {
		return messages[0].Content == prompt.Select(prompt.CategoryCustomAdvice)
	})).Return("ok", nil).Once()
	f.writer.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, relayRequest(`{"conversationId":"c1","message":"hi","categoryName":"Unknown Category"}`, "Bearer good"))

	assert.Equal(t, http.StatusOK, rec.Code)
	f.completion.AssertExpectations(t)
}

func TestRelay_UpstreamFailure(t *testing.T) {
	f := newRelayFixture(t)
	f.verifier.On("Verify", mock.Anything, "good").Return(&identity.Identity{UserID: "u1"}, nil)
	f.completion.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return("", &ai.UpstreamError{StatusCode: http.StatusTooManyRequests, Body: "rate limited"}).Once()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, relayRequest(`{"conversationId":"c1","message":"hi","categoryName":"Mentorship"}`, "Bearer good"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "AI service error: rate limited", decodeBody(t, rec)["error"])
	f.writer.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
}

func TestRelay_UnexpectedFailure(t *testing.T) {
	f := newRelayFixture(t)
	f.verifier.On("Verify", mock.Anything, "good").Return(&identity.Identity{UserID: "u1"}, nil)
	f.completion.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("dial tcp: connection refused")).Once()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, relayRequest(`{"conversationId":"c1","message":"hi","categoryName":"Mentorship"}`, "Bearer good"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "dial tcp: connection refused", decodeBody(t, rec)["error"])
	f.writer.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
}

func TestRelay_StorageFailureStillReplies(t *testing.T) {
	f := newRelayFixture(t)
	f.verifier.On("Verify", mock.Anything, "good").Return(&identity.Identity{UserID: "u1"}, nil)
	f.completion.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("keep practising", nil).Once()
	f.writer.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, relayRequest(`{"conversationId":"c1","message":"hi","categoryName":"Language Learning"}`, "Bearer good"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "keep practising", decodeBody(t, rec)["message"])
	f.writer.AssertExpectations(t)
}

func TestRelay_MalformedBody(t *testing.T) {
	f := newRelayFixture(t)
	f.verifier.On("Verify", mock.Anything, "good").Return(&identity.Identity{UserID: "u1"}, nil)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, relayRequest(`{"conversationId":`, "Bearer good"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["error"])
	f.assertNoCollaborators(t)
}

func TestRelay_Preflight(t *testing.T) {
	f := newRelayFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/chat-ai", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assertCORS(t, rec)
	f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	f.assertNoCollaborators(t)

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/v1/conversations", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assertCORS(t, rec)
}

func newSQLiteApp(t *testing.T, llmURL string) *bootstrap.App {
	t.Helper()
	cfg := &config.Config{
		App:  config.AppConfig{Name: "edskill-hub", Env: "test", GinMode: "test"},
		Auth: config.AuthConfig{Mode: config.AuthModeJWT, JWTSecret: "test-secret", JWTExpireMinute: 60},
		LLM:  config.LLMConfig{BaseURL: llmURL, APIKey: "k", Model: "google/gemini-2.5-flash", TimeoutSeconds: 5},
		Database: config.DatabaseConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "edskill.db"),
		},
		Chat: config.ChatConfig{PersistMode: config.PersistModeDirect},
	}
	app, err := bootstrap.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func doJSON(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_ConversationFlow(t *testing.T) {
	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"Build a portfolio."}}]}`)
	}))
	defer llm.Close()

	router := NewRouter(newSQLiteApp(t, llm.URL))

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", `{"email":"amina@example.com","password":"freelance-2026"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var auth struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))
	require.NotEmpty(t, auth.Token)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", auth.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "amina@example.com")

	rec = doJSON(t, router, http.MethodGet, "/api/v1/categories", auth.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var categories []struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &categories))
	require.Len(t, categories, 6)
	assert.Equal(t, prompt.CategoryCareerSkills, categories[0].Name)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/conversations", auth.Token, fmt.Sprintf(`{"category_id":%d}`, categories[0].ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var conversation struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conversation))
	assert.True(t, strings.HasPrefix(conversation.Title, prompt.CategoryCareerSkills+" - "))

	rec = doJSON(t, router, http.MethodPost, "/functions/v1/chat-ai", auth.Token,
		fmt.Sprintf(`{"conversationId":%q,"message":"Where do I start?","categoryName":%q}`, conversation.ID, prompt.CategoryCareerSkills))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Build a portfolio."}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/v1/conversations/"+conversation.ID+"/messages", auth.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 2)
	assert.Equal(t, model.RoleUser, history[0].Role)
	assert.Equal(t, model.RoleAssistant, history[1].Role)

	rec = doJSON(t, router, http.MethodPut, "/api/v1/messages/"+history[1].ID+"/rating", auth.Token, `{"rating":5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = doJSON(t, router, http.MethodPut, "/api/v1/messages/"+history[1].ID+"/rating", auth.Token, `{"rating":3}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = doJSON(t, router, http.MethodPut, "/api/v1/messages/"+history[1].ID+"/rating", auth.Token, `{"rating":9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doJSON(t, router, http.MethodPut, "/api/v1/messages/"+history[0].ID+"/rating", auth.Token, `{"rating":4}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/conversations", auth.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), conversation.ID)

	rec = doJSON(t, router, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":{"ok":true,"message":"disabled"}`)
}
