package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranqh/studymate/internal/logging"
	"github.com/tranqh/studymate/internal/server/rag"
	"github.com/tranqh/studymate/internal/server/refreshtokens"
	"github.com/tranqh/studymate/internal/server/sessions"
	"github.com/tranqh/studymate/internal/server/users"
)

const (
	testSecret    = "httpapi-test-secret"
	testAdminName = "admin"
	testChatModel = "test-model"
)

type fakeVectorIndex struct {
	upserts map[string][]rag.Record
	hits    []rag.Hit
	listIDs []string
	deleted []string
}

func (f *fakeVectorIndex) Upsert(ctx context.Context, namespace string, records []rag.Record) error {
	if f.upserts == nil {
		f.upserts = make(map[string][]rag.Record)
	}
	f.upserts[namespace] = append(f.upserts[namespace], records...)
	return nil
}

func (f *fakeVectorIndex) Search(ctx context.Context, namespace, query string, topK int, courseID string) ([]rag.Hit, error) {
	return f.hits, nil
}

func (f *fakeVectorIndex) List(ctx context.Context, namespace, prefix string) ([]string, error) {
	return f.listIDs, nil
}

func (f *fakeVectorIndex) Delete(ctx context.Context, namespace string, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

type fakeChat struct {
	lastRequest rag.CompletionRequest
	reply       string
}

func (f *fakeChat) Complete(ctx context.Context, req rag.CompletionRequest) (*rag.Completion, error) {
	f.lastRequest = req
	return &rag.Completion{
		ID:    "cmpl-test",
		Model: req.Model,
		Choices: []rag.Choice{
			{Message: rag.Message{Role: "assistant", Content: f.reply}, FinishReason: "stop"},
		},
	}, nil
}

type testEnv struct {
	server *Server
	users  *users.Service
	index  *fakeVectorIndex
	chat   *fakeChat
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	us := users.NewService(users.NewMemoryRepository())
	ss := sessions.NewService(us, refreshtokens.NewMemoryRepository(), testSecret, 30*time.Minute, 24*time.Hour)
	index := &fakeVectorIndex{}
	chat := &fakeChat{reply: "the answer"}

	server := NewServer(":0", logger, us, ss, index, chat, testSecret, testAdminName, testChatModel)
	return &testEnv{server: server, users: us, index: index, chat: chat}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	contentType := "application/json"
	switch b := body.(type) {
	case nil:
	case url.Values:
		reader = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, userName string) userProjection {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/register", map[string]string{
		"username": userName,
		"email":    userName + "@example.com",
		"password": "pw123",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var p userProjection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func (e *testEnv) login(t *testing.T, userName, password, scope string) tokenBundleResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/token", url.Values{
		"username": {userName},
		"password": {password},
		"scope":    {scope},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var bundle tokenBundleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))
	return bundle
}

func TestMeEchoesGrantedScopes(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	bundle := env.login(t, "alice", "pw123", "read write")
	rec := env.do(t, http.MethodGet, "/auth/me", nil, bundle.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var me meResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "alice", me.UserName)
	assert.Equal(t, []string{"read", "write"}, me.Scopes)

	// a token granted no scopes reports an empty list, not null
	bundle = env.login(t, "alice", "pw123", "")
	rec = env.do(t, http.MethodGet, "/auth/me", nil, bundle.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"scopes":[]`)
}

func TestRegisterLoginMeRefreshLogout(t *testing.T) {
	env := newTestEnv(t)

	created := env.register(t, "alice")
	assert.Equal(t, "alice", created.UserName)
	assert.True(t, created.IsActive)

	bundle := env.login(t, "alice", "pw123", "read write")
	assert.NotEmpty(t, bundle.AccessToken)
	assert.NotEmpty(t, bundle.RefreshToken)
	assert.Equal(t, "bearer", bundle.TokenType)
	assert.Equal(t, int((30 * time.Minute).Seconds()), bundle.ExpiresIn)

	rec := env.do(t, http.MethodGet, "/auth/me", nil, bundle.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var me userProjection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "alice", me.UserName)

	rec = env.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": bundle.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var refreshed tokenBundleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, bundle.RefreshToken, refreshed.RefreshToken)

	rec = env.do(t, http.MethodPost, "/auth/logout", map[string]string{"refresh_token": bundle.RefreshToken}, bundle.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Successfully logged out")

	// the revoked token no longer refreshes
	rec = env.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": bundle.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// logging out again reports not found, still 200
	rec = env.do(t, http.MethodPost, "/auth/logout", map[string]string{"refresh_token": bundle.RefreshToken}, refreshed.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Refresh token not found")
}

func TestRegisterDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	rec := env.do(t, http.MethodPost, "/auth/register", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "pw456",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already registered")
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	rec := env.do(t, http.MethodPost, "/auth/token", url.Values{
		"username": {"alice"},
		"password": {"wrong"},
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Incorrect username or password")
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	// unknown user answers identically
	rec2 := env.do(t, http.MethodPost, "/auth/token", url.Values{
		"username": {"nobody"},
		"password": {"pw123"},
	}, "")
	assert.Equal(t, rec.Code, rec2.Code)
	assert.Equal(t, rec.Body.String(), rec2.Body.String())
}

func TestLogoutAll(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	first := env.login(t, "alice", "pw123", "")
	second := env.login(t, "alice", "pw123", "")

	rec := env.do(t, http.MethodPost, "/auth/logout-all", nil, second.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		RevokedCount int `json:"revoked_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.RevokedCount)

	for _, token := range []string{first.RefreshToken, second.RefreshToken} {
		rec = env.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": token}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "admin")
	alice := env.register(t, "alice")

	adminBundle := env.login(t, "admin", "pw123", "")
	aliceBundle := env.login(t, "alice", "pw123", "")

	rec := env.do(t, http.MethodGet, "/auth/users", nil, adminBundle.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []userProjection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	rec = env.do(t, http.MethodGet, "/auth/users/"+alice.ID, nil, adminBundle.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/auth/users/no-such-id", nil, adminBundle.AccessToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// a regular user is rejected
	rec = env.do(t, http.MethodGet, "/auth/users", nil, aliceBundle.AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
