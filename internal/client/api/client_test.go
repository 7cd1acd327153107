package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginSendsFormAndParsesBundle(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "alice", r.PostFormValue("username"))
		assert.Equal(t, "pw123", r.PostFormValue("password"))
		assert.Equal(t, "read write", r.PostFormValue("scope"))

		json.NewEncoder(w).Encode(TokenBundle{
			AccessToken:  "acc",
			TokenType:    "bearer",
			ExpiresIn:    1800,
			RefreshToken: "ref",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	bundle, err := client.Login(context.Background(), "alice", "pw123", []string{"read", "write"})
	require.NoError(t, err)
	assert.Equal(t, "acc", bundle.AccessToken)
	assert.Equal(t, "ref", bundle.RefreshToken)
}

func TestErrorCarriesDetail(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Incorrect username or password"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Login(context.Background(), "alice", "wrong", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Incorrect username or password")
}

func TestPingUsesKeepAlive(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "/v1/keep-alive", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	require.NoError(t, client.Ping(context.Background()))

	srv.Close()
	require.Error(t, client.Ping(context.Background()))
}

func TestMeSendsBearerToken(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer acc", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(User{UserName: "alice"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	user, err := client.Me(context.Background(), "acc")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.UserName)
}
