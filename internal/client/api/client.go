// Package api is the HTTP client for the StudyMate backend used by the CLI.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenBundle is the token pair returned by login and refresh.
type TokenBundle struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// User is the backend's external user projection.
type User struct {
	ID        string    `json:"id"`
	UserName  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// apiError carries the backend's detail message together with the status.
type apiError struct {
	Status int
	Detail string
}

func (e *apiError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("server returned %d", e.Status)
}

func (c *Client) do(ctx context.Context, method, path, token string, body any, out any) error {

	var reader *bytes.Reader
	contentType := "application/json"

	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case url.Values:
		reader = bytes.NewReader([]byte(b.Encode()))
		contentType = "application/x-www-form-urlencoded"
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &apiError{Status: resp.StatusCode, Detail: errBody.Detail}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) Register(ctx context.Context, userName, email, password, fullName string) (*User, error) {
	var user User
	err := c.do(ctx, http.MethodPost, "/auth/register", "", map[string]string{
		"username":  userName,
		"email":     email,
		"password":  password,
		"full_name": fullName,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Login(ctx context.Context, userName, password string, scopes []string) (*TokenBundle, error) {
	var bundle TokenBundle
	err := c.do(ctx, http.MethodPost, "/auth/token", "", url.Values{
		"username": {userName},
		"password": {password},
		"scope":    {strings.Join(scopes, " ")},
	}, &bundle)
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenBundle, error) {
	var bundle TokenBundle
	err := c.do(ctx, http.MethodPost, "/auth/refresh", "", map[string]string{
		"refresh_token": refreshToken,
	}, &bundle)
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (c *Client) Logout(ctx context.Context, accessToken, refreshToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", accessToken, map[string]string{
		"refresh_token": refreshToken,
	}, nil)
}

func (c *Client) LogoutAll(ctx context.Context, accessToken string) (int, error) {
	var resp struct {
		RevokedCount int `json:"revoked_count"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/logout-all", accessToken, nil, &resp)
	if err != nil {
		return 0, err
	}
	return resp.RevokedCount, nil
}

func (c *Client) Me(ctx context.Context, accessToken string) (*User, error) {
	var user User
	err := c.do(ctx, http.MethodGet, "/auth/me", accessToken, nil, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Ping probes server reachability via the keep-alive endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodHead, "/v1/keep-alive", "", nil, nil)
}
