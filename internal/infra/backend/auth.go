package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/docketry/docketd/internal/core/domain"
)

// AuthClient talks to the backend token endpoints. It is stateless; the
// session manager owns the resulting session.
type AuthClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *slog.Logger
}

// NewAuthClient creates an auth client from the same backend config.
func NewAuthClient(cfg Config) *AuthClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AuthClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		log:     slog.Default().With("component", "auth"),
	}
}

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`
	User         domain.User `json:"user"`
}

func (t *tokenResponse) session() *domain.Session {
	return &domain.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		ExpiresAt:    time.Now().Add(time.Duration(t.ExpiresIn) * time.Second),
		User:         t.User,
	}
}

// SignIn exchanges credentials for a session.
func (a *AuthClient) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	return a.token(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Refresh exchanges a refresh token for a new session.
func (a *AuthClient) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return a.token(ctx, "refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
}

// SignOut revokes the session server-side.
func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	_, err := a.call(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil)
	return err
}

// Validate checks an access token against the backend. A 401 response means
// the token is no longer accepted.
func (a *AuthClient) Validate(ctx context.Context, accessToken string) error {
	_, err := a.call(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil)
	return err
}

func (a *AuthClient) token(ctx context.Context, grant string, payload map[string]string) (*domain.Session, error) {
	body, err := a.call(ctx, http.MethodPost, "/auth/v1/token?grant_type="+grant, "", payload)
	if err != nil {
		return nil, err
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access token")
	}
	return tok.session(), nil
}

func (a *AuthClient) call(ctx context.Context, method, path, accessToken string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode auth request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("apikey", a.apiKey)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read auth response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseError(resp.StatusCode, data)
	}
	return data, nil
}
