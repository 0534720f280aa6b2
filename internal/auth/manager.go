package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"giftboard/internal/config"
	"giftboard/internal/logging"
	"giftboard/internal/metrics"
	"giftboard/internal/model"
)

const (
	grantAuthorizationCode = "authorization_code"
	grantRefreshToken      = "refresh_token"
)

// EventRecorder receives auth lifecycle events. The history store satisfies it.
type EventRecorder interface {
	PutEvent(ctx context.Context, ts time.Time, typ string, payload any) error
}

// Manager acquires and refreshes user access tokens.
type Manager struct {
	store        Store
	httpClient   *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
	redirectURI  string
	code         string
	events       EventRecorder
}

func NewManager(cfg config.Config, store Store) *Manager {
	return &Manager{
		store:        store,
		httpClient:   &http.Client{Timeout: cfg.API.Timeout},
		tokenURL:     cfg.API.TokenURL,
		clientID:     cfg.Twitch.ClientID,
		clientSecret: cfg.Twitch.ClientSecret,
		redirectURI:  cfg.Twitch.RedirectURI,
		code:         cfg.Twitch.AuthorizationCode,
	}
}

// WithHTTPClient swaps the client used for token calls.
func (m *Manager) WithHTTPClient(c *http.Client) *Manager { m.httpClient = c; return m }

// WithEvents records every exchange outcome to r.
func (m *Manager) WithEvents(r EventRecorder) *Manager { m.events = r; return m }

// AccessToken returns a usable access token. Stored credentials are
// refreshed; without them, or when the refresh is rejected, the configured
// authorization code is exchanged. The store is read on every call.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	creds, ok, err := m.store.Load()
	if err != nil {
		return "", fmt.Errorf("load credentials: %w", err)
	}
	if !ok {
		return m.Exchange(ctx)
	}
	tok, refreshErr := m.Refresh(ctx, creds.RefreshToken)
	if refreshErr == nil {
		return tok, nil
	}
	if !errors.Is(refreshErr, ErrAuthFailed) {
		return "", refreshErr
	}
	logging.Warn("refresh_rejected_fallback", map[string]any{"error": refreshErr.Error()})
	tok, exErr := m.Exchange(ctx)
	if exErr == nil {
		return tok, nil
	}
	if errors.Is(exErr, ErrAuthFailed) || errors.Is(exErr, ErrCodeExhausted) {
		return "", fmt.Errorf("%w: refresh: %w; exchange: %w", ErrCodeExhausted, refreshErr, exErr)
	}
	return "", exErr
}

// Exchange trades the configured authorization code for a new token pair.
func (m *Manager) Exchange(ctx context.Context) (string, error) {
	if m.code == "" {
		return "", fmt.Errorf("%w: %w: no authorization code configured", ErrCodeExhausted, ErrAuthFailed)
	}
	form := url.Values{
		"client_id":     {m.clientID},
		"client_secret": {m.clientSecret},
		"code":          {m.code},
		"grant_type":    {grantAuthorizationCode},
		"redirect_uri":  {m.redirectURI},
	}
	return m.grant(ctx, grantAuthorizationCode, form)
}

// Refresh trades refreshToken for a new pair. Twitch rotates refresh
// tokens, so the returned pair replaces the stored one.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (string, error) {
	form := url.Values{
		"client_id":     {m.clientID},
		"client_secret": {m.clientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {grantRefreshToken},
	}
	return m.grant(ctx, grantRefreshToken, form)
}

func (m *Manager) grant(ctx context.Context, grant string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s grant: %w", grant, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%s grant: read body: %w", grant, err)
	}
	if resp.StatusCode != http.StatusOK {
		m.record(ctx, grant, "failed", resp.StatusCode)
		return "", &ExchangeError{Grant: grant, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	var raw struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		m.record(ctx, grant, "failed", resp.StatusCode)
		return "", fmt.Errorf("%s grant: decode: %w", grant, err)
	}
	if raw.AccessToken == "" {
		m.record(ctx, grant, "failed", resp.StatusCode)
		return "", &ExchangeError{Grant: grant, Status: resp.StatusCode, Body: "response has no access_token"}
	}
	if raw.RefreshToken == "" {
		m.record(ctx, grant, "failed", resp.StatusCode)
		return "", &ExchangeError{Grant: grant, Status: resp.StatusCode, Body: "response has no refresh_token"}
	}
	if err := m.store.Save(model.Credentials{AccessToken: raw.AccessToken, RefreshToken: raw.RefreshToken}); err != nil {
		return "", fmt.Errorf("save credentials: %w", err)
	}
	m.record(ctx, grant, "ok", resp.StatusCode)
	return raw.AccessToken, nil
}

func (m *Manager) record(ctx context.Context, grant, outcome string, status int) {
	metrics.IncTokenExchange(grant, outcome)
	logging.Info("token_exchange", map[string]any{"grant": grant, "outcome": outcome, "status": status})
	if m.events != nil {
		_ = m.events.PutEvent(ctx, time.Now().UTC(), "token_"+outcome, map[string]any{"grant": grant, "status": status})
	}
}

// Mask hides all but the last four characters of a token for display.
func Mask(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}
