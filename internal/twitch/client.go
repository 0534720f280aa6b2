package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"giftboard/internal/config"
	"giftboard/internal/metrics"
	"giftboard/internal/model"
)

// Client defines methods we use from the Helix API.
type Client interface {
	ResolveUserID(ctx context.Context, login string) (string, error)
	FetchSubscribers(ctx context.Context, broadcasterID string) ([]model.Subscriber, error)
}

// HTTPClient is a bearer-token client for Helix.
type HTTPClient struct {
	baseURL     string
	clientID    string
	bearerToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

func NewHTTPClient(cfg config.Config, bearerToken string) *HTTPClient {
	attempts := cfg.API.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &HTTPClient{
		baseURL:     cfg.API.BaseURL,
		clientID:    cfg.Twitch.ClientID,
		bearerToken: bearerToken,
		httpClient:  &http.Client{Timeout: cfg.API.Timeout},
		limiter:     newLimiter(cfg.API.RPS, cfg.API.Burst),
		maxAttempts: attempts,
		baseBackoff: cfg.API.BaseBackoff,
	}
}

func (c *HTTPClient) auth(req *http.Request) {
	req.Header.Set("Client-ID", c.clientID)
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	req.Header.Set("Accept", "application/json")
}

// get performs a paced GET and returns the body of a 200 answer.
func (c *HTTPClient) get(ctx context.Context, endpoint string, q url.Values) ([]byte, error) {
	u := fmt.Sprintf("%s%s?%s", c.baseURL, endpoint, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.auth(req)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, endpoint, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Endpoint: endpoint, Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// ResolveUserID maps a login to its Helix user id.
func (c *HTTPClient) ResolveUserID(ctx context.Context, login string) (string, error) {
	if login == "" {
		return "", fmt.Errorf("%w: empty login", ErrUserNotFound)
	}
	body, err := c.get(ctx, "/users", url.Values{"login": {login}})
	if err != nil {
		return "", err
	}
	var raw struct {
		Data []struct {
			ID    string `json:"id"`
			Login string `json:"login"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("%w: decode users: %v", ErrFetchFailed, err)
	}
	if len(raw.Data) != 1 {
		return "", fmt.Errorf("%w: %q matched %d users", ErrUserNotFound, login, len(raw.Data))
	}
	return raw.Data[0].ID, nil
}

// FetchSubscribers returns the first page of the broadcaster's subscriptions as delivered.
func (c *HTTPClient) FetchSubscribers(ctx context.Context, broadcasterID string) ([]model.Subscriber, error) {
	body, err := c.get(ctx, "/subscriptions", url.Values{"broadcaster_id": {broadcasterID}})
	if err != nil {
		return nil, err
	}
	var raw struct {
		Data []struct {
			UserID     string  `json:"user_id"`
			UserName   string  `json:"user_name"`
			UserLogin  string  `json:"user_login"`
			PlanName   string  `json:"plan_name"`
			Tier       string  `json:"tier"`
			IsGift     bool    `json:"is_gift"`
			GifterName *string `json:"gifter_name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode subscriptions: %v", ErrFetchFailed, err)
	}
	out := make([]model.Subscriber, 0, len(raw.Data))
	for _, d := range raw.Data {
		g := model.NoGifter()
		if d.GifterName != nil && *d.GifterName != "" {
			g = model.SomeGifter(*d.GifterName)
		}
		out = append(out, model.Subscriber{
			UserID:    d.UserID,
			UserName:  d.UserName,
			UserLogin: d.UserLogin,
			PlanName:  d.PlanName,
			Tier:      d.Tier,
			IsGift:    d.IsGift,
			Gifter:    g,
		})
	}
	return out, nil
}

func (c *HTTPClient) doWithRetry(ctx context.Context, endpoint string, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncAPIRetry(endpoint)
		}
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			retryable := resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)
			if !retryable || attempt == c.maxAttempts {
				return resp, nil
			}
			ra := resp.Header.Get("Retry-After")
			_ = resp.Body.Close()
			wait := backoff
			if ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					wait = time.Duration(secs) * time.Second
				} else if t, err := http.ParseTime(ra); err == nil {
					if d := time.Until(t); d > 0 {
						wait = d
					}
				}
			}
			// jitter +/-20%
			jitter := time.Duration(float64(wait) * 0.2)
			if jitter > 0 {
				wait = wait - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter))
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
			continue
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}
