package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/freelancehub/marketplace-api/config"
)

// GoogleTokenInfo is the subset of the tokeninfo response the API consumes
type GoogleTokenInfo struct {
	Sub     string `json:"sub"`
	Aud     string `json:"aud"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Error   string `json:"error"`
}

// TokenVerifier checks an OAuth ID token with its issuer
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (*GoogleTokenInfo, error)
}

// GoogleService validates Google ID tokens against the tokeninfo endpoint
type GoogleService struct {
	tokenInfoURL string
	clientID     string
	timeout      time.Duration
	maxAttempts  uint64
	httpClient   *http.Client
}

// NewGoogleService creates a Google token verifier from configuration
func NewGoogleService(cfg *config.Config) *GoogleService {
	return &GoogleService{
		tokenInfoURL: cfg.GoogleTokenInfoURL,
		clientID:     cfg.GoogleClientID,
		timeout:      cfg.IdentityProviderTimeout,
		maxAttempts:  3,
		httpClient:   &http.Client{},
	}
}

// VerifyIDToken returns the token claims when the token is valid for our client id.
// Provider rejections are permanent; transport failures and 5xx are retried.
func (s *GoogleService) VerifyIDToken(ctx context.Context, token string) (*GoogleTokenInfo, error) {
	var info *GoogleTokenInfo

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newProviderBackOff(), s.maxAttempts-1),
		ctx,
	)

	err := backoff.Retry(func() error {
		result, err := s.fetch(ctx, token)
		if err != nil {
			return err
		}
		info = result
		return nil
	}, policy)
	if err != nil {
		return nil, classifyProviderError(ctx, err)
	}

	if info.Error != "" || info.Sub == "" || info.Aud != s.clientID {
		return nil, ErrInvalidToken
	}
	return info, nil
}

func (s *GoogleService) fetch(ctx context.Context, token string) (*GoogleTokenInfo, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s?id_token=%s", s.tokenInfoURL, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call tokeninfo endpoint: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusInternalServerError {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tokeninfo endpoint returned status %d: %s", resp.StatusCode, string(body))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, backoff.Permanent(ErrInvalidToken)
	}

	var info GoogleTokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode tokeninfo response: %w", err))
	}
	return &info, nil
}

func newProviderBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	return b
}

func classifyProviderError(ctx context.Context, err error) error {
	if errors.Is(err, ErrInvalidToken) {
		return ErrInvalidToken
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return ErrUpstreamTimeout
	}
	if ctx.Err() != nil {
		return ErrUpstreamTimeout
	}
	return ErrUpstream
}
