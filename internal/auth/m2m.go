package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"zafo-tickets/internal/logger"
	"zafo-tickets/internal/models"
)

// TokenSource hands out client-credentials tokens for calls to the ticket
// backend. Tokens are shared through Redis when a cache is configured.
type TokenSource struct {
	cfg    models.KeycloakConfig
	client *http.Client
	cache  *RedisTokenCache
	logger *logger.Logger
}

func NewTokenSource(cfg models.KeycloakConfig, client *http.Client, cache *RedisTokenCache, log *logger.Logger) *TokenSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &TokenSource{cfg: cfg, client: client, cache: cache, logger: log}
}

func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("AUTH", fmt.Sprintf("Token cache unavailable: %v", err))
		} else if cached != nil {
			return cached.Token, nil
		}
	}

	resp, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, resp.AccessToken, resp.ExpiresIn); err != nil {
			s.logger.Warn("AUTH", fmt.Sprintf("Failed to cache M2M token: %v", err))
		}
	}
	return resp.AccessToken, nil
}

func (s *TokenSource) fetch(ctx context.Context) (*models.TokenResponse, error) {
	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token",
		strings.TrimRight(s.cfg.KeycloakURL, "/"), s.cfg.KeycloakRealm)

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request M2M token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.LogSecurity("M2M_TOKEN_REJECTED", fmt.Sprintf("status %s: %s", resp.Status, body))
		return nil, fmt.Errorf("request M2M token: status %s", resp.Status)
	}

	var token models.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decode M2M token: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("decode M2M token: empty access_token")
	}
	s.logger.LogSecurity("M2M_TOKEN_ISSUED", fmt.Sprintf("client %s, expires in %ds", s.cfg.ClientID, token.ExpiresIn))
	return &token, nil
}
