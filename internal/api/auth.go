package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Auth endpoint paths.
const (
	pathLogin    = "/auth/login"
	pathRefresh  = "/auth/refresh"
	pathValidate = "/auth/validate"
	pathLogout   = "/auth/logout"
)

// Login exchanges an identity and secret for a fresh credential bundle.
// This is an unauthenticated call; the secret is never persisted by this
// package.
func (c *Client) Login(ctx context.Context, identity, secret string) (*Credentials, error) {
	body, err := json.Marshal(map[string]string{
		"identity": identity,
		"secret":   secret,
	})
	if err != nil {
		return nil, fmt.Errorf("api: encoding login request: %w", err)
	}

	var creds Credentials
	if err := c.doJSON(ctx, http.MethodPost, pathLogin, body, false, &creds); err != nil {
		return nil, err
	}

	if creds.Origin == "" {
		creds.Origin = c.baseURL
	}

	return &creds, nil
}

// Refresh exchanges a refresh token for a rotated credential bundle.
// Both tokens rotate on success; the old refresh token is invalidated by the
// authority.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	body, err := json.Marshal(map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("api: encoding refresh request: %w", err)
	}

	var creds Credentials
	if err := c.doJSON(ctx, http.MethodPost, pathRefresh, body, false, &creds); err != nil {
		return nil, err
	}

	return &creds, nil
}

// Validate asks the authority whether an access token is still accepted.
// A definitive rejection (401 or valid=false) returns (false, nil); transport
// failures return an error so callers can distinguish "invalid" from
// "unreachable".
func (c *Client) Validate(ctx context.Context, accessToken string) (bool, error) {
	body, err := json.Marshal(map[string]string{
		"access_token": accessToken,
	})
	if err != nil {
		return false, fmt.Errorf("api: encoding validate request: %w", err)
	}

	var result struct {
		Valid bool `json:"valid"`
	}

	if err := c.doJSON(ctx, http.MethodPost, pathValidate, body, false, &result); err != nil {
		if IsAuthError(err) {
			return false, nil
		}

		return false, err
	}

	return result.Valid, nil
}

// Logout notifies the authority that the session is ending. Best-effort:
// callers log failures and clear local state regardless.
func (c *Client) Logout(ctx context.Context, identity, accessToken string) error {
	body, err := json.Marshal(map[string]string{
		"identity":     identity,
		"access_token": accessToken,
	})
	if err != nil {
		return fmt.Errorf("api: encoding logout request: %w", err)
	}

	return c.doJSON(ctx, http.MethodPost, pathLogout, body, false, nil)
}
