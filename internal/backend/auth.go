package backend

import (
	"context"
	"net/http"
)

// TokenPair is what the login and refresh endpoints return.
type TokenPair struct {
	Type         string `json:"type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login exchanges staff credentials for a token pair.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	body := map[string]string{"username": username, "password": password}
	var out TokenPair
	if err := c.do(ctx, http.MethodPost, "/user/login", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StudentLogin authenticates a student against the HEMIS integration.
func (c *Client) StudentLogin(ctx context.Context, login, password string) (*TokenPair, error) {
	body := map[string]string{"login": login, "password": password}
	var out TokenPair
	if err := c.do(ctx, http.MethodPost, "/hemis/login", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var out TokenPair
	if err := c.do(ctx, http.MethodPost, "/user/refresh", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/user/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
