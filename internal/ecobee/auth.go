package ecobee

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// Tokens is the token endpoint response
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

// RefreshTokens exchanges a refresh token for a new access/refresh pair.
// The old refresh token is no longer valid once this succeeds.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (Tokens, error) {
	const op = "refresh token"

	if refreshToken == "" {
		return Tokens{}, decodeError(op, errors.New("empty refresh token"))
	}

	query := url.Values{
		"grant_type": {"refresh_token"},
		"code":       {refreshToken},
		"client_id":  {c.apiKey},
	}

	var tokens Tokens
	if err := c.do(ctx, op, http.MethodPost, "/token", query, "", &tokens); err != nil {
		return Tokens{}, err
	}

	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return Tokens{}, decodeError(op, errors.New("response missing access_token or refresh_token"))
	}
	return tokens, nil
}
