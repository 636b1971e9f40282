package credentials

import (
	"context"
	"fmt"

	"github.com/septivank/ecobee-sync/internal/ecobee"
	"go.uber.org/zap"
)

// TokenStore persists the refresh token between runs
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
}

// Refresher exchanges a refresh token for a new token pair
type Refresher interface {
	RefreshTokens(ctx context.Context, refreshToken string) (ecobee.Tokens, error)
}

// Manager rotates the stored refresh token once per run
type Manager struct {
	store     TokenStore
	refresher Refresher
	logger    *zap.Logger
}

// NewManager creates a new credential manager
func NewManager(store TokenStore, refresher Refresher, logger *zap.Logger) *Manager {
	return &Manager{
		store:     store,
		refresher: refresher,
		logger:    logger,
	}
}

// Rotate exchanges the stored refresh token and persists the new one before
// returning the access token. A failed refresh is not retried.
func (m *Manager) Rotate(ctx context.Context) (string, error) {
	oldToken, err := m.store.Load()
	if err != nil {
		return "", err
	}

	tokens, err := m.refresher.RefreshTokens(ctx, oldToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh access token: %w", err)
	}

	if err := m.store.Save(tokens.RefreshToken); err != nil {
		return "", err
	}

	m.logger.Debug("credentials rotated",
		zap.String("old_refresh_token", MaskToken(oldToken)),
		zap.String("access_token", MaskToken(tokens.AccessToken)),
		zap.String("new_refresh_token", MaskToken(tokens.RefreshToken)),
		zap.Int("expires_in", tokens.ExpiresIn),
	)

	return tokens.AccessToken, nil
}

// MaskToken keeps only the last four characters of a token for logging
func MaskToken(token string) string {
	if len(token) <= 4 {
		return "***"
	}
	return "***" + token[len(token)-4:]
}
