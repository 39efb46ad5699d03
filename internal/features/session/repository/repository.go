package repository

import (
	"context"
	"time"

	"monad-deathmatch-backend/internal/features/session/models"
)

// IdentityCache remembers the last wallet a device connected, so a reload can
// be bridged before the wallet provider re-resolves.
type IdentityCache interface {
	GetWallet(ctx context.Context, deviceID string) (string, error)
	SetWallet(ctx context.Context, deviceID, wallet string) error
	ClearWallet(ctx context.Context, deviceID string) error
}

// SocialSessionStore maps opaque tokens to verified social identities.
type SocialSessionStore interface {
	Create(ctx context.Context, identity models.SocialIdentity, ttl time.Duration) (string, error)
	// Get returns nil when the token is unknown or expired.
	Get(ctx context.Context, token string) (*models.SocialIdentity, error)
	Delete(ctx context.Context, token string) error
}
