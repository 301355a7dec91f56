// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/communitykeeper/internal/server/models"
)

// Repository defines operations for issuing, retrieving, rotating and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token for accountID that expires at expiresAt.
	Create(ctx context.Context, accountID string, token string, expiresAt time.Time) (*models.RefreshToken, error)

	// Find looks up a refresh token by its opaque token string.
	// Returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// FindForUpdate is Find with a row lock held until the transaction ends.
	FindForUpdate(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token by its token string. Deleting a non-existent
	// token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteByAccount removes every token owned by accountID and reports how many went.
	DeleteByAccount(ctx context.Context, accountID string) (int64, error)

	// Revoke marks the token revoked at the given time unless it already is.
	// The boolean reports whether a row changed.
	Revoke(ctx context.Context, token string, at time.Time) (bool, error)
}
