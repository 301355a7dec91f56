// Package accounts declares the Account Store contract and its PostgreSQL
// implementation.
package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/communitykeeper/internal/server/models"
)

// Repository persists accounts and their activation state.
type Repository interface {
	// Create inserts a new account. Unique violations are reported as
	// common.ErrEmailTaken or common.ErrNicknameTaken.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// GetByIDForUpdate reads the account and locks its row until the
	// surrounding transaction ends. Only meaningful inside a transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Account, error)

	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByNickname(ctx context.Context, nickname string) (bool, error)

	// UpdateActivation writes the is_active/deactivated_at pair in one statement.
	UpdateActivation(ctx context.Context, id string, isActive bool, deactivatedAt *time.Time) error
	UpdateProfile(ctx context.Context, id string, nickname string, profileImageURL string) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error

	// ListExpired returns deactivated accounts whose deactivation predates cutoff.
	ListExpired(ctx context.Context, cutoff time.Time) ([]*models.Account, error)

	Delete(ctx context.Context, id string) error
}
