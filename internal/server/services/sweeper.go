package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/communitykeeper/internal/common"
	"github.com/dmitrijs2005/communitykeeper/internal/dbx"
	"github.com/dmitrijs2005/communitykeeper/internal/logging"
	"github.com/dmitrijs2005/communitykeeper/internal/server/models"
	"github.com/dmitrijs2005/communitykeeper/internal/server/repositories/repomanager"
)

// ImageRemover deletes a stored profile image by its URL.
type ImageRemover interface {
	RemoveImage(ctx context.Context, imageURL string) error
}

// SweeperOption customizes an ExpirySweeper.
type SweeperOption func(*ExpirySweeper)

func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *ExpirySweeper) { s.now = now }
}

// WithImageRemover makes the sweeper delete profile images of purged accounts.
func WithImageRemover(r ImageRemover) SweeperOption {
	return func(s *ExpirySweeper) { s.images = r }
}

// ExpirySweeper permanently deletes accounts whose grace period has elapsed.
type ExpirySweeper struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	grace       time.Duration
	logger      logging.Logger
	images      ImageRemover
	now         func() time.Time
}

func NewExpirySweeper(db *sql.DB, m repomanager.RepositoryManager, grace time.Duration, logger logging.Logger,
	opts ...SweeperOption) *ExpirySweeper {

	if grace <= 0 {
		grace = common.DefaultGracePeriod
	}

	s := &ExpirySweeper{
		db:          db,
		repomanager: m,
		grace:       grace,
		logger:      logger.With("module", "expiry_sweeper"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunExpirySweep purges every account deactivated before now minus the grace
// period and returns how many were purged. Each account is handled in its own
// transaction; a failure on one is logged and the batch goes on.
func (s *ExpirySweeper) RunExpirySweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.grace)

	candidates, err := s.repomanager.Accounts(s.db).ListExpired(ctx, cutoff)
	if err != nil {
		s.logger.Error(ctx, "listing expired accounts failed", "cutoff", cutoff, "error", err)
		return 0, common.Internal(err)
	}
	if len(candidates) == 0 {
		s.logger.Debug(ctx, "no expired accounts", "cutoff", cutoff)
		return 0, nil
	}

	s.logger.Info(ctx, "purging expired accounts", "candidates", len(candidates), "cutoff", cutoff)

	purged, failed, skipped := 0, 0, 0
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			s.logger.Warn(ctx, "sweep interrupted", "purged", purged, "error", err)
			return purged, err
		}

		account, err := s.purge(ctx, candidate.ID, cutoff)
		if err != nil {
			failed++
			s.logger.Error(ctx, "purging account failed", "account_id", candidate.ID, "error", err)
			continue
		}
		if account == nil {
			skipped++
			continue
		}

		purged++
		s.logger.Info(ctx, "account purged", "account_id", account.ID, "deactivated_at", account.DeactivatedAt)
		s.removeImage(ctx, account)
	}

	s.logger.Info(ctx, "sweep finished", "purged", purged, "skipped", skipped, "failed", failed)
	return purged, nil
}

// purge deletes one account and its tokens after re-checking, under the row
// lock, that it is still deactivated past cutoff. A nil account means skipped.
func (s *ExpirySweeper) purge(ctx context.Context, accountID string, cutoff time.Time) (*models.Account, error) {
	var purged *models.Account

	err := dbx.WithTx(ctx, s.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		accounts := s.repomanager.Accounts(tx)

		account, err := accounts.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return err
		}

		if !account.PurgeableBefore(cutoff) {
			s.logger.Info(ctx, "purge skipped, account changed since selection",
				"account_id", account.ID, "state", account.State().String())
			return nil
		}

		if _, err := s.repomanager.RefreshTokens(tx).DeleteByAccount(ctx, account.ID); err != nil {
			return err
		}
		if err := accounts.Delete(ctx, account.ID); err != nil {
			return err
		}

		purged = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return purged, nil
}

func (s *ExpirySweeper) removeImage(ctx context.Context, account *models.Account) {
	if s.images == nil || account.ProfileImageURL == "" {
		return
	}
	if err := s.images.RemoveImage(ctx, account.ProfileImageURL); err != nil {
		s.logger.Warn(ctx, "profile image removal failed", "account_id", account.ID, "error", err)
	}
}

// Run sweeps every interval until ctx is done, optionally once right away.
// A non-positive interval is replaced with common.DefaultSweepInterval.
func (s *ExpirySweeper) Run(ctx context.Context, interval time.Duration, runOnStart bool) {
	if interval <= 0 {
		s.logger.Warn(ctx, "invalid sweep interval, using default", "interval", interval,
			"default", common.DefaultSweepInterval)
		interval = common.DefaultSweepInterval
	}

	if runOnStart {
		s.sweepOnce(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *ExpirySweeper) sweepOnce(ctx context.Context) {
	if _, err := s.RunExpirySweep(ctx); err != nil {
		s.logger.Error(ctx, "expiry sweep failed", "error", err)
	}
}
