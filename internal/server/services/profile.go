package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/communitykeeper/internal/common"
	"github.com/dmitrijs2005/communitykeeper/internal/dbx"
	"github.com/dmitrijs2005/communitykeeper/internal/server/models"
)

// GetAccount returns the summary of an account.
func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*AccountSummary, error) {
	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound(msgAccountNotFound)
		}
		return nil, s.internal(ctx, "get account", err, "account_id", accountID)
	}
	return newSummary(account), nil
}

// Deactivate soft-deletes an account and drops all of its refresh tokens.
// The account stays restorable for the grace period.
func (s *AccountService) Deactivate(ctx context.Context, accountID string) error {
	err := dbx.WithTx(ctx, s.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		account, err := repo.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.NotFound(msgAccountNotFound)
			}
			return err
		}
		if account.State() != models.StateActive {
			return common.BadRequest("account already deactivated")
		}

		account.Deactivate(s.now())
		if err := repo.UpdateActivation(ctx, account.ID, account.IsActive, account.DeactivatedAt); err != nil {
			return err
		}

		n, err := s.repomanager.RefreshTokens(tx).DeleteByAccount(ctx, account.ID)
		if err != nil {
			return err
		}

		deadline, _ := account.RecoveryDeadline(s.policy.GracePeriod)
		s.logger.Info(ctx, "account deactivated", "account_id", account.ID,
			"tokens_deleted", n, "restorable_until", deadline)
		return nil
	})
	if err != nil {
		return s.internal(ctx, "deactivate", err, "account_id", accountID)
	}
	return nil
}

// Restore reactivates a deactivated account that is still inside its grace period.
func (s *AccountService) Restore(ctx context.Context, accountID string) (*AccountSummary, error) {
	var summary *AccountSummary

	err := dbx.WithTx(ctx, s.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		account, err := repo.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.NotFound(msgAccountNotFound)
			}
			return err
		}

		switch account.State() {
		case models.StateActive:
			return common.BadRequest("account already active")
		case models.StateCorrupt:
			s.logger.Error(ctx, "account activation state is corrupt", "account_id", account.ID,
				"is_active", account.IsActive, "deactivated_at", account.DeactivatedAt)
			return common.BadRequest("account cannot be restored")
		}

		if !account.Restorable(s.now(), s.policy.GracePeriod) {
			return common.BadRequest("grace period elapsed")
		}

		account.Activate()
		if err := repo.UpdateActivation(ctx, account.ID, account.IsActive, account.DeactivatedAt); err != nil {
			return err
		}

		s.logger.Info(ctx, "account restored", "account_id", account.ID)
		summary = newSummary(account)
		return nil
	})
	if err != nil {
		return nil, s.internal(ctx, "restore", err, "account_id", accountID)
	}
	return summary, nil
}

// UpdateProfile changes the nickname and/or profile image of an active account.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, upd ProfileUpdate) (*AccountSummary, error) {
	if upd.Nickname != nil {
		v := strings.TrimSpace(*upd.Nickname)
		upd.Nickname = &v
	}
	if upd.ProfileImageURL != nil {
		v := strings.TrimSpace(*upd.ProfileImageURL)
		upd.ProfileImageURL = &v
	}
	if err := validationError(upd.Validate()); err != nil {
		return nil, err
	}

	var summary *AccountSummary

	err := dbx.WithTx(ctx, s.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		account, err := repo.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.NotFound(msgAccountNotFound)
			}
			return err
		}
		if account.State() != models.StateActive {
			return common.BadRequest(msgAccountNotActive)
		}

		if upd.Nickname != nil && *upd.Nickname != account.Nickname {
			taken, err := repo.ExistsByNickname(ctx, *upd.Nickname)
			if err != nil {
				return err
			}
			if taken {
				return common.Conflict(msgDuplicateNickname)
			}
			account.Nickname = *upd.Nickname
		}
		if upd.ProfileImageURL != nil {
			account.ProfileImageURL = *upd.ProfileImageURL
		}

		err = repo.UpdateProfile(ctx, account.ID, account.Nickname, account.ProfileImageURL)
		if errors.Is(err, common.ErrNicknameTaken) {
			return common.Conflict(msgDuplicateNickname)
		}
		if err != nil {
			return err
		}

		summary = newSummary(account)
		return nil
	})
	if err != nil {
		return nil, s.internal(ctx, "update profile", err, "account_id", accountID)
	}
	return summary, nil
}

// ChangePassword replaces the password of an active account.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, newPassword, confirm string) error {
	if err := validationError(passwordChange{Password: newPassword, Confirm: confirm}.Validate()); err != nil {
		return err
	}

	hash, err := s.hasher.HashPassword(newPassword)
	if err != nil {
		return s.internal(ctx, "change password", err, "account_id", accountID)
	}

	err = dbx.WithTx(ctx, s.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		account, err := repo.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.NotFound(msgAccountNotFound)
			}
			return err
		}
		if account.State() != models.StateActive {
			return common.BadRequest(msgAccountNotActive)
		}

		if err := repo.UpdatePassword(ctx, accountID, hash); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.NotFound(msgAccountNotFound)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return s.internal(ctx, "change password", err, "account_id", accountID)
	}

	s.logger.Info(ctx, "password changed", "account_id", accountID)
	return nil
}
