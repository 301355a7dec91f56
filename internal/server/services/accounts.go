// Package services contains server-side business logic. AccountService drives
// the account lifecycle: signup, login with grace-period restoration, refresh
// token rotation, logout, soft deletion and profile changes. ExpirySweeper
// purges accounts whose grace period has elapsed.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/communitykeeper/internal/common"
	"github.com/dmitrijs2005/communitykeeper/internal/dbx"
	"github.com/dmitrijs2005/communitykeeper/internal/logging"
	"github.com/dmitrijs2005/communitykeeper/internal/server/models"
	"github.com/dmitrijs2005/communitykeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	msgInvalidCredentials = "invalid credentials"
	msgDuplicateEmail     = "duplicate email"
	msgDuplicateNickname  = "duplicate nickname"
	msgTokenNotFound      = "refresh token not found"
	msgTokenExpired       = "expired"
	msgTokenRevoked       = "revoked"
	msgAccountNotFound    = "account not found"
	msgAccountNotActive   = "account is not active"
)

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	HashPassword(plain string) (string, error)
	VerifyPassword(plain, hash string) bool
}

// TokenSigner issues short-lived access tokens.
type TokenSigner interface {
	IssueAccessToken(accountID, email string) (string, error)
	ExpirySeconds() int64
}

// Policy holds the time windows of the lifecycle.
type Policy struct {
	GracePeriod     time.Duration
	RefreshTokenTTL time.Duration
}

type SignupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	Nickname        string `json:"nickname"`
	ProfileImageURL string `json:"profile_image_url"`
}

// ProfileUpdate carries optional profile changes; nil fields stay untouched.
type ProfileUpdate struct {
	Nickname        *string `json:"nickname"`
	ProfileImageURL *string `json:"profile_image_url"`
}

// AccountSummary is the public view of an account.
type AccountSummary struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Nickname        string    `json:"nickname"`
	ProfileImageURL string    `json:"profile_image_url"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// AuthResult is returned by Login and Refresh.
type AuthResult struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int64           `json:"expires_in"`
	Account      *AccountSummary `json:"account"`
	Restored     bool            `json:"account_restored"`
}

func newSummary(a *models.Account) *AccountSummary {
	return &AccountSummary{
		ID:              a.ID,
		Email:           a.Email,
		Nickname:        a.Nickname,
		ProfileImageURL: a.ProfileImageURL,
		IsActive:        a.IsActive,
		CreatedAt:       a.CreatedAt,
	}
}

// Option customizes an AccountService.
type Option func(*AccountService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *AccountService) { s.now = now }
}

// WithTokenGenerator replaces the refresh token generator.
func WithTokenGenerator(gen func() (string, error)) Option {
	return func(s *AccountService) { s.newRefreshToken = gen }
}

// AccountService implements the account lifecycle. It keeps no per-request
// state; every read-modify-write of an account row runs in a read-committed
// transaction holding that row's lock.
type AccountService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	hasher          PasswordHasher
	signer          TokenSigner
	policy          Policy
	logger          logging.Logger
	now             func() time.Time
	newRefreshToken func() (string, error)
}

// NewAccountService constructs an AccountService. A zero GracePeriod falls
// back to common.DefaultGracePeriod.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, signer TokenSigner,
	policy Policy, logger logging.Logger, opts ...Option) *AccountService {

	if policy.GracePeriod <= 0 {
		policy.GracePeriod = common.DefaultGracePeriod
	}

	s := &AccountService{
		db:              db,
		repomanager:     m,
		hasher:          hasher,
		signer:          signer,
		policy:          policy,
		logger:          logger.With("module", "account_service"),
		now:             time.Now,
		newRefreshToken: generateRefreshToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

// internal logs err with context and returns the opaque InternalError.
func (s *AccountService) internal(ctx context.Context, op string, err error, args ...any) error {
	var ce *common.Error
	if errors.As(err, &ce) {
		return err
	}
	s.logger.Error(ctx, op+" failed", append(args, "error", err)...)
	return common.Internal(fmt.Errorf("%s: %w", op, err))
}

// Signup validates the request, enforces email and nickname uniqueness and
// creates an active account. It never issues tokens; the caller logs in afterwards.
func (s *AccountService) Signup(ctx context.Context, req SignupRequest) (*AccountSummary, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Nickname = strings.TrimSpace(req.Nickname)
	req.ProfileImageURL = strings.TrimSpace(req.ProfileImageURL)

	if err := validationError(req.Validate()); err != nil {
		return nil, err
	}

	repo := s.repomanager.Accounts(s.db)

	taken, err := repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, s.internal(ctx, "signup", err)
	}
	if taken {
		return nil, common.Conflict(msgDuplicateEmail)
	}

	taken, err = repo.ExistsByNickname(ctx, req.Nickname)
	if err != nil {
		return nil, s.internal(ctx, "signup", err)
	}
	if taken {
		return nil, common.Conflict(msgDuplicateNickname)
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, s.internal(ctx, "signup", err)
	}

	account, err := repo.Create(ctx, &models.Account{
		ID:              uuid.NewString(),
		Email:           req.Email,
		Nickname:        req.Nickname,
		PasswordHash:    hash,
		ProfileImageURL: req.ProfileImageURL,
		IsActive:        true,
	})
	switch {
	case errors.Is(err, common.ErrEmailTaken):
		return nil, common.Conflict(msgDuplicateEmail)
	case errors.Is(err, common.ErrNicknameTaken):
		return nil, common.Conflict(msgDuplicateNickname)
	case err != nil:
		return nil, s.internal(ctx, "signup", err)
	}

	s.logger.Info(ctx, "account created", "account_id", account.ID)
	return newSummary(account), nil
}

// Login authenticates by email and password. A deactivated account still
// inside its grace period is restored. Every authentication failure carries
// the same message.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, common.BadRequest(msgInvalidCredentials)
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "login rejected", "reason", "unknown email")
			return nil, common.BadRequest(msgInvalidCredentials)
		}
		return nil, s.internal(ctx, "login", err)
	}

	if !s.hasher.VerifyPassword(password, account.PasswordHash) {
		s.logger.Info(ctx, "login rejected", "reason", "password mismatch", "account_id", account.ID)
		return nil, common.BadRequest(msgInvalidCredentials)
	}

	var result *AuthResult
	err = dbx.WithTx(ctx, s.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		// the sweeper may have purged or a concurrent call restored it since the read above
		locked, err := repo.GetByIDForUpdate(ctx, account.ID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.BadRequest(msgInvalidCredentials)
			}
			return err
		}

		restored := false
		now := s.now()

		switch locked.State() {
		case models.StateActive:
		case models.StateDeactivated:
			if !locked.Restorable(now, s.policy.GracePeriod) {
				s.logger.Info(ctx, "login rejected", "reason", "grace period elapsed", "account_id", locked.ID)
				return common.BadRequest(msgInvalidCredentials)
			}
			locked.Activate()
			if err := repo.UpdateActivation(ctx, locked.ID, locked.IsActive, locked.DeactivatedAt); err != nil {
				return err
			}
			restored = true
			s.logger.Info(ctx, "account restored", "account_id", locked.ID)
		default:
			s.logger.Error(ctx, "account activation state is corrupt", "account_id", locked.ID,
				"is_active", locked.IsActive, "deactivated_at", locked.DeactivatedAt)
			return common.BadRequest(msgInvalidCredentials)
		}

		result, err = s.issueTokens(ctx, tx, locked, restored)
		return err
	})
	if err != nil {
		return nil, s.internal(ctx, "login", err, "account_id", account.ID)
	}

	s.logger.Info(ctx, "login succeeded", "account_id", account.ID, "restored", result.Restored)
	return result, nil
}

// Refresh rotates a refresh token: the presented token is single-use and is
// replaced by a new one in the same transaction.
func (s *AccountService) Refresh(ctx context.Context, token string) (*AuthResult, error) {
	if token == "" {
		return nil, common.NotFound(msgTokenNotFound)
	}

	var (
		result  *AuthResult
		expired bool
	)

	err := dbx.WithTx(ctx, s.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		tokens := s.repomanager.RefreshTokens(tx)

		// the row lock makes a concurrent refresh of the same value wait and then miss
		rt, err := tokens.FindForUpdate(ctx, token)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.NotFound(msgTokenNotFound)
			}
			return err
		}

		if rt.Expired(s.now()) {
			if err := tokens.Delete(ctx, token); err != nil {
				return err
			}
			expired = true
			return nil
		}

		if rt.Revoked() {
			return common.BadRequest(msgTokenRevoked)
		}

		account, err := s.repomanager.Accounts(tx).GetByID(ctx, rt.AccountID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.NotFound(msgAccountNotFound)
			}
			return err
		}
		if account.State() != models.StateActive {
			return common.BadRequest(msgInvalidCredentials)
		}

		result, err = s.issueTokens(ctx, tx, account, false)
		if err != nil {
			return err
		}

		return tokens.Delete(ctx, token)
	})
	if err != nil {
		return nil, s.internal(ctx, "refresh", err)
	}
	if expired {
		return nil, common.BadRequest(msgTokenExpired)
	}

	return result, nil
}

// Logout revokes the refresh token. Empty, unknown and already revoked tokens
// are a no-op.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	tokens := s.repomanager.RefreshTokens(s.db)

	rt, err := tokens.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return s.internal(ctx, "logout", err)
	}
	if rt.Revoked() {
		return nil
	}

	revoked, err := tokens.Revoke(ctx, token, s.now())
	if err != nil {
		return s.internal(ctx, "logout", err, "account_id", rt.AccountID)
	}
	if revoked {
		s.logger.Info(ctx, "refresh token revoked", "account_id", rt.AccountID)
	}
	return nil
}

// issueTokens signs an access token and persists a fresh refresh token on tx.
func (s *AccountService) issueTokens(ctx context.Context, tx dbx.DBTX, account *models.Account, restored bool) (*AuthResult, error) {
	access, err := s.signer.IssueAccessToken(account.ID, account.Email)
	if err != nil {
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}

	refresh, err := s.newRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %w", err)
	}

	expiresAt := s.now().Add(s.policy.RefreshTokenTTL)
	if _, err := s.repomanager.RefreshTokens(tx).Create(ctx, account.ID, refresh, expiresAt); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}

	return &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    common.TokenType,
		ExpiresIn:    s.signer.ExpirySeconds(),
		Account:      newSummary(account),
		Restored:     restored,
	}, nil
}
