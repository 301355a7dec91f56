package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/communitykeeper/internal/common"
	"github.com/dmitrijs2005/communitykeeper/internal/dbx"
	"github.com/dmitrijs2005/communitykeeper/internal/logging"
	"github.com/dmitrijs2005/communitykeeper/internal/server/models"
	"github.com/dmitrijs2005/communitykeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/communitykeeper/internal/server/repositories/refreshtokens"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func expectCommit(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectCommit()
}

func expectRollback(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeHasher struct{ err error }

func (h fakeHasher) HashPassword(plain string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + plain, nil
}

func (h fakeHasher) VerifyPassword(plain, hash string) bool { return hash == "hashed:"+plain }

type fakeSigner struct{ err error }

func (s fakeSigner) IssueAccessToken(accountID, email string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "access-" + accountID, nil
}

func (fakeSigner) ExpirySeconds() int64 { return 1800 }

func sequentialTokens() func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("rt-%d", n), nil
	}
}

// --- in-memory stores ---

type memStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	tokens   map[string]*models.RefreshToken
	nextID   int64

	// error injection
	getErr         error
	listErr        error
	createErr      error
	updateErr      error
	deleteErr      map[string]error
	tokenCreateErr error
	tokenFindErr   error
	revokeErr      error
}

func newMemStore() *memStore {
	return &memStore{
		accounts:  map[string]*models.Account{},
		tokens:    map[string]*models.RefreshToken{},
		deleteErr: map[string]error{},
	}
}

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	if a.DeactivatedAt != nil {
		t := *a.DeactivatedAt
		c.DeactivatedAt = &t
	}
	return &c
}

func (m *memStore) put(a *models.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = cloneAccount(a)
}

func (m *memStore) account(id string) (*models.Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, false
	}
	return cloneAccount(a), true
}

func (m *memStore) accountByEmail(email string) *models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			return cloneAccount(a)
		}
	}
	return nil
}

func (m *memStore) token(value string) (*models.RefreshToken, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.tokens[value]
	if !ok {
		return nil, false
	}
	c := *rt
	return &c, true
}

func (m *memStore) tokensOf(accountID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rt := range m.tokens {
		if rt.AccountID == accountID {
			n++
		}
	}
	return n
}

// checkActivationInvariant fails the test if any account breaks the
// is_active/deactivated_at pairing.
func (m *memStore) checkActivationInvariant(t *testing.T) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.IsActive != (a.DeactivatedAt == nil) {
			t.Fatalf("account %s breaks activation invariant: %+v", a.ID, a)
		}
	}
}

type memAccounts struct{ m *memStore }

var _ accounts.Repository = (*memAccounts)(nil)

func (r *memAccounts) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return nil, common.ErrEmailTaken
		}
		if existing.Nickname == a.Nickname {
			return nil, common.ErrNicknameTaken
		}
	}
	a.CreatedAt = t0
	a.UpdatedAt = t0
	m.accounts[a.ID] = cloneAccount(a)
	return a, nil
}

func (r *memAccounts) get(id string) (*models.Account, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	a, ok := m.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneAccount(a), nil
}

func (r *memAccounts) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.get(id)
}

func (r *memAccounts) GetByIDForUpdate(ctx context.Context, id string) (*models.Account, error) {
	return r.get(id)
}

func (r *memAccounts) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, a := range m.accounts {
		if a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memAccounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return false, m.getErr
	}
	for _, a := range m.accounts {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memAccounts) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return false, m.getErr
	}
	for _, a := range m.accounts {
		if a.Nickname == nickname {
			return true, nil
		}
	}
	return false, nil
}

func (r *memAccounts) update(id string, fn func(a *models.Account)) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	a, ok := m.accounts[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(a)
	return nil
}

func (r *memAccounts) UpdateActivation(ctx context.Context, id string, isActive bool, deactivatedAt *time.Time) error {
	return r.update(id, func(a *models.Account) {
		a.IsActive = isActive
		a.DeactivatedAt = nil
		if deactivatedAt != nil {
			t := *deactivatedAt
			a.DeactivatedAt = &t
		}
	})
}

func (r *memAccounts) UpdateProfile(ctx context.Context, id string, nickname string, profileImageURL string) error {
	return r.update(id, func(a *models.Account) {
		a.Nickname = nickname
		a.ProfileImageURL = profileImageURL
	})
}

func (r *memAccounts) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	return r.update(id, func(a *models.Account) { a.PasswordHash = passwordHash })
}

func (r *memAccounts) ListExpired(ctx context.Context, cutoff time.Time) ([]*models.Account, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*models.Account
	for _, a := range m.accounts {
		if !a.IsActive && a.DeactivatedAt != nil && a.DeactivatedAt.Before(cutoff) {
			out = append(out, cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memAccounts) Delete(ctx context.Context, id string) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[id]; err != nil {
		return err
	}
	if _, ok := m.accounts[id]; !ok {
		return common.ErrorNotFound
	}
	for _, rt := range m.tokens {
		if rt.AccountID == id {
			return fmt.Errorf("fk violation: token %s references %s", rt.Token, id)
		}
	}
	delete(m.accounts, id)
	return nil
}

type memTokens struct{ m *memStore }

var _ refreshtokens.Repository = (*memTokens)(nil)

func (r *memTokens) Create(ctx context.Context, accountID string, token string, expiresAt time.Time) (*models.RefreshToken, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokenCreateErr != nil {
		return nil, m.tokenCreateErr
	}
	if _, dup := m.tokens[token]; dup {
		return nil, fmt.Errorf("duplicate token %s", token)
	}
	m.nextID++
	rt := &models.RefreshToken{ID: m.nextID, AccountID: accountID, Token: token, CreatedAt: t0, ExpiresAt: expiresAt}
	m.tokens[token] = rt
	c := *rt
	return &c, nil
}

func (r *memTokens) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokenFindErr != nil {
		return nil, m.tokenFindErr
	}
	rt, ok := m.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *rt
	return &c, nil
}

func (r *memTokens) FindForUpdate(ctx context.Context, token string) (*models.RefreshToken, error) {
	return r.Find(ctx, token)
}

func (r *memTokens) Delete(ctx context.Context, token string) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

func (r *memTokens) DeleteByAccount(ctx context.Context, accountID string) (int64, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr["tokens:"+accountID]; err != nil {
		return 0, err
	}
	var n int64
	for k, rt := range m.tokens {
		if rt.AccountID == accountID {
			delete(m.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r *memTokens) Revoke(ctx context.Context, token string, at time.Time) (bool, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revokeErr != nil {
		return false, m.revokeErr
	}
	rt, ok := m.tokens[token]
	if !ok || rt.RevokedAt != nil {
		return false, nil
	}
	rt.RevokedAt = &at
	return true, nil
}

type fakeRepoManager struct{ m *memStore }

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (f *fakeRepoManager) Accounts(db dbx.DBTX) accounts.Repository           { return &memAccounts{m: f.m} }
func (f *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository { return &memTokens{m: f.m} }

// --- fixture ---

type fixture struct {
	db      *sql.DB
	mock    sqlmock.Sqlmock
	store   *memStore
	clock   *fakeClock
	service *AccountService
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db, mock := newSQLMockDB(t)
	store := newMemStore()
	clock := &fakeClock{now: t0}

	all := append([]Option{WithClock(clock.Now), WithTokenGenerator(sequentialTokens())}, opts...)
	svc := NewAccountService(db, &fakeRepoManager{m: store}, fakeHasher{}, fakeSigner{},
		Policy{GracePeriod: 7 * 24 * time.Hour, RefreshTokenTTL: 14 * 24 * time.Hour}, logging.Nop{}, all...)

	return &fixture{db: db, mock: mock, store: store, clock: clock, service: svc}
}

// seed stores an account with password "Abcdef1!".
func (f *fixture) seed(id, email, nick string) *models.Account {
	a := &models.Account{
		ID:              id,
		Email:           email,
		Nickname:        nick,
		PasswordHash:    "hashed:Abcdef1!",
		ProfileImageURL: "https://img/" + strings.ToLower(nick) + ".png",
		IsActive:        true,
		CreatedAt:       t0,
		UpdatedAt:       t0,
	}
	f.store.put(a)
	return a
}

func (f *fixture) seedDeactivated(id, email, nick string, at time.Time) *models.Account {
	a := f.seed(id, email, nick)
	a.Deactivate(at)
	f.store.put(a)
	return a
}
