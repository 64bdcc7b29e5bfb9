package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"instagram-backend/internal/models"
	"instagram-backend/internal/repository"
	"instagram-backend/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ session.Auth = (*AuthClient)(nil)

// fakeAccountStore keeps accounts in a map keyed by email
type fakeAccountStore struct {
	mu        sync.Mutex
	accounts  map[string]*models.Account
	existsErr error
	createErr error
	getErr    error
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: make(map[string]*models.Account)}
}

func (f *fakeAccountStore) Create(ctx context.Context, account *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.accounts[account.Email]; ok {
		return repository.ErrEmailTaken
	}
	f.accounts[account.Email] = account
	return nil
}

func (f *fakeAccountStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	account, ok := f.accounts[email]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return account, nil
}

func (f *fakeAccountStore) EmailExists(ctx context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.accounts[email]
	return ok, nil
}

func newTestAuthService(store AccountStore) *AuthService {
	svc := NewAuthService(store, "test-secret", time.Hour)
	svc.hasher = &PasswordHasher{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}
	return svc
}

func TestCreateAccount(t *testing.T) {
	store := newFakeAccountStore()
	svc := newTestAuthService(store)

	account, err := svc.CreateAccount(context.Background(), " Alice@X.com ", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, account.ID)
	assert.Equal(t, "alice@x.com", account.Email)
	assert.NotEqual(t, "secret1", account.PasswordHash)
	assert.Contains(t, store.accounts, "alice@x.com")
}

func TestCreateAccount_Validation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"malformed email", "not-an-email", "secret1", ErrInvalidEmail},
		{"short password", "a@x.com", "12345", ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestAuthService(newFakeAccountStore())
			_, err := svc.CreateAccount(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateAccount_EmailTaken(t *testing.T) {
	store := newFakeAccountStore()
	svc := newTestAuthService(store)

	_, err := svc.CreateAccount(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = svc.CreateAccount(context.Background(), "a@x.com", "secret2")
	assert.ErrorIs(t, err, repository.ErrEmailTaken)
}

func TestCreateAccount_StoreError(t *testing.T) {
	store := newFakeAccountStore()
	store.existsErr = errors.New("db down")
	svc := newTestAuthService(store)

	_, err := svc.CreateAccount(context.Background(), "a@x.com", "secret1")
	assert.Error(t, err)
	assert.Empty(t, store.accounts)
}

func TestAuthenticate(t *testing.T) {
	store := newFakeAccountStore()
	svc := newTestAuthService(store)
	created, err := svc.CreateAccount(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)

	account, err := svc.Authenticate(context.Background(), "A@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, account.ID)

	_, err = svc.Authenticate(context.Background(), "a@x.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@x.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestJWT_RoundTrip(t *testing.T) {
	svc := newTestAuthService(newFakeAccountStore())

	token, err := svc.GenerateJWT("session-1")
	require.NoError(t, err)

	sessionID, err := svc.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", sessionID)
}

func TestValidateJWT_Rejects(t *testing.T) {
	svc := newTestAuthService(newFakeAccountStore())
	other := NewAuthService(newFakeAccountStore(), "other-secret", time.Hour)

	foreign, err := other.GenerateJWT("session-1")
	require.NoError(t, err)
	_, err = svc.ValidateJWT(foreign)
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"session_id": "session-1",
		"exp":        time.Now().Add(-time.Minute).Unix(),
	})
	expiredToken, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateJWT(expiredToken)
	assert.Error(t, err)

	noSession := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	noSessionToken, err := noSession.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateJWT(noSessionToken)
	assert.Error(t, err)

	_, err = svc.ValidateJWT("garbage")
	assert.Error(t, err)
}

func TestAuthClient(t *testing.T) {
	svc := newTestAuthService(newFakeAccountStore())
	client := svc.NewClient()

	_, ok := client.CurrentUserID()
	assert.False(t, ok)

	id, err := client.CreateAccount(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)
	current, ok := client.CurrentUserID()
	assert.True(t, ok)
	assert.Equal(t, id, current)

	client.SignOut()
	_, ok = client.CurrentUserID()
	assert.False(t, ok)

	_, err = client.SignIn(context.Background(), "a@x.com", "bad-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, ok = client.CurrentUserID()
	assert.False(t, ok)

	signedIn, err := client.SignIn(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, id, signedIn)
}
