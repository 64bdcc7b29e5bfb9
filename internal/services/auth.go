package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"instagram-backend/internal/models"
	"instagram-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const minPasswordLength = 6

var (
	// ErrInvalidCredentials is returned when email or password do not match an account
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidEmail is returned for malformed email addresses
	ErrInvalidEmail = errors.New("the email address is badly formatted")
	// ErrWeakPassword is returned for passwords that are too short
	ErrWeakPassword = fmt.Errorf("password should be at least %d characters", minPasswordLength)
)

// AccountStore persists auth accounts
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// AuthService handles accounts and session tokens
type AuthService struct {
	accounts  AccountStore
	hasher    *PasswordHasher
	jwtSecret string
	jwtTTL    time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(accounts AccountStore, jwtSecret string, jwtTTL time.Duration) *AuthService {
	return &AuthService{
		accounts:  accounts,
		hasher:    NewPasswordHasher(),
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
	}
}

// CreateAccount registers a new email/password account
func (s *AuthService) CreateAccount(ctx context.Context, email, password string) (*models.Account, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	exists, err := s.accounts.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, repository.ErrEmailTaken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// Authenticate checks the credentials and returns the matching account
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return account, nil
}

// GenerateJWT generates a JWT token bound to a client session
func (s *AuthService) GenerateJWT(sessionID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"session_id": sessionID,
		"exp":        now.Add(s.jwtTTL).Unix(),
		"iat":        now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the session ID
func (s *AuthService) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	sessionID, ok := claims["session_id"].(string)
	if !ok || sessionID == "" {
		return "", fmt.Errorf("session_id not found in token")
	}

	return sessionID, nil
}

// NewClient returns a signed-out auth client for one session
func (s *AuthService) NewClient() *AuthClient {
	return &AuthClient{service: s}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AuthClient tracks which user is signed in for a single session
type AuthClient struct {
	service *AuthService

	mu     sync.RWMutex
	userID string
}

// CreateAccount registers the account and signs it in
func (c *AuthClient) CreateAccount(ctx context.Context, email, password string) (string, error) {
	account, err := c.service.CreateAccount(ctx, email, password)
	if err != nil {
		return "", err
	}
	c.setUser(account.ID)
	return account.ID, nil
}

// SignIn authenticates and remembers the user
func (c *AuthClient) SignIn(ctx context.Context, email, password string) (string, error) {
	account, err := c.service.Authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}
	c.setUser(account.ID)
	return account.ID, nil
}

// SignOut forgets the signed-in user
func (c *AuthClient) SignOut() {
	c.setUser("")
}

// CurrentUserID returns the signed-in user's id
func (c *AuthClient) CurrentUserID() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID, c.userID != ""
}

func (c *AuthClient) setUser(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = id
}
