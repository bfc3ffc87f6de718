package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"fixit/internal/models"
	"fixit/internal/repository"
	"fixit/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidUser        = errors.New("invalid user input")
	ErrEmailTaken         = errors.New("email already registered")
)

const (
	SessionTTL     = 24 * time.Hour
	minPasswordLen = 8
)

type AuthService struct {
	users         repository.UserRepository
	sessionSecret string
}

func NewAuthService(users repository.UserRepository, sessionSecret string) *AuthService {
	return &AuthService{users: users, sessionSecret: sessionSecret}
}

// Register creates a tenant account. Self-registration never grants any
// other role.
func (a *AuthService) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	return a.CreateUser(ctx, email, name, password, models.RoleTenant)
}

// CreateUser provisions an account with any valid role. It backs the admin
// CLI and seeding.
func (a *AuthService) CreateUser(ctx context.Context, email, name, password string, role models.Role) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") || name == "" || len(password) < minPasswordLen || len(password) > 72 || !role.Valid() {
		return nil, ErrInvalidUser
	}
	existing, _, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return a.users.Create(ctx, email, name, role, hash)
}

func (a *AuthService) Login(ctx context.Context, email, password string) (token string, user *models.User, err error) {
	u, hash, err := a.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, err
	}
	if u == nil || !u.Active {
		return "", nil, ErrInvalidCredentials
	}
	if !utils.CheckPassword(hash, password) {
		return "", nil, ErrInvalidCredentials
	}
	tok, err := utils.SignJWT(a.sessionSecret, u.ID, u.Role, SessionTTL)
	if err != nil {
		return "", nil, err
	}
	return tok, u, nil
}
