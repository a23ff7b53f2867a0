package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/khovattu/khovattu/internal/shared"
)

// WeakAdminPassword is the fallback admin password; seeding with it logs a warning.
const WeakAdminPassword = "admin123"

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *TokenIssuer
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenIssuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tokens: tokens, logger: logger}
}

// Tokens exposes the issuer for middleware wiring.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues an access token carrying the user's roles.
func (s *Service) Login(ctx context.Context, input LoginInput) (Token, error) {
	if err := shared.ValidateStruct(input); err != nil {
		return Token{}, err
	}
	user, err := s.Authenticate(ctx, input.Username, input.Password)
	if err != nil {
		return Token{}, err
	}
	return s.tokens.Issue(*user)
}

// Me returns the current user's profile.
func (s *Service) Me(ctx context.Context, userID int64) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

// Register creates a user with the given roles.
func (s *Service) Register(ctx context.Context, input RegisterInput) (int64, error) {
	input.Username = strings.TrimSpace(input.Username)
	if err := shared.ValidateStruct(input); err != nil {
		return 0, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("auth: hash password: %w", err)
	}
	user := User{Username: input.Username, PasswordHash: string(hash), FullName: input.FullName, Email: input.Email}
	return s.repo.CreateUser(ctx, user, input.Roles)
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// SetActive enables or disables a user.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// SeedAdmin creates the default admin account when no users exist.
func (s *Service) SeedAdmin(ctx context.Context, username, password string) error {
	n, err := s.repo.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("auth: count users: %w", err)
	}
	if n > 0 {
		return nil
	}
	if username == "" {
		username = "admin"
	}
	if password == "" {
		password = WeakAdminPassword
	}
	if password == WeakAdminPassword {
		s.logger.Warn("default admin created with weak password; set ADMIN_DEFAULT_PASSWORD", slog.String("username", username))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	_, err = s.repo.CreateUser(ctx, User{Username: username, PasswordHash: string(hash), FullName: "Administrator", Email: "admin@khovattu.local"}, []string{"admin"})
	if err != nil {
		return fmt.Errorf("auth: seed admin: %w", err)
	}
	s.logger.Info("default admin created", slog.String("username", username))
	return nil
}
