package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/reportflow/reportflow/internal/application/port"
	"github.com/reportflow/reportflow/internal/domain/entity"
)

// TokenIssuer signs access tokens for authenticated users
type TokenIssuer interface {
	Issue(userID int64, username string, roles []string) (string, error)
}

// AuthService handles user registration and login. It sits outside the
// workflow core: the coordinator only ever sees resolved domain users.
type AuthService interface {
	Register(ctx context.Context, username, password string, roles []entity.Role) (*entity.User, error)
	Login(ctx context.Context, username, password string) (string, *entity.User, error)
}

type authServiceImpl struct {
	userRepo port.UserRepository
	tokens   TokenIssuer
	logger   Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo port.UserRepository, tokens TokenIssuer, logger Logger) AuthService {
	return &authServiceImpl{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
	}
}

// Register creates a user with a bcrypt password hash and the given roles
func (s *authServiceImpl) Register(ctx context.Context, username, password string, roles []entity.Role) (*entity.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}
	for _, role := range roles {
		if !role.IsValid() {
			return nil, fmt.Errorf("unknown role %q", role)
		}
	}

	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entity.User{
		Username:     username,
		PasswordHash: string(hash),
		Roles:        roles,
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("User registered", "user_id", user.ID, "username", username)
	return user, nil
}

// Login verifies credentials and returns a signed token for the user
func (s *authServiceImpl) Login(ctx context.Context, username, password string) (string, *entity.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, fmt.Errorf("resolve user: %w", err)
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	roles := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, r.String())
	}

	token, err := s.tokens.Issue(user.ID, user.Username, roles)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("User logged in", "user_id", user.ID, "username", username)
	return token, user, nil
}
