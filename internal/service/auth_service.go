package service

import (
	"context"
	"time"

	"github.com/umt-ai/unibot/internal/model"
	appErr "github.com/umt-ai/unibot/internal/pkg/errors"
	"github.com/umt-ai/unibot/internal/pkg/jwt"
	"github.com/umt-ai/unibot/internal/pkg/password"
	"github.com/umt-ai/unibot/internal/pkg/timeutil"
	"github.com/umt-ai/unibot/internal/repo"
)

type AuthService struct {
	users     *repo.UserRepo
	jwtSecret []byte
	jwtTTL    time.Duration
}

func NewAuthService(users *repo.UserRepo, secret []byte, ttl time.Duration) *AuthService {
	return &AuthService{users: users, jwtSecret: secret, jwtTTL: ttl}
}

// Register creates a bare account with just credentials.
func (s *AuthService) Register(ctx context.Context, username, plainPassword string) (*model.User, error) {
	return s.create(ctx, username, plainPassword, "", "")
}

// Signup is the fuller registration path; every field is required.
func (s *AuthService) Signup(ctx context.Context, username, plainPassword, email, name string) (*model.User, error) {
	if username == "" || plainPassword == "" || email == "" || name == "" {
		return nil, appErr.ErrInvalid
	}
	return s.create(ctx, username, plainPassword, email, name)
}

func (s *AuthService) create(ctx context.Context, username, plainPassword, email, name string) (*model.User, error) {
	if username == "" || plainPassword == "" {
		return nil, appErr.ErrInvalid
	}
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		ID:           newID(),
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		Name:         name,
		Ctime:        timeutil.NowUnix(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, username, plainPassword string) (*model.User, string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	if err := password.Verify(user.PasswordHash, plainPassword); err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	token, err := jwt.GenerateToken(user.Username, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}
