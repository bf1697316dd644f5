package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopmesh/shopmesh-backend/pkg/auth"
	"github.com/shopmesh/shopmesh-backend/pkg/config"
	"github.com/shopmesh/shopmesh-backend/pkg/db"
	"github.com/shopmesh/shopmesh-backend/pkg/db/models"
	"github.com/shopmesh/shopmesh-backend/pkg/enums"
	pkgerrors "github.com/shopmesh/shopmesh-backend/pkg/errors"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
	"github.com/shopmesh/shopmesh-backend/pkg/security"
)

// Service handles registration, login and profile reads.
type Service struct {
	repo     Repository
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
	logg     *logger.Logger
	timeFunc func() time.Time
}

// NewService wires the users service.
func NewService(repo Repository, jwtCfg config.JWTConfig, pwCfg config.PasswordConfig, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		repo:     repo,
		jwtCfg:   jwtCfg,
		pwCfg:    pwCfg,
		logg:     logg,
		timeFunc: time.Now,
	}, nil
}

// Register creates an account and returns a fresh access token.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	user := &models.User{
		Name:         input.Name,
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		Role:         enums.UserRoleUser,
	}
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating user")
	}

	return s.issueToken(created)
}

// Login verifies credentials and returns an access token. Unknown email and
// wrong password produce the same response.
func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetching user")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	return s.issueToken(user)
}

// Profile returns the account for the given id.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetching user")
	}
	return user, nil
}

func (s *Service) issueToken(user *models.User) (*AuthResult, error) {
	token, err := auth.MintAccessToken(s.jwtCfg, s.timeFunc().UTC(), auth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}
	return &AuthResult{Token: token, User: user}, nil
}
