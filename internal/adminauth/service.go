package adminauth

import (
	"context"
	"strings"
	"time"

	"github.com/beloribh/belori-backend/pkg/auth"
	"github.com/beloribh/belori-backend/pkg/config"
	"github.com/beloribh/belori-backend/pkg/db/models"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/beloribh/belori-backend/pkg/logger"
	"github.com/beloribh/belori-backend/pkg/security"
)

// LoginInput carries back office credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult carries the minted token and the authenticated admin.
type LoginResult struct {
	AccessToken string            `json:"access_token"`
	ExpiresIn   int               `json:"expires_in"`
	Admin       *models.AdminUser `json:"admin"`
}

// Service authenticates back office users.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
}

type service struct {
	repo Repository
	jwt  config.JWTConfig
	logg *logger.Logger
	now  func() time.Time
}

// ServiceParams wires the admin auth service dependencies.
type ServiceParams struct {
	Repo   Repository
	JWT    config.JWTConfig
	Logger *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "admin repository required")
	}
	if params.JWT.Secret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "jwt secret required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{
		repo: params.Repo,
		jwt:  params.JWT,
		logg: params.Logger,
		now:  time.Now,
	}, nil
}

// Login verifies the credentials and mints an access token. Unknown emails,
// wrong passwords and deactivated accounts all answer with the same
// unauthorized error so the endpoint does not leak which accounts exist.
func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	admin, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
			return nil, invalidCredentials()
		}
		return nil, err
	}
	if !admin.Active {
		return nil, invalidCredentials()
	}

	ok, err := security.VerifyPassword(input.Password, admin.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, invalidCredentials()
	}

	now := s.now()
	token, err := auth.MintAccessToken(s.jwt, now, auth.AccessTokenPayload{
		AdminID: admin.ID,
		Email:   admin.Email,
		Name:    admin.Name,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	// Login should not fail just because the audit timestamp did not stick.
	if err := s.repo.TouchLastLogin(ctx, admin.ID, now); err != nil {
		s.logg.Warn(ctx, "failed to record last login: "+err.Error())
	}

	return &LoginResult{
		AccessToken: token,
		ExpiresIn:   s.jwt.ExpirationMinutes * 60,
		Admin:       admin,
	}, nil
}

func invalidCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
}
