package adminauth

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/beloribh/belori-backend/pkg/auth"
	"github.com/beloribh/belori-backend/pkg/config"
	"github.com/beloribh/belori-backend/pkg/db/models"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/beloribh/belori-backend/pkg/logger"
	"github.com/beloribh/belori-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubRepo struct {
	admin       *models.AdminUser
	lastLoginAt *time.Time
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, admin *models.AdminUser) (*models.AdminUser, error) {
	panic("not implemented")
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	if s.admin == nil || s.admin.Email != email {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "admin user not found")
	}
	return s.admin, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.AdminUser, error) {
	panic("not implemented")
}

func (s *stubRepo) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.lastLoginAt = &at
	return nil
}

var jwtConfig = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "belori-test",
	ExpirationMinutes: 60,
}

// Low-cost parameters keep hashing fast in tests.
var argonConfig = config.PasswordConfig{
	ArgonMemoryKB:    8,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     8,
	ArgonKeyLen:      16,
}

func activeAdmin(t *testing.T, password string) *models.AdminUser {
	t.Helper()

	hash, err := security.HashPassword(password, argonConfig)
	require.NoError(t, err)
	return &models.AdminUser{
		ID:           uuid.New(),
		Name:         "Marina Souza",
		Email:        "marina@belori.com.br",
		PasswordHash: hash,
		Active:       true,
	}
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Repo:   repo,
		JWT:    jwtConfig,
		Logger: logger.New(logger.Options{ServiceName: "adminauth-test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc
}

func TestLoginMintsTokenAndRecordsLogin(t *testing.T) {
	admin := activeAdmin(t, "s3nha-forte")
	repo := &stubRepo{admin: admin}
	svc := newTestService(t, repo)

	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "Marina@belori.com.br",
		Password: "s3nha-forte",
	})
	require.NoError(t, err)
	require.NotNil(t, repo.lastLoginAt)
	assert.Equal(t, jwtConfig.ExpirationMinutes*60, result.ExpiresIn)

	claims, err := auth.ParseAccessToken(jwtConfig, result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.AdminID)
	assert.Equal(t, admin.Email, claims.Email)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	repo := &stubRepo{admin: activeAdmin(t, "s3nha-forte")}
	svc := newTestService(t, repo)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "marina@belori.com.br",
		Password: "senha-errada",
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
	assert.Nil(t, repo.lastLoginAt)
}

func TestLoginRejectsUnknownEmailWithSameError(t *testing.T) {
	svc := newTestService(t, &stubRepo{})

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "nobody@belori.com.br",
		Password: "whatever",
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
	assert.Equal(t, "invalid email or password", appErr.Message())
}

func TestLoginRejectsDeactivatedAccount(t *testing.T) {
	admin := activeAdmin(t, "s3nha-forte")
	admin.Active = false
	svc := newTestService(t, &stubRepo{admin: admin})

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "marina@belori.com.br",
		Password: "s3nha-forte",
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
}
