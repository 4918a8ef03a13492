package paymentsettings

import (
	"context"
	"testing"
	"time"

	"github.com/beloribh/belori-backend/pkg/config"
	"github.com/beloribh/belori-backend/pkg/db/models"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubRepo struct {
	setting   *models.PaymentSetting
	err       error
	findCalls int
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) FindActiveByProvider(ctx context.Context, provider string) (*models.PaymentSetting, error) {
	s.findCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.setting, nil
}

func (s *stubRepo) Upsert(ctx context.Context, setting *models.PaymentSetting) (*models.PaymentSetting, error) {
	panic("not implemented")
}

func TestAccessTokenPrefersStoredCredentials(t *testing.T) {
	repo := &stubRepo{setting: &models.PaymentSetting{
		Provider:    ProviderMercadoPago,
		AccessToken: "APP_USR-stored",
		Active:      true,
	}}
	provider, err := NewTokenProvider(repo, config.MercadoPagoConfig{AccessToken: "APP_USR-env"})
	require.NoError(t, err)

	token, err := provider.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "APP_USR-stored", token)
}

func TestAccessTokenFallsBackToEnvironment(t *testing.T) {
	repo := &stubRepo{err: pkgerrors.New(pkgerrors.CodeNotFound, "payment setting not found")}
	provider, err := NewTokenProvider(repo, config.MercadoPagoConfig{AccessToken: "APP_USR-env"})
	require.NoError(t, err)

	token, err := provider.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "APP_USR-env", token)
}

func TestAccessTokenErrorsWhenNothingConfigured(t *testing.T) {
	repo := &stubRepo{err: pkgerrors.New(pkgerrors.CodeNotFound, "payment setting not found")}
	provider, err := NewTokenProvider(repo, config.MercadoPagoConfig{})
	require.NoError(t, err)

	_, err = provider.AccessToken(context.Background())
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeDependency, appErr.Code())
}

func TestAccessTokenCachesLookup(t *testing.T) {
	repo := &stubRepo{setting: &models.PaymentSetting{
		Provider:    ProviderMercadoPago,
		AccessToken: "APP_USR-stored",
		Active:      true,
	}}
	provider, err := NewTokenProvider(repo, config.MercadoPagoConfig{})
	require.NoError(t, err)

	current := time.Now()
	provider.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		_, err := provider.AccessToken(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.findCalls)

	// Past the TTL the next call refreshes from the repository.
	current = current.Add(tokenCacheTTL + time.Second)
	_, err = provider.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.findCalls)
}
