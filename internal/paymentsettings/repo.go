package paymentsettings

import (
	"context"
	"errors"
	"strings"

	"github.com/beloribh/belori-backend/pkg/db/models"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProviderMercadoPago is the only provider Belori accepts payments through today.
const ProviderMercadoPago = "mercadopago"

// Repository defines persistence operations for payment provider credentials.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveByProvider(ctx context.Context, provider string) (*models.PaymentSetting, error)
	Upsert(ctx context.Context, setting *models.PaymentSetting) (*models.PaymentSetting, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActiveByProvider(ctx context.Context, provider string) (*models.PaymentSetting, error) {
	var setting models.PaymentSetting
	err := r.db.WithContext(ctx).
		Where("provider = ? AND active = ?", strings.ToLower(strings.TrimSpace(provider)), true).
		First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment setting not found")
		}
		return nil, err
	}
	return &setting, nil
}

// Upsert stores the provider credentials, replacing any existing row for the
// same provider.
func (r *repository) Upsert(ctx context.Context, setting *models.PaymentSetting) (*models.PaymentSetting, error) {
	if setting == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment setting is required")
	}
	setting.Provider = strings.ToLower(strings.TrimSpace(setting.Provider))
	if setting.Provider == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider is required")
	}
	if setting.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "access token is required")
	}
	if setting.ID == uuid.Nil {
		setting.ID = uuid.New()
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "public_key", "active", "updated_at"}),
		}).
		Create(setting).Error
	if err != nil {
		return nil, err
	}
	return setting, nil
}
