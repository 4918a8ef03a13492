package customers

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

// Repository defines persistence operations for storefront buyers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertByEmail(ctx context.Context, customer *models.Customer) (*models.Customer, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a customers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// UpsertByEmail creates the customer or refreshes name/phone/document on the
// existing row. Checkout never asks buyers to create accounts.
func (r *repository) UpsertByEmail(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer is required")
	}
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	if customer.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "phone", "document", "updated_at"}),
		}).
		Create(customer).Error
	if err != nil {
		return nil, err
	}

	return r.FindByEmail(ctx, customer.Email)
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, err
	}
	return &customer, nil
}
