package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentSetting stores provider credentials managed from the admin panel.
// When a row exists and is active it takes precedence over environment
// configuration.
type PaymentSetting struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Provider    string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"provider"`
	AccessToken string    `gorm:"type:text;not null" json:"-"`
	PublicKey   string    `gorm:"type:text" json:"public_key"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PaymentSetting) TableName() string { return "payment_settings" }
