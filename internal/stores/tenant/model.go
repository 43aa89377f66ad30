package tenant

import (
	"time"

	"github.com/ethanbaker/receptionist/pkg/tenant"
	"gorm.io/gorm"
)

// TenantModel is the database row for a tenant profile
type TenantModel struct {
	ID        string         `gorm:"column:id;size:128;primaryKey"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`

	BusinessName string                  `gorm:"column:business_name;size:255;not null"`
	PhoneNumber  string                  `gorm:"column:phone_number;size:32;uniqueIndex"`
	Industry     string                  `gorm:"column:industry;size:128"`
	Services     string                  `gorm:"column:services;type:text"`
	FAQ          string                  `gorm:"column:faq;type:text"`
	Hours        map[string]tenant.Hours `gorm:"column:business_hours;type:text;serializer:json"`
	WebhookURL   string                  `gorm:"column:webhook_url;size:512"`
	VoiceID      string                  `gorm:"column:voice_id;size:128"`
	Active       bool                    `gorm:"column:active;not null"`
}

// TableName overrides the default table name
func (TenantModel) TableName() string {
	return "tenants"
}

func (m TenantModel) toProfile() *tenant.Profile {
	return &tenant.Profile{
		ID:           m.ID,
		BusinessName: m.BusinessName,
		PhoneNumber:  m.PhoneNumber,
		Industry:     m.Industry,
		Services:     m.Services,
		FAQ:          m.FAQ,
		Hours:        m.Hours,
		WebhookURL:   m.WebhookURL,
		VoiceID:      m.VoiceID,
		Active:       m.Active,
	}
}

func fromProfile(p tenant.Profile) TenantModel {
	return TenantModel{
		ID:           p.ID,
		BusinessName: p.BusinessName,
		PhoneNumber:  p.PhoneNumber,
		Industry:     p.Industry,
		Services:     p.Services,
		FAQ:          p.FAQ,
		Hours:        p.Hours,
		WebhookURL:   p.WebhookURL,
		VoiceID:      p.VoiceID,
		Active:       p.Active,
	}
}
