package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// Settings is the per-tenant configuration document, stored as one JSON
// column per tenant.
type Settings struct {
	General       GeneralSettings      `json:"general"`
	Pricing       PricingSettings      `json:"pricing"`
	API           APISettings          `json:"api"`
	Notifications NotificationSettings `json:"notifications"`
}

type GeneralSettings struct {
	CompanyName  string `json:"company_name"`
	Address      string `json:"address"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	DarkMode     bool   `json:"dark_mode"`
}

type PricingSettings struct {
	HourlyRate     float64 `json:"hourly_rate"`
	DailyMaxRate   float64 `json:"daily_max_rate"`
	MonthlyRate    float64 `json:"monthly_rate"`
	WeekendPricing bool    `json:"weekend_pricing"`
}

type APISettings struct {
	PlateRecognizerKey string `json:"plate_recognizer_key"`
	PaymentGatewayKey  string `json:"payment_gateway_key"`
}

type NotificationSettings struct {
	EmailEnabled          bool `json:"email_enabled"`
	SMSEnabled            bool `json:"sms_enabled"`
	CapacityAlertsEnabled bool `json:"capacity_alerts_enabled"`
}

// DefaultSettings seeds a new tenant's settings document.
func DefaultSettings(companyName, contactEmail string) Settings {
	return Settings{
		General: GeneralSettings{CompanyName: companyName, ContactEmail: contactEmail},
		Pricing: PricingSettings{HourlyRate: 2.5, DailyMaxRate: 15, MonthlyRate: 150},
		Notifications: NotificationSettings{
			EmailEnabled:          true,
			CapacityAlertsEnabled: true,
		},
	}
}

var ErrSettingsNotFound = errors.New("settings not found")

type SettingRepo struct{ db *sql.DB }

func NewSettingRepo(db *sql.DB) *SettingRepo { return &SettingRepo{db: db} }

// Get loads the settings document of a tenant.
func (r *SettingRepo) Get(ctx context.Context, tenantID uint64) (Settings, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT doc FROM settings WHERE tenant_id=? LIMIT 1", tenantID).Scan(&doc)
	if err == sql.ErrNoRows {
		return Settings{}, ErrSettingsNotFound
	}
	if err != nil {
		return Settings{}, err
	}
	var s Settings
	if err := json.Unmarshal(doc, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Upsert writes the full settings document of a tenant, creating the row
// on first write.
func (r *SettingRepo) Upsert(ctx context.Context, tenantID uint64, s Settings) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO settings (tenant_id,doc) VALUES (?,?) ON DUPLICATE KEY UPDATE doc=VALUES(doc)",
		tenantID, doc)
	return err
}
