package models

import (
	"encoding/json"
	"time"
)

// MonitoringSettings is the per-owner switch for background lead scanning
type MonitoringSettings struct {
	ID                  int        `json:"id"`
	UserID              int        `json:"user_id"`
	NotificationAccount []string   `json:"notification_account"`
	IsActive            bool       `json:"is_active"`
	LastCheckAt         *time.Time `json:"last_check_at"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// MonitoringSettingsUpdate is the body of PUT /monitoring/settings. A nil
// recipient list is not sent; an empty one clears the recipients.
type MonitoringSettingsUpdate struct {
	NotificationAccount []string `json:"notification_account" validate:"omitempty,dive,required"`
	IsActive            *bool    `json:"is_active,omitempty"`
}

// MarshalJSON drops a nil recipient list and keeps an empty one
func (u MonitoringSettingsUpdate) MarshalJSON() ([]byte, error) {
	type plain MonitoringSettingsUpdate
	return json.Marshal(struct {
		plain
		NotificationAccount *[]string `json:"notification_account,omitempty"`
	}{plain(u), listField(u.NotificationAccount)})
}

// MonitoringStats is the server-side aggregate from GET /monitoring/stats
type MonitoringStats struct {
	TotalClients       int                  `json:"total_clients"`
	ClientsThisWeek    int                  `json:"clients_this_week"`
	StatusDistribution map[ClientStatus]int `json:"status_distribution"`
}
