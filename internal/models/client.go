package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClientStatus is the triage state of a lead. It is a flat enumeration:
// any value may follow any other.
type ClientStatus string

const (
	StatusNew       ClientStatus = "new"
	StatusContacted ClientStatus = "contacted"
	StatusIgnored   ClientStatus = "ignored"
	StatusConverted ClientStatus = "converted"
)

// ClientStatuses lists every valid status in display order
var ClientStatuses = []ClientStatus{StatusNew, StatusContacted, StatusIgnored, StatusConverted}

// Valid reports whether s is one of the four known statuses
func (s ClientStatus) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusIgnored, StatusConverted:
		return true
	}
	return false
}

// ParseClientStatus converts a raw string into a ClientStatus
func ParseClientStatus(raw string) (ClientStatus, error) {
	s := ClientStatus(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", fmt.Errorf("invalid client status %q: must be one of new, contacted, ignored, converted", raw)
	}
	return s, nil
}

// UnmarshalJSON rejects statuses outside the enumeration
func (s *ClientStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("client status must be a string: %w", err)
	}
	parsed, err := ParseClientStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalJSON refuses to put an unknown status on the wire
func (s ClientStatus) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid client status %q", string(s))
	}
	return json.Marshal(string(s))
}

// PotentialClient is a chat message matched against a template
type PotentialClient struct {
	ID                int          `json:"id"`
	UserID            int          `json:"user_id"`
	TelegramUserID    string       `json:"telegram_user_id"`
	Username          *string      `json:"username,omitempty"`
	FirstName         *string      `json:"first_name,omitempty"`
	LastName          *string      `json:"last_name,omitempty"`
	MessageText       string       `json:"message_text"`
	MatchedTemplateID int          `json:"matched_template_id"`
	MatchedKeywords   []string     `json:"matched_keywords"`
	AIConfidence      *int         `json:"ai_confidence,omitempty"`
	ChatID            string       `json:"chat_id"`
	MessageID         int64        `json:"message_id"`
	Status            ClientStatus `json:"client_status"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// DisplayName picks the best available human label for the lead
func (c PotentialClient) DisplayName() string {
	var parts []string
	if c.FirstName != nil && *c.FirstName != "" {
		parts = append(parts, *c.FirstName)
	}
	if c.LastName != nil && *c.LastName != "" {
		parts = append(parts, *c.LastName)
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	if c.Username != nil && *c.Username != "" {
		return "@" + *c.Username
	}
	return "user " + c.TelegramUserID
}

// Confidence returns the classifier score or 0 when the lead was not scored
func (c PotentialClient) Confidence() int {
	if c.AIConfidence == nil {
		return 0
	}
	return *c.AIConfidence
}

// MessageLink returns a t.me deep link to the matched message, or "" when the
// chat cannot be addressed by link
func (c PotentialClient) MessageLink() string {
	chat := strings.TrimSpace(c.ChatID)
	if chat == "" || c.MessageID == 0 {
		return ""
	}
	if strings.HasPrefix(chat, "-100") {
		return fmt.Sprintf("https://t.me/c/%s/%d", strings.TrimPrefix(chat, "-100"), c.MessageID)
	}
	if _, err := strconv.ParseInt(chat, 10, 64); err == nil {
		// basic groups have no public links
		return ""
	}
	return fmt.Sprintf("https://t.me/%s/%d", strings.TrimPrefix(chat, "@"), c.MessageID)
}

// ClientStatusUpdate is the body of PUT /potential-clients/{id}/status
type ClientStatusUpdate struct {
	Status ClientStatus `json:"status"`
}

// DashboardStats is derived client-side from the lead and template snapshots
type DashboardStats struct {
	ClientsToday   int     `json:"clientsToday"`
	ClientsWeek    int     `json:"clientsWeek"`
	TotalClients   int     `json:"totalClients"`
	TotalChats     int     `json:"totalChats"`
	ConversionRate float64 `json:"conversionRate"`
}

// TemplateRank summarises how well a single template performs
type TemplateRank struct {
	TemplateID     int     `json:"template_id"`
	Name           string  `json:"name"`
	Leads          int     `json:"leads"`
	AvgConfidence  float64 `json:"avg_confidence"`
	ConversionRate float64 `json:"conversion_rate"`
}
