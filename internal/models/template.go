package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ProductTemplate is a named keyword rule that matches chat messages to a product interest
type ProductTemplate struct {
	ID                   int       `json:"id"`
	UserID               int       `json:"user_id"`
	Name                 string    `json:"name"`
	Keywords             []string  `json:"keywords"`
	MonitoredChats       []string  `json:"monitored_chats"`
	CheckIntervalMinutes int       `json:"check_interval_minutes"`
	LookbackMinutes      int       `json:"lookback_minutes"`
	MinAIConfidence      int       `json:"min_ai_confidence"`
	AIInstruction        *string   `json:"ai_instruction,omitempty"`
	IsActive             bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TemplateCreate is the body of POST /product-templates
type TemplateCreate struct {
	Name                 string   `json:"name" validate:"required,min=2"`
	Keywords             []string `json:"keywords" validate:"required,min=1,dive,required"`
	MonitoredChats       []string `json:"monitored_chats" validate:"dive,required"`
	CheckIntervalMinutes int      `json:"check_interval_minutes,omitempty" validate:"omitempty,min=1,max=1440"`
	LookbackMinutes      int      `json:"lookback_minutes,omitempty" validate:"omitempty,min=1,max=10080"`
	MinAIConfidence      int      `json:"min_ai_confidence,omitempty" validate:"omitempty,min=1,max=10"`
	AIInstruction        *string  `json:"ai_instruction,omitempty" validate:"omitempty,min=50"`
}

// TemplateUpdate is the body of PUT /product-templates/{id}. Nil fields are
// not sent; a non-nil empty list is sent as [].
type TemplateUpdate struct {
	Name                 *string  `json:"name,omitempty" validate:"omitempty,min=2"`
	Keywords             []string `json:"keywords" validate:"omitempty,min=1,dive,required"`
	MonitoredChats       []string `json:"monitored_chats" validate:"omitempty,dive,required"`
	CheckIntervalMinutes *int     `json:"check_interval_minutes,omitempty" validate:"omitempty,min=1,max=1440"`
	LookbackMinutes      *int     `json:"lookback_minutes,omitempty" validate:"omitempty,min=1,max=10080"`
	MinAIConfidence      *int     `json:"min_ai_confidence,omitempty" validate:"omitempty,min=1,max=10"`
	AIInstruction        *string  `json:"ai_instruction,omitempty" validate:"omitempty,min=50"`
	IsActive             *bool    `json:"is_active,omitempty"`
}

// MarshalJSON drops nil lists and keeps empty ones
func (u TemplateUpdate) MarshalJSON() ([]byte, error) {
	type plain TemplateUpdate
	return json.Marshal(struct {
		plain
		Keywords       *[]string `json:"keywords,omitempty"`
		MonitoredChats *[]string `json:"monitored_chats,omitempty"`
	}{plain(u), listField(u.Keywords), listField(u.MonitoredChats)})
}

// listField is nil for a nil list so omitempty skips it
func listField(list []string) *[]string {
	if list == nil {
		return nil
	}
	return &list
}

// NormalizeKeywords trims and lowercases keywords, dropping blanks and
// case-insensitive duplicates while keeping first-seen order.
func NormalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// NormalizeChats trims chat references and drops blanks and exact duplicates.
func NormalizeChats(chats []string) []string {
	seen := make(map[string]bool, len(chats))
	out := make([]string, 0, len(chats))
	for _, c := range chats {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Bool returns a pointer to b
func Bool(b bool) *bool { return &b }

// String returns a pointer to s
func String(s string) *string { return &s }

// Int returns a pointer to i
func Int(i int) *int { return &i }
