package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessagingGroup is a Telegram chat tracked for moderator and sentiment analysis
type MessagingGroup struct {
	ID        string                 `json:"id"`
	GroupID   string                 `json:"group_id"`
	Name      string                 `json:"name"`
	Link      string                 `json:"link,omitempty"`
	Settings  GroupSettings          `json:"settings"`
	Metrics   map[string]interface{} `json:"metrics,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt *time.Time             `json:"updated_at,omitempty"`
}

// GroupSettings holds the known settings keys; unknown keys are kept in Extra
type GroupSettings struct {
	MembersCount *int                       `json:"members_count,omitempty"`
	Moderators   []string                   `json:"moderators,omitempty"`
	IsPublic     *bool                      `json:"is_public,omitempty"`
	Description  string                     `json:"description,omitempty"`
	Extra        map[string]json.RawMessage `json:"-"`
}

var knownGroupSettings = map[string]bool{
	"members_count": true,
	"moderators":    true,
	"is_public":     true,
	"description":   true,
}

func (s *GroupSettings) UnmarshalJSON(data []byte) error {
	type plain GroupSettings
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k, v := range all {
		if knownGroupSettings[k] {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[k] = v
	}
	*s = GroupSettings(p)
	return nil
}

func (s GroupSettings) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(s.Extra)+4)
	for k, v := range s.Extra {
		out[k] = v
	}
	if s.MembersCount != nil {
		out["members_count"] = *s.MembersCount
	}
	if s.Moderators != nil {
		out["moderators"] = s.Moderators
	}
	if s.IsPublic != nil {
		out["is_public"] = *s.IsPublic
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	return json.Marshal(out)
}

// GroupMessage is a recent chat message as returned by the backend
type GroupMessage struct {
	ID           int64     `json:"id"`
	Text         string    `json:"text"`
	Date         time.Time `json:"date"`
	SenderID     int64     `json:"sender_id"`
	ReplyToMsgID *int64    `json:"reply_to_msg_id,omitempty"`
}

// GroupModerator is a moderator account of a group
type GroupModerator struct {
	ID        int64   `json:"id"`
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// AddGroupStatus is the upsert outcome reported by /telegram/groups_add
type AddGroupStatus string

const (
	AddGroupCreated       AddGroupStatus = "created"
	AddGroupUpdated       AddGroupStatus = "updated"
	AddGroupAlreadyExists AddGroupStatus = "already_exists"
	AddGroupSuccess       AddGroupStatus = "success"
)

// Succeeded reports whether the server accepted the group
func (s AddGroupStatus) Succeeded() bool {
	switch s {
	case AddGroupCreated, AddGroupUpdated, AddGroupAlreadyExists, AddGroupSuccess:
		return true
	}
	return false
}

// AddGroupResult is the response of /telegram/groups_add
type AddGroupResult struct {
	Status  AddGroupStatus `json:"status"`
	GroupID FlexID         `json:"group_id,omitempty"`
	Message string         `json:"message,omitempty"`
}

// FlexID accepts identifiers encoded either as JSON strings or numbers
type FlexID string

func (id *FlexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	*id = FlexID(n.String())
	return nil
}
