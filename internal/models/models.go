package models

import (
	"fmt"
	"time"
)

// Report is the periodic lead digest sent to the team
type Report struct {
	GeneratedAt  time.Time         `json:"generated_at"`
	Since        time.Time         `json:"since"`
	Period       string            `json:"period"` // "daily" or "weekly"
	Stats        DashboardStats    `json:"stats"`
	TopTemplates []TemplateRank    `json:"top_templates"`
	NewLeads     []PotentialClient `json:"new_leads"`
	// TemplateNames resolves matched_template_id for rendering
	TemplateNames map[int]string `json:"template_names,omitempty"`
}

// TotalNewLeads is the number of leads captured since the previous digest
func (r *Report) TotalNewLeads() int {
	return len(r.NewLeads)
}

// TemplateName resolves the name of the template that matched a lead
func (r *Report) TemplateName(id int) string {
	if name, ok := r.TemplateNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Template #%d", id)
}

// Alert types
const (
	AlertHotLead = "hot_lead"
	AlertInfo    = "info"
)

// Alert represents an immediate notification about a single lead
type Alert struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"` // "hot_lead", "info"
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Lead      *PotentialClient `json:"lead,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
