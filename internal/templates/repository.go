package templates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/clienthunter/leadwatch/internal/api"
	"github.com/clienthunter/leadwatch/internal/cache"
	"github.com/clienthunter/leadwatch/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	basePath             = "/client-monitoring/product-templates"
	minInstructionLength = 50
)

// Repository reads and mutates product templates.
// It is safe for concurrent use.
type Repository struct {
	client               *api.Client
	cache                *cache.Cache
	requireAIInstruction bool
}

// NewRepository creates a template repository. A nil cache disables caching.
// With requireAIInstruction set, Create also rejects templates without an AI instruction.
func NewRepository(client *api.Client, c *cache.Cache, requireAIInstruction bool) *Repository {
	return &Repository{
		client:               client,
		cache:                c,
		requireAIInstruction: requireAIInstruction,
	}
}

// List returns every template of the current user
func (r *Repository) List(ctx context.Context) ([]models.ProductTemplate, error) {
	return cache.Load(ctx, r.cache, cache.KeyTemplates, func(ctx context.Context) ([]models.ProductTemplate, error) {
		return api.Fetch[[]models.ProductTemplate](ctx, r.client, api.Request{
			Op:     "templates.list",
			Method: http.MethodGet,
			Path:   basePath,
		})
	})
}

// Create validates input locally and creates the template. Nothing is sent
// when validation fails.
func (r *Repository) Create(ctx context.Context, input models.TemplateCreate) (models.ProductTemplate, error) {
	input = normalizeCreate(input)
	if err := r.validateCreate(input); err != nil {
		return models.ProductTemplate{}, err
	}

	created, err := api.Fetch[models.ProductTemplate](ctx, r.client, api.Request{
		Op:     "templates.create",
		Method: http.MethodPost,
		Path:   basePath,
		Body:   input,
	})
	if err != nil {
		return models.ProductTemplate{}, err
	}

	logrus.WithFields(logrus.Fields{
		"template_id": created.ID,
		"keywords":    len(created.Keywords),
	}).Info("Product template created")

	r.invalidate(ctx)
	return created, nil
}

// Update sends only the non-nil fields of partial. A missing template
// matches api.ErrNotFound.
func (r *Repository) Update(ctx context.Context, id int, partial models.TemplateUpdate) (models.ProductTemplate, error) {
	partial = normalizeUpdate(partial)
	if err := validateUpdate(partial); err != nil {
		return models.ProductTemplate{}, err
	}

	updated, err := api.Fetch[models.ProductTemplate](ctx, r.client, api.Request{
		Op:     "templates.update",
		Method: http.MethodPut,
		Path:   basePath + api.PathEscape(id),
		Body:   partial,
	})
	if err != nil {
		return models.ProductTemplate{}, err
	}

	r.invalidate(ctx)
	return updated, nil
}

// Delete removes a template. Deleting a template that no longer exists succeeds.
func (r *Repository) Delete(ctx context.Context, id int) error {
	body, err := r.client.Do(ctx, api.Request{
		Op:     "templates.delete",
		Method: http.MethodDelete,
		Path:   basePath + api.PathEscape(id),
	})
	switch {
	case errors.Is(err, api.ErrNotFound):
		logrus.WithField("template_id", id).Debug("Template already deleted")
	case err != nil:
		return err
	case len(bytes.TrimSpace(body)) > 0:
		if _, err := api.DecodeAck("templates.delete", body); err != nil {
			return err
		}
	}

	r.invalidate(ctx)
	return nil
}

// ToggleActive flips the active flag of current and returns the server's record
func (r *Repository) ToggleActive(ctx context.Context, current models.ProductTemplate) (models.ProductTemplate, error) {
	return r.Update(ctx, current.ID, models.TemplateUpdate{
		IsActive: models.Bool(!current.IsActive),
	})
}

// invalidate drops the template list and the stats derived from it
func (r *Repository) invalidate(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, cache.KeyTemplates, cache.KeyDashboardStats); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate template cache")
	}
}

func normalizeCreate(in models.TemplateCreate) models.TemplateCreate {
	in.Name = strings.TrimSpace(in.Name)
	in.Keywords = models.NormalizeKeywords(in.Keywords)
	in.MonitoredChats = models.NormalizeChats(in.MonitoredChats)
	if in.AIInstruction != nil {
		trimmed := strings.TrimSpace(*in.AIInstruction)
		if trimmed == "" {
			in.AIInstruction = nil
		} else {
			in.AIInstruction = &trimmed
		}
	}
	return in
}

func normalizeUpdate(in models.TemplateUpdate) models.TemplateUpdate {
	if in.Name != nil {
		in.Name = models.String(strings.TrimSpace(*in.Name))
	}
	if in.Keywords != nil {
		in.Keywords = models.NormalizeKeywords(in.Keywords)
	}
	if in.MonitoredChats != nil {
		in.MonitoredChats = models.NormalizeChats(in.MonitoredChats)
	}
	if in.AIInstruction != nil {
		in.AIInstruction = models.String(strings.TrimSpace(*in.AIInstruction))
	}
	return in
}

func (r *Repository) validateCreate(in models.TemplateCreate) error {
	verr := api.ValidateStruct(in)
	if verr == nil {
		verr = &api.ValidationError{}
	}
	if r.requireAIInstruction && in.AIInstruction == nil {
		verr.Add("ai_instruction", "is required")
	}
	return verr.OrNil()
}

// validateUpdate applies the create bounds to the fields that are present.
// Explicitly provided empty values are rejected instead of being dropped.
func validateUpdate(in models.TemplateUpdate) error {
	verr := api.ValidateStruct(in)
	if verr == nil {
		verr = &api.ValidationError{}
	}
	if in.Name != nil && len([]rune(*in.Name)) < 2 {
		verr.Add("name", "must be at least 2 characters")
	}
	if in.Keywords != nil && len(in.Keywords) == 0 {
		verr.Add("keywords", "must contain at least 1 item(s)")
	}
	if in.AIInstruction != nil && len([]rune(*in.AIInstruction)) < minInstructionLength {
		verr.Add("ai_instruction", fmt.Sprintf("must be at least %d characters", minInstructionLength))
	}
	return verr.OrNil()
}
