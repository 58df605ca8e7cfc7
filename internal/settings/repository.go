package settings

import (
	"context"
	"net/http"
	"strings"

	"github.com/clienthunter/leadwatch/internal/api"
	"github.com/clienthunter/leadwatch/internal/cache"
	"github.com/clienthunter/leadwatch/internal/models"
	"github.com/sirupsen/logrus"
)

const basePath = "/client-monitoring/monitoring"

// Repository manages the monitoring settings singleton
type Repository struct {
	client *api.Client
	cache  *cache.Cache
}

// NewRepository creates a settings repository. A nil cache disables caching.
func NewRepository(client *api.Client, c *cache.Cache) *Repository {
	return &Repository{client: client, cache: c}
}

// Get returns the current settings
func (r *Repository) Get(ctx context.Context) (models.MonitoringSettings, error) {
	return cache.Load(ctx, r.cache, cache.KeySettings, func(ctx context.Context) (models.MonitoringSettings, error) {
		return api.Fetch[models.MonitoringSettings](ctx, r.client, api.Request{
			Op:     "settings.get",
			Method: http.MethodGet,
			Path:   basePath + "/settings",
		})
	})
}

// Update sends the non-nil fields of partial. Recipient handles are trimmed,
// stripped of a leading @ and de-duplicated first.
func (r *Repository) Update(ctx context.Context, partial models.MonitoringSettingsUpdate) (models.MonitoringSettings, error) {
	if partial.NotificationAccount != nil {
		partial.NotificationAccount = NormalizeRecipients(partial.NotificationAccount)
	}
	if err := api.ValidateStruct(partial).OrNil(); err != nil {
		return models.MonitoringSettings{}, err
	}

	updated, err := api.Fetch[models.MonitoringSettings](ctx, r.client, api.Request{
		Op:     "settings.update",
		Method: http.MethodPut,
		Path:   basePath + "/settings",
		Body:   partial,
	})
	if err != nil {
		return models.MonitoringSettings{}, err
	}

	r.invalidate(ctx)
	return updated, nil
}

// Start turns background monitoring on
func (r *Repository) Start(ctx context.Context) error {
	return r.toggle(ctx, "settings.start", "/start")
}

// Stop turns background monitoring off
func (r *Repository) Stop(ctx context.Context) error {
	return r.toggle(ctx, "settings.stop", "/stop")
}

func (r *Repository) toggle(ctx context.Context, op, path string) error {
	msg, err := api.Ack(ctx, r.client, api.Request{
		Op:     op,
		Method: http.MethodPost,
		Path:   basePath + path,
	})
	if err != nil {
		return err
	}

	logrus.WithField("op", op).Infof("Monitoring toggled: %s", msg)
	r.invalidate(ctx)
	return nil
}

// Stats returns the server-side lead counters
func (r *Repository) Stats(ctx context.Context) (models.MonitoringStats, error) {
	return api.Fetch[models.MonitoringStats](ctx, r.client, api.Request{
		Op:     "settings.stats",
		Method: http.MethodGet,
		Path:   basePath + "/stats",
	})
}

func (r *Repository) invalidate(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, cache.KeySettings); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate settings cache")
	}
}

// NormalizeRecipients trims handles, strips one leading @ and drops blanks
// and duplicates, keeping first-seen order.
func NormalizeRecipients(handles []string) []string {
	seen := make(map[string]bool, len(handles))
	out := make([]string, 0, len(handles))
	for _, h := range handles {
		h = strings.TrimPrefix(strings.TrimSpace(h), "@")
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
