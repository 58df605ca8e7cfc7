package leads

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/clienthunter/leadwatch/internal/api"
	"github.com/clienthunter/leadwatch/internal/cache"
	"github.com/clienthunter/leadwatch/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	basePath = "/client-monitoring/potential-clients"

	// DashboardLimit is the page size used when projecting dashboard stats
	DashboardLimit = 1000
)

// Filter narrows a lead listing. Zero values are not sent.
type Filter struct {
	Status models.ClientStatus
	Limit  int
	Offset int
}

func (f Filter) validate() error {
	verr := &api.ValidationError{}
	if f.Status != "" && !f.Status.Valid() {
		verr.Add("status", "must be one of new, contacted, ignored, converted")
	}
	if f.Limit < 0 {
		verr.Add("limit", "must not be negative")
	}
	if f.Offset < 0 {
		verr.Add("offset", "must not be negative")
	}
	return verr.OrNil()
}

func (f Filter) query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	return q
}

func (f Filter) cacheKey() string {
	return cache.ClientsKey(string(f.Status), f.Limit, f.Offset)
}

// TemplateLister is the part of the template repository the dashboard needs
type TemplateLister interface {
	List(ctx context.Context) ([]models.ProductTemplate, error)
}

// Repository reads and triages potential clients
type Repository struct {
	client *api.Client
	cache  *cache.Cache
	now    func() time.Time
}

// NewRepository creates a lead repository. A nil cache disables caching.
func NewRepository(client *api.Client, c *cache.Cache) *Repository {
	return &Repository{client: client, cache: c, now: time.Now}
}

// List returns leads matching filter, newest first
func (r *Repository) List(ctx context.Context, filter Filter) ([]models.PotentialClient, error) {
	if err := filter.validate(); err != nil {
		return nil, err
	}

	return cache.Load(ctx, r.cache, filter.cacheKey(), func(ctx context.Context) ([]models.PotentialClient, error) {
		return api.Fetch[[]models.PotentialClient](ctx, r.client, api.Request{
			Op:     "leads.list",
			Method: http.MethodGet,
			Path:   basePath,
			Query:  filter.query(),
		})
	})
}

// UpdateStatus moves a lead to status. Unknown statuses are rejected before
// anything is sent.
func (r *Repository) UpdateStatus(ctx context.Context, id int, status models.ClientStatus) (models.PotentialClient, error) {
	if !status.Valid() {
		return models.PotentialClient{}, api.NewValidationError("status", "must be one of new, contacted, ignored, converted")
	}

	updated, err := api.Fetch[models.PotentialClient](ctx, r.client, api.Request{
		Op:     "leads.update_status",
		Method: http.MethodPut,
		Path:   basePath + api.PathEscape(id, "status"),
		Body:   models.ClientStatusUpdate{Status: status},
	})
	if err != nil {
		return models.PotentialClient{}, err
	}

	logrus.WithFields(logrus.Fields{
		"client_id": id,
		"status":    status,
	}).Info("Lead status updated")

	if r.cache != nil {
		if err := r.cache.InvalidatePrefix(ctx, cache.PrefixClients); err != nil {
			logrus.WithError(err).Warn("Failed to invalidate lead cache")
		}
		if err := r.cache.Invalidate(ctx, cache.KeyDashboardStats); err != nil {
			logrus.WithError(err).Warn("Failed to invalidate dashboard cache")
		}
	}
	return updated, nil
}

// Dashboard projects DashboardStats from the latest lead and template
// snapshots. The result is eventually consistent with the server.
func (r *Repository) Dashboard(ctx context.Context, templates TemplateLister) (models.DashboardStats, error) {
	return cache.Load(ctx, r.cache, cache.KeyDashboardStats, func(ctx context.Context) (models.DashboardStats, error) {
		clients, tpls, err := r.Snapshot(ctx, templates)
		if err != nil {
			return models.DashboardStats{}, err
		}
		return ComputeDashboardStats(clients, tpls, r.now()), nil
	})
}

// Snapshot fetches the dashboard page of leads and every template concurrently
func (r *Repository) Snapshot(ctx context.Context, templates TemplateLister) ([]models.PotentialClient, []models.ProductTemplate, error) {
	var (
		clients []models.PotentialClient
		tpls    []models.ProductTemplate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		clients, err = r.List(gctx, Filter{Limit: DashboardLimit})
		return err
	})
	g.Go(func() error {
		var err error
		tpls, err = templates.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return clients, tpls, nil
}
