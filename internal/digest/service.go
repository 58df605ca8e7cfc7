package digest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/clienthunter/leadwatch/internal/config"
	"github.com/clienthunter/leadwatch/internal/leads"
	"github.com/clienthunter/leadwatch/internal/metrics"
	"github.com/clienthunter/leadwatch/internal/models"
	"github.com/clienthunter/leadwatch/internal/notifications"
	"github.com/clienthunter/leadwatch/internal/storage"
	"github.com/sirupsen/logrus"
)

const hotLeadPageSize = 200

// LeadSource is the part of the lead repository the digest reads
type LeadSource interface {
	List(ctx context.Context, filter leads.Filter) ([]models.PotentialClient, error)
	Snapshot(ctx context.Context, templates leads.TemplateLister) ([]models.PotentialClient, []models.ProductTemplate, error)
}

// SettingsSource is the part of the settings repository the digest reads
type SettingsSource interface {
	Get(ctx context.Context) (models.MonitoringSettings, error)
}

// Sources groups the repositories the digest reads from
type Sources struct {
	Leads     LeadSource
	Templates leads.TemplateLister
	Settings  SettingsSource
}

// Service builds lead digests and hot-lead alerts
type Service struct {
	config              *config.Config
	sources             Sources
	archive             *storage.Archive
	notificationService notifications.NotificationInterface
	now                 func() time.Time

	mu         sync.RWMutex
	metrics    *Metrics
	lastDigest time.Time
	hotMark    time.Time

	// unsent holds leads whose alert failed; they are retried while still new
	unsent map[int]bool
}

// Metrics holds run metrics
type Metrics struct {
	LastDigest         time.Time             `json:"last_digest"`
	LastDigestDuration string                `json:"last_digest_duration"`
	LastDigestNewLeads int                   `json:"last_digest_new_leads"`
	LastHotLeadCheck   time.Time             `json:"last_hot_lead_check"`
	HotLeadsAlerted    int                   `json:"hot_leads_alerted"`
	Stats              models.DashboardStats `json:"stats"`
	ErrorCount         int                   `json:"error_count"`
}

// NewService creates a digest service. archive may be nil to skip snapshots.
func NewService(cfg *config.Config, sources Sources, archive *storage.Archive, notificationService notifications.NotificationInterface) *Service {
	return &Service{
		config:              cfg,
		sources:             sources,
		archive:             archive,
		notificationService: notificationService,
		now:                 time.Now,
		metrics:             &Metrics{},
	}
}

func (s *Service) period() time.Duration {
	if s.config.DigestSchedule == "weekly" {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

func (s *Service) localNow() time.Time {
	return s.now().In(s.config.Location())
}

// RunDigest builds a report of the leads captured since the previous digest,
// stores a snapshot of it and sends it
func (s *Service) RunDigest(ctx context.Context) (*models.Report, error) {
	start := time.Now()
	logrus.Info("Starting digest run")

	now := s.localNow()
	since := s.digestSince(ctx, now)

	clients, templates, err := s.sources.Leads.Snapshot(ctx, s.sources.Templates)
	if err != nil {
		s.recordError()
		metrics.DigestRuns.WithLabelValues("fetch_error").Inc()
		return nil, fmt.Errorf("failed to fetch lead snapshot: %w", err)
	}
	logrus.Infof("Fetched %d leads and %d templates", len(clients), len(templates))

	report := s.GenerateReport(clients, templates, since, now)

	if s.archive != nil {
		if name, err := s.archive.Save(ctx, report); err != nil {
			// A missing snapshot must not block the digest itself
			logrus.Errorf("Failed to store digest snapshot: %v", err)
			s.recordError()
		} else {
			logrus.WithField("snapshot", name).Info("Stored digest snapshot")
		}
	}

	if err := s.notificationService.SendReport(ctx, report); err != nil {
		s.recordError()
		metrics.DigestRuns.WithLabelValues("send_error").Inc()
		return report, fmt.Errorf("failed to send digest: %w", err)
	}
	metrics.DigestRuns.WithLabelValues("success").Inc()

	s.mu.Lock()
	s.lastDigest = now
	s.metrics.LastDigest = now
	s.metrics.LastDigestDuration = time.Since(start).String()
	s.metrics.LastDigestNewLeads = report.TotalNewLeads()
	s.metrics.Stats = report.Stats
	s.mu.Unlock()

	logrus.Infof("Digest run completed in %v with %d new leads", time.Since(start), report.TotalNewLeads())
	return report, nil
}

// digestSince returns the start of the digest window: the previous run,
// else the latest stored snapshot, else one period ago
func (s *Service) digestSince(ctx context.Context, now time.Time) time.Time {
	s.mu.RLock()
	last := s.lastDigest
	s.mu.RUnlock()
	if !last.IsZero() {
		return last
	}

	if s.archive != nil {
		latest, err := s.archive.Latest(ctx)
		switch {
		case err == nil && latest.GeneratedAt.Before(now):
			logrus.Infof("Resuming digest window from snapshot at %s", latest.GeneratedAt.Format(time.RFC3339))
			return latest.GeneratedAt.In(now.Location())
		case err != nil && !errors.Is(err, storage.ErrNotExist):
			logrus.Warnf("Failed to read latest digest snapshot: %v", err)
		}
	}

	return now.Add(-s.period())
}

// GenerateReport assembles a digest from snapshots without any I/O
func (s *Service) GenerateReport(clients []models.PotentialClient, templates []models.ProductTemplate, since, now time.Time) *models.Report {
	names := make(map[int]string, len(templates))
	for _, tpl := range templates {
		names[tpl.ID] = tpl.Name
	}

	var fresh []models.PotentialClient
	for _, c := range clients {
		if c.Status == models.StatusNew && c.CreatedAt.After(since) {
			fresh = append(fresh, c)
		}
	}
	sortByConfidence(fresh)

	return &models.Report{
		GeneratedAt:   now,
		Since:         since,
		Period:        s.config.DigestSchedule,
		Stats:         leads.ComputeDashboardStats(clients, templates, now),
		TopTemplates:  leads.TopTemplates(clients, templates, s.config.DigestTopTemplates),
		NewLeads:      fresh,
		TemplateNames: names,
	}
}

// RunHotLeadCheck alerts on every new lead since the previous check whose
// AI confidence reaches the configured threshold. Leads whose alert failed
// are retried on the next check for as long as they are listed as new.
// Nothing is sent while monitoring is switched off.
func (s *Service) RunHotLeadCheck(ctx context.Context) error {
	start := time.Now()

	settings, err := s.sources.Settings.Get(ctx)
	if err != nil {
		s.recordError()
		return fmt.Errorf("failed to read monitoring settings: %w", err)
	}
	if !settings.IsActive {
		logrus.Info("Monitoring is inactive, skipping hot lead check")
		return nil
	}

	s.mu.RLock()
	mark := s.hotMark
	retry := s.unsent
	s.mu.RUnlock()
	if mark.IsZero() {
		mark = s.now().Add(-s.config.HotLeadInterval)
	}

	fresh, err := s.sources.Leads.List(ctx, leads.Filter{Status: models.StatusNew, Limit: hotLeadPageSize})
	if err != nil {
		s.recordError()
		return fmt.Errorf("failed to fetch new leads: %w", err)
	}

	hot := filterHotLeads(fresh, mark, s.config.HotLeadMinConfidence, retry)
	newMark := mark
	for _, c := range fresh {
		if c.CreatedAt.After(newMark) {
			newMark = c.CreatedAt
		}
	}

	var errs []error
	sent := 0
	unsent := make(map[int]bool)
	for i := range hot {
		if err := s.notificationService.SendAlert(ctx, s.hotLeadAlert(&hot[i])); err != nil {
			logrus.Errorf("Failed to send hot lead alert for lead %d: %v", hot[i].ID, err)
			metrics.HotLeadAlerts.WithLabelValues("error").Inc()
			errs = append(errs, err)
			unsent[hot[i].ID] = true
			continue
		}
		metrics.HotLeadAlerts.WithLabelValues("sent").Inc()
		sent++
	}

	s.mu.Lock()
	s.hotMark = newMark
	s.unsent = unsent
	s.metrics.LastHotLeadCheck = s.now()
	s.metrics.HotLeadsAlerted += sent
	s.metrics.ErrorCount += len(errs)
	s.mu.Unlock()

	logrus.Infof("Hot lead check completed in %v, sent %d of %d alerts", time.Since(start), sent, len(hot))
	if len(errs) > 0 {
		return fmt.Errorf("failed to send %d hot lead alerts: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// filterHotLeads keeps new leads created after mark, or listed in retry,
// whose confidence reaches min
func filterHotLeads(clients []models.PotentialClient, mark time.Time, min int, retry map[int]bool) []models.PotentialClient {
	var hot []models.PotentialClient
	for _, c := range clients {
		if c.Status != models.StatusNew || (!c.CreatedAt.After(mark) && !retry[c.ID]) {
			continue
		}
		if c.AIConfidence == nil || *c.AIConfidence < min {
			continue
		}
		hot = append(hot, c)
	}
	sortByConfidence(hot)
	return hot
}

func (s *Service) hotLeadAlert(lead *models.PotentialClient) *models.Alert {
	message := fmt.Sprintf("Confidence %d/10", lead.Confidence())
	if len(lead.MatchedKeywords) > 0 {
		message = fmt.Sprintf("Matched %q with confidence %d/10", lead.MatchedKeywords[0], lead.Confidence())
	}
	return &models.Alert{
		ID:        fmt.Sprintf("hot-lead-%d", lead.ID),
		Type:      models.AlertHotLead,
		Title:     "Hot lead: " + lead.DisplayName(),
		Message:   message,
		Lead:      lead,
		CreatedAt: s.now(),
	}
}

// sortByConfidence orders leads by confidence, then newest first
func sortByConfidence(clients []models.PotentialClient) {
	sort.SliceStable(clients, func(i, j int) bool {
		ci, cj := clients[i].Confidence(), clients[j].Confidence()
		if ci != cj {
			return ci > cj
		}
		return clients[i].CreatedAt.After(clients[j].CreatedAt)
	})
}

func (s *Service) recordError() {
	s.mu.Lock()
	s.metrics.ErrorCount++
	s.mu.Unlock()
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
