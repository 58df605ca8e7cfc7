package notifications

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/clienthunter/leadwatch/internal/config"
	"github.com/clienthunter/leadwatch/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// mailer is the part of gomail.Dialer the service uses
type mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Service handles sending notifications via various channels
type Service struct {
	config *config.Config
	client *resty.Client
	mailer mailer
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// NewService creates a new notification service. Channels without
// configuration are skipped.
func NewService(cfg *config.Config) *Service {
	s := &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
	if cfg.EmailEnabled() {
		s.mailer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	return s
}

// SendReport sends a digest via every configured channel
func (s *Service) SendReport(ctx context.Context, report *models.Report) error {
	subject := fmt.Sprintf("Lead Digest - %s (%d new leads)", periodLabel(report.Period), report.TotalNewLeads())

	return s.fanOut("report", func() error {
		return s.postToTeams(ctx, buildReportCard(report))
	}, func() error {
		html, err := buildReportHTML(report)
		if err != nil {
			return fmt.Errorf("failed to build email HTML: %w", err)
		}
		return s.sendEmail(subject, buildReportText(report), html)
	})
}

// SendAlert sends an immediate alert about a single lead
func (s *Service) SendAlert(ctx context.Context, alert *models.Alert) error {
	subject := fmt.Sprintf("[%s] %s", alertLabel(alert.Type), alert.Title)

	return s.fanOut("alert", func() error {
		return s.postToTeams(ctx, buildAlertCard(alert))
	}, func() error {
		return s.sendEmail(subject, buildAlertText(alert), "")
	})
}

// fanOut runs the Teams and email senders for the configured channels and
// aggregates their errors
func (s *Service) fanOut(kind string, teams, email func() error) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := teams(); err != nil {
			logrus.Errorf("Failed to send Teams %s: %v", kind, err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Infof("Successfully sent %s to Teams", kind)
		}
	}

	if s.mailer != nil {
		if err := email(); err != nil {
			logrus.Errorf("Failed to send email %s: %v", kind, err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Infof("Successfully sent %s via email", kind)
		}
	}

	if s.config.TeamsWebhookURL == "" && s.mailer == nil {
		logrus.Warnf("No notification channel configured, %s not delivered", kind)
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

func (s *Service) postToTeams(ctx context.Context, message *TeamsMessage) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) sendEmail(subject, text, html string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmails...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	if html != "" {
		m.AddAlternative("text/html", html)
	}

	if err := s.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func periodLabel(period string) string {
	switch period {
	case "daily":
		return "Daily"
	case "weekly":
		return "Weekly"
	}
	return period
}

func alertLabel(kind string) string {
	if kind == models.AlertHotLead {
		return "Hot lead"
	}
	return "Info"
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
