package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clienthunter/leadwatch/internal/config"
	"github.com/clienthunter/leadwatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeMailer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeMailer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func sampleReport() *models.Report {
	generated := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	leads := make([]models.PotentialClient, 7)
	for i := range leads {
		conf := 6 + i%4
		leads[i] = models.PotentialClient{
			ID:                i + 1,
			Username:          models.String("buyer" + string(rune('a'+i))),
			MessageText:       "Looking for a CRM for a small team, any recommendations?",
			MatchedTemplateID: 1,
			MatchedKeywords:   []string{"crm"},
			AIConfidence:      &conf,
			ChatID:            "@startups",
			MessageID:         int64(100 + i),
			Status:            models.StatusNew,
			CreatedAt:         generated.Add(-time.Duration(i) * time.Hour),
		}
	}
	return &models.Report{
		GeneratedAt: generated,
		Since:       generated.Add(-24 * time.Hour),
		Period:      "daily",
		Stats: models.DashboardStats{
			ClientsToday: 3, ClientsWeek: 7, TotalClients: 40, TotalChats: 5, ConversionRate: 12.5,
		},
		TopTemplates:  []models.TemplateRank{{TemplateID: 1, Name: "CRM", Leads: 7, ConversionRate: 14.3}},
		NewLeads:      leads,
		TemplateNames: map[int]string{1: "CRM"},
	}
}

func sampleAlert() *models.Alert {
	conf := 9
	return &models.Alert{
		ID:      "hot-1",
		Type:    models.AlertHotLead,
		Title:   "Hot lead: @buyer",
		Message: "Matched CRM with confidence 9/10",
		Lead: &models.PotentialClient{
			Username:        models.String("buyer"),
			MessageText:     "Need a CRM today",
			MatchedKeywords: []string{"crm", "today"},
			AIConfidence:    &conf,
			ChatID:          "-1009876",
			MessageID:       5,
		},
	}
}

func TestSendReport_Teams(t *testing.T) {
	var card TeamsMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&card))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewService(&config.Config{TeamsWebhookURL: server.URL})
	require.NoError(t, s.SendReport(context.Background(), sampleReport()))

	assert.Equal(t, "MessageCard", card.Type)
	assert.Equal(t, "Lead Digest - Daily", card.Title)
	require.Len(t, card.Sections, 3)
	assert.Equal(t, "New Leads", card.Sections[2].ActivityTitle)
	assert.Contains(t, card.Sections[2].ActivityText, "https://t.me/startups/100")
	assert.Contains(t, card.Sections[2].ActivityText, "... and 2 more")
}

func TestSendReport_AggregatesChannelErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad card"))
	}))
	defer server.Close()

	s := NewService(&config.Config{TeamsWebhookURL: server.URL})
	mailer := &fakeMailer{err: errors.New("smtp down")}
	s.mailer = mailer

	err := s.SendReport(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Teams: Teams webhook returned status 400")
	assert.Contains(t, err.Error(), "Email: failed to send email: smtp down")
	assert.Len(t, mailer.sent, 1)
}

func TestSendReport_Email(t *testing.T) {
	s := NewService(&config.Config{
		NotificationEmails: []string{"sales@example.com", "ops@example.com"},
		SMTPUsername:       "bot@example.com",
	})
	mailer := &fakeMailer{}
	s.mailer = mailer

	require.NoError(t, s.SendReport(context.Background(), sampleReport()))
	require.Len(t, mailer.sent, 1)

	msg := mailer.sent[0]
	assert.Equal(t, []string{"sales@example.com", "ops@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Lead Digest - Daily (7 new leads)"}, msg.GetHeader("Subject"))
}

func TestSendAlert(t *testing.T) {
	var card TeamsMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&card)
	}))
	defer server.Close()

	s := NewService(&config.Config{TeamsWebhookURL: server.URL, NotificationEmails: []string{"sales@example.com"}})
	mailer := &fakeMailer{}
	s.mailer = mailer

	require.NoError(t, s.SendAlert(context.Background(), sampleAlert()))

	assert.Equal(t, "Hot lead: @buyer", card.Title)
	assert.Equal(t, "D13438", card.ThemeColor)
	require.Len(t, card.Sections, 1)
	assert.Contains(t, card.Sections[0].Facts, TeamsFact{Name: "Confidence", Value: "9/10"})
	assert.Contains(t, card.Sections[0].Facts, TeamsFact{Name: "Message", Value: "[Open in Telegram](https://t.me/c/9876/5)"})

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"[Hot lead] Hot lead: @buyer"}, mailer.sent[0].GetHeader("Subject"))
}

func TestSend_NoChannels(t *testing.T) {
	s := NewService(&config.Config{})
	assert.NoError(t, s.SendReport(context.Background(), sampleReport()))
	assert.NoError(t, s.SendAlert(context.Background(), sampleAlert()))
}

func TestBuildReportHTML(t *testing.T) {
	html, err := buildReportHTML(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, html, "Daily digest generated on May 10, 2024")
	assert.Contains(t, html, `<a href="https://t.me/startups/100"`)
	assert.Contains(t, html, "Confidence: 6/10")
	assert.Contains(t, html, "12.5")
}

func TestBuildReportText(t *testing.T) {
	text := buildReportText(sampleReport())

	assert.Contains(t, text, "Lead Digest - Daily")
	assert.Contains(t, text, "New Leads: 7")
	assert.Contains(t, text, "Conversion Rate: 12.5%")
	assert.Contains(t, text, "1. CRM - 7 leads, 14.3% converted")
	assert.Equal(t, 7, strings.Count(text, "Template: CRM"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "приве...", truncate("привет мир", 5))
}

func TestTerminal(t *testing.T) {
	var out strings.Builder
	term := &Terminal{Out: &out}

	require.NoError(t, term.SendReport(context.Background(), sampleReport()))
	require.NoError(t, term.SendAlert(context.Background(), sampleAlert()))

	assert.Contains(t, out.String(), "Lead Digest - Daily")
	assert.Contains(t, out.String(), "🚨 ")
	assert.Contains(t, out.String(), "Hot lead: @buyer")
}
