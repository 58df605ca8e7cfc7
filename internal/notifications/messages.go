package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/clienthunter/leadwatch/internal/models"
)

const (
	teamsLeadLimit = 5
	emailLeadLimit = 10
	snippetLength  = 200
)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func newCard(title, text, color string) *TeamsMessage {
	return &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: color,
		Title:      title,
		Text:       text,
	}
}

func summaryFacts(report *models.Report) []TeamsFact {
	return []TeamsFact{
		{Name: "New Leads", Value: fmt.Sprintf("%d", report.TotalNewLeads())},
		{Name: "Leads Today", Value: fmt.Sprintf("%d", report.Stats.ClientsToday)},
		{Name: "Leads This Week", Value: fmt.Sprintf("%d", report.Stats.ClientsWeek)},
		{Name: "Total Leads", Value: fmt.Sprintf("%d", report.Stats.TotalClients)},
		{Name: "Monitored Chats", Value: fmt.Sprintf("%d", report.Stats.TotalChats)},
		{Name: "Conversion Rate", Value: fmt.Sprintf("%.1f%%", report.Stats.ConversionRate)},
		{Name: "Generated", Value: report.GeneratedAt.Format("2006-01-02 15:04 MST")},
	}
}

func buildReportCard(report *models.Report) *TeamsMessage {
	message := newCard(
		fmt.Sprintf("Lead Digest - %s", periodLabel(report.Period)),
		fmt.Sprintf("Found %d new leads since %s", report.TotalNewLeads(), report.Since.Format("Jan 2 15:04")),
		"0078D4",
	)

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         summaryFacts(report),
		Markdown:      true,
	})

	if len(report.TopTemplates) > 0 {
		facts := make([]TeamsFact, 0, len(report.TopTemplates))
		for _, rank := range report.TopTemplates {
			facts = append(facts, TeamsFact{
				Name:  rank.Name,
				Value: fmt.Sprintf("%d leads, %.1f%% converted", rank.Leads, rank.ConversionRate),
			})
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Top Templates",
			Facts:         facts,
		})
	}

	if len(report.NewLeads) > 0 {
		limit := teamsLeadLimit
		if len(report.NewLeads) < limit {
			limit = len(report.NewLeads)
		}

		var lines []string
		for i := 0; i < limit; i++ {
			lines = append(lines, leadMarkdown(&report.NewLeads[i], report.TemplateName(report.NewLeads[i].MatchedTemplateID)))
		}
		if extra := len(report.NewLeads) - limit; extra > 0 {
			lines = append(lines, fmt.Sprintf("_... and %d more_", extra))
		}

		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "New Leads",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func leadMarkdown(lead *models.PotentialClient, template string) string {
	line := fmt.Sprintf("**%s** - %s", lead.DisplayName(), template)
	if lead.AIConfidence != nil {
		line += fmt.Sprintf(" (confidence %d/10)", *lead.AIConfidence)
	}
	line += "\n\n> " + truncate(lead.MessageText, snippetLength)
	if link := lead.MessageLink(); link != "" {
		line += fmt.Sprintf(" [Open](%s)", link)
	}
	return line
}

func buildAlertCard(alert *models.Alert) *TeamsMessage {
	color := "605E5C"
	if alert.Type == models.AlertHotLead {
		color = "D13438"
	}
	message := newCard(alert.Title, alert.Message, color)

	if alert.Lead != nil {
		lead := alert.Lead
		facts := []TeamsFact{
			{Name: "Contact", Value: lead.DisplayName()},
			{Name: "Confidence", Value: fmt.Sprintf("%d/10", lead.Confidence())},
			{Name: "Keywords", Value: strings.Join(lead.MatchedKeywords, ", ")},
			{Name: "Chat", Value: lead.ChatID},
		}
		if link := lead.MessageLink(); link != "" {
			facts = append(facts, TeamsFact{Name: "Message", Value: fmt.Sprintf("[Open in Telegram](%s)", link)})
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityText: truncate(lead.MessageText, snippetLength),
			Facts:        facts,
			Markdown:     true,
		})
	}

	return message
}

var reportHTML = template.Must(template.New("email").Funcs(template.FuncMap{
	"period":   periodLabel,
	"truncate": func(n int, s string) string { return truncate(s, n) },
	"limit": func(n int, leads []models.PotentialClient) []models.PotentialClient {
		if len(leads) > n {
			return leads[:n]
		}
		return leads
	},
}).Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Lead Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0078d4; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .lead { border-left: 4px solid #0078d4; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .lead-title { font-weight: bold; margin-bottom: 5px; }
        .lead-meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Lead Digest</h1>
        <p>{{period .Period}} digest generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM MST"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>New leads:</strong> {{.TotalNewLeads}}</p>
        <p><strong>Today:</strong> {{.Stats.ClientsToday}} | <strong>Last 7 days:</strong> {{.Stats.ClientsWeek}} | <strong>Total:</strong> {{.Stats.TotalClients}}</p>
        <p><strong>Monitored chats:</strong> {{.Stats.TotalChats}} | <strong>Conversion rate:</strong> {{printf "%.1f" .Stats.ConversionRate}}%</p>
    </div>

    {{if .TopTemplates}}
    <h2>Top Templates</h2>
    <ul>
    {{range .TopTemplates}}
        <li>{{.Name}}: {{.Leads}} leads, {{printf "%.1f" .ConversionRate}}% converted</li>
    {{end}}
    </ul>
    {{end}}

    {{if .NewLeads}}
    <h2>New Leads</h2>
    {{range $lead := limit 10 .NewLeads}}
        <div class="lead">
            <div class="lead-title">
                {{if $lead.MessageLink}}<a href="{{$lead.MessageLink}}" target="_blank">{{$lead.DisplayName}}</a>{{else}}{{$lead.DisplayName}}{{end}}
            </div>
            <div class="lead-meta">
                {{$.TemplateName $lead.MatchedTemplateID}} | {{$lead.CreatedAt.Format "Jan 2, 15:04"}}
                {{if $lead.AIConfidence}} | Confidence: {{$lead.Confidence}}/10{{end}}
            </div>
            <p>{{truncate 200 $lead.MessageText}}</p>
        </div>
    {{end}}
    {{end}}

    <hr>
    <p><small>This digest was generated automatically by leadwatch.</small></p>
</body>
</html>
`))

func buildReportHTML(report *models.Report) (string, error) {
	var buf bytes.Buffer
	if err := reportHTML.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildReportText(report *models.Report) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Lead Digest - %s\n", periodLabel(report.Period)))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04 MST")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	for _, fact := range summaryFacts(report)[:6] {
		text.WriteString(fmt.Sprintf("%s: %s\n", fact.Name, fact.Value))
	}

	if len(report.TopTemplates) > 0 {
		text.WriteString("\nTOP TEMPLATES\n")
		text.WriteString("=============\n")
		for i, rank := range report.TopTemplates {
			text.WriteString(fmt.Sprintf("%d. %s - %d leads, %.1f%% converted\n", i+1, rank.Name, rank.Leads, rank.ConversionRate))
		}
	}

	if len(report.NewLeads) > 0 {
		text.WriteString("\nNEW LEADS\n")
		text.WriteString("=========\n")

		limit := emailLeadLimit
		if len(report.NewLeads) < limit {
			limit = len(report.NewLeads)
		}

		for i := 0; i < limit; i++ {
			lead := &report.NewLeads[i]
			text.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, lead.DisplayName()))
			text.WriteString(fmt.Sprintf("   Template: %s | Confidence: %d/10 | Date: %s\n",
				report.TemplateName(lead.MatchedTemplateID), lead.Confidence(), lead.CreatedAt.Format("Jan 2, 15:04")))
			if link := lead.MessageLink(); link != "" {
				text.WriteString(fmt.Sprintf("   Link: %s\n", link))
			}
			text.WriteString(fmt.Sprintf("   Message: %s\n", truncate(lead.MessageText, snippetLength)))
		}
		if extra := len(report.NewLeads) - limit; extra > 0 {
			text.WriteString(fmt.Sprintf("\n... and %d more\n", extra))
		}
	}

	text.WriteString("\n---\nThis digest was generated automatically by leadwatch.\n")

	return text.String()
}

func buildAlertText(alert *models.Alert) string {
	var text strings.Builder

	text.WriteString(alert.Title + "\n\n")
	text.WriteString(alert.Message + "\n")

	if lead := alert.Lead; lead != nil {
		text.WriteString(fmt.Sprintf("\nContact: %s\n", lead.DisplayName()))
		text.WriteString(fmt.Sprintf("Confidence: %d/10\n", lead.Confidence()))
		text.WriteString(fmt.Sprintf("Keywords: %s\n", strings.Join(lead.MatchedKeywords, ", ")))
		if link := lead.MessageLink(); link != "" {
			text.WriteString(fmt.Sprintf("Link: %s\n", link))
		}
		text.WriteString(fmt.Sprintf("\n%s\n", truncate(lead.MessageText, snippetLength)))
	}

	return text.String()
}
