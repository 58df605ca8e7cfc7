package leads

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/clienthunter/leadwatch/internal/models"
)

const week = 7 * 24 * time.Hour

// ComputeDashboardStats derives headline numbers from snapshots.
// "Today" is the calendar day of now in now's location; "week" is the
// rolling seven days before now.
func ComputeDashboardStats(clients []models.PotentialClient, templates []models.ProductTemplate, now time.Time) models.DashboardStats {
	stats := models.DashboardStats{TotalClients: len(clients)}

	y, m, d := now.Date()
	weekAgo := now.Add(-week)
	converted := 0

	for i := range clients {
		created := clients[i].CreatedAt.In(now.Location())
		cy, cm, cd := created.Date()
		if cy == y && cm == m && cd == d {
			stats.ClientsToday++
		}
		if !created.Before(weekAgo) {
			stats.ClientsWeek++
		}
		if clients[i].Status == models.StatusConverted {
			converted++
		}
	}

	chats := make(map[string]struct{})
	for _, tpl := range templates {
		if !tpl.IsActive {
			continue
		}
		for _, chat := range tpl.MonitoredChats {
			chats[chat] = struct{}{}
		}
	}
	stats.TotalChats = len(chats)
	stats.ConversionRate = percent(converted, len(clients))

	return stats
}

// TopTemplates ranks templates by lead count, breaking ties by template id.
// Leads of templates missing from the snapshot are still ranked. A non-positive
// n returns every ranked template.
func TopTemplates(clients []models.PotentialClient, templates []models.ProductTemplate, n int) []models.TemplateRank {
	names := make(map[int]string, len(templates))
	for _, tpl := range templates {
		names[tpl.ID] = tpl.Name
	}

	type tally struct {
		leads, converted, scored, confidence int
	}
	tallies := make(map[int]*tally)
	for i := range clients {
		c := &clients[i]
		t, ok := tallies[c.MatchedTemplateID]
		if !ok {
			t = &tally{}
			tallies[c.MatchedTemplateID] = t
		}
		t.leads++
		if c.Status == models.StatusConverted {
			t.converted++
		}
		if c.AIConfidence != nil {
			t.scored++
			t.confidence += *c.AIConfidence
		}
	}

	ranks := make([]models.TemplateRank, 0, len(tallies))
	for id, t := range tallies {
		name, ok := names[id]
		if !ok {
			name = fmt.Sprintf("Template #%d", id)
		}
		rank := models.TemplateRank{
			TemplateID:     id,
			Name:           name,
			Leads:          t.leads,
			ConversionRate: percent(t.converted, t.leads),
		}
		if t.scored > 0 {
			rank.AvgConfidence = round1(float64(t.confidence) / float64(t.scored))
		}
		ranks = append(ranks, rank)
	}

	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Leads != ranks[j].Leads {
			return ranks[i].Leads > ranks[j].Leads
		}
		return ranks[i].TemplateID < ranks[j].TemplateID
	})

	if n > 0 && len(ranks) > n {
		ranks = ranks[:n]
	}
	return ranks
}

// percent returns part/total as a percentage with one decimal, 0 for an empty total
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
