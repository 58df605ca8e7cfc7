package leads

import (
	"testing"
	"time"

	"github.com/clienthunter/leadwatch/internal/models"
	"github.com/stretchr/testify/assert"
)

func lead(id, templateID int, status models.ClientStatus, created time.Time) models.PotentialClient {
	return models.PotentialClient{
		ID:                id,
		MatchedTemplateID: templateID,
		Status:            status,
		CreatedAt:         created,
	}
}

func TestComputeDashboardStats_Empty(t *testing.T) {
	stats := ComputeDashboardStats(nil, nil, time.Now())

	assert.Equal(t, models.DashboardStats{}, stats)
}

func TestComputeDashboardStats_ConversionRate(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

	var clients []models.PotentialClient
	for i := 1; i <= 10; i++ {
		status := models.StatusNew
		if i <= 3 {
			status = models.StatusConverted
		}
		clients = append(clients, lead(i, 1, status, now.Add(-time.Hour)))
	}

	stats := ComputeDashboardStats(clients, nil, now)

	assert.Equal(t, 30.0, stats.ConversionRate)
	assert.Equal(t, 10, stats.TotalClients)
}

func TestComputeDashboardStats_Rounding(t *testing.T) {
	now := time.Now()
	clients := []models.PotentialClient{
		lead(1, 1, models.StatusConverted, now),
		lead(2, 1, models.StatusNew, now),
		lead(3, 1, models.StatusIgnored, now),
	}

	stats := ComputeDashboardStats(clients, nil, now)

	assert.Equal(t, 33.3, stats.ConversionRate)
}

func TestComputeDashboardStats_Windows(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2024, 5, 10, 1, 30, 0, 0, loc)

	clients := []models.PotentialClient{
		// 00:10 local on the same day, but the previous day in UTC
		lead(1, 1, models.StatusNew, time.Date(2024, 5, 9, 21, 10, 0, 0, time.UTC)),
		// 23:50 local the previous day
		lead(2, 1, models.StatusNew, time.Date(2024, 5, 9, 20, 50, 0, 0, time.UTC)),
		// six days ago
		lead(3, 1, models.StatusNew, now.Add(-6*24*time.Hour)),
		// just outside the rolling week
		lead(4, 1, models.StatusNew, now.Add(-week-time.Minute)),
	}

	stats := ComputeDashboardStats(clients, nil, now)

	assert.Equal(t, 1, stats.ClientsToday)
	assert.Equal(t, 3, stats.ClientsWeek)
	assert.Equal(t, 4, stats.TotalClients)
}

func TestComputeDashboardStats_DistinctActiveChats(t *testing.T) {
	templates := []models.ProductTemplate{
		{ID: 1, IsActive: true, MonitoredChats: []string{"@a", "@b"}},
		{ID: 2, IsActive: true, MonitoredChats: []string{"@b", "@c"}},
		{ID: 3, IsActive: false, MonitoredChats: []string{"@d"}},
	}

	stats := ComputeDashboardStats(nil, templates, time.Now())

	assert.Equal(t, 3, stats.TotalChats)
}

func TestTopTemplates(t *testing.T) {
	now := time.Now()
	conf := func(c models.PotentialClient, v int) models.PotentialClient {
		c.AIConfidence = &v
		return c
	}

	templates := []models.ProductTemplate{
		{ID: 1, Name: "Laptops"},
		{ID: 2, Name: "Phones"},
		{ID: 3, Name: "Tablets"},
	}
	clients := []models.PotentialClient{
		conf(lead(1, 2, models.StatusConverted, now), 8),
		conf(lead(2, 2, models.StatusNew, now), 7),
		lead(3, 2, models.StatusNew, now),
		lead(4, 3, models.StatusNew, now),
		lead(5, 3, models.StatusNew, now),
		lead(6, 1, models.StatusNew, now),
		lead(7, 9, models.StatusNew, now),
	}

	t.Run("ranked by leads then id", func(t *testing.T) {
		ranks := TopTemplates(clients, templates, 0)

		ids := make([]int, len(ranks))
		for i, r := range ranks {
			ids[i] = r.TemplateID
		}
		assert.Equal(t, []int{2, 3, 1, 9}, ids)
		assert.Equal(t, "Phones", ranks[0].Name)
		assert.Equal(t, 7.5, ranks[0].AvgConfidence)
		assert.Equal(t, 33.3, ranks[0].ConversionRate)
		assert.Equal(t, "Template #9", ranks[3].Name)
	})

	t.Run("truncated to n", func(t *testing.T) {
		ranks := TopTemplates(clients, templates, 2)
		assert.Len(t, ranks, 2)
	})

	t.Run("no leads", func(t *testing.T) {
		assert.Empty(t, TopTemplates(nil, templates, 3))
	})
}
