package settings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/clienthunter/leadwatch/internal/api"
	"github.com/clienthunter/leadwatch/internal/cache"
	"github.com/clienthunter/leadwatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu       sync.Mutex
	settings models.MonitoringSettings
	calls    map[string]int
	lastBody map[string]json.RawMessage
	failWith int
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[r.Method+" "+r.URL.Path]++

	if f.failWith != 0 {
		w.WriteHeader(f.failWith)
		w.Write([]byte(`{"detail":"database unavailable"}`))
		return
	}

	reply := func(v interface{}) {
		json.NewEncoder(w).Encode(v)
	}

	switch r.Method + " " + r.URL.Path {
	case "GET /client-monitoring/monitoring/settings":
		reply(map[string]interface{}{"status": "success", "data": f.settings})
	case "PUT /client-monitoring/monitoring/settings":
		var raw map[string]json.RawMessage
		json.NewDecoder(r.Body).Decode(&raw)
		f.lastBody = raw
		if v, ok := raw["notification_account"]; ok {
			json.Unmarshal(v, &f.settings.NotificationAccount)
		}
		reply(map[string]interface{}{"status": "success", "data": f.settings})
	case "POST /client-monitoring/monitoring/start":
		f.settings.IsActive = true
		reply(map[string]interface{}{"status": "success", "message": "Monitoring started"})
	case "POST /client-monitoring/monitoring/stop":
		f.settings.IsActive = false
		reply(map[string]interface{}{"status": "success", "message": "Monitoring stopped"})
	case "GET /client-monitoring/monitoring/stats":
		reply(map[string]interface{}{"status": "success", "data": map[string]interface{}{
			"total_clients":       12,
			"clients_this_week":   4,
			"status_distribution": map[string]int{"new": 8, "converted": 4},
		}})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func setup(t *testing.T) (*Repository, *fakeBackend) {
	backend := &fakeBackend{
		settings: models.MonitoringSettings{ID: 1, UserID: 1},
		calls:    make(map[string]int),
	}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	return NewRepository(api.NewClient(server.URL, time.Second), cache.NewMemory(0)), backend
}

func TestNormalizeRecipients(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, []string{}},
		{"strips at sign", []string{"@alice", " @bob "}, []string{"alice", "bob"}},
		{"dedupes after stripping", []string{"alice", "@alice", "alice "}, []string{"alice"}},
		{"drops blanks", []string{"", " ", "@"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRecipients(tt.in))
		})
	}
}

func TestStartStop_InvalidateCachedSettings(t *testing.T) {
	repo, backend := setup(t)
	ctx := context.Background()

	s, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.False(t, s.IsActive)

	require.NoError(t, repo.Start(ctx))
	s, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.True(t, s.IsActive)

	require.NoError(t, repo.Stop(ctx))
	s, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.False(t, s.IsActive)

	assert.Equal(t, 3, backend.calls["GET /client-monitoring/monitoring/settings"])
	assert.Equal(t, 1, backend.calls["POST /client-monitoring/monitoring/start"])
}

func TestStart_DoesNotReadStateFirst(t *testing.T) {
	repo, backend := setup(t)

	require.NoError(t, repo.Start(context.Background()))
	assert.Zero(t, backend.calls["GET /client-monitoring/monitoring/settings"])
}

func TestUpdate_NormalizesRecipients(t *testing.T) {
	repo, backend := setup(t)

	updated, err := repo.Update(context.Background(), models.MonitoringSettingsUpdate{
		NotificationAccount: []string{"@sales", "sales", " @ops "},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"sales", "ops"}, updated.NotificationAccount)
	assert.NotContains(t, backend.lastBody, "is_active")
}

func TestUpdate_ClearsRecipients(t *testing.T) {
	tests := []struct {
		name       string
		recipients []string
	}{
		{"empty list", []string{}},
		{"only blank handles", []string{"@", "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, backend := setup(t)
			backend.settings.NotificationAccount = []string{"sales"}

			updated, err := repo.Update(context.Background(), models.MonitoringSettingsUpdate{NotificationAccount: tt.recipients})
			require.NoError(t, err)

			require.Contains(t, backend.lastBody, "notification_account")
			assert.JSONEq(t, `[]`, string(backend.lastBody["notification_account"]))
			assert.Empty(t, updated.NotificationAccount)
		})
	}
}

func TestUpdate_NilRecipientsNotSent(t *testing.T) {
	repo, backend := setup(t)
	backend.settings.NotificationAccount = []string{"sales"}

	updated, err := repo.Update(context.Background(), models.MonitoringSettingsUpdate{IsActive: models.Bool(true)})
	require.NoError(t, err)

	assert.NotContains(t, backend.lastBody, "notification_account")
	assert.Equal(t, []string{"sales"}, updated.NotificationAccount)
}

func TestGet_ServerError(t *testing.T) {
	repo, backend := setup(t)
	backend.failWith = http.StatusInternalServerError

	_, err := repo.Get(context.Background())

	var rerr *api.RequestFailedError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, http.StatusInternalServerError, rerr.StatusCode)
	assert.Equal(t, "database unavailable", rerr.Message)
}

func TestStats(t *testing.T) {
	repo, _ := setup(t)

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 12, stats.TotalClients)
	assert.Equal(t, 4, stats.ClientsThisWeek)
	assert.Equal(t, 4, stats.StatusDistribution[models.StatusConverted])
}
