package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/agri-commons/internal/accounting"
	"github.com/talgya/agri-commons/internal/engine"
	"github.com/talgya/agri-commons/internal/persistence"
	"github.com/talgya/agri-commons/internal/timeseries"
)

func seeded(t *testing.T) (*persistence.DB, string) {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	run, err := db.CreateRun("demo", timeseries.Date(2024, 1, 31), timeseries.Date(2024, 2, 1), 3, nil)
	require.NoError(t, err)

	var days []*engine.DayRecords
	for i, date := range []time.Time{timeseries.Date(2024, 1, 31), timeseries.Date(2024, 2, 1)} {
		days = append(days, &engine.DayRecords{
			Date: date,
			Farms: []accounting.FarmRecord{
				{Date: date, FarmID: "a", Revenue: 10, TotalCost: 4, NetIncome: 6, CashBalance: float64(6 * (i + 1))},
				{Date: date, FarmID: "b", Revenue: 1, TotalCost: 2, NetIncome: -1, CashBalance: float64(-(i + 1))},
			},
			Community: accounting.CommunityRecord{Date: date},
			Events: []engine.Event{
				{Date: date, Description: "tomato harvested", Category: "harvest"},
				{Date: date, Description: "loan payment", Category: "finance"},
			},
		})
	}
	require.NoError(t, db.SaveDays(run.ID, days))
	require.NoError(t, db.SaveSnapshot(run.ID, engine.Snapshot{Date: timeseries.Date(2024, 2, 1), Days: 2}))
	require.NoError(t, db.SaveMeta(run.ID, "status", "complete"))
	return db, run.ID
}

func get(t *testing.T, h http.Handler, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestRunEndpoints(t *testing.T) {
	db, id := seeded(t)
	h := (&Server{DB: db}).Handler()

	var runs []persistence.Run
	assert.Equal(t, http.StatusOK, get(t, h, "/api/v1/runs", &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)

	var detail struct {
		Run    persistence.Run `json:"run"`
		Status string          `json:"status"`
	}
	assert.Equal(t, http.StatusOK, get(t, h, "/api/v1/runs/"+id, &detail))
	assert.Equal(t, "complete", detail.Status)

	var monthly []accounting.Totals
	assert.Equal(t, http.StatusOK, get(t, h, "/api/v1/runs/"+id+"/summary?period=month", &monthly))
	require.Len(t, monthly, 4)
	assert.Equal(t, "2024-01", monthly[0].Period)
	assert.Equal(t, "2024-02", monthly[1].Period)

	var lifetime []accounting.Totals
	assert.Equal(t, http.StatusOK, get(t, h, "/api/v1/runs/"+id+"/summary?period=lifetime", &lifetime))
	require.Len(t, lifetime, 2)
	assert.Equal(t, 20.0, lifetime[0].Revenue)
	assert.Equal(t, 12.0, lifetime[0].ClosingCash)

	var snap engine.Snapshot
	assert.Equal(t, http.StatusOK, get(t, h, "/api/v1/runs/"+id+"/snapshot", &snap))
	assert.Equal(t, 2, snap.Days)

	var events []engine.Event
	assert.Equal(t, http.StatusOK, get(t, h, "/api/v1/runs/"+id+"/events?category=finance", &events))
	require.NotEmpty(t, events)
	for _, e := range events {
		assert.Equal(t, "finance", e.Category)
	}

	// The newest event is finance; the category applies before the limit.
	events = nil
	assert.Equal(t, http.StatusOK, get(t, h, "/api/v1/runs/"+id+"/events?limit=1&category=harvest", &events))
	require.Len(t, events, 1)
	assert.Equal(t, "harvest", events[0].Category)
	assert.Equal(t, timeseries.Date(2024, 2, 1), events[0].Date)

	var farm []accounting.FarmRecord
	assert.Equal(t, http.StatusOK, get(t, h, "/api/v1/runs/"+id+"/farms/b", &farm))
	require.Len(t, farm, 2)
	assert.Equal(t, -2.0, farm[1].CashBalance)

	var community []accounting.CommunityRecord
	assert.Equal(t, http.StatusOK, get(t, h, "/api/v1/runs/"+id+"/community", &community))
	assert.Len(t, community, 2)
}

func TestErrorResponses(t *testing.T) {
	db, id := seeded(t)
	h := (&Server{DB: db}).Handler()

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/runs/missing", nil))
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/runs/missing/snapshot", nil))
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/runs/"+id+"/farms/zzz", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/runs/"+id+"/summary?period=week", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecordEndpointsAreRateLimited(t *testing.T) {
	db, id := seeded(t)
	h := (&Server{DB: db, Limiter: NewRateLimiter(2, time.Hour)}).Handler()

	path := "/api/v1/runs/" + id + "/community"
	assert.Equal(t, http.StatusOK, get(t, h, path, nil))
	assert.Equal(t, http.StatusOK, get(t, h, path, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Summaries are not limited.
	assert.Equal(t, http.StatusOK, get(t, h, "/api/v1/runs/"+id+"/summary", nil))
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))
	assert.Equal(t, 61, rl.RetryAfter("1.2.3.4"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("1.2.3.4"))

	now = now.Add(5 * time.Minute)
	assert.True(t, rl.Allow("9.9.9.9"))
	rl.mu.Lock()
	assert.Len(t, rl.buckets, 1)
	rl.mu.Unlock()
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(r))
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(r))
}
