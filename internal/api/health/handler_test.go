package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/good-yellow-bee/alertd/internal/monitor"
)

type fakeSource struct {
	stats   monitor.Stats
	journal bool
}

func (f fakeSource) Stats() monitor.Stats  { return f.stats }
func (f fakeSource) JournalEnabled() bool { return f.journal }

type slowChecker struct{}

func (slowChecker) Name() string { return "slow" }
func (slowChecker) Check(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var resp T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	src := fakeSource{stats: monitor.Stats{Rules: 8, Channels: 5, ActiveAlerts: 2}}
	h := NewHandler(src, "v1.2.3")
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode[StatusResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "v1.2.3", resp.Version)
	assert.Equal(t, 8, resp.Rules)
	assert.Equal(t, 5, resp.Channels)
	assert.Equal(t, 2, resp.FiringAlerts)
	assert.Equal(t, "disabled", resp.Journal)
}

func TestHealthDegradedWhenJournalDrops(t *testing.T) {
	src := fakeSource{stats: monitor.Stats{JournalDropped: 3}, journal: true}
	h := NewHandler(src, "")
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode[StatusResponse](t, rec)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "enabled", resp.Journal)
	assert.Equal(t, int64(3), resp.JournalDropped)
}

func TestHealthWithoutSource(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(nil, "").Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "ok", decode[StatusResponse](t, rec).Status)
}

func TestReady(t *testing.T) {
	running := true
	h := NewHandler(nil, "")
	h.RegisterChecker(NewRunningChecker("engine", func() bool { return running }))

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ReadyResponse](t, rec)
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "ok", resp.Checks["engine"].Status)

	running = false
	rec = httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp = decode[ReadyResponse](t, rec)
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "fail", resp.Checks["engine"].Status)
	assert.Equal(t, "engine not running", resp.Checks["engine"].Error)
}

func TestReadyTimesOutSlowChecks(t *testing.T) {
	h := NewHandler(nil, "")
	h.RegisterChecker(slowChecker{})
	h.RegisterChecker(NewRunningChecker("engine", func() bool { return true }))

	start := time.Now()
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Less(t, time.Since(start), CheckTimeout+2*time.Second)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[ReadyResponse](t, rec)
	assert.Equal(t, "fail", resp.Checks["slow"].Status)
	assert.Equal(t, "ok", resp.Checks["engine"].Status)
}

func TestSQLiteChecker(t *testing.T) {
	assert.Error(t, NewSQLiteChecker(nil).Check(context.Background()))

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "health.db"))
	require.NoError(t, err)
	c := NewSQLiteChecker(db)
	assert.Equal(t, "sqlite", c.Name())
	assert.NoError(t, c.Check(context.Background()))

	require.NoError(t, db.Close())
	assert.Error(t, c.Check(context.Background()))
}
