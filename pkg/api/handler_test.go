package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/jdziat/simple-refresh/pkg/activity"
	"github.com/jdziat/simple-refresh/pkg/coordinator"
	"github.com/jdziat/simple-refresh/pkg/core"
	"github.com/jdziat/simple-refresh/pkg/storage"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type apiFixture struct {
	handler http.Handler
	coord   *coordinator.Coordinator
	clock   *testingclock.FakeClock
	store   *storage.GormStorage
}

func setupAPITest(t *testing.T, opts ...Option) *apiFixture {
	t.Helper()
	clk := testingclock.NewFakeClock(epoch)
	coord := coordinator.New(coordinator.WithClock(clk))
	t.Cleanup(coord.Close)

	_, err := coord.Register(core.KindTable, core.FetcherFunc(func(ctx context.Context) ([]byte, error) {
		return []byte(`[]`), nil
	}))
	require.NoError(t, err)

	return &apiFixture{
		handler: Handler(coord, opts...),
		coord:   coord,
		clock:   clk,
	}
}

func setupAPITestWithStorage(t *testing.T) *apiFixture {
	t.Helper()
	db, err := storage.Open(storage.DriverSQLite, ":memory:")
	require.NoError(t, err)

	store := storage.NewGormStorage(db)
	require.NoError(t, store.Migrate(context.Background()))

	f := setupAPITest(t, WithStorage(store))
	f.store = store
	return f
}

func (f *apiFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rw := httptest.NewRecorder()
	f.handler.ServeHTTP(rw, req)
	return rw
}

func decode[T any](t *testing.T, rw *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &v), rw.Body.String())
	return v
}

func TestPostActivity_EditorPauses(t *testing.T) {
	f := setupAPITest(t)

	rw := f.do(http.MethodPost, "/activity",
		`{"type":"focusin","target":{"tag":"input","classes":["add-row-input"]}}`)

	require.Equal(t, http.StatusAccepted, rw.Code)
	assert.Equal(t, "application/json", rw.Header().Get("Content-Type"))
	assert.Equal(t, ActivityResponse{Noted: true, Paused: true}, decode[ActivityResponse](t, rw))
	assert.True(t, f.coord.IsPaused())
}

func TestPostActivity_IgnoredInteraction(t *testing.T) {
	f := setupAPITest(t)

	rw := f.do(http.MethodPost, "/activity", `{"type":"click","target":{"tag":"button","label":"Delete"}}`)

	require.Equal(t, http.StatusAccepted, rw.Code)
	assert.Equal(t, ActivityResponse{}, decode[ActivityResponse](t, rw))
}

func TestPostActivity_GlobalScopeTracker(t *testing.T) {
	f := setupAPITest(t)
	f.handler = Handler(f.coord, WithTracker(activity.NewTracker(f.coord, activity.WithScope(activity.ScopeGlobal))))

	rw := f.do(http.MethodPost, "/activity", `{"type":"click","target":{"tag":"button","label":"Delete"}}`)

	assert.True(t, decode[ActivityResponse](t, rw).Noted)
}

func TestPostActivity_BadJSON(t *testing.T) {
	f := setupAPITest(t)

	rw := f.do(http.MethodPost, "/activity", `{"type":`)

	assert.Equal(t, http.StatusBadRequest, rw.Code)
	assert.Equal(t, "invalid JSON body", decode[ErrorResponse](t, rw).Error)
}

func TestPostResume(t *testing.T) {
	f := setupAPITest(t)
	f.coord.NoteActivity()

	rw := f.do(http.MethodPost, "/resume", "")

	require.Equal(t, http.StatusOK, rw.Code)
	assert.False(t, decode[MutationResponse](t, rw).Paused)
	assert.False(t, f.coord.IsPaused())
}

func TestPostMutation(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantCode    int
		wantResumed bool
	}{
		{"successful update resumes", `{"method":"PUT","status":200}`, http.StatusOK, true},
		{"failed create keeps pause", `{"method":"POST","status":422}`, http.StatusOK, false},
		{"read keeps pause", `{"method":"GET","status":200}`, http.StatusOK, false},
		{"missing fields", `{}`, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupAPITest(t)
			f.coord.NoteActivity()

			rw := f.do(http.MethodPost, "/mutations", tt.body)

			require.Equal(t, tt.wantCode, rw.Code)
			if tt.wantCode == http.StatusOK {
				resp := decode[MutationResponse](t, rw)
				assert.Equal(t, tt.wantResumed, resp.Resumed)
				assert.Equal(t, !tt.wantResumed, resp.Paused)
			}
		})
	}
}

func TestGetStatus(t *testing.T) {
	f := setupAPITest(t)
	f.coord.NoteActivity()

	rw := f.do(http.MethodGet, "/status", "")

	require.Equal(t, http.StatusOK, rw.Code)
	resp := decode[StatusResponse](t, rw)
	assert.True(t, resp.Paused)
	require.NotNil(t, resp.PausedUntil)
	assert.True(t, epoch.Add(3*time.Minute).Equal(*resp.PausedUntil))
	assert.Equal(t, activity.ScopeEditors, resp.Scope)
	require.Len(t, resp.Refreshers, 1)
	assert.Equal(t, core.KindTable, resp.Refreshers[0].Kind)
}

func TestPostRefresh(t *testing.T) {
	f := setupAPITest(t)

	rw := f.do(http.MethodPost, "/refresh/table", "")
	f.coord.Wait()

	require.Equal(t, http.StatusAccepted, rw.Code)
	assert.Equal(t, RefreshResponse{Kind: core.KindTable, Outcome: core.OutcomeStarted}, decode[RefreshResponse](t, rw))
}

func TestPostRefresh_PausedIsSkipped(t *testing.T) {
	f := setupAPITest(t)
	f.coord.NoteActivity()

	rw := f.do(http.MethodPost, "/refresh/table", "")

	require.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, core.OutcomeSkippedPaused, decode[RefreshResponse](t, rw).Outcome)
}

func TestPostRefresh_AfterShutdown(t *testing.T) {
	f := setupAPITest(t)
	f.coord.Shutdown()

	rw := f.do(http.MethodPost, "/refresh/table", "")

	assert.Equal(t, http.StatusServiceUnavailable, rw.Code)
	assert.Equal(t, core.OutcomeSkippedClosed, decode[RefreshResponse](t, rw).Outcome)
}

func TestPostRefresh_UnknownKind(t *testing.T) {
	f := setupAPITest(t)

	rw := f.do(http.MethodPost, "/refresh/ghost", "")

	assert.Equal(t, http.StatusNotFound, rw.Code)
}

func TestStorageRoutes_DisabledWithoutStorage(t *testing.T) {
	f := setupAPITest(t)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/snapshots/table", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/stats", "").Code)
}

func TestGetSnapshot(t *testing.T) {
	f := setupAPITestWithStorage(t)
	ctx := context.Background()

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/snapshots/table", "").Code)

	require.NoError(t, f.store.SaveSnapshot(ctx, core.KindTable, []byte(`{"rows":[1]}`), epoch))

	rw := f.do(http.MethodGet, "/snapshots/table", "")
	require.Equal(t, http.StatusOK, rw.Code)
	resp := decode[SnapshotResponse](t, rw)
	assert.Equal(t, "table", resp.Kind)
	assert.JSONEq(t, `{"rows":[1]}`, string(resp.Payload))
}

func TestGetStats(t *testing.T) {
	f := setupAPITestWithStorage(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, f.store.UpsertStatCounters(ctx, core.KindLog, now, storage.Counters{Started: 2, Succeeded: 2}))
	require.NoError(t, f.store.UpsertStatCounters(ctx, core.KindTable, now, storage.Counters{SkippedPaused: 1}))
	require.NoError(t, f.store.UpsertStatCounters(ctx, core.KindLog, now.Add(-3*time.Hour), storage.Counters{Started: 9}))

	rw := f.do(http.MethodGet, "/stats?kind=log", "")
	require.Equal(t, http.StatusOK, rw.Code)
	stats := decode[[]storage.RefreshStat](t, rw)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(2), stats[0].Started)

	rw = f.do(http.MethodGet, "/stats?since=4h", "")
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Len(t, decode[[]storage.RefreshStat](t, rw), 3)

	rw = f.do(http.MethodGet, "/stats?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rw.Code)
}

func TestParseSince(t *testing.T) {
	now := epoch

	got, err := parseSince("", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-time.Hour), got)

	got, err = parseSince("30m", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-30*time.Minute), got)

	got, err = parseSince("2024-01-01T10:00:00Z", now)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))
}

func TestWithMiddleware(t *testing.T) {
	f := setupAPITest(t)
	f.handler = Handler(f.coord, WithMiddleware(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Token") != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}))

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/status", "").Code)
}

func TestWithMetrics(t *testing.T) {
	f := setupAPITest(t)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/metrics", "").Code)

	f.handler = Handler(f.coord, WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("refresh_paused 0\n"))
	})))

	rw := f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, "refresh_paused 0\n", rw.Body.String())
}
