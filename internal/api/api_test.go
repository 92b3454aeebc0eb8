package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-reaper/internal/database"
	"file-reaper/internal/limiter"
	"file-reaper/internal/metrics"
)

type call struct {
	op    string
	paths []string
	delay float64
}

type fakeReaper struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeReaper) DeleteImmediately(path string) {
	f.record(call{op: "immediate", paths: []string{path}})
}

func (f *fakeReaper) DeleteWithDelay(path string, delaySeconds float64) {
	f.record(call{op: "delayed", paths: []string{path}, delay: delaySeconds})
}

func (f *fakeReaper) DeleteMultipleWithDelay(paths []string, delaySeconds float64) {
	f.record(call{op: "batch", paths: paths, delay: delaySeconds})
}

func (f *fakeReaper) Pending() int64 { return 3 }

func (f *fakeReaper) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeReaper) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type fakeHistory struct {
	records []database.DeletionRecord
	err     error

	gotAction string
	gotLimit  int
	gotOffset int
}

func (f *fakeHistory) GetRecentDeletionsPaginated(action string, limit, offset int) ([]database.DeletionRecord, int, error) {
	f.gotAction, f.gotLimit, f.gotOffset = action, limit, offset
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.records, len(f.records), nil
}

func newTestRouter(r Reaper, h History) http.Handler {
	return NewRouter(Options{
		Reaper:       r,
		History:      h,
		MaxBodyBytes: 1 << 10,
		Logger:       zerolog.Nop(),
	})
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/delete", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDeleteDispatch(t *testing.T) {
	tests := []struct {
		name string
		body string
		want call
		mode string
	}{
		{
			name: "single path without delay is immediate",
			body: `{"paths":["/tmp/a"]}`,
			want: call{op: "immediate", paths: []string{"/tmp/a"}},
			mode: "immediate",
		},
		{
			name: "single path with delay",
			body: `{"paths":["/tmp/a"],"delay_seconds":1.5}`,
			want: call{op: "delayed", paths: []string{"/tmp/a"}, delay: 1.5},
			mode: "delayed",
		},
		{
			name: "multiple paths are one batch",
			body: `{"paths":["/tmp/a","/tmp/b"],"delay_seconds":2}`,
			want: call{op: "batch", paths: []string{"/tmp/a", "/tmp/b"}, delay: 2},
			mode: "batch",
		},
		{
			name: "multiple paths without delay still batch",
			body: `{"paths":["/tmp/a","/tmp/b"]}`,
			want: call{op: "batch", paths: []string{"/tmp/a", "/tmp/b"}},
			mode: "batch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeReaper{}
			rec := post(t, newTestRouter(r, nil), tt.body)

			require.Equal(t, http.StatusAccepted, rec.Code)
			var resp DeleteResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, len(tt.want.paths), resp.Scheduled)
			assert.Equal(t, tt.mode, resp.Mode)
			assert.Equal(t, []call{tt.want}, r.Calls())
		})
	}
}

func TestDeleteRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"paths":`, http.StatusBadRequest},
		{"no paths", `{"paths":[]}`, http.StatusBadRequest},
		{"empty path", `{"paths":[""]}`, http.StatusBadRequest},
		{"negative delay", `{"paths":["/tmp/a"],"delay_seconds":-1}`, http.StatusBadRequest},
		{"unknown field", `{"paths":["/tmp/a"],"recursive":true}`, http.StatusBadRequest},
		{"body too large", `{"paths":["` + strings.Repeat("a", 2048) + `"]}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeReaper{}
			rec := post(t, newTestRouter(r, nil), tt.body)

			assert.Equal(t, tt.code, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
			assert.Empty(t, r.Calls(), "rejected requests must not reach the reaper")
		})
	}
}

func TestDeleteWrongMethod(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/delete", nil)
	rec := httptest.NewRecorder()
	newTestRouter(&fakeReaper{}, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMethodMismatchAndUnknownRoutes(t *testing.T) {
	tests := []struct {
		method string
		path   string
		code   int
	}{
		{http.MethodPost, "/api/v1/deletions", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/api/v1/health", http.StatusMethodNotAllowed},
		{http.MethodPut, "/api/v1/delete", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}

	router := newTestRouter(&fakeReaper{}, &fakeHistory{})
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	newTestRouter(&fakeReaper{}, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(3), body["pending"])
}

func TestDeletionsListing(t *testing.T) {
	h := &fakeHistory{records: []database.DeletionRecord{
		{ID: 2, Action: "DELETE", Path: "/tmp/b", Size: 10},
		{ID: 1, Action: "DELETE", Path: "/tmp/a", Size: 5},
	}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/deletions?limit=5000&offset=2&action=DELETE", nil)
	rec := httptest.NewRecorder()
	newTestRouter(&fakeReaper{}, h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DeletionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Deletions, 2)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, maxPageSize, resp.Limit)
	assert.Equal(t, 2, resp.Offset)

	assert.Equal(t, "DELETE", h.gotAction)
	assert.Equal(t, maxPageSize, h.gotLimit)
	assert.Equal(t, 2, h.gotOffset)
}

func TestDeletionsEmptyIsArray(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/deletions", nil)
	rec := httptest.NewRecorder()
	newTestRouter(&fakeReaper{}, &fakeHistory{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deletions":[]`)
}

func TestDeletionsErrors(t *testing.T) {
	tests := []struct {
		name    string
		history History
		query   string
		code    int
	}{
		{"history disabled", nil, "", http.StatusServiceUnavailable},
		{"bad limit", &fakeHistory{}, "?limit=abc", http.StatusBadRequest},
		{"zero limit", &fakeHistory{}, "?limit=0", http.StatusBadRequest},
		{"negative offset", &fakeHistory{}, "?offset=-1", http.StatusBadRequest},
		{"unknown action", &fakeHistory{}, "?action=SKIP", http.StatusBadRequest},
		{"query failure", &fakeHistory{err: errors.New("disk I/O error")}, "", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/deletions"+tt.query, nil)
			rec := httptest.NewRecorder()
			newTestRouter(&fakeReaper{}, tt.history).ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	l := limiter.NewClientLimiter(0.001, 2, time.Minute)
	defer l.Stop()

	router := NewRouter(Options{Reaper: &fakeReaper{}, Limiter: l, Logger: zerolog.Nop()})

	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:1002"), "same host shares a bucket across ports")
	assert.Equal(t, http.StatusOK, do("10.0.0.2:1000"), "other clients are unaffected")
}

func TestMetricsMiddlewareCountsByRoute(t *testing.T) {
	metrics.Init()

	before := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("/api/v1/health", http.MethodGet, "200"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	newTestRouter(&fakeReaper{}, nil).ServeHTTP(httptest.NewRecorder(), req)

	after := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("/api/v1/health", http.MethodGet, "200"))
	assert.Equal(t, before+1, after)
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", clientKey(req))

	req.RemoteAddr = "unix-socket"
	assert.Equal(t, "unix-socket", clientKey(req))
}
