package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tunedex/internal/domain"
	"github.com/kailas-cloud/tunedex/internal/domain/search"
	"github.com/kailas-cloud/tunedex/internal/usecase/backfill"
	healthuc "github.com/kailas-cloud/tunedex/internal/usecase/health"
	"github.com/kailas-cloud/tunedex/internal/usecase/schedule"
)

type mockSearch struct {
	resp *search.Response
	err  error

	gotQuery    string
	gotPage     int
	gotPageSize int
}

func (m *mockSearch) Search(_ context.Context, query string, page, pageSize int) (*search.Response, error) {
	m.gotQuery = query
	m.gotPage = page
	m.gotPageSize = pageSize
	return m.resp, m.err
}

type mockScheduler struct {
	decision  schedule.Decision
	decisions []schedule.Decision
}

func (m *mockScheduler) ScheduleTrack(context.Context, schedule.Track) schedule.Decision {
	return m.decision
}

func (m *mockScheduler) ScheduleAlbum(context.Context, []schedule.Track) []schedule.Decision {
	return m.decisions
}

type mockDispatcher struct {
	accepted bool
	got      domain.IngestionRequest
}

func (m *mockDispatcher) Dispatch(req domain.IngestionRequest) bool {
	m.got = req
	return m.accepted
}

type mockBackfill struct {
	progress  backfill.Progress
	startErr  error
	statusErr error
}

func (m *mockBackfill) Start(context.Context) (backfill.Progress, error) {
	return m.progress, m.startErr
}

func (m *mockBackfill) Status(context.Context) (backfill.Progress, error) {
	return m.progress, m.statusErr
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report {
	return m.report
}

type serverDeps struct {
	search     *mockSearch
	scheduler  *mockScheduler
	dispatcher *mockDispatcher
	backfill   *mockBackfill
	health     *mockHealth
}

func newTestServer(deps serverDeps) http.Handler {
	if deps.search == nil {
		deps.search = &mockSearch{}
	}
	if deps.scheduler == nil {
		deps.scheduler = &mockScheduler{}
	}
	if deps.dispatcher == nil {
		deps.dispatcher = &mockDispatcher{}
	}
	if deps.backfill == nil {
		deps.backfill = &mockBackfill{}
	}
	if deps.health == nil {
		deps.health = &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	}

	srv := NewServer(deps.search, deps.scheduler, deps.dispatcher, deps.backfill, deps.health, zap.NewNop())
	r := chi.NewRouter()
	srv.Register(r)
	return r
}

func request(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleSearch_OK(t *testing.T) {
	ms := &mockSearch{resp: &search.Response{
		Query:        "rainy night drives",
		Results:      []search.Result{{ISRC: "USRC11700001", Title: "Night Drive"}},
		Page:         2,
		PageSize:     10,
		TotalResults: 25,
		HasMore:      true,
	}}
	handler := newTestServer(serverDeps{search: ms})

	rec := request(t, handler, http.MethodPost, "/api/v1/search",
		`{"query": "rainy night drives", "page": 2, "page_size": 10}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if ms.gotQuery != "rainy night drives" || ms.gotPage != 2 || ms.gotPageSize != 10 {
		t.Errorf("search called with (%q, %d, %d)", ms.gotQuery, ms.gotPage, ms.gotPageSize)
	}

	var resp search.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 1 || !resp.HasMore {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		code       search.Code
		wantStatus int
	}{
		{search.CodeEmptyQuery, http.StatusBadRequest},
		{search.CodeLLMUnavailable, http.StatusBadGateway},
		{search.CodeEmbeddingUnavailable, http.StatusBadGateway},
		{search.CodeIndexUnavailable, http.StatusServiceUnavailable},
		{search.CodeTimeout, http.StatusGatewayTimeout},
		{search.CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			ms := &mockSearch{err: &search.Error{Code: tt.code, Message: "boom", Retryable: true}}
			handler := newTestServer(serverDeps{search: ms})

			rec := request(t, handler, http.MethodPost, "/api/v1/search", `{"query": "x"}`)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var serr search.Error
			if err := json.Unmarshal(rec.Body.Bytes(), &serr); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if serr.Code != tt.code || !serr.Retryable {
				t.Errorf("body = %+v", serr)
			}
		})
	}
}

func TestHandleSearch_UnclassifiedError(t *testing.T) {
	ms := &mockSearch{err: errors.New("wires crossed")}
	handler := newTestServer(serverDeps{search: ms})

	rec := request(t, handler, http.MethodPost, "/api/v1/search", `{"query": "x"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestHandleSearch_BadBody(t *testing.T) {
	handler := newTestServer(serverDeps{})

	rec := request(t, handler, http.MethodPost, "/api/v1/search", `{"query":`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleIngest_Accepted(t *testing.T) {
	md := &mockDispatcher{accepted: true}
	handler := newTestServer(serverDeps{dispatcher: md})

	rec := request(t, handler, http.MethodPost, "/api/v1/tracks/ingest",
		`{"isrc": "usrc11700001", "title": "Night Drive", "artist": "The Headlights", "force": true}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body.String())
	}
	if md.got.ISRC != "USRC11700001" {
		t.Errorf("ISRC = %q, want normalized USRC11700001", md.got.ISRC)
	}
	if !md.got.Force {
		t.Error("force flag not carried")
	}

	var resp ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Accepted {
		t.Error("accepted = false")
	}
}

func TestHandleIngest_InvalidISRC(t *testing.T) {
	handler := newTestServer(serverDeps{})

	rec := request(t, handler, http.MethodPost, "/api/v1/tracks/ingest", `{"isrc": "nope"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleScheduleAlbum(t *testing.T) {
	msch := &mockScheduler{decisions: []schedule.Decision{
		{ISRC: "USRC11700001", Scheduled: true},
		{ISRC: "USRC11700002", Scheduled: false, Reason: "already indexed"},
	}}
	handler := newTestServer(serverDeps{scheduler: msch})

	rec := request(t, handler, http.MethodPost, "/api/v1/albums/schedule",
		`{"tracks": [{"isrc": "USRC11700001"}, {"isrc": "USRC11700002"}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp scheduleAlbumResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Scheduled != 1 || len(resp.Decisions) != 2 {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleScheduleAlbum_EmptyTracks(t *testing.T) {
	handler := newTestServer(serverDeps{})

	rec := request(t, handler, http.MethodPost, "/api/v1/albums/schedule", `{"tracks": []}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleBackfillStart_Conflict(t *testing.T) {
	mb := &mockBackfill{startErr: backfill.ErrAlreadyRunning}
	handler := newTestServer(serverDeps{backfill: mb})

	rec := request(t, handler, http.MethodPost, "/api/v1/backfill", "")

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestHandleBackfillStatus_NotFound(t *testing.T) {
	mb := &mockBackfill{statusErr: domain.ErrNotFound}
	handler := newTestServer(serverDeps{backfill: mb})

	rec := request(t, handler, http.MethodGet, "/api/v1/backfill", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleHealth_Degraded(t *testing.T) {
	mh := &mockHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"redis": healthuc.CheckError},
	}}
	handler := newTestServer(serverDeps{health: mh})

	rec := request(t, handler, http.MethodGet, "/health", "")

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
