package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/leadcrm/internal/config"
	"github.com/JonMunkholm/leadcrm/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService records the arguments it receives and answers with canned
// values. errs is keyed by method name.
type fakeService struct {
	errs    map[string]error
	pingErr error
	limiter *core.UploadLimiter

	leads []core.Lead

	gotScope    core.LeadScope
	gotLead     core.LeadInput
	gotUpdate   core.LeadUpdate
	gotID       string
	gotAssignee string
	gotCSV      []byte
	gotLink     string
	imports     int
}

var _ Service = (*fakeService)(nil)

func newFakeService() *fakeService {
	return &fakeService{
		errs:    map[string]error{},
		limiter: core.NewUploadLimiter(2, time.Second),
	}
}

func (f *fakeService) Ping(context.Context) error { return f.pingErr }

func (f *fakeService) Limiter() *core.UploadLimiter { return f.limiter }

func (f *fakeService) ListLeads(_ context.Context, scope core.LeadScope) ([]core.Lead, error) {
	f.gotScope = scope
	return f.leads, f.errs["ListLeads"]
}

func (f *fakeService) CreateLead(_ context.Context, in core.LeadInput, scope core.LeadScope) (*core.Lead, error) {
	f.gotLead, f.gotScope = in, scope
	if err := f.errs["CreateLead"]; err != nil {
		return nil, err
	}
	return &core.Lead{ID: "l1", FullName: in.FullName, Email: in.Email, Phone: in.Phone}, nil
}

func (f *fakeService) UpdateLead(_ context.Context, id string, in core.LeadUpdate) (*core.Lead, error) {
	f.gotID, f.gotUpdate = id, in
	if err := f.errs["UpdateLead"]; err != nil {
		return nil, err
	}
	return &core.Lead{ID: id, FullName: in.FullName, Status: in.Status}, nil
}

func (f *fakeService) AssignLead(_ context.Context, id, assignedTo string) (*core.Lead, error) {
	f.gotID, f.gotAssignee = id, assignedTo
	if err := f.errs["AssignLead"]; err != nil {
		return nil, err
	}
	return &core.Lead{ID: id, AssignedTo: &assignedTo}, nil
}

func (f *fakeService) DeleteLead(_ context.Context, id string) error {
	f.gotID = id
	return f.errs["DeleteLead"]
}

func (f *fakeService) ImportLeadsCSV(_ context.Context, data []byte) (core.IngestResult, error) {
	f.imports++
	f.gotCSV = data
	return core.IngestResult{Total: 1, Inserted: 1}, f.errs["ImportLeadsCSV"]
}

func (f *fakeService) ImportLeadsFromSheet(_ context.Context, link string) (core.IngestResult, error) {
	f.imports++
	f.gotLink = link
	return core.IngestResult{Total: 1, Inserted: 1}, f.errs["ImportLeadsFromSheet"]
}

func (f *fakeService) ListUsers(context.Context) ([]core.User, error) {
	return []core.User{{ID: "u1", DisplayName: "Asha", Role: core.RoleAdmin}}, f.errs["ListUsers"]
}

func (f *fakeService) CreateUser(_ context.Context, in core.UserInput) (*core.User, error) {
	if err := f.errs["CreateUser"]; err != nil {
		return nil, err
	}
	return &core.User{ID: "u2", DisplayName: in.DisplayName, Email: in.Email, Role: in.Role}, nil
}

func (f *fakeService) UpdateUser(_ context.Context, id string, in core.UserInput) (*core.User, error) {
	f.gotID = id
	if err := f.errs["UpdateUser"]; err != nil {
		return nil, err
	}
	return &core.User{ID: id, DisplayName: in.DisplayName}, nil
}

func (f *fakeService) DeleteUser(_ context.Context, id string) error {
	f.gotID = id
	return f.errs["DeleteUser"]
}

func (f *fakeService) ListTeams(context.Context) ([]core.Team, error) {
	return []core.Team{{ID: "t1", Name: "North"}}, f.errs["ListTeams"]
}

func (f *fakeService) CreateTeam(_ context.Context, in core.TeamInput) (*core.Team, error) {
	if err := f.errs["CreateTeam"]; err != nil {
		return nil, err
	}
	return &core.Team{ID: "t2", Name: in.Name}, nil
}

func (f *fakeService) DeleteTeam(_ context.Context, id string) error {
	f.gotID = id
	return f.errs["DeleteTeam"]
}

func (f *fakeService) ListLocations(context.Context) ([]core.Location, error) {
	return []core.Location{{ID: "loc1", Name: "Pune"}}, f.errs["ListLocations"]
}

func (f *fakeService) CreateLocation(_ context.Context, in core.LocationInput) (*core.Location, error) {
	if err := f.errs["CreateLocation"]; err != nil {
		return nil, err
	}
	return &core.Location{ID: "loc2", Name: in.Name}, nil
}

func (f *fakeService) DeleteLocation(_ context.Context, id string) error {
	f.gotID = id
	return f.errs["DeleteLocation"]
}

// =============================================================================
// Helpers
// =============================================================================

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(func(key string) string {
		if v, ok := env[key]; ok {
			return v
		}
		if key == "DATABASE_URL" {
			return "postgres://crm@localhost:5432/leads"
		}
		return ""
	})
	require.NoError(t, err)
	return cfg
}

func newTestServer(t *testing.T, svc Service, env map[string]string) *Server {
	t.Helper()
	s := NewServer(svc, testConfig(t, env))
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func multipartUpload(t *testing.T, field, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, "leads.csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postUpload(t *testing.T, s *Server, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/leads/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// Routing and middleware
// =============================================================================

func TestServer_UnknownRoute(t *testing.T) {
	s := newTestServer(t, newFakeService(), nil)

	for _, target := range []string{"/nope", "/api/nope", "/api/leads/1/unknown"} {
		rec := do(t, s, http.MethodGet, target, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Equal(t, "Route not found", decodeError(t, rec).Error, target)
	}
}

func TestServer_SecurityHeaders(t *testing.T) {
	s := newTestServer(t, newFakeService(), nil)

	rec := do(t, s, http.MethodGet, "/api/leads", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	s = newTestServer(t, newFakeService(), map[string]string{"SECURITY_ENABLE_CSP": "false"})
	rec = do(t, s, http.MethodGet, "/api/leads", "")
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestServer_CORSPreflight(t *testing.T) {
	s := newTestServer(t, newFakeService(), map[string]string{"CORS_ALLOWED_ORIGINS": "http://localhost:5173"})

	req := httptest.NewRequest(http.MethodOptions, "/api/leads", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_APIKeyRequired(t *testing.T) {
	s := newTestServer(t, newFakeService(), map[string]string{
		"REQUIRE_API_KEY": "true",
		"API_KEYS":        "k1,k2",
	})

	rec := do(t, s, http.MethodGet, "/api/leads", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	req.Header.Set("X-API-Key", "k2")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays reachable for probes.
	rec = do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RateLimit(t *testing.T) {
	s := newTestServer(t, newFakeService(), map[string]string{"RATE_LIMIT_REQUESTS_PER_MINUTE": "2"})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/leads", "").Code)
	}
	rec := do(t, s, http.MethodGet, "/api/leads", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_WindowReset(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)
	defer rl.stop()

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("192.0.2.1"))
	assert.False(t, rl.allow("192.0.2.1"))
	assert.True(t, rl.allow("192.0.2.2"), "limits are per client")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("192.0.2.1"))
}

func TestServer_Health(t *testing.T) {
	svc := newFakeService()
	s := newTestServer(t, svc, nil)

	rec := do(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Uploads.MaxConcurrent)

	svc.pingErr = errors.New("dial tcp: connection refused")
	rec = do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t, newFakeService(), nil)

	do(t, s, http.MethodGet, "/api/leads", "")
	rec := do(t, s, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/api/leads"`)
}
