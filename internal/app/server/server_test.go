package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapleerp/internal/domain/employees"
	"mapleerp/internal/platform/config"
	"mapleerp/internal/platform/db"
	"mapleerp/internal/platform/metrics"
	"mapleerp/internal/platform/render"
)

type memoryStore struct {
	mu   sync.Mutex
	rows []employees.Employee
}

func (m *memoryStore) Create(_ context.Context, emp employees.NewEmployee) (*employees.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := employees.Employee{
		ID: int64(len(m.rows) + 1), FullName: emp.FullName, TagName: emp.TagName, TagLastName: emp.TagLastName,
		JobFunctions: emp.JobFunctions, Status: emp.Status, PhotoURL: emp.PhotoURL, CreatedAt: time.Now(),
	}
	m.rows = append(m.rows, row)
	return &row, nil
}

func (m *memoryStore) Get(_ context.Context, id int64) (*employees.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == id {
			return &row, nil
		}
	}
	return nil, employees.ErrNotFound
}

func (m *memoryStore) List(context.Context) ([]employees.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]employees.Employee(nil), m.rows...), nil
}

func (m *memoryStore) Search(ctx context.Context, _ employees.SearchFilter) ([]employees.Employee, int, error) {
	rows, _ := m.List(ctx)
	return rows, len(rows), nil
}

func (m *memoryStore) Update(ctx context.Context, id int64, _ map[string]any) (*employees.Employee, error) {
	return m.Get(ctx, id)
}

func (m *memoryStore) Delete(context.Context, int64) error { return nil }

func (m *memoryStore) ListByStatus(ctx context.Context, _ string) ([]employees.Employee, error) {
	return m.List(ctx)
}

func (m *memoryStore) ListByIDs(ctx context.Context, ids []int64) ([]employees.Employee, error) {
	var out []employees.Employee
	for _, id := range ids {
		if emp, err := m.Get(ctx, id); err == nil {
			out = append(out, *emp)
		}
	}
	return out, nil
}

func (m *memoryStore) Ping(context.Context) error { return nil }

type stubPhotos struct{}

func (stubPhotos) Upload(context.Context, []byte, string) (string, error) {
	return "/placeholder.jpg", nil
}

func testConfig() config.Config {
	return config.Config{
		Environment:        "test",
		Version:            "test",
		MaxBodyBytes:       6 * 1024 * 1024,
		UploadTimeout:      5 * time.Second,
		RenderTimeout:      10 * time.Second,
		PhotoFetchTimeout:  time.Second,
		RateLimitPerMinute: 1000,
		CORSAllowedOrigins: []string{"http://localhost:5173"},
		MetricsEnabled:     true,
	}
}

func newTestServer(t *testing.T, cfg config.Config, store employees.StoreAPI) *httptest.Server {
	t.Helper()
	router := NewRouter(cfg, Dependencies{
		Store:   store,
		Photos:  stubPhotos{},
		Engine:  render.NewPDFEngine(cfg.PhotoFetchTimeout),
		Metrics: metrics.New(),
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func createEmployee(t *testing.T, ts *httptest.Server, fullName string) int64 {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range map[string]string{
		"fullName": fullName, "tagName": "Ana", "tagLastName": "Souza", "jobFunctions": "Analista",
	} {
		require.NoError(t, writer.WriteField(name, value))
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="ana.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, _ = part.Write([]byte{0xff, 0xd8, 0xff, 0xd9})
	require.NoError(t, writer.Close())

	resp, err := ts.Client().Post(ts.URL+"/employees", writer.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var env struct {
		Data employees.Employee `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env.Data.ID
}

func TestEmployeeBadgeJourney(t *testing.T) {
	ts := newTestServer(t, testConfig(), &memoryStore{})

	first := createEmployee(t, ts, "Ana Souza")
	second := createEmployee(t, ts, "Ana Lima")

	resp, err := ts.Client().Get(fmt.Sprintf("%s/employees/%d/badge", ts.URL, first))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	payload := fmt.Sprintf(`{"employeeIds":[%d,%d,%d]}`, first, second, second)
	resp, err = ts.Client().Post(ts.URL+"/employees/badges", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	resp, err = ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `maple_badges_rendered_total{kind="batch"} 2`)
	assert.Contains(t, string(body), `maple_photo_uploads_total{outcome="success"} 2`)
}

func TestMiddlewareStack(t *testing.T) {
	ts := newTestServer(t, testConfig(), &memoryStore{})

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	preflight, err := http.NewRequest(http.MethodOptions, ts.URL+"/employees/badges", nil)
	require.NoError(t, err)
	preflight.Header.Set("Origin", "http://localhost:5173")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err = ts.Client().Do(preflight)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestBadgeRoutesAreRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerMinute = 1
	ts := newTestServer(t, cfg, &memoryStore{})

	statuses := make([]int, 0, 2)
	for range 2 {
		resp, err := ts.Client().Post(ts.URL+"/employees/badges", "application/json", strings.NewReader(`{"employeeIds":[1]}`))
		require.NoError(t, err)
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusNotFound, http.StatusTooManyRequests}, statuses)

	resp, err := ts.Client().Get(ts.URL + "/employees")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEmployeeJourneyAgainstDatabase(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	cfg := testConfig()
	cfg.DatabaseURL = dbURL

	pool, err := db.Connect(ctx, cfg)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, db.Migrate(ctx, pool, "../../../migrations"))

	ts := newTestServer(t, cfg, employees.NewStore(pool))
	name := fmt.Sprintf("Journey %d", time.Now().UnixNano())
	id := createEmployee(t, ts, name)

	resp, err := ts.Client().Get(fmt.Sprintf("%s/employees/%d/badge", ts.URL, id))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/employees/%d", ts.URL, id), nil)
	require.NoError(t, err)
	resp, err = ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
