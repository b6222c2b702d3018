package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeSummaryGenerator struct {
	summary   string
	err       error
	calls     int
	lastInput service.CheckInSummaryInput
}

func (f *fakeSummaryGenerator) GenerateCheckInSummary(ctx context.Context, input service.CheckInSummaryInput) (string, error) {
	f.calls++
	f.lastInput = input
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

func setupTestRouter(t *testing.T) (*gin.Engine, *API, func()) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(
		&db.User{}, &db.Organization{}, &db.OrgMembership{},
		&db.Experiment{}, &db.Field{}, &db.CheckIn{}, &db.FieldResponse{},
		&db.SystemSetting{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	db.DB = gdb
	api := NewAPI(db.DB)

	r := gin.New()
	r.Use(sessions.Sessions("selflab_session", cookie.NewStore([]byte("test-secret"))))

	v1 := r.Group("/api/v1")
	v1.POST("/auth/register", api.Register)
	v1.POST("/auth/login", api.Login)

	auth := v1.Group("")
	auth.Use(AuthRequired())
	auth.GET("/auth/me", api.Me)
	auth.POST("/experiments", api.CreateExperiment)
	auth.GET("/experiments/:id", api.GetExperiment)
	auth.POST("/experiments/:id/fields", api.AddField)
	auth.PUT("/experiments/:id/checkins", api.UpsertCheckIn)
	auth.GET("/experiments/:id/checkins", api.ListCheckIns)
	auth.GET("/experiments/:id/insights/summary", api.GetInsightsSummary)
	auth.GET("/experiments/:id/insights/trends", api.GetInsightsTrends)
	auth.GET("/experiments/:id/review", api.GetReview)
	auth.GET("/experiments/:id/export", api.ExportCheckIns)
	auth.POST("/orgs", api.CreateOrg)
	auth.GET("/orgs/:orgId/overview", api.GetOrgOverview)
	auth.GET("/orgs/:orgId/members", api.ListOrgMembers)
	auth.POST("/orgs/:orgId/members", api.AddOrgMember)
	auth.PUT("/orgs/:orgId/members/:userId/role", api.UpdateOrgMemberRole)
	auth.DELETE("/orgs/:orgId/members/:userId", api.RemoveOrgMember)
	auth.GET("/admin/settings", api.GetSettings)
	auth.PUT("/admin/settings", api.UpdateSettings)

	return r, api, func() {
		sqlDB, err := db.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

// sessionClient replays the session cookie across requests against the
// in-process engine.
type sessionClient struct {
	engine  *gin.Engine
	cookies []*http.Cookie
}

func (sc *sessionClient) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range sc.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	sc.engine.ServeHTTP(w, req)

	if set := w.Result().Cookies(); len(set) > 0 {
		sc.cookies = set
	}
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

func registerClient(t *testing.T, engine *gin.Engine, username string) *sessionClient {
	t.Helper()
	sc := &sessionClient{engine: engine}
	w := sc.do(t, http.MethodPost, "/api/v1/auth/register", map[string]any{
		"username": username,
		"password": "secret123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register failed with status %d: %s", w.Code, w.Body.String())
	}
	return sc
}

func createNumberExperiment(t *testing.T, sc *sessionClient) string {
	t.Helper()

	w := sc.do(t, http.MethodPost, "/api/v1/experiments", map[string]any{
		"title":      "Sleep quality",
		"status":     "active",
		"start_date": "2025-06-01",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create experiment failed with status %d: %s", w.Code, w.Body.String())
	}

	var created struct {
		Experiment struct {
			ID string `json:"id"`
		} `json:"experiment"`
	}
	decodeBody(t, w, &created)
	if created.Experiment.ID == "" {
		t.Fatalf("expected experiment id in response: %s", w.Body.String())
	}

	w = sc.do(t, http.MethodPost, "/api/v1/experiments/"+created.Experiment.ID+"/fields", map[string]any{
		"label":     "Hours slept",
		"type":      "number",
		"required":  true,
		"min_value": 1,
		"max_value": 10,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add field failed with status %d: %s", w.Code, w.Body.String())
	}

	return created.Experiment.ID
}

func fetchFieldID(t *testing.T, sc *sessionClient, experimentID string) uint {
	t.Helper()

	w := sc.do(t, http.MethodGet, "/api/v1/experiments/"+experimentID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get experiment failed with status %d: %s", w.Code, w.Body.String())
	}

	var payload struct {
		Experiment struct {
			Fields []struct {
				ID uint `json:"id"`
			} `json:"fields"`
		} `json:"experiment"`
	}
	decodeBody(t, w, &payload)
	if len(payload.Experiment.Fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(payload.Experiment.Fields))
	}
	return payload.Experiment.Fields[0].ID
}

func submitDay(t *testing.T, sc *sessionClient, experimentID string, fieldID uint, date string, value float64) {
	t.Helper()

	w := sc.do(t, http.MethodPut, "/api/v1/experiments/"+experimentID+"/checkins", map[string]any{
		"date": date,
		"responses": []map[string]any{
			{"field_id": fieldID, "number": value},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("check-in for %s failed with status %d: %s", date, w.Code, w.Body.String())
	}
}

func TestCheckInToInsightsFlow(t *testing.T) {
	engine, _, cleanup := setupTestRouter(t)
	defer cleanup()

	sc := registerClient(t, engine, "alice")
	experimentID := createNumberExperiment(t, sc)
	fieldID := fetchFieldID(t, sc, experimentID)

	submitDay(t, sc, experimentID, fieldID, "2025-06-02", 3)
	submitDay(t, sc, experimentID, fieldID, "2025-06-03", 9)

	w := sc.do(t, http.MethodGet, "/api/v1/experiments/"+experimentID+"/insights/summary", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary failed with status %d: %s", w.Code, w.Body.String())
	}

	var summary struct {
		ExperimentID string                 `json:"experiment_id"`
		Summaries    []service.FieldSummary `json:"summaries"`
	}
	decodeBody(t, w, &summary)
	if summary.ExperimentID != experimentID {
		t.Fatalf("unexpected experiment id: %s", summary.ExperimentID)
	}
	if len(summary.Summaries) != 1 || summary.Summaries[0].Number == nil {
		t.Fatalf("expected one number summary: %s", w.Body.String())
	}

	number := summary.Summaries[0].Number
	if number.Count != 2 || number.Min != 3 || number.Max != 9 || number.Avg != 6 {
		t.Fatalf("unexpected aggregates: %+v", number)
	}

	w = sc.do(t, http.MethodGet, "/api/v1/experiments/"+experimentID+"/insights/trends", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("trends failed with status %d: %s", w.Code, w.Body.String())
	}

	var trends struct {
		Trends []service.FieldTrend `json:"trends"`
	}
	decodeBody(t, w, &trends)
	if len(trends.Trends) != 1 {
		t.Fatalf("expected one trend: %s", w.Body.String())
	}
	if trends.Trends[0].Direction != service.TrendIncreasing {
		t.Fatalf("expected increasing trend, got %q", trends.Trends[0].Direction)
	}
}

func TestCheckInValidationFailureResponse(t *testing.T) {
	engine, _, cleanup := setupTestRouter(t)
	defer cleanup()

	sc := registerClient(t, engine, "alice")
	experimentID := createNumberExperiment(t, sc)
	fieldID := fetchFieldID(t, sc, experimentID)

	w := sc.do(t, http.MethodPut, "/api/v1/experiments/"+experimentID+"/checkins", map[string]any{
		"date": "2025-06-02",
		"responses": []map[string]any{
			{"field_id": fieldID, "number": 42},
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}

	var rejection struct {
		Error   string `json:"error"`
		FieldID uint   `json:"field_id"`
		Reason  string `json:"reason"`
	}
	decodeBody(t, w, &rejection)
	if rejection.Error != "invalid field response" {
		t.Fatalf("unexpected error: %q", rejection.Error)
	}
	if rejection.FieldID != fieldID || rejection.Reason == "" {
		t.Fatalf("expected violation details, got %+v", rejection)
	}

	// A rejected write leaves no check-in behind.
	w = sc.do(t, http.MethodGet, "/api/v1/experiments/"+experimentID+"/checkins", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list failed with status %d", w.Code)
	}
	var listing struct {
		CheckIns []json.RawMessage `json:"check_ins"`
	}
	decodeBody(t, w, &listing)
	if len(listing.CheckIns) != 0 {
		t.Fatalf("expected no check-ins, got %d", len(listing.CheckIns))
	}
}

func TestCheckInRequiresSession(t *testing.T) {
	engine, _, cleanup := setupTestRouter(t)
	defer cleanup()

	sc := &sessionClient{engine: engine}
	w := sc.do(t, http.MethodGet, "/api/v1/auth/me", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestExperimentHiddenFromOtherUsers(t *testing.T) {
	engine, _, cleanup := setupTestRouter(t)
	defer cleanup()

	alice := registerClient(t, engine, "alice")
	experimentID := createNumberExperiment(t, alice)

	bob := registerClient(t, engine, "bob")
	w := bob.do(t, http.MethodGet, "/api/v1/experiments/"+experimentID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for foreign experiment, got %d: %s", w.Code, w.Body.String())
	}

	w = bob.do(t, http.MethodPut, "/api/v1/experiments/"+experimentID+"/checkins", map[string]any{
		"date": "2025-06-02",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for foreign check-in write, got %d: %s", w.Code, w.Body.String())
	}
}

func TestExportCheckInsDownload(t *testing.T) {
	engine, _, cleanup := setupTestRouter(t)
	defer cleanup()

	sc := registerClient(t, engine, "alice")
	experimentID := createNumberExperiment(t, sc)
	fieldID := fetchFieldID(t, sc, experimentID)
	submitDay(t, sc, experimentID, fieldID, "2025-06-02", 5)

	w := sc.do(t, http.MethodGet, "/api/v1/experiments/"+experimentID+"/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export failed with status %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected content type: %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd == "" {
		t.Fatal("expected a Content-Disposition header")
	}
	if w.Body.Len() == 0 {
		t.Fatal("expected workbook bytes")
	}
}

func TestUpsertGeneratesAISummaryWhenConfigured(t *testing.T) {
	engine, api, cleanup := setupTestRouter(t)
	defer cleanup()

	stub := &fakeSummaryGenerator{summary: "Slept a solid eight hours."}
	api.SetSummaryGenerator(stub)

	sc := registerClient(t, engine, "alice")
	experimentID := createNumberExperiment(t, sc)
	fieldID := fetchFieldID(t, sc, experimentID)

	w := sc.do(t, http.MethodPut, "/api/v1/experiments/"+experimentID+"/checkins", map[string]any{
		"date":  "2025-06-02",
		"notes": "went to bed early",
		"responses": []map[string]any{
			{"field_id": fieldID, "number": 8},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("check-in failed with status %d: %s", w.Code, w.Body.String())
	}

	var payload struct {
		CheckIn struct {
			AISummary string `json:"ai_summary"`
		} `json:"check_in"`
	}
	decodeBody(t, w, &payload)
	if payload.CheckIn.AISummary != stub.summary {
		t.Fatalf("expected generated summary, got %q", payload.CheckIn.AISummary)
	}
	if stub.calls != 1 {
		t.Fatalf("expected 1 generator call, got %d", stub.calls)
	}
	if stub.lastInput.ExperimentTitle != "Sleep quality" {
		t.Fatalf("unexpected generator input: %+v", stub.lastInput)
	}
}

func TestUpsertSurvivesSummaryGeneratorFailure(t *testing.T) {
	engine, api, cleanup := setupTestRouter(t)
	defer cleanup()

	stub := &fakeSummaryGenerator{err: fmt.Errorf("upstream down")}
	api.SetSummaryGenerator(stub)

	sc := registerClient(t, engine, "alice")
	experimentID := createNumberExperiment(t, sc)
	fieldID := fetchFieldID(t, sc, experimentID)

	w := sc.do(t, http.MethodPut, "/api/v1/experiments/"+experimentID+"/checkins", map[string]any{
		"date": "2025-06-02",
		"responses": []map[string]any{
			{"field_id": fieldID, "number": 8},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected check-in to succeed despite generator failure, got %d: %s", w.Code, w.Body.String())
	}
}
