package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hydrosync/hydration-service/internal/export"
	"github.com/hydrosync/hydration-service/internal/hydration"
	sharedauth "github.com/hydrosync/hydration-service/shared/auth"
	sharederrors "github.com/hydrosync/hydration-service/shared/errors"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type fakeExporter struct {
	result *export.Result
	err    error
	userID string
}

func (f *fakeExporter) Export(_ context.Context, userID string) (*export.Result, error) {
	f.userID = userID
	return f.result, f.err
}

var saturday = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T, exporter Exporter) (http.Handler, hydration.Repository) {
	t.Helper()
	repo := hydration.NewMemoryRepository()
	svc, err := hydration.NewService(repo, fixedClock{now: saturday}, hydration.Options{
		Picker: func(int) int { return 0 },
	})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	verifier, err := sharedauth.NewVerifier(sharedauth.Config{Mode: sharedauth.ModeNoop})
	if err != nil {
		t.Fatalf("NewVerifier returned error: %v", err)
	}

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(sharedauth.Middleware(verifier))
		RegisterRoutes(r, svc, exporter, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})
	return r, repo
}

func do(t *testing.T, h http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

const surveyBody = `{"name":"Riley","gender":"female","age":25,"weight_lbs":150,"activity_level":"medium","bottle_size_oz":16}`

func TestRoutesRequireAuthorization(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := do(t, router, http.MethodGet, "/v1/profile/me", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSurveyThenLogIntake(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPut, "/v1/profile/survey", "user-1", surveyBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("survey: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	profile := decode[hydration.Profile](t, rec)
	if profile.DailyGoalOz != 118 || !profile.SurveyCompleted {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	rec = do(t, router, http.MethodPost, "/v1/intake", "user-1", `{"bottles":8}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("intake: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	result := decode[hydration.LogResult](t, rec)
	if result.Record.AmountOz != 128 || !result.JustReachedGoal {
		t.Fatalf("unexpected log result: %+v", result)
	}

	rec = do(t, router, http.MethodGet, "/v1/intake/today", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("today: expected 200, got %d", rec.Code)
	}
	today := decode[hydration.DailyRecord](t, rec)
	if today.Date != "2025-03-15" || today.AmountOz != 128 {
		t.Fatalf("unexpected today: %+v", today)
	}

	rec = do(t, router, http.MethodGet, "/v1/achievements/me", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("achievements: expected 200, got %d", rec.Code)
	}
	achievements := decode[hydration.AchievementsResult](t, rec)
	ids := make([]string, 0, len(achievements.Earned))
	for _, a := range achievements.Earned {
		ids = append(ids, a.ID)
	}
	if strings.Join(ids, ",") != "first-drink,1-gallon-club" {
		t.Fatalf("unexpected earned achievements: %v", ids)
	}
}

func TestLogIntakeBeforeSurveyConflicts(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/v1/intake", "user-1", `{"amount_oz":8}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	body := decode[sharederrors.ErrorResponse](t, rec)
	if body.Code != sharederrors.CodeConflict {
		t.Fatalf("unexpected error code %q", body.Code)
	}
}

func TestInvalidBodies(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	do(t, router, http.MethodPut, "/v1/profile/survey", "user-1", surveyBody)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "malformed json", method: http.MethodPost, path: "/v1/intake", body: `{"bottles":`},
		{name: "unknown field", method: http.MethodPost, path: "/v1/intake", body: `{"cups":2}`},
		{name: "trailing data", method: http.MethodPost, path: "/v1/intake", body: `{"bottles":1}{}`},
		{name: "both amounts", method: http.MethodPost, path: "/v1/intake", body: `{"bottles":1,"amount_oz":8}`},
		{name: "bad survey", method: http.MethodPut, path: "/v1/profile/survey", body: `{"name":"x","gender":"x","age":1,"weight_lbs":1,"activity_level":"low","bottle_size_oz":1}`},
		{name: "empty patch", method: http.MethodPatch, path: "/v1/profile/me", body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.path, "user-1", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPayloadTooLarge(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	big := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec := do(t, router, http.MethodPut, "/v1/profile/survey", "user-1", big)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestUpdateSettings(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	do(t, router, http.MethodPut, "/v1/profile/survey", "user-1", surveyBody)

	rec := do(t, router, http.MethodPatch, "/v1/profile/me", "user-1", `{"daily_goal_oz":90}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	profile := decode[hydration.Profile](t, rec)
	if profile.DailyGoalOz != 90 {
		t.Fatalf("expected goal 90, got %v", profile.DailyGoalOz)
	}
}

func TestWeeklyAndDashboard(t *testing.T) {
	router, repo := newTestRouter(t, nil)
	do(t, router, http.MethodPut, "/v1/profile/survey", "user-1", surveyBody)
	if _, err := repo.AddIntake(context.Background(), "user-1", "2025-03-14", 120, saturday); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := do(t, router, http.MethodGet, "/v1/intake/weekly", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("weekly: expected 200, got %d", rec.Code)
	}
	weekly := decode[struct {
		Days []hydration.ChartDay `json:"days"`
	}](t, rec)
	if len(weekly.Days) != 7 || !weekly.Days[5].GoalMet {
		t.Fatalf("unexpected weekly chart: %+v", weekly.Days)
	}

	rec = do(t, router, http.MethodGet, "/v1/dashboard", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d", rec.Code)
	}
	dash := decode[hydration.Dashboard](t, rec)
	if dash.Profile.UserID != "user-1" || len(dash.Weekly) != 7 || dash.Achievements.TotalIntakeOz != 120 {
		t.Fatalf("unexpected dashboard: %+v", dash)
	}
}

func TestCatalogAndQuote(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := do(t, router, http.MethodGet, "/v1/achievements", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("catalog: expected 200, got %d", rec.Code)
	}
	catalog := decode[struct {
		Achievements []struct {
			ID string `json:"id"`
		} `json:"achievements"`
	}](t, rec)
	if len(catalog.Achievements) != 8 {
		t.Fatalf("expected 8 achievements, got %d", len(catalog.Achievements))
	}

	rec = do(t, router, http.MethodGet, "/v1/quotes/random", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("quote: expected 200, got %d", rec.Code)
	}
	quote := decode[map[string]string](t, rec)
	if quote["quote"] == "" {
		t.Fatal("expected a quote")
	}
}

func TestExport(t *testing.T) {
	exporter := &fakeExporter{result: &export.Result{ExportID: "abc", URL: "https://example.com/x", Records: 3}}
	router, _ := newTestRouter(t, exporter)

	rec := do(t, router, http.MethodPost, "/v1/export", "user-1", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if exporter.userID != "user-1" {
		t.Fatalf("expected export for user-1, got %q", exporter.userID)
	}
	result := decode[export.Result](t, rec)
	if result.URL != "https://example.com/x" {
		t.Fatalf("unexpected export result: %+v", result)
	}
}

func TestExportDisabled(t *testing.T) {
	router, _ := newTestRouter(t, &fakeExporter{err: export.ErrDisabled})

	rec := do(t, router, http.MethodPost, "/v1/export", "user-1", "")
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", rec.Code)
	}
}

func TestExportFailureHidesDetails(t *testing.T) {
	router, _ := newTestRouter(t, &fakeExporter{err: errors.New("bucket exploded")})

	rec := do(t, router, http.MethodPost, "/v1/export", "user-1", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := decode[sharederrors.ErrorResponse](t, rec)
	if strings.Contains(body.Message, "exploded") || body.Code != sharederrors.CodeInternal {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestDeleteAccount(t *testing.T) {
	router, repo := newTestRouter(t, nil)
	do(t, router, http.MethodPut, "/v1/profile/survey", "user-1", surveyBody)

	rec := do(t, router, http.MethodDelete, "/v1/users/me", "user-1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if _, err := repo.GetProfile(context.Background(), "user-1"); !errors.Is(err, hydration.ErrNotFound) {
		t.Fatalf("expected profile removed, got %v", err)
	}
}

func TestHistoryEmptyArray(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := do(t, router, http.MethodGet, "/v1/intake/history", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"records":[]`)) {
		t.Fatalf("expected empty records array, got %s", rec.Body.String())
	}
}
