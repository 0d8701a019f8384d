package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hydrosync/hydration-service/internal/achievement"
	"github.com/hydrosync/hydration-service/internal/export"
	"github.com/hydrosync/hydration-service/internal/hydration"
	sharedauth "github.com/hydrosync/hydration-service/shared/auth"
	sharederrors "github.com/hydrosync/hydration-service/shared/errors"
	"github.com/hydrosync/hydration-service/shared/logging"
)

const (
	serviceTimeout  = 8 * time.Second
	exportTimeout   = 30 * time.Second
	maxBodyBytes    = 64 * 1024
	msgMissingUser  = "missing user ID"
	msgInvalidInput = "invalid request body"
)

// Exporter produces downloadable history exports.
type Exporter interface {
	Export(ctx context.Context, userID string) (*export.Result, error)
}

// RegisterRoutes registers all hydration routes.
func RegisterRoutes(r chi.Router, service hydration.Service, exporter Exporter, logger *slog.Logger) {
	h := &handler{service: service, exporter: exporter, logger: logger}

	r.Route("/v1/profile", func(r chi.Router) {
		r.Get("/me", h.getProfile)
		r.Patch("/me", h.updateSettings)
		r.Put("/survey", h.submitSurvey)
	})

	r.Route("/v1/intake", func(r chi.Router) {
		r.Post("/", h.logIntake)
		r.Get("/today", h.today)
		r.Get("/weekly", h.weekly)
		r.Get("/history", h.history)
	})

	r.Route("/v1/achievements", func(r chi.Router) {
		r.Get("/", h.listAchievements)
		r.Get("/me", h.myAchievements)
	})

	r.Get("/v1/dashboard", h.dashboard)
	r.Get("/v1/quotes/random", h.randomQuote)
	r.Post("/v1/export", h.export)
	r.Delete("/v1/users/me", h.deleteAccount)
}

type handler struct {
	service  hydration.Service
	exporter Exporter
	logger   *slog.Logger
}

func (h *handler) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	profile, err := h.service.GetProfile(ctx, userID)
	if err != nil {
		h.fail(w, r, "failed to load profile", err, userID)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *handler) submitSurvey(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var input hydration.SurveyInput
	if !decodeBody(w, r, &input) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	profile, err := h.service.SubmitSurvey(ctx, userID, input)
	if err != nil {
		h.fail(w, r, "failed to submit survey", err, userID)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		DailyGoalOz  *float64 `json:"daily_goal_oz"`
		BottleSizeOz *float64 `json:"bottle_size_oz"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	profile, err := h.service.UpdateSettings(ctx, userID, hydration.SettingsInput{
		DailyGoalOz:  body.DailyGoalOz,
		BottleSizeOz: body.BottleSizeOz,
	})
	if err != nil {
		h.fail(w, r, "failed to update settings", err, userID)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *handler) logIntake(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var input hydration.LogInput
	if !decodeBody(w, r, &input) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	result, err := h.service.LogIntake(ctx, userID, input)
	if err != nil {
		h.fail(w, r, "failed to log intake", err, userID)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *handler) today(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	rec, err := h.service.Today(ctx, userID)
	if err != nil {
		h.fail(w, r, "failed to load today", err, userID)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) weekly(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	chart, err := h.service.Weekly(ctx, userID)
	if err != nil {
		h.fail(w, r, "failed to load weekly chart", err, userID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": chart})
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	records, err := h.service.History(ctx, userID)
	if err != nil {
		h.fail(w, r, "failed to load history", err, userID)
		return
	}
	if records == nil {
		records = []hydration.DailyRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *handler) listAchievements(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"achievements": achievement.Catalog()})
}

func (h *handler) myAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	result, err := h.service.Achievements(ctx, userID)
	if err != nil {
		h.fail(w, r, "failed to evaluate achievements", err, userID)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	dash, err := h.service.Dashboard(ctx, userID)
	if err != nil {
		h.fail(w, r, "failed to load dashboard", err, userID)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (h *handler) randomQuote(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"quote": h.service.RandomQuote()})
}

func (h *handler) export(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if h.exporter == nil {
		writeError(w, r, http.StatusNotImplemented, export.ErrDisabled.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exportTimeout)
	defer cancel()

	result, err := h.exporter.Export(ctx, userID)
	if err != nil {
		h.fail(w, r, "failed to export history", err, userID)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	if err := h.service.DeleteAccount(ctx, userID); err != nil {
		h.fail(w, r, "failed to delete account", err, userID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps a service error onto the error envelope; only unexpected errors are logged.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, message string, err error, userID string) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		logRequestError(r.Context(), h.logger, message, err, userID)
		msg = message
	}
	writeError(w, r, status, msg)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, hydration.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, hydration.ErrMissingUserID):
		return http.StatusUnauthorized, msgMissingUser
	case errors.Is(err, hydration.ErrProfileIncomplete):
		return http.StatusConflict, err.Error()
	case errors.Is(err, hydration.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, export.ErrDisabled):
		return http.StatusNotImplemented, err.Error()
	default:
		return http.StatusInternalServerError, ""
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := sharedauth.UserFromContext(r.Context())
	if !ok || user.UserID == "" {
		writeError(w, r, http.StatusUnauthorized, msgMissingUser)
		return "", false
	}
	return user.UserID, true
}

// decodeBody reads a single JSON object and rejects unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "payload too large")
			return false
		}
		writeError(w, r, http.StatusBadRequest, msgInvalidInput)
		return false
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, msgInvalidInput)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, sharederrors.ErrorResponse{
		Code:      errorCode(status),
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return sharederrors.CodeBadRequest
	case http.StatusUnauthorized:
		return sharederrors.CodeUnauthorized
	case http.StatusNotFound:
		return sharederrors.CodeNotFound
	case http.StatusConflict:
		return sharederrors.CodeConflict
	case http.StatusNotImplemented:
		return sharederrors.CodeNotImplemented
	default:
		return sharederrors.CodeInternal
	}
}

func logRequestError(ctx context.Context, logger *slog.Logger, message string, err error, userID string) {
	if logger == nil || err == nil {
		return
	}
	logging.WithRequestID(logger, middleware.GetReqID(ctx)).Error(message,
		slog.String("userId", userID),
		slog.Any("error", err),
	)
}
