// Package export writes a user's hydration history to Cloud Storage and hands back a signed download link.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hydrosync/hydration-service/internal/hydration"
)

const (
	linkTTL     = 24 * time.Hour
	contentType = "application/json"
)

// ErrDisabled is returned when no export bucket is configured.
var ErrDisabled = errors.New("export is not configured")

// ObjectStore persists blobs and signs read URLs for them.
type ObjectStore interface {
	Put(ctx context.Context, objectPath, contentType string, data []byte) error
	SignedURL(objectPath string, expires time.Time) (string, error)
}

// Source provides the data that goes into an export.
type Source interface {
	GetProfile(ctx context.Context, userID string) (*hydration.Profile, error)
	History(ctx context.Context, userID string) ([]hydration.DailyRecord, error)
}

// Document is the JSON body of an export file.
type Document struct {
	UserID     string                  `json:"user_id"`
	ExportedAt time.Time               `json:"exported_at"`
	Profile    hydration.Profile       `json:"profile"`
	History    []hydration.DailyRecord `json:"history"`
}

// Result describes a finished export.
type Result struct {
	ExportID  string    `json:"export_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Records   int       `json:"records"`
}

// Service builds export documents and uploads them.
type Service struct {
	store  ObjectStore
	source Source
	clock  hydration.Clock
}

// NewService creates an export service. A nil store yields a service whose Export returns ErrDisabled.
func NewService(store ObjectStore, source Source, clock hydration.Clock) *Service {
	if clock == nil {
		clock = hydration.NewSystemClock()
	}
	return &Service{store: store, source: source, clock: clock}
}

// Enabled reports whether exports can be produced.
func (s *Service) Enabled() bool {
	return s != nil && s.store != nil
}

// Export uploads exports/{userID}/{uuid}.json and returns a signed link to it.
func (s *Service) Export(ctx context.Context, userID string) (*Result, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	if userID == "" {
		return nil, hydration.ErrMissingUserID
	}

	profile, err := s.source.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	history, err := s.source.History(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if history == nil {
		history = []hydration.DailyRecord{}
	}

	now := s.clock.Now().UTC()
	body, err := json.MarshalIndent(Document{
		UserID:     userID,
		ExportedAt: now,
		Profile:    *profile,
		History:    history,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}

	exportID := uuid.New().String()
	objectPath := ObjectPath(userID, exportID)
	if err := s.store.Put(ctx, objectPath, contentType, body); err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}

	expires := now.Add(linkTTL)
	url, err := s.store.SignedURL(objectPath, expires)
	if err != nil {
		return nil, fmt.Errorf("sign export url: %w", err)
	}

	return &Result{
		ExportID:  exportID,
		URL:       url,
		ExpiresAt: expires,
		Records:   len(history),
	}, nil
}

// ObjectPath returns the bucket key for an export.
func ObjectPath(userID, exportID string) string {
	return fmt.Sprintf("exports/%s/%s.json", userID, exportID)
}
