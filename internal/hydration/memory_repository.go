package hydration

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	records  map[string]map[string]DailyRecord // userID -> date -> record
}

// NewMemoryRepository returns an in-memory repository intended for local development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		profiles: make(map[string]Profile),
		records:  make(map[string]map[string]DailyRecord),
	}
}

func (r *memoryRepository) GetProfile(_ context.Context, userID string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &profile, nil
}

func (r *memoryRepository) UpsertProfile(_ context.Context, profile Profile) (*Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.profiles[profile.UserID]; ok && !existing.CreatedAt.IsZero() {
		profile.CreatedAt = existing.CreatedAt
	}
	r.profiles[profile.UserID] = profile
	out := profile
	return &out, nil
}

func (r *memoryRepository) GetDailyRecord(_ context.Context, userID, date string) (*DailyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[userID][date]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (r *memoryRepository) AddIntake(_ context.Context, userID, date string, amountOz float64, at time.Time) (*DailyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[userID]; !ok {
		return nil, ErrProfileIncomplete
	}

	userStore, ok := r.records[userID]
	if !ok {
		userStore = make(map[string]DailyRecord)
		r.records[userID] = userStore
	}

	rec := userStore[date]
	rec.UserID = userID
	rec.Date = date
	rec.AmountOz += amountOz
	rec.UpdatedAt = at
	userStore[date] = rec

	out := rec
	return &out, nil
}

func (r *memoryRepository) ListDailyRecords(_ context.Context, userID, startDate, endDate string) ([]DailyRecord, error) {
	r.mu.RLock()
	out := make([]DailyRecord, 0, len(r.records[userID]))
	for date, rec := range r.records[userID] {
		if startDate != "" && date < startDate {
			continue
		}
		if endDate != "" && date > endDate {
			continue
		}
		out = append(out, rec)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out, nil
}

func (r *memoryRepository) LifetimeTotal(_ context.Context, userID string) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0.0
	for _, rec := range r.records[userID] {
		total += rec.AmountOz
	}
	return total, nil
}

func (r *memoryRepository) DeleteUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.profiles, userID)
	delete(r.records, userID)
	return nil
}
