package hydration

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
)

type fakeWriteJob struct {
	err    error
	waited *int
}

func (j fakeWriteJob) Results() (*firestore.WriteResult, error) {
	*j.waited++
	if j.err != nil {
		return nil, j.err
	}
	return &firestore.WriteResult{}, nil
}

func TestFirstJobError_AllSucceed(t *testing.T) {
	waited := 0
	jobs := []writeJob{fakeWriteJob{waited: &waited}, fakeWriteJob{waited: &waited}}

	if err := firstJobError(jobs); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if waited != 2 {
		t.Fatalf("expected both jobs to be awaited, got %d", waited)
	}
}

func TestFirstJobError_ReportsFailedWrite(t *testing.T) {
	denied := errors.New("permission denied")
	waited := 0
	jobs := []writeJob{
		fakeWriteJob{waited: &waited},
		fakeWriteJob{err: denied, waited: &waited},
		fakeWriteJob{waited: &waited},
	}

	err := firstJobError(jobs)
	if !errors.Is(err, denied) {
		t.Fatalf("expected write error, got %v", err)
	}
}

// The Firestore tests below run only against the emulator.
func newEmulatorRepository(t *testing.T) Repository {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	// A fresh project per test keeps emulator state isolated.
	client, err := firestore.NewClient(ctx, "hydration-test-"+uuid.NewString()[:8])
	if err != nil {
		t.Fatalf("firestore client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return NewFirestoreRepository(client)
}

func TestFirestoreRepository_AddIntakeRequiresProfile(t *testing.T) {
	repo := newEmulatorRepository(t)
	ctx := context.Background()
	at := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

	if _, err := repo.AddIntake(ctx, "ghost", "2025-03-15", 8, at); !errors.Is(err, ErrProfileIncomplete) {
		t.Fatalf("expected ErrProfileIncomplete, got %v", err)
	}
	if _, err := repo.GetProfile(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no ghost profile, got %v", err)
	}
}

func TestFirestoreRepository_DeleteUser(t *testing.T) {
	repo := newEmulatorRepository(t)
	ctx := context.Background()
	at := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

	if _, err := repo.UpsertProfile(ctx, Profile{UserID: "user-1", SurveyCompleted: true, DailyGoalOz: 64, CreatedAt: at, UpdatedAt: at}); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}
	for _, date := range []string{"2025-03-14", "2025-03-15"} {
		if _, err := repo.AddIntake(ctx, "user-1", date, 40, at); err != nil {
			t.Fatalf("add intake %s: %v", date, err)
		}
	}
	total, err := repo.LifetimeTotal(ctx, "user-1")
	if err != nil {
		t.Fatalf("lifetime total: %v", err)
	}
	if total != 80 {
		t.Fatalf("expected counter 80, got %v", total)
	}

	if err := repo.DeleteUser(ctx, "user-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := repo.GetProfile(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected profile gone, got %v", err)
	}
	records, err := repo.ListDailyRecords(ctx, "user-1", "", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %+v", records)
	}
	if _, err := repo.AddIntake(ctx, "user-1", "2025-03-16", 8, at); !errors.Is(err, ErrProfileIncomplete) {
		t.Fatalf("expected late add to fail, got %v", err)
	}
}
