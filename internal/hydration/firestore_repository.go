package hydration

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	profilesCollection    = "profiles"
	dailyIntakeCollection = "daily_intake"
	lifetimeTotalField    = "lifetime_total_oz"
)

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository creates a new Firestore repository.
// Daily records live under profiles/{uid}/daily_intake/{YYYY-MM-DD}.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) profileRef(userID string) *firestore.DocumentRef {
	return r.client.Collection(profilesCollection).Doc(userID)
}

func (r *firestoreRepository) intakeCollection(userID string) *firestore.CollectionRef {
	return r.profileRef(userID).Collection(dailyIntakeCollection)
}

func (r *firestoreRepository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	doc, err := r.profileRef(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var profile Profile
	if err := doc.DataTo(&profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	profile.UserID = userID
	return &profile, nil
}

func (r *firestoreRepository) UpsertProfile(ctx context.Context, profile Profile) (*Profile, error) {
	docRef := r.profileRef(profile.UserID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		data := map[string]interface{}{
			"user_id":          profile.UserID,
			"name":             profile.Name,
			"gender":           profile.Gender,
			"age":              profile.Age,
			"weight_lbs":       profile.WeightLbs,
			"activity_level":   profile.ActivityLevel,
			"bottle_size_oz":   profile.BottleSizeOz,
			"daily_goal_oz":    profile.DailyGoalOz,
			"survey_completed": profile.SurveyCompleted,
			"updated_at":       profile.UpdatedAt,
		}

		if _, err := tx.Get(docRef); status.Code(err) == codes.NotFound {
			data["created_at"] = profile.CreatedAt
			// Ensure the counter exists for new profiles.
			data[lifetimeTotalField] = 0
		} else if err != nil {
			return err
		}

		return tx.Set(docRef, data, firestore.MergeAll)
	})
	if err != nil {
		return nil, err
	}

	return r.GetProfile(ctx, profile.UserID)
}

func (r *firestoreRepository) GetDailyRecord(ctx context.Context, userID, date string) (*DailyRecord, error) {
	doc, err := r.intakeCollection(userID).Doc(date).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec DailyRecord
	if err := doc.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("unmarshal daily record: %w", err)
	}
	rec.UserID = userID
	rec.Date = date
	return &rec, nil
}

func (r *firestoreRepository) AddIntake(ctx context.Context, userID, date string, amountOz float64, at time.Time) (*DailyRecord, error) {
	profileRef := r.profileRef(userID)
	recRef := r.intakeCollection(userID).Doc(date)

	var rec DailyRecord
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// A deleted profile must not be recreated by a late write.
		if _, err := tx.Get(profileRef); status.Code(err) == codes.NotFound {
			return ErrProfileIncomplete
		} else if err != nil {
			return err
		}

		current := 0.0
		doc, err := tx.Get(recRef)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			var existing DailyRecord
			if err := doc.DataTo(&existing); err != nil {
				return fmt.Errorf("unmarshal daily record: %w", err)
			}
			current = existing.AmountOz
		}

		rec = DailyRecord{
			UserID:    userID,
			Date:      date,
			AmountOz:  current + amountOz,
			UpdatedAt: at,
		}
		if err := tx.Set(recRef, rec); err != nil {
			return err
		}

		// Keep the lifetime counter in the same transaction as the day total.
		return tx.Update(profileRef, []firestore.Update{
			{Path: lifetimeTotalField, Value: firestore.Increment(amountOz)},
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *firestoreRepository) ListDailyRecords(ctx context.Context, userID, startDate, endDate string) ([]DailyRecord, error) {
	query := r.intakeCollection(userID).Query
	if startDate != "" {
		query = query.Where("date", ">=", startDate)
	}
	if endDate != "" {
		query = query.Where("date", "<=", endDate)
	}

	iter := query.OrderBy("date", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var records []DailyRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var rec DailyRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("unmarshal daily record %s: %w", doc.Ref.ID, err)
		}
		rec.UserID = userID
		rec.Date = doc.Ref.ID
		records = append(records, rec)
	}
	return records, nil
}

func (r *firestoreRepository) LifetimeTotal(ctx context.Context, userID string) (float64, error) {
	doc, err := r.profileRef(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	raw, err := doc.DataAt(lifetimeTotalField)
	if err != nil {
		// Profiles created before the counter existed.
		return 0, nil
	}
	switch v := raw.(type) {
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("unexpected %s type %T", lifetimeTotalField, raw)
	}
}

func (r *firestoreRepository) DeleteUser(ctx context.Context, userID string) error {
	iter := r.intakeCollection(userID).Documents(ctx)
	defer iter.Stop()

	bw := r.client.BulkWriter(ctx)
	var jobs []writeJob
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bw.End()
			return err
		}
		job, err := bw.Delete(doc.Ref)
		if err != nil {
			bw.End()
			return fmt.Errorf("queue delete %s: %w", doc.Ref.ID, err)
		}
		jobs = append(jobs, job)
	}
	job, err := bw.Delete(r.profileRef(userID))
	if err != nil {
		bw.End()
		return fmt.Errorf("queue profile delete: %w", err)
	}
	jobs = append(jobs, job)

	bw.End()
	return firstJobError(jobs)
}

// writeJob is the part of *firestore.BulkWriterJob that reports a write's outcome.
type writeJob interface {
	Results() (*firestore.WriteResult, error)
}

// firstJobError waits for every job and returns the first failure.
func firstJobError(jobs []writeJob) error {
	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("delete write %d of %d: %w", i+1, len(jobs), err)
		}
	}
	return nil
}
