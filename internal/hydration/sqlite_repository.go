package hydration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hydrosync/hydration-service/internal/sqlitemigrate"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLiteRepository persists hydration state in a single SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

// OpenSQLiteRepository opens the database at path and applies embedded migrations.
func OpenSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}

	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, db, migrationFS, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close closes the database handle.
func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMilli(v).UTC()
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var (
		p         Profile
		completed int
		created   int64
		updated   int64
	)
	err := r.db.QueryRowContext(ctx, `
SELECT user_id, name, gender, age, weight_lbs, activity_level, bottle_size_oz,
       daily_goal_oz, survey_completed, created_at, updated_at
FROM profiles WHERE user_id = ?`, userID).Scan(
		&p.UserID, &p.Name, &p.Gender, &p.Age, &p.WeightLbs, &p.ActivityLevel, &p.BottleSizeOz,
		&p.DailyGoalOz, &completed, &created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select profile: %w", err)
	}
	p.SurveyCompleted = completed != 0
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return &p, nil
}

func (r *SQLiteRepository) UpsertProfile(ctx context.Context, profile Profile) (*Profile, error) {
	completed := 0
	if profile.SurveyCompleted {
		completed = 1
	}

	// created_at is only written on insert.
	_, err := r.db.ExecContext(ctx, `
INSERT INTO profiles (
    user_id, name, gender, age, weight_lbs, activity_level, bottle_size_oz,
    daily_goal_oz, survey_completed, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    name = excluded.name,
    gender = excluded.gender,
    age = excluded.age,
    weight_lbs = excluded.weight_lbs,
    activity_level = excluded.activity_level,
    bottle_size_oz = excluded.bottle_size_oz,
    daily_goal_oz = excluded.daily_goal_oz,
    survey_completed = excluded.survey_completed,
    updated_at = excluded.updated_at`,
		profile.UserID, profile.Name, profile.Gender, profile.Age, profile.WeightLbs,
		profile.ActivityLevel, profile.BottleSizeOz, profile.DailyGoalOz, completed,
		toMillis(profile.CreatedAt), toMillis(profile.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return r.GetProfile(ctx, profile.UserID)
}

func (r *SQLiteRepository) GetDailyRecord(ctx context.Context, userID, date string) (*DailyRecord, error) {
	rec := DailyRecord{UserID: userID, Date: date}
	var updated int64
	err := r.db.QueryRowContext(ctx,
		`SELECT amount_oz, updated_at FROM daily_intake WHERE user_id = ? AND date = ?`,
		userID, date,
	).Scan(&rec.AmountOz, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select daily record: %w", err)
	}
	rec.UpdatedAt = fromMillis(updated)
	return &rec, nil
}

func (r *SQLiteRepository) AddIntake(ctx context.Context, userID, date string, amountOz float64, at time.Time) (*DailyRecord, error) {
	rec := DailyRecord{UserID: userID, Date: date}
	var updated int64
	err := r.db.QueryRowContext(ctx, `
INSERT INTO daily_intake (user_id, date, amount_oz, updated_at)
SELECT ?, ?, ?, ?
WHERE EXISTS (SELECT 1 FROM profiles WHERE user_id = ?)
ON CONFLICT(user_id, date) DO UPDATE SET
    amount_oz = daily_intake.amount_oz + excluded.amount_oz,
    updated_at = excluded.updated_at
RETURNING amount_oz, updated_at`,
		userID, date, amountOz, toMillis(at), userID,
	).Scan(&rec.AmountOz, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileIncomplete
	}
	if err != nil {
		return nil, fmt.Errorf("add intake: %w", err)
	}
	rec.UpdatedAt = fromMillis(updated)
	return &rec, nil
}

func (r *SQLiteRepository) ListDailyRecords(ctx context.Context, userID, startDate, endDate string) ([]DailyRecord, error) {
	query := `SELECT date, amount_oz, updated_at FROM daily_intake WHERE user_id = ?`
	args := []any{userID}
	if startDate != "" {
		query += ` AND date >= ?`
		args = append(args, startDate)
	}
	if endDate != "" {
		query += ` AND date <= ?`
		args = append(args, endDate)
	}
	query += ` ORDER BY date ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list daily records: %w", err)
	}
	defer rows.Close()

	var records []DailyRecord
	for rows.Next() {
		rec := DailyRecord{UserID: userID}
		var updated int64
		if err := rows.Scan(&rec.Date, &rec.AmountOz, &updated); err != nil {
			return nil, fmt.Errorf("scan daily record: %w", err)
		}
		rec.UpdatedAt = fromMillis(updated)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily records: %w", err)
	}
	return records, nil
}

func (r *SQLiteRepository) LifetimeTotal(ctx context.Context, userID string) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_oz), 0) FROM daily_intake WHERE user_id = ?`, userID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum intake: %w", err)
	}
	return total, nil
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM daily_intake WHERE user_id = ?`, userID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete daily records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = ?`, userID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete profile: %w", err)
	}
	return tx.Commit()
}
