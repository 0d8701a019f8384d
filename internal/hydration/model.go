package hydration

import (
	"context"
	"time"

	"github.com/hydrosync/hydration-service/internal/achievement"
)

// DateLayout is the calendar-day key used for intake records.
const DateLayout = achievement.DateLayout

// Profile is the persisted per-user document produced by the onboarding survey.
type Profile struct {
	UserID          string    `json:"user_id" firestore:"user_id"`
	Name            string    `json:"name" firestore:"name"`
	Gender          string    `json:"gender" firestore:"gender"`
	Age             int       `json:"age" firestore:"age"`
	WeightLbs       float64   `json:"weight_lbs" firestore:"weight_lbs"`
	ActivityLevel   string    `json:"activity_level" firestore:"activity_level"`
	BottleSizeOz    float64   `json:"bottle_size_oz" firestore:"bottle_size_oz"`
	DailyGoalOz     float64   `json:"daily_goal_oz" firestore:"daily_goal_oz"`
	SurveyCompleted bool      `json:"survey_completed" firestore:"survey_completed"`
	CreatedAt       time.Time `json:"created_at,omitempty" firestore:"created_at"`
	UpdatedAt       time.Time `json:"updated_at,omitempty" firestore:"updated_at"`
}

// DailyRecord is the running intake total for one user on one calendar day.
type DailyRecord struct {
	UserID    string    `json:"-" firestore:"user_id"`
	Date      string    `json:"date" firestore:"date"`
	AmountOz  float64   `json:"amount_oz" firestore:"amount_oz"`
	UpdatedAt time.Time `json:"updated_at,omitempty" firestore:"updated_at"`
}

// SettingsInput describes the allowed fields during a PATCH of the profile.
type SettingsInput struct {
	DailyGoalOz  *float64
	BottleSizeOz *float64
}

// LogInput adds water either as a number of bottles or as a raw amount.
type LogInput struct {
	Bottles  int     `json:"bottles" validate:"gte=0,lte=50"`
	AmountOz float64 `json:"amount_oz" validate:"gte=0,lte=512"`
}

// LogResult is returned after intake has been recorded.
type LogResult struct {
	Record          DailyRecord `json:"record"`
	AddedOz         float64     `json:"added_oz"`
	DailyGoalOz     float64     `json:"daily_goal_oz"`
	GoalReached     bool        `json:"goal_reached"`
	JustReachedGoal bool        `json:"just_reached_goal"`
}

// ChartDay is one bar of the weekly chart.
type ChartDay struct {
	Date     string  `json:"date"`
	Weekday  string  `json:"weekday"`
	AmountOz float64 `json:"amount_oz"`
	GoalMet  bool    `json:"goal_met"`
}

// AchievementStatus pairs a catalog entry with whether the user holds it.
type AchievementStatus struct {
	achievement.Achievement
	Earned bool `json:"earned"`
}

// AchievementsResult is the evaluated badge state for a user.
type AchievementsResult struct {
	Earned        []achievement.Achievement `json:"earned"`
	All           []AchievementStatus       `json:"all"`
	CurrentStreak int                       `json:"current_streak"`
	TotalIntakeOz float64                   `json:"total_intake_oz"`
}

// Dashboard bundles everything the home screen renders.
type Dashboard struct {
	Profile         Profile            `json:"profile"`
	Today           DailyRecord        `json:"today"`
	ProgressPercent float64            `json:"progress_percent"`
	Weekly          []ChartDay         `json:"weekly"`
	Achievements    AchievementsResult `json:"achievements"`
}

// Repository defines the interface for hydration data access.
type Repository interface {
	// GetProfile returns ErrNotFound when the user has no profile yet.
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpsertProfile(ctx context.Context, profile Profile) (*Profile, error)
	// GetDailyRecord returns ErrNotFound when nothing was logged on date.
	GetDailyRecord(ctx context.Context, userID, date string) (*DailyRecord, error)
	// AddIntake atomically adds amountOz to the record for date and returns the new total.
	// It returns ErrProfileIncomplete when the user has no profile.
	AddIntake(ctx context.Context, userID, date string, amountOz float64, at time.Time) (*DailyRecord, error)
	// ListDailyRecords returns records with startDate <= date <= endDate in ascending order.
	// An empty bound is open.
	ListDailyRecords(ctx context.Context, userID, startDate, endDate string) ([]DailyRecord, error)
	LifetimeTotal(ctx context.Context, userID string) (float64, error)
	DeleteUser(ctx context.Context, userID string) error
}

// Service defines the hydration service interface.
type Service interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	SubmitSurvey(ctx context.Context, userID string, input SurveyInput) (*Profile, error)
	UpdateSettings(ctx context.Context, userID string, input SettingsInput) (*Profile, error)
	LogIntake(ctx context.Context, userID string, input LogInput) (*LogResult, error)
	Today(ctx context.Context, userID string) (*DailyRecord, error)
	Weekly(ctx context.Context, userID string) ([]ChartDay, error)
	History(ctx context.Context, userID string) ([]DailyRecord, error)
	Achievements(ctx context.Context, userID string) (*AchievementsResult, error)
	Dashboard(ctx context.Context, userID string) (*Dashboard, error)
	DeleteAccount(ctx context.Context, userID string) error
	RandomQuote() string
}
