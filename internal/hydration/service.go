package hydration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hydrosync/hydration-service/internal/achievement"
)

const (
	chartDays          = 7
	minHistoryDays     = 7
	defaultHistoryDays = 28
)

// Options tune how calendar days and weeks are computed.
type Options struct {
	Location    *time.Location
	WeekStart   time.Weekday
	HistoryDays int
	Picker      Picker
}

type service struct {
	repo  Repository
	clock Clock
	opts  Options
}

// NewService constructs a Service with the provided collaborators.
func NewService(repo Repository, clock Clock, opts Options) (Service, error) {
	if repo == nil {
		return nil, errors.New("repo is required")
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.HistoryDays == 0 {
		opts.HistoryDays = defaultHistoryDays
	}
	if opts.HistoryDays < minHistoryDays {
		return nil, fmt.Errorf("history window must cover at least %d days", minHistoryDays)
	}
	if opts.Picker == nil {
		opts.Picker = defaultPicker
	}
	return &service{repo: repo, clock: clock, opts: opts}, nil
}

func (s *service) now() time.Time {
	return s.clock.Now().In(s.opts.Location)
}

func (s *service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	return s.loadProfile(ctx, userID)
}

func (s *service) loadProfile(ctx context.Context, userID string) (*Profile, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return defaultProfile(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *service) SubmitSurvey(ctx context.Context, userID string, input SurveyInput) (*Profile, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	input.normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	profile := *existing
	profile.Name = input.Name
	profile.Gender = input.Gender
	profile.Age = input.Age
	profile.WeightLbs = input.WeightLbs
	profile.ActivityLevel = input.ActivityLevel
	profile.BottleSizeOz = input.BottleSizeOz
	profile.DailyGoalOz = CalculateDailyGoal(input.WeightLbs, input.Age, input.ActivityLevel)
	profile.SurveyCompleted = true
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	return s.repo.UpsertProfile(ctx, profile)
}

func (s *service) UpdateSettings(ctx context.Context, userID string, input SettingsInput) (*Profile, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if input.DailyGoalOz == nil && input.BottleSizeOz == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if input.DailyGoalOz != nil && (*input.DailyGoalOz <= 0 || *input.DailyGoalOz > 1000) {
		return nil, fmt.Errorf("%w: daily_goal_oz must be between 0 and 1000", ErrInvalidInput)
	}
	if input.BottleSizeOz != nil && (*input.BottleSizeOz <= 0 || *input.BottleSizeOz > 256) {
		return nil, fmt.Errorf("%w: bottle_size_oz must be between 0 and 256", ErrInvalidInput)
	}

	profile, err := s.completedProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated := *profile
	if input.DailyGoalOz != nil {
		updated.DailyGoalOz = *input.DailyGoalOz
	}
	if input.BottleSizeOz != nil {
		updated.BottleSizeOz = *input.BottleSizeOz
	}
	updated.UpdatedAt = s.clock.Now().UTC()

	return s.repo.UpsertProfile(ctx, updated)
}

func (s *service) completedProfile(ctx context.Context, userID string) (*Profile, error) {
	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !profile.SurveyCompleted || profile.DailyGoalOz <= 0 {
		return nil, ErrProfileIncomplete
	}
	return profile, nil
}

func (s *service) LogIntake(ctx context.Context, userID string, input LogInput) (*LogResult, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, describeValidation(err))
	}
	if (input.Bottles > 0) == (input.AmountOz > 0) {
		return nil, fmt.Errorf("%w: provide either bottles or amount_oz", ErrInvalidInput)
	}

	profile, err := s.completedProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	amount := input.AmountOz
	if input.Bottles > 0 {
		amount = float64(input.Bottles) * profile.BottleSizeOz
	}

	now := s.now()
	rec, err := s.repo.AddIntake(ctx, userID, now.Format(DateLayout), amount, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("add intake: %w", err)
	}

	before := rec.AmountOz - amount
	goal := profile.DailyGoalOz
	return &LogResult{
		Record:          *rec,
		AddedOz:         amount,
		DailyGoalOz:     goal,
		GoalReached:     rec.AmountOz >= goal,
		JustReachedGoal: before < goal && rec.AmountOz >= goal,
	}, nil
}

func (s *service) Today(ctx context.Context, userID string) (*DailyRecord, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	date := s.now().Format(DateLayout)
	rec, err := s.repo.GetDailyRecord(ctx, userID, date)
	if errors.Is(err, ErrNotFound) {
		return &DailyRecord{UserID: userID, Date: date}, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *service) Weekly(ctx context.Context, userID string) ([]ChartDay, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	var (
		profile *Profile
		records []DailyRecord
	)
	today := s.now()
	start := today.AddDate(0, 0, -(chartDays - 1))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.loadProfile(gctx, userID)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		r, err := s.repo.ListDailyRecords(gctx, userID, start.Format(DateLayout), today.Format(DateLayout))
		if err != nil {
			return err
		}
		records = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return toChart(FillWindow(records, start, today), profile.DailyGoalOz), nil
}

func (s *service) History(ctx context.Context, userID string) ([]DailyRecord, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	return s.repo.ListDailyRecords(ctx, userID, "", "")
}

// snapshot is the data every achievement evaluation needs, loaded in one fan-out.
type snapshot struct {
	now     time.Time
	profile *Profile
	window  []DailyRecord
	total   float64
}

func (s *service) loadSnapshot(ctx context.Context, userID string) (*snapshot, error) {
	snap := &snapshot{now: s.now()}
	start := snap.now.AddDate(0, 0, -(s.opts.HistoryDays - 1))

	var records []DailyRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.completedProfile(gctx, userID)
		if err != nil {
			return err
		}
		snap.profile = p
		return nil
	})
	g.Go(func() error {
		r, err := s.repo.ListDailyRecords(gctx, userID, start.Format(DateLayout), snap.now.Format(DateLayout))
		if err != nil {
			return err
		}
		records = r
		return nil
	})
	g.Go(func() error {
		t, err := s.repo.LifetimeTotal(gctx, userID)
		if err != nil {
			return err
		}
		snap.total = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.window = FillWindow(records, start, snap.now)
	return snap, nil
}

func (snap *snapshot) today() DailyRecord {
	return snap.window[len(snap.window)-1]
}

func (s *service) evaluate(snap *snapshot) AchievementsResult {
	history := toAchievementHistory(snap.window)
	goal := snap.profile.DailyGoalOz

	earned := achievement.Evaluate(achievement.Input{
		DailyIntake:   snap.today().AmountOz,
		RecentHistory: history,
		TotalIntake:   snap.total,
		DailyGoal:     goal,
		Now:           snap.now,
		WeekStart:     s.opts.WeekStart,
	})

	held := make(map[string]bool, len(earned))
	for _, a := range earned {
		held[a.ID] = true
	}
	catalog := achievement.Catalog()
	all := make([]AchievementStatus, 0, len(catalog))
	for _, a := range catalog {
		all = append(all, AchievementStatus{Achievement: a, Earned: held[a.ID]})
	}

	return AchievementsResult{
		Earned:        earned,
		All:           all,
		CurrentStreak: achievement.Streak(history, goal),
		TotalIntakeOz: snap.total,
	}
}

func (s *service) Achievements(ctx context.Context, userID string) (*AchievementsResult, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	snap, err := s.loadSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := s.evaluate(snap)
	return &result, nil
}

func (s *service) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	snap, err := s.loadSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := snap.today()
	today.UserID = userID
	goal := snap.profile.DailyGoalOz

	return &Dashboard{
		Profile:         *snap.profile,
		Today:           today,
		ProgressPercent: progressPercent(today.AmountOz, goal),
		Weekly:          toChart(snap.window[len(snap.window)-chartDays:], goal),
		Achievements:    s.evaluate(snap),
	}, nil
}

func (s *service) DeleteAccount(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrMissingUserID
	}
	return s.repo.DeleteUser(ctx, userID)
}

func (s *service) RandomQuote() string {
	return quotes[s.opts.Picker(len(quotes))]
}

func defaultProfile(userID string) *Profile {
	return &Profile{UserID: userID}
}

func progressPercent(amount, goal float64) float64 {
	if goal <= 0 {
		return 0
	}
	pct := amount / goal * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
