package achievement

import "time"

// DateLayout is the calendar-date format used by DailyRecord.Date.
const DateLayout = "2006-01-02"

// minPerfectWeekHistory guards Perfect Week against partial windows.
const minPerfectWeekHistory = 7

// DailyRecord is the total intake for a single calendar day.
type DailyRecord struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount_oz"`
}

// Input is a snapshot of a user's intake data.
//
// RecentHistory must be chronological (newest last) and contiguous by calendar day:
// days without intake are expected as zero-amount records rather than omitted.
type Input struct {
	DailyIntake   float64
	RecentHistory []DailyRecord
	TotalIntake   float64
	DailyGoal     float64

	// Now is the evaluation instant; its location decides what "today" is.
	Now time.Time
	// WeekStart is the first day of a calendar week. The zero value is Sunday.
	WeekStart time.Weekday
}

// Evaluate returns every achievement earned for in, in catalog order.
func Evaluate(in Input) []Achievement {
	earned := make(map[string]bool, len(catalog))

	if in.TotalIntake > 0 {
		earned[FirstDrink] = true
	}
	if in.DailyIntake >= GallonOz {
		earned[GallonClub] = true
	}
	if in.TotalIntake >= HydratorOz {
		earned[Hydrator] = true
	}
	if in.TotalIntake >= MasterHydratorOz {
		earned[MasterHydrator] = true
	}

	streak := Streak(in.RecentHistory, in.DailyGoal)
	for id, days := range streakBadges {
		if streak >= days {
			earned[id] = true
		}
	}

	if isPerfectWeek(in.RecentHistory, in.DailyGoal, in.Now, in.WeekStart) {
		earned[PerfectWeek] = true
	}

	out := make([]Achievement, 0, len(earned))
	for _, a := range catalog {
		if earned[a.ID] {
			out = append(out, a)
		}
	}
	return out
}

// Streak counts the trailing run of days, ending at the newest record, that met goal.
func Streak(history []DailyRecord, goal float64) int {
	streak := 0
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Amount < goal {
			break
		}
		streak++
	}
	return streak
}

// WeekStartOf returns the calendar date on which the week containing day begins.
func WeekStartOf(day time.Time, weekStart time.Weekday) time.Time {
	d := civilDate(day)
	elapsed := (int(d.Weekday()) - int(weekStart) + 7) % 7
	return d.AddDate(0, 0, -elapsed)
}

func isPerfectWeek(history []DailyRecord, goal float64, now time.Time, weekStart time.Weekday) bool {
	if len(history) < minPerfectWeekHistory {
		return false
	}

	today := civilDate(now)
	start := WeekStartOf(now, weekStart)
	elapsedDays := int(today.Sub(start).Hours()/24) + 1

	inWeek := 0
	for _, rec := range history {
		day, err := time.Parse(DateLayout, rec.Date)
		if err != nil {
			continue
		}
		if day.Before(start) || day.After(today) {
			continue
		}
		if rec.Amount < goal {
			return false
		}
		inWeek++
	}
	return inWeek == elapsedDays
}

// civilDate drops the clock and location from t, keeping its calendar date as UTC midnight.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
