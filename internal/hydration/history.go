package hydration

import (
	"time"

	"github.com/hydrosync/hydration-service/internal/achievement"
)

// FillWindow returns exactly one record per calendar day in [start, end], oldest first.
// Days missing from records are filled with a zero amount, so streaks never skip gaps.
func FillWindow(records []DailyRecord, start, end time.Time) []DailyRecord {
	byDate := make(map[string]DailyRecord, len(records))
	for _, rec := range records {
		byDate[rec.Date] = rec
	}

	first := civilDate(start)
	last := civilDate(end)
	if last.Before(first) {
		return nil
	}

	out := make([]DailyRecord, 0, int(last.Sub(first).Hours()/24)+1)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		key := day.Format(DateLayout)
		if rec, ok := byDate[key]; ok {
			out = append(out, rec)
			continue
		}
		out = append(out, DailyRecord{Date: key})
	}
	return out
}

func toChart(records []DailyRecord, goal float64) []ChartDay {
	out := make([]ChartDay, 0, len(records))
	for _, rec := range records {
		weekday := ""
		if day, err := time.Parse(DateLayout, rec.Date); err == nil {
			weekday = day.Weekday().String()[:3]
		}
		out = append(out, ChartDay{
			Date:     rec.Date,
			Weekday:  weekday,
			AmountOz: rec.AmountOz,
			GoalMet:  goal > 0 && rec.AmountOz >= goal,
		})
	}
	return out
}

func toAchievementHistory(records []DailyRecord) []achievement.DailyRecord {
	out := make([]achievement.DailyRecord, len(records))
	for i, rec := range records {
		out[i] = achievement.DailyRecord{Date: rec.Date, Amount: rec.AmountOz}
	}
	return out
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
