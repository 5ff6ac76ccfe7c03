package app

import (
	"context"
	"time"

	"github.com/hylla/folio/internal/domain"
)

// historyDays is the width of the recent-activity chart.
const historyDays = 7

// DayWords totals the words of records last updated on one local day.
type DayWords struct {
	Date  string `json:"date"`
	Day   string `json:"day"`
	Words int    `json:"words"`
}

// ActivitySummary identifies one record in stats output.
type ActivitySummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Words int    `json:"words"`
}

// StateCounts counts records per lifecycle state.
type StateCounts struct {
	Active   int `json:"active"`
	Archived int `json:"archived"`
	Trashed  int `json:"trashed"`
}

// History holds writing statistics across all records.
type History struct {
	TotalWords       int              `json:"total_words"`
	ActivityCount    int              `json:"activity_count"`
	Counts           StateCounts      `json:"counts"`
	Longest          *ActivitySummary `json:"longest,omitempty"`
	LastSevenDays    []DayWords       `json:"last_seven_days"`
	Streak           int              `json:"streak"`
	BestWeekday      string           `json:"best_weekday"`
	BestWeekdayWords int              `json:"best_weekday_words"`
}

// HistoryStats computes History as of now. Day boundaries use now's location.
func (s *Service) HistoryStats(ctx context.Context, now time.Time) (History, error) {
	if now.IsZero() {
		now = s.clock()
	}
	activities, err := s.ListActivities(ctx)
	if err != nil {
		return History{}, err
	}
	return computeHistory(activities, now), nil
}

func computeHistory(activities []domain.Activity, now time.Time) History {
	loc := now.Location()
	out := History{BestWeekday: "None"}

	dayTotals := map[string]int{}
	weekdayTotals := [7]int{}
	activeDays := map[string]struct{}{}
	for _, activity := range activities {
		out.TotalWords += activity.WordCount
		switch activity.State() {
		case domain.StateActive:
			out.Counts.Active++
		case domain.StateArchived:
			out.Counts.Archived++
		case domain.StateTrashed:
			out.Counts.Trashed++
		}
		if !activity.Deleted {
			out.ActivityCount++
		}
		if out.Longest == nil || activity.WordCount > out.Longest.Words {
			out.Longest = &ActivitySummary{ID: activity.ID, Title: activity.Title, Words: activity.WordCount}
		}

		local := activity.UpdatedAt.In(loc)
		dayTotals[local.Format(time.DateOnly)] += activity.WordCount
		weekdayTotals[local.Weekday()] += activity.WordCount
		activeDays[local.Format(time.DateOnly)] = struct{}{}
	}

	today := startOfDay(now.In(loc))
	out.LastSevenDays = make([]DayWords, 0, historyDays)
	for i := historyDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		key := day.Format(time.DateOnly)
		out.LastSevenDays = append(out.LastSevenDays, DayWords{
			Date:  key,
			Day:   day.Format("Mon"),
			Words: dayTotals[key],
		})
	}

	out.Streak = streak(activeDays, today)

	for weekday := time.Sunday; weekday <= time.Saturday; weekday++ {
		if weekdayTotals[weekday] > out.BestWeekdayWords {
			out.BestWeekdayWords = weekdayTotals[weekday]
			out.BestWeekday = weekday.String()
		}
	}
	return out
}

// streak counts consecutive active days ending today or yesterday.
func streak(activeDays map[string]struct{}, today time.Time) int {
	day := today
	if _, ok := activeDays[day.Format(time.DateOnly)]; !ok {
		day = day.AddDate(0, 0, -1)
		if _, ok := activeDays[day.Format(time.DateOnly)]; !ok {
			return 0
		}
	}
	count := 0
	for {
		if _, ok := activeDays[day.Format(time.DateOnly)]; !ok {
			return count
		}
		count++
		day = day.AddDate(0, 0, -1)
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
