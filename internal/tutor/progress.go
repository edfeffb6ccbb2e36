package tutor

import (
	"fmt"
	"sort"
	"time"

	"CuteTutor/internal/models"
)

type WeekCount struct {
	Week   string `json:"week"`
	Topics int    `json:"topics"`
}

// WeekKey formats t as YYYY-Www with a Sunday-based week number (strftime %U):
// days before the year's first Sunday fall in week 00.
func WeekKey(t time.Time) string {
	yday := t.YearDay() - 1
	week := (yday + 7 - int(t.Weekday())) / 7
	return fmt.Sprintf("%d-W%02d", t.Year(), week)
}

// WeeklyProgress counts tutor sessions per week, oldest week first. Sessions
// without a parseable date are skipped.
func WeeklyProgress(history []models.TutorSession) []WeekCount {
	counts := make(map[string]int)
	for _, s := range history {
		d, err := time.Parse(models.DateLayout, s.Date)
		if err != nil {
			continue
		}
		counts[WeekKey(d)]++
	}

	out := make([]WeekCount, 0, len(counts))
	for week, n := range counts {
		out = append(out, WeekCount{Week: week, Topics: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	return out
}
