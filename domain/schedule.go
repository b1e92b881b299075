package domain

import (
	"strconv"
	"strings"
	"time"

	"classboard-api/sheets"
)

// ScheduleEntry is one weekday row of a class schedule sheet. Periods are
// ordered subject labels; an empty label or "Free" means no lesson.
type ScheduleEntry struct {
	Day     string   `json:"day"`
	Periods []string `json:"periods"`
}

// ParseSchedule maps raw schedule rows. Period columns are named period_1,
// period_2, ... and are collected in order until the first missing column.
func ParseSchedule(rows []sheets.Record) []ScheduleEntry {
	entries := make([]ScheduleEntry, 0, len(rows))
	for _, r := range rows {
		day := strings.ToLower(strings.TrimSpace(r.Str("day")))
		if day == "" {
			continue
		}
		var periods []string
		for i := 1; ; i++ {
			key := "period_" + strconv.Itoa(i)
			if _, ok := r[key]; !ok {
				break
			}
			periods = append(periods, strings.TrimSpace(r.Str(key)))
		}
		entries = append(entries, ScheduleEntry{Day: day, Periods: periods})
	}
	return entries
}

// TodaySubjects returns the distinct subjects taught on the given weekday,
// in period order, skipping free periods.
func TodaySubjects(entries []ScheduleEntry, weekday time.Weekday) []string {
	day := strings.ToLower(weekday.String())
	subjects := []string{}
	seen := map[string]struct{}{}
	for _, e := range entries {
		if e.Day != day {
			continue
		}
		for _, p := range e.Periods {
			if p == "" || strings.EqualFold(p, "free") {
				continue
			}
			key := strings.ToLower(p)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			subjects = append(subjects, p)
		}
	}
	return subjects
}
