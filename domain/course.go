package domain

import (
	"strings"

	"classboard-api/sheets"
)

// Course is one row of a class course sheet.
type Course struct {
	CourseID string `json:"courseId"`
	Subject  string `json:"subject"`
	Title    string `json:"title"`
}

// ParseCourses maps raw course rows, skipping rows with no course id.
func ParseCourses(rows []sheets.Record) []Course {
	courses := make([]Course, 0, len(rows))
	for _, r := range rows {
		c := Course{
			CourseID: strings.TrimSpace(r.Str("course_id")),
			Subject:  strings.TrimSpace(r.Str("subject")),
			Title:    strings.TrimSpace(r.Str("title")),
		}
		if c.CourseID == "" {
			continue
		}
		courses = append(courses, c)
	}
	return courses
}

// CourseCompleted reports whether any progress row marks the course complete.
func CourseCompleted(c Course, progress []ProgressRecord) bool {
	_, ok := findComplete(c.CourseID, ItemCourse, progress)
	return ok
}
