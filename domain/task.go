package domain

import (
	"regexp"
	"strconv"
	"strings"

	"classboard-api/sheets"
)

// Task is one row of a class task sheet. Tasks are append-only; once written
// they are never updated or deleted.
type Task struct {
	TaskID      string `json:"taskId"`
	Subject     string `json:"subject"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"dueDate"`
}

// ParseTask maps a raw sheet row onto a Task.
func ParseTask(r sheets.Record) Task {
	return Task{
		TaskID:      strings.TrimSpace(r.Str("task_id")),
		Subject:     strings.TrimSpace(r.Str("subject")),
		Title:       strings.TrimSpace(r.Str("title")),
		Description: strings.TrimSpace(r.Str("description")),
		DueDate:     strings.TrimSpace(r.Str("due_date")),
	}
}

// ParseTasks maps raw rows onto tasks, skipping rows with no task id.
func ParseTasks(rows []sheets.Record) []Task {
	tasks := make([]Task, 0, len(rows))
	for _, r := range rows {
		t := ParseTask(r)
		if t.TaskID == "" {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks
}

var taskIDPattern = regexp.MustCompile(`^T(\d+)$`)

// NextTaskID returns the id for a newly created task: one past the highest
// existing T<integer> id, or "T1" when the sheet is empty. Ids that do not
// match the pattern are ignored.
func NextTaskID(tasks []Task) string {
	max := 0
	for _, t := range tasks {
		m := taskIDPattern.FindStringSubmatch(t.TaskID)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return "T" + strconv.Itoa(max+1)
}
