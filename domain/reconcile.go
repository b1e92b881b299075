package domain

import (
	"math"
	"time"
)

// TaskStatus is the rendered status of a task for one user.
type TaskStatus string

const (
	StatusCompleted TaskStatus = "Completed"
	StatusOverdue   TaskStatus = "Overdue"
	StatusDueToday  TaskStatus = "Due Today"
	StatusPending   TaskStatus = "Pending"
)

// TaskState is the derived per-user view of a task.
type TaskState struct {
	Task      Task       `json:"task"`
	Completed bool       `json:"completed"`
	Grade     float64    `json:"grade"`
	Status    TaskStatus `json:"status"`
}

// Accepted due-date layouts. The store is schema-less and dates arrive as
// whatever the writing client produced.
var dueDateLayouts = []string{"2006-01-02", "02/01/2006", time.RFC3339}

func parseDay(s string) (time.Time, bool) {
	for _, layout := range dueDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return truncateToDay(t), true
		}
	}
	return time.Time{}, false
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ReconcileTask joins one task against a user's progress log. Completion
// uses any-match semantics over the append-only log and takes precedence
// over the date-derived statuses. Date comparison is at day granularity.
// A due date that cannot be parsed never counts as overdue.
func ReconcileTask(t Task, progress []ProgressRecord, today time.Time) TaskState {
	state := TaskState{Task: t, Status: StatusPending}
	if rec, ok := findComplete(t.TaskID, ItemTask, progress); ok {
		state.Completed = true
		state.Grade = rec.Grade
		state.Status = StatusCompleted
		return state
	}

	due, ok := parseDay(t.DueDate)
	if !ok {
		return state
	}
	day := truncateToDay(today)
	switch {
	case due.Before(day):
		state.Status = StatusOverdue
	case due.Equal(day):
		state.Status = StatusDueToday
	}
	return state
}

// ReconcileTasks derives the state of every task against one progress log.
func ReconcileTasks(tasks []Task, progress []ProgressRecord, today time.Time) []TaskState {
	states := make([]TaskState, 0, len(tasks))
	for _, t := range tasks {
		states = append(states, ReconcileTask(t, progress, today))
	}
	return states
}

// DefaultSubject is used for tasks whose subject field is empty.
const DefaultSubject = "General"

// SubjectGroup is the per-subject task listing for rendering.
type SubjectGroup struct {
	Subject   string `json:"subject"`
	Tasks     []Task `json:"tasks"`
	Completed int    `json:"completed"`
}

// GroupBySubject buckets tasks by subject in order of first appearance and
// counts completions per bucket. The order carries no meaning but must be
// deterministic.
func GroupBySubject(tasks []Task, progress []ProgressRecord) []SubjectGroup {
	index := map[string]int{}
	groups := []SubjectGroup{}
	for _, t := range tasks {
		subject := t.Subject
		if subject == "" {
			subject = DefaultSubject
		}
		i, ok := index[subject]
		if !ok {
			i = len(groups)
			index[subject] = i
			groups = append(groups, SubjectGroup{Subject: subject})
		}
		groups[i].Tasks = append(groups[i].Tasks, t)
		if _, done := findComplete(t.TaskID, ItemTask, progress); done {
			groups[i].Completed++
		}
	}
	return groups
}

// SubjectScore carries per-subject totals. EarnedPoints accumulates the
// grades of matched progress rows; there is no separate possible-points
// figure, so a subject's total equals whatever was earned.
type SubjectScore struct {
	Subject        string  `json:"subject"`
	TotalTasks     int     `json:"totalTasks"`
	CompletedTasks int     `json:"completedTasks"`
	EarnedPoints   float64 `json:"earnedPoints"`
}

// SubjectPoints computes per-subject completion and grade totals, in order
// of first subject appearance.
func SubjectPoints(tasks []Task, progress []ProgressRecord) []SubjectScore {
	index := map[string]int{}
	scores := []SubjectScore{}
	for _, t := range tasks {
		subject := t.Subject
		if subject == "" {
			subject = DefaultSubject
		}
		i, ok := index[subject]
		if !ok {
			i = len(scores)
			index[subject] = i
			scores = append(scores, SubjectScore{Subject: subject})
		}
		scores[i].TotalTasks++
		if rec, done := findComplete(t.TaskID, ItemTask, progress); done {
			scores[i].CompletedTasks++
			scores[i].EarnedPoints += rec.Grade
		}
	}
	return scores
}

// AggregateProgress computes the completion percentage of one item type.
// Duplicate completions of the same item count once. Zero total yields zero.
func AggregateProgress(progress []ProgressRecord, itemType string, total int) int {
	if total <= 0 {
		return 0
	}
	seen := map[string]struct{}{}
	for _, p := range progress {
		if p.ItemType != itemType || p.Status != StatusComplete || p.ItemID == "" {
			continue
		}
		seen[p.ItemID] = struct{}{}
	}
	return int(math.Round(float64(len(seen)) / float64(total) * 100))
}
