package domain

import (
	"testing"

	"classboard-api/sheets"
)

func TestNextTaskID(t *testing.T) {
	cases := []struct {
		name  string
		tasks []Task
		want  string
	}{
		{"empty", nil, "T1"},
		{"sequential", []Task{{TaskID: "T1"}, {TaskID: "T5"}}, "T6"},
		{"unordered", []Task{{TaskID: "T12"}, {TaskID: "T3"}}, "T13"},
		{"malformed ignored", []Task{{TaskID: "T2"}, {TaskID: "X9"}, {TaskID: "T"}, {TaskID: "task-7"}}, "T3"},
		{"all malformed", []Task{{TaskID: "9"}, {TaskID: "TT4"}}, "T1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextTaskID(tc.tasks); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestParseTasks(t *testing.T) {
	rows := []sheets.Record{
		{"task_id": "T1", "subject": "science", "title": "Lab report", "due_date": "2026-04-01"},
		{"subject": "math"}, // no id, dropped
		{"task_id": 7, "title": " padded "},
	}
	tasks := ParseTasks(rows)
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].Subject != "science" || tasks[0].DueDate != "2026-04-01" {
		t.Fatalf("unexpected first task: %+v", tasks[0])
	}
	if tasks[1].TaskID != "7" || tasks[1].Title != "padded" {
		t.Fatalf("unexpected second task: %+v", tasks[1])
	}
}

func TestParseProgressGradeHandling(t *testing.T) {
	rows := []sheets.Record{
		{"item_id": "T1", "item_type": "task", "status": "complete", "grade": 8.5},
		{"item_id": "T2", "item_type": "task", "status": "complete", "grade": "9"},
		{"item_id": "T3", "item_type": "task", "status": "complete", "grade": "A+"},
		{"item_id": "T4", "item_type": "task", "status": "complete"},
	}
	progress := ParseProgress(rows)
	want := []float64{8.5, 9, 0, 0}
	for i, p := range progress {
		if p.Grade != want[i] {
			t.Fatalf("row %d: expected grade %v, got %v", i, want[i], p.Grade)
		}
	}
}
