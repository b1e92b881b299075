package session

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"classboard-api/domain"
	"classboard-api/sheets"
)

func TestParseScopeBracketedGroups(t *testing.T) {
	scope := ParseScope("5, 6", "(5-all)(6-math,science)")

	want := Scope{
		"5": {"english", "mathematics", "urdu", "arabic", "malayalam", "social science", "science"},
		"6": {"math", "science"},
	}
	if !reflect.DeepEqual(scope, want) {
		t.Fatalf("unexpected scope: %#v", scope)
	}
}

func TestParseScopeFlatList(t *testing.T) {
	scope := ParseScope("5 6", "math, science")
	want := Scope{
		"5": {"math", "science"},
		"6": {"math", "science"},
	}
	if !reflect.DeepEqual(scope, want) {
		t.Fatalf("unexpected scope: %#v", scope)
	}
}

func TestParseScopeEmptySubjectsMeansAll(t *testing.T) {
	scope := ParseScope("7", "")
	if !reflect.DeepEqual(scope["7"], CanonicalSubjects) {
		t.Fatalf("unexpected subjects: %v", scope["7"])
	}
}

func TestParseScopeClassWithoutGroup(t *testing.T) {
	scope := ParseScope("5,6", "(5-math)")
	if len(scope["6"]) != 0 {
		t.Fatalf("expected no subjects for undeclared class, got %v", scope["6"])
	}
}

func TestScopeAllows(t *testing.T) {
	scope := Scope{"5": {"Science", "social science"}}
	if !scope.Allows("5", "science") {
		t.Fatal("expected case-insensitive subject match")
	}
	if !scope.Allows("5", " Social Science ") {
		t.Fatal("expected trimmed subject match")
	}
	if scope.Allows("5", "math") {
		t.Fatal("subject outside scope allowed")
	}
	if scope.Allows("6", "science") {
		t.Fatal("class outside scope allowed")
	}
}

func TestBuildScopeIntersectsWithTaskSubjects(t *testing.T) {
	store := &stubStore{rows: map[string][]sheets.Record{
		sheets.TaskSheet("5"): {
			{"task_id": "T1", "subject": "science"},
			{"task_id": "T2", "subject": "English"},
		},
	}}
	store.errs = map[string]error{sheets.TaskSheet("6"): errors.New("store down")}

	logger, _ := test.NewNullLogger()
	user := domain.User{
		Username: "head",
		Role:     domain.RoleAdmin,
		Class:    "5, 6",
		Subjects: "(5-all)(6-math,science)",
	}

	scope := BuildScope(context.Background(), store, user, logger)

	// Declared canonical list narrowed to subjects with actual tasks.
	if !reflect.DeepEqual(scope["5"], []string{"english", "science"}) {
		t.Fatalf("unexpected class 5 subjects: %v", scope["5"])
	}
	// Unreadable task sheet keeps the declaration instead of locking out.
	if !reflect.DeepEqual(scope["6"], []string{"math", "science"}) {
		t.Fatalf("unexpected class 6 subjects: %v", scope["6"])
	}
}
