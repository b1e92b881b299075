package session

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"

	log "github.com/sirupsen/logrus"

	"classboard-api/domain"
	"classboard-api/sheets"
)

// CanonicalSubjects is what the "all" shorthand expands to in an admin's
// subject declaration.
var CanonicalSubjects = []string{
	"english", "mathematics", "urdu", "arabic", "malayalam", "social science", "science",
}

// Scope maps a class identifier to the subjects an admin may manage in it.
type Scope map[string][]string

// Allows reports whether the class/subject pair lies inside the scope.
// Subjects compare case-insensitively; class ids compare exactly.
func (s Scope) Allows(class, subject string) bool {
	subs, ok := s[class]
	if !ok {
		return false
	}
	for _, declared := range subs {
		if strings.EqualFold(declared, strings.TrimSpace(subject)) {
			return true
		}
	}
	return false
}

// Classes returns the classes in scope, sorted for deterministic output.
func (s Scope) Classes() []string {
	classes := make([]string, 0, len(s))
	for c := range s {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return classes
}

var subjectGroupPattern = regexp.MustCompile(`\(([^)]*)\)`)

// ParseScope derives the declared (pre-intersection) scope from an admin's
// class and subjects fields. The class field is a whitespace or comma
// delimited list. The subjects field supports two encodings: bracketed
// per-class groups like "(5-all)(6-math,science)", or a flat comma list
// applied uniformly to every class. "all" expands to CanonicalSubjects; an
// empty subjects field is treated the same way.
func ParseScope(classField, subjectsField string) Scope {
	scope := Scope{}
	classes := splitClasses(classField)
	if len(classes) == 0 {
		return scope
	}

	groups := subjectGroupPattern.FindAllStringSubmatch(subjectsField, -1)
	if len(groups) > 0 {
		declared := map[string][]string{}
		for _, g := range groups {
			class, spec, ok := strings.Cut(g[1], "-")
			if !ok {
				continue
			}
			declared[strings.TrimSpace(class)] = splitSubjects(spec)
		}
		for _, class := range classes {
			if subs, ok := declared[class]; ok {
				scope[class] = subs
			} else {
				scope[class] = []string{}
			}
		}
		return scope
	}

	flat := splitSubjects(subjectsField)
	for _, class := range classes {
		scope[class] = append([]string(nil), flat...)
	}
	return scope
}

func splitClasses(field string) []string {
	return strings.FieldsFunc(field, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func splitSubjects(spec string) []string {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "all") {
		return append([]string(nil), CanonicalSubjects...)
	}
	var subs []string
	for _, s := range strings.Split(spec, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		subs = append(subs, s)
	}
	return subs
}

// BuildScope computes an admin's effective scope: the declared scope
// narrowed, per class, to subjects that actually have tasks in that class's
// sheet. When a task sheet cannot be read the declared subjects for that
// class are kept and the failure is logged; a transient store error must not
// silently shrink an admin's reach.
func BuildScope(ctx context.Context, store Store, user domain.User, logger *log.Logger) Scope {
	declared := ParseScope(user.Class, user.Subjects)
	scope := Scope{}
	for class, subs := range declared {
		rows, err := store.Get(ctx, sheets.TaskSheet(class))
		if err != nil {
			logger.WithFields(log.Fields{"class": class, "error": err.Error()}).Warn("scope.tasks.read")
			scope[class] = subs
			continue
		}
		present := map[string]struct{}{}
		for _, t := range domain.ParseTasks(rows) {
			subject := t.Subject
			if subject == "" {
				subject = domain.DefaultSubject
			}
			present[strings.ToLower(subject)] = struct{}{}
		}
		kept := []string{}
		for _, s := range subs {
			if _, ok := present[strings.ToLower(s)]; ok {
				kept = append(kept, s)
			}
		}
		scope[class] = kept
	}
	return scope
}
