package domain

import (
	"strings"

	"classboard-api/sheets"
)

// Item types a progress row may reference.
const (
	ItemTask   = "task"
	ItemCourse = "course"
)

// StatusComplete is the only status ever written to a progress sheet. The
// store is append-only, so a user completing the same item twice simply
// produces two rows; readers must use any-match semantics.
const StatusComplete = "complete"

// ProgressRecord is one row of a user's append-only progress log.
type ProgressRecord struct {
	ItemID         string  `json:"itemId"`
	ItemType       string  `json:"itemType"`
	Status         string  `json:"status"`
	CompletionDate string  `json:"completionDate,omitempty"`
	Grade          float64 `json:"grade"`
}

// ParseProgress maps raw progress rows. A missing or non-numeric grade
// becomes zero.
func ParseProgress(rows []sheets.Record) []ProgressRecord {
	out := make([]ProgressRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, ProgressRecord{
			ItemID:         strings.TrimSpace(r.Str("item_id")),
			ItemType:       strings.TrimSpace(r.Str("item_type")),
			Status:         strings.TrimSpace(r.Str("status")),
			CompletionDate: strings.TrimSpace(r.Str("completion_date")),
			Grade:          r.Float("grade"),
		})
	}
	return out
}

// findComplete returns the first progress row marking the item complete.
// Ids are compared as strings; the log may hold duplicates.
func findComplete(itemID, itemType string, progress []ProgressRecord) (ProgressRecord, bool) {
	for _, p := range progress {
		if p.ItemID == itemID && p.ItemType == itemType && p.Status == StatusComplete {
			return p, true
		}
	}
	return ProgressRecord{}, false
}
