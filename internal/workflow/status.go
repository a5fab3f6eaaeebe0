// Package workflow holds the revision lifecycle state machine and the
// data-driven workflow graph accessors.
package workflow

import "fmt"

// Status is a revision lifecycle state. The set is closed; anything else in
// the database is a bug.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusInReview Status = "in_review"
	StatusReleased Status = "released"
	StatusObsolete Status = "obsolete"
)

// ValidTransitions maps each status to its legal successors. This table is
// the single authority the coordinator consults; the seeded "Part Workflow"
// graph mirrors it row for row.
var ValidTransitions = map[Status][]Status{
	StatusDraft:    {StatusInReview},
	StatusInReview: {StatusReleased, StatusDraft},
	StatusReleased: {StatusObsolete},
	StatusObsolete: {},
}

// Valid reports whether s is a member of the closed status set.
func (s Status) Valid() bool {
	_, ok := ValidTransitions[s]
	return ok
}

// CanTransition reports whether moving from one status to the other is a
// legal lifecycle transition.
func CanTransition(from, to Status) bool {
	for _, next := range ValidTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Parse converts a stored status string into a Status, rejecting anything
// outside the closed set.
func Parse(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("workflow: unknown status %q", raw)
	}
	return s, nil
}
