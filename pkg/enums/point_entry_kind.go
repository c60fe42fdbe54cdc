package enums

import "fmt"

// PointEntryKind maps to the point_entry_kind enum in Postgres.
type PointEntryKind string

const (
	PointEntryKindAnswerAccepted PointEntryKind = "answer_accepted"
	PointEntryKindPointsSpent    PointEntryKind = "points_spent"
)

var validPointEntryKinds = []PointEntryKind{
	PointEntryKindAnswerAccepted,
	PointEntryKindPointsSpent,
}

// IsValid reports whether the value matches the canonical point entry enum.
func (k PointEntryKind) IsValid() bool {
	for _, candidate := range validPointEntryKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParsePointEntryKind converts raw input into PointEntryKind.
func ParsePointEntryKind(value string) (PointEntryKind, error) {
	for _, candidate := range validPointEntryKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid point entry kind %q", value)
}
