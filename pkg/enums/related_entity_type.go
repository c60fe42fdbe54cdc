package enums

import "fmt"

// RelatedEntityType identifies the entity a point entry references.
type RelatedEntityType string

const (
	RelatedEntityTypeAnswer   RelatedEntityType = "answer"
	RelatedEntityTypeQuestion RelatedEntityType = "question"
)

var validRelatedEntityTypes = []RelatedEntityType{
	RelatedEntityTypeAnswer,
	RelatedEntityTypeQuestion,
}

// IsValid reports whether the value matches the canonical enum.
func (t RelatedEntityType) IsValid() bool {
	for _, candidate := range validRelatedEntityTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseRelatedEntityType converts raw input into RelatedEntityType.
func ParseRelatedEntityType(value string) (RelatedEntityType, error) {
	for _, candidate := range validRelatedEntityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid related entity type %q", value)
}
