package ai

import (
	"fmt"
	"strings"
)

// ExplainLevel selects the audience the assistant writes for.
type ExplainLevel string

const (
	LevelMiddleSchool  ExplainLevel = "middle-school"
	LevelHighSchool    ExplainLevel = "high-school"
	LevelUndergraduate ExplainLevel = "undergraduate"
)

// DefaultExplainLevel is the middle of the three options.
const DefaultExplainLevel = LevelHighSchool

// ExplainLevels returns the selectable levels in display order.
func ExplainLevels() []ExplainLevel {
	return []ExplainLevel{LevelMiddleSchool, LevelHighSchool, LevelUndergraduate}
}

// Audience returns the phrase used in the prompt and in selectors.
func (l ExplainLevel) Audience() string {
	switch l {
	case LevelMiddleSchool:
		return "a Middle School Student"
	case LevelUndergraduate:
		return "an Undergraduate"
	default:
		return "a High School Student"
	}
}

// String implements fmt.Stringer.
func (l ExplainLevel) String() string {
	return string(l)
}

// ParseExplainLevel accepts either the identifier ("high-school") or the audience
// phrase ("a High School Student"), case-insensitively.
func ParseExplainLevel(s string) (ExplainLevel, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return DefaultExplainLevel, nil
	}
	for _, level := range ExplainLevels() {
		if normalized == string(level) || normalized == strings.ToLower(level.Audience()) {
			return level, nil
		}
	}
	switch normalized {
	case "middle", "middle_school":
		return LevelMiddleSchool, nil
	case "high", "high_school":
		return LevelHighSchool, nil
	case "undergrad":
		return LevelUndergraduate, nil
	}
	return "", fmt.Errorf("unknown explain level %q (want one of middle-school, high-school, undergraduate)", s)
}
