package recap

import (
	"strings"

	"AbsenSend/internal/models"
)

const TargetAllGrades = "all-grades"

// ResolveTarget selects which classes participate in a recap. A target is
// "all-grades", "grade-<g>", or a literal class document ID. No match is a
// no-op for the caller, not an error.
func ResolveTarget(classes []models.Class, target string) []models.Class {
	if target == TargetAllGrades {
		return classes
	}

	if grade, ok := strings.CutPrefix(target, "grade-"); ok {
		var matched []models.Class
		for _, cl := range classes {
			if cl.Grade == grade {
				matched = append(matched, cl)
			}
		}
		return matched
	}

	for _, cl := range classes {
		if cl.ID == target {
			return []models.Class{cl}
		}
	}
	return nil
}
