package aggregate

import (
	"errors"
	"fmt"
)

// ErrMalformedInput is the kind of every MalformedInputError.
var ErrMalformedInput = errors.New("malformed input")

// Field names reported by MalformedInputError.
const (
	FieldCategory     = "category"
	FieldCompetencies = "competencies"
	FieldValue        = "value"
)

// MalformedInputError reports the first record that could not be aggregated.
// CompetencyIndex is -1 when the problem is on the category itself.
type MalformedInputError struct {
	Index           int
	CompetencyIndex int
	Field           string
	Reason          string
}

func (e *MalformedInputError) Error() string {
	if e.CompetencyIndex < 0 {
		return fmt.Sprintf("%s: categories[%d].%s %s", ErrMalformedInput, e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: categories[%d].competencies[%d].%s %s",
		ErrMalformedInput, e.Index, e.CompetencyIndex, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrMalformedInput) match.
func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}
