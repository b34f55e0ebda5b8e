// Package aggregate turns category records into per-category totals.
//
// Aggregate is pure: it performs no I/O, keeps no state between calls and
// returns a fresh Result every time, so it is safe to call concurrently.
package aggregate

import (
	"math"

	"github.com/okian/competence/internal/domain/model"
)

// Aggregate sums competency values per category in a single pass.
//
// Categories are keyed by name. When a name repeats, the later record
// replaces the earlier one completely (last-write-wins, no merge) while the
// key keeps the position where it was first seen. A category with no
// competencies is present with a total of 0; negative values are summed
// as-is.
//
// Any record without a category name, without a competencies field, or
// with a missing or non-finite value fails the whole call with a
// *MalformedInputError; no partial result is returned.
func Aggregate(categories []model.Category) (*Result, error) {
	res := newResult(len(categories))

	for i, c := range categories {
		if c.Name == nil {
			return nil, &MalformedInputError{Index: i, CompetencyIndex: -1, Field: FieldCategory, Reason: "is missing"}
		}
		if c.Competencies == nil {
			return nil, &MalformedInputError{Index: i, CompetencyIndex: -1, Field: FieldCompetencies, Reason: "is missing"}
		}

		var total float64
		for j, comp := range c.Competencies {
			if comp.Value == nil {
				return nil, &MalformedInputError{Index: i, CompetencyIndex: j, Field: FieldValue, Reason: "is missing"}
			}
			v := *comp.Value
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &MalformedInputError{Index: i, CompetencyIndex: j, Field: FieldValue, Reason: "is not a finite number"}
			}
			total += v
		}

		retained := make([]model.Competency, len(c.Competencies))
		for j, comp := range c.Competencies {
			retained[j] = comp.Clone()
		}

		res.set(model.CategorySummary{
			Category:     *c.Name,
			Value:        total,
			Competencies: retained,
		})
	}

	return res, nil
}
