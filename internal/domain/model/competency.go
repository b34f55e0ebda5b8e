// Package model contains domain models passed between layers.
package model

// Competency is a leaf record of the input document.
// Value is nil when the "value" key was absent from the source.
type Competency struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Value       *float64 `json:"value"`
}

// NewCompetency returns a competency with the given value set.
func NewCompetency(name, description string, value float64) Competency {
	return Competency{
		Name:        name,
		Description: description,
		Value:       &value,
	}
}

// Amount returns the competency value, or 0 when it is missing.
func (c Competency) Amount() float64 {
	if c.Value == nil {
		return 0
	}
	return *c.Value
}

// Category groups competencies under a unique name.
//
// Presence is tracked with nil: a nil Name means the "category" key was
// missing and a nil Competencies slice means the "competencies" key was
// missing. An empty JSON array decodes to a non-nil empty slice.
type Category struct {
	Name         *string      `json:"category"`
	Competencies []Competency `json:"competencies"`
}

// NewCategory returns a category with its name and competencies set.
// The competency slice is always non-nil.
func NewCategory(name string, competencies ...Competency) Category {
	list := make([]Competency, len(competencies))
	copy(list, competencies)
	return Category{
		Name:         &name,
		Competencies: list,
	}
}

// CategoryName returns the category name, or "" when it is missing.
func (c Category) CategoryName() string {
	if c.Name == nil {
		return ""
	}
	return *c.Name
}

// CategorySummary is the aggregated view of one category.
type CategorySummary struct {
	Category     string       `json:"category"`
	Value        float64      `json:"value"`
	Competencies []Competency `json:"competencies"`
}

// Clone returns a copy that does not share the value pointer.
func (c Competency) Clone() Competency {
	if c.Value != nil {
		v := *c.Value
		c.Value = &v
	}
	return c
}
