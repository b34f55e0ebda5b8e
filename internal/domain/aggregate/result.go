package aggregate

import (
	"bytes"
	"encoding/json"

	"github.com/okian/competence/internal/domain/model"
)

// Total is one entry of the ordered category -> total mapping.
type Total struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

// Entry is a competency tagged with the category it was retained under.
type Entry struct {
	Category string `json:"category"`
	model.Competency
}

// Result is an ordered mapping from category name to its summary.
// Iteration order is the first-seen order of category names.
// A Result is never modified after Aggregate returns it.
type Result struct {
	keys  []string
	index map[string]int
	items []model.CategorySummary
}

func newResult(capacity int) *Result {
	return &Result{
		keys:  make([]string, 0, capacity),
		index: make(map[string]int, capacity),
		items: make([]model.CategorySummary, 0, capacity),
	}
}

// set inserts s or replaces the summary stored under the same name in place.
func (r *Result) set(s model.CategorySummary) {
	if i, ok := r.index[s.Category]; ok {
		r.items[i] = s
		return
	}
	r.index[s.Category] = len(r.items)
	r.keys = append(r.keys, s.Category)
	r.items = append(r.items, s)
}

// Len returns the number of distinct categories.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.items)
}

// Keys returns the category names in insertion order.
func (r *Result) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get returns the summary for a category.
func (r *Result) Get(category string) (model.CategorySummary, bool) {
	if r == nil {
		return model.CategorySummary{}, false
	}
	i, ok := r.index[category]
	if !ok {
		return model.CategorySummary{}, false
	}
	return cloneSummary(r.items[i]), true
}

// Summaries returns every summary in insertion order.
func (r *Result) Summaries() []model.CategorySummary {
	if r == nil {
		return nil
	}
	out := make([]model.CategorySummary, len(r.items))
	for i, s := range r.items {
		out[i] = cloneSummary(s)
	}
	return out
}

// Totals returns the category -> total mapping in insertion order.
func (r *Result) Totals() []Total {
	if r == nil {
		return nil
	}
	out := make([]Total, len(r.items))
	for i, s := range r.items {
		out[i] = Total{Category: s.Category, Value: s.Value}
	}
	return out
}

// Total returns the total of one category.
func (r *Result) Total(category string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	i, ok := r.index[category]
	if !ok {
		return 0, false
	}
	return r.items[i].Value, true
}

// GrandTotal sums all category totals in insertion order.
func (r *Result) GrandTotal() float64 {
	if r == nil {
		return 0
	}
	var sum float64
	for _, s := range r.items {
		sum += s.Value
	}
	return sum
}

// CompetencyCount returns the number of retained competencies.
func (r *Result) CompetencyCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, s := range r.items {
		n += len(s.Competencies)
	}
	return n
}

// Competencies flattens the retained competencies, category by category.
func (r *Result) Competencies() []Entry {
	if r == nil {
		return nil
	}
	out := make([]Entry, 0, r.CompetencyCount())
	for _, s := range r.items {
		for _, c := range s.Competencies {
			out = append(out, Entry{Category: s.Category, Competency: c.Clone()})
		}
	}
	return out
}

// MarshalJSON encodes the result with totals as an order-preserving object.
func (r *Result) MarshalJSON() ([]byte, error) {
	summaries := r.Summaries()
	if summaries == nil {
		summaries = []model.CategorySummary{}
	}
	for i := range summaries {
		if summaries[i].Competencies == nil {
			summaries[i].Competencies = []model.Competency{}
		}
	}

	totals, err := orderedTotals(r.Totals())
	if err != nil {
		return nil, err
	}

	return json.Marshal(struct {
		Categories []model.CategorySummary `json:"categories"`
		Totals     json.RawMessage         `json:"totals"`
		Total      float64                 `json:"total"`
	}{
		Categories: summaries,
		Totals:     totals,
		Total:      r.GrandTotal(),
	})
}

// orderedTotals writes {"name": total, ...} keeping slice order;
// encoding a Go map would sort the keys.
func orderedTotals(totals []Total) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range totals {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(t.Category)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(t.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func cloneSummary(s model.CategorySummary) model.CategorySummary {
	if s.Competencies != nil {
		list := make([]model.Competency, len(s.Competencies))
		for i, c := range s.Competencies {
			list[i] = c.Clone()
		}
		s.Competencies = list
	}
	return s
}
