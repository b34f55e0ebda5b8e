// Package chart projects an aggregation result into the payload consumed by
// the donut-chart renderer: an inner ring of categories, an outer ring of
// competencies, a title and the centre total. It does no geometry.
package chart

import (
	"github.com/okian/competence/internal/domain/aggregate"
)

// DefaultTitle is used when no title option is given.
const DefaultTitle = "Competencies by Category"

// DefaultPalette is the d3 category10 scheme.
var DefaultPalette = []string{ //nolint:gochecknoglobals // fixed colour scheme
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// Slice is one segment of a ring.
type Slice struct {
	Label       string  `json:"label"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Value       float64 `json:"value"`
	Share       float64 `json:"share"`
	Color       string  `json:"color"`
}

// Chart is the render-ready payload.
type Chart struct {
	Title        string  `json:"title"`
	Total        float64 `json:"total"`
	Categories   []Slice `json:"categories"`
	Competencies []Slice `json:"competencies"`
}

type options struct {
	title   string
	palette []string
}

// Option configures Build.
type Option func(*options)

// WithTitle sets the chart title.
func WithTitle(title string) Option {
	return func(o *options) {
		if title != "" {
			o.title = title
		}
	}
}

// WithPalette sets the colours assigned to categories in order.
func WithPalette(palette []string) Option {
	return func(o *options) {
		if len(palette) > 0 {
			o.palette = append([]string(nil), palette...)
		}
	}
}

// Build assigns colours and shares to every category and competency of res.
// Colours cycle through the palette by category position; competencies
// inherit their category's colour. Shares are relative to the grand total
// and are 0 when the grand total is not positive.
func Build(res *aggregate.Result, opts ...Option) Chart {
	o := options{title: DefaultTitle, palette: DefaultPalette}
	for _, opt := range opts {
		opt(&o)
	}

	total := res.GrandTotal()
	c := Chart{
		Title:        o.title,
		Total:        total,
		Categories:   make([]Slice, 0, res.Len()),
		Competencies: make([]Slice, 0, res.CompetencyCount()),
	}

	colors := make(map[string]string, res.Len())
	for i, t := range res.Totals() {
		color := o.palette[i%len(o.palette)]
		colors[t.Category] = color
		c.Categories = append(c.Categories, Slice{
			Label:    t.Category,
			Category: t.Category,
			Value:    t.Value,
			Share:    share(t.Value, total),
			Color:    color,
		})
	}

	for _, e := range res.Competencies() {
		v := e.Amount()
		c.Competencies = append(c.Competencies, Slice{
			Label:       e.Name,
			Category:    e.Category,
			Description: e.Description,
			Value:       v,
			Share:       share(v, total),
			Color:       colors[e.Category],
		})
	}

	return c
}

func share(v, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return v / total
}
