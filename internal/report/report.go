// Package report renders aggregation results for terminals and pipes.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/okian/competence/internal/domain/aggregate"
)

// Format selects the output encoding.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Renderer writes results in one format.
type Renderer struct {
	format  Format
	printer *message.Printer
	details bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLanguage sets the locale used for numbers in tables, e.g. "de".
// Unparseable tags fall back to English.
func WithLanguage(tag string) Option {
	return func(r *Renderer) {
		if tag == "" {
			return
		}
		t, err := language.Parse(tag)
		if err != nil {
			return
		}
		r.printer = message.NewPrinter(t)
	}
}

// WithDetails lists each competency under its category in tables.
func WithDetails(on bool) Option {
	return func(r *Renderer) { r.details = on }
}

// New creates a Renderer for format.
func New(format Format, opts ...Option) *Renderer {
	r := &Renderer{
		format:  format,
		printer: message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes res to w.
func (r *Renderer) Render(w io.Writer, res *aggregate.Result) error {
	var err error
	switch r.format {
	case FormatTable:
		err = r.table(w, res)
	case FormatJSON:
		err = renderJSON(w, res)
	case FormatYAML:
		err = renderYAML(w, res)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, r.format)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}

// Number formats v with two decimals for the renderer's locale.
func (r *Renderer) Number(v float64) string {
	return r.printer.Sprintf("%.2f", v)
}

func (r *Renderer) table(w io.Writer, res *aggregate.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "CATEGORY\tCOMPETENCIES\tTOTAL\t")
	for _, s := range res.Summaries() {
		fmt.Fprintf(tw, "%s\t%d\t%s\t\n", s.Category, len(s.Competencies), r.Number(s.Value))
		if !r.details {
			continue
		}
		for _, c := range s.Competencies {
			fmt.Fprintf(tw, "  %s\t\t%s\t\n", c.Name, r.Number(c.Amount()))
		}
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t%s\t\n", res.CompetencyCount(), r.Number(res.GrandTotal()))
	return tw.Flush()
}

func renderJSON(w io.Writer, res *aggregate.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// yamlDocument mirrors the JSON shape with an ordered totals mapping.
type yamlDocument struct {
	Categories []yamlCategory `yaml:"categories"`
	Totals     *yaml.Node     `yaml:"totals"`
	Total      float64        `yaml:"total"`
}

type yamlCategory struct {
	Category     string           `yaml:"category"`
	Value        float64          `yaml:"value"`
	Competencies []yamlCompetency `yaml:"competencies"`
}

type yamlCompetency struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Value       float64 `yaml:"value"`
}

func renderYAML(w io.Writer, res *aggregate.Result) error {
	doc := yamlDocument{
		Categories: make([]yamlCategory, 0, res.Len()),
		Totals:     &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"},
		Total:      res.GrandTotal(),
	}
	for _, s := range res.Summaries() {
		cat := yamlCategory{
			Category:     s.Category,
			Value:        s.Value,
			Competencies: make([]yamlCompetency, 0, len(s.Competencies)),
		}
		for _, c := range s.Competencies {
			cat.Competencies = append(cat.Competencies, yamlCompetency{
				Name:        c.Name,
				Description: c.Description,
				Value:       c.Amount(),
			})
		}
		doc.Categories = append(doc.Categories, cat)
	}
	for _, t := range res.Totals() {
		var k, v yaml.Node
		if err := k.Encode(t.Category); err != nil {
			return err
		}
		if err := v.Encode(t.Value); err != nil {
			return err
		}
		doc.Totals.Content = append(doc.Totals.Content, &k, &v)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
