// Package docgen produces synthetic competence documents for load and
// smoke testing.
package docgen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"

	"github.com/okian/competence/internal/domain/model"
)

// Value distribution buckets.
const (
	caseAverage = iota
	caseHigh
	caseLow
	caseElite
	caseWide
	bucketCount
)

// Config controls the shape of a generated document.
type Config struct {
	Categories   int    // number of distinct categories
	Competencies int    // competencies per category
	Duplicates   int    // extra records reusing earlier category names
	Seed         uint64 // same seed, same document
}

// Generate builds a document following cfg. Values are rounded to one
// decimal so totals stay readable.
func Generate(ctx context.Context, cfg Config) ([]model.Category, error) {
	if cfg.Categories < 0 || cfg.Competencies < 0 || cfg.Duplicates < 0 {
		return nil, fmt.Errorf("negative size in %+v", cfg)
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	out := make([]model.Category, 0, cfg.Categories+cfg.Duplicates)
	for i := 0; i < cfg.Categories+cfg.Duplicates; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled: %w", err)
		}

		idx := i
		if i >= cfg.Categories && cfg.Categories > 0 {
			idx = rng.IntN(cfg.Categories)
		}
		name := fmt.Sprintf("Category %02d", idx+1)

		comps := make([]model.Competency, 0, cfg.Competencies)
		for j := 0; j < cfg.Competencies; j++ {
			comps = append(comps, model.NewCompetency(
				fmt.Sprintf("Skill %02d.%02d", idx+1, j+1),
				fmt.Sprintf("Generated competency %d of %s", j+1, name),
				value(rng),
			))
		}
		out = append(out, model.NewCategory(name, comps...))
	}
	return out, nil
}

// Write encodes categories as an indented JSON document.
func Write(w io.Writer, categories []model.Category) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(categories)
}

// value draws from a mix of ranges so some categories stand out.
func value(rng *rand.Rand) float64 {
	var v float64
	switch rng.IntN(bucketCount) {
	case caseAverage:
		v = 3 + rng.Float64()*4
	case caseHigh:
		v = 7 + rng.Float64()*2
	case caseLow:
		v = 0.1 + rng.Float64()*2.9
	case caseElite:
		v = 9 + rng.Float64()
	default:
		v = 0.1 + rng.Float64()*9.9
	}
	return math.Round(v*10) / 10
}
