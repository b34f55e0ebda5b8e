package aggregate_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/competence/internal/domain/aggregate"
	"github.com/okian/competence/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func comp(name string, v float64) model.Competency {
	return model.NewCompetency(name, name+" description", v)
}

func TestAggregate(t *testing.T) {
	Convey("Given the aggregator", t, func() {
		Convey("When the input is empty", func() {
			res, err := aggregate.Aggregate(nil)

			Convey("Then it should return an empty result", func() {
				So(err, ShouldBeNil)
				So(res, ShouldNotBeNil)
				So(res.Len(), ShouldEqual, 0)
				So(res.Keys(), ShouldBeEmpty)
				So(res.Totals(), ShouldBeEmpty)
				So(res.GrandTotal(), ShouldEqual, 0.0)
			})
		})

		Convey("When aggregating two distinct categories", func() {
			input := []model.Category{
				model.NewCategory("Frontend", comp("CSS", 3), comp("JS", 7)),
				model.NewCategory("Backend", comp("SQL", 5)),
			}
			res, err := aggregate.Aggregate(input)

			Convey("Then totals should be summed per category in first-seen order", func() {
				So(err, ShouldBeNil)
				So(res.Keys(), ShouldResemble, []string{"Frontend", "Backend"})

				fe, ok := res.Get("Frontend")
				So(ok, ShouldBeTrue)
				So(fe.Value, ShouldEqual, 10.0)
				So(fe.Competencies, ShouldHaveLength, 2)
				So(fe.Competencies[0].Name, ShouldEqual, "CSS")
				So(fe.Competencies[1].Name, ShouldEqual, "JS")

				be, ok := res.Get("Backend")
				So(ok, ShouldBeTrue)
				So(be.Value, ShouldEqual, 5.0)

				want := []aggregate.Total{{Category: "Frontend", Value: 10}, {Category: "Backend", Value: 5}}
				So(cmp.Diff(want, res.Totals()), ShouldBeEmpty)
				So(res.GrandTotal(), ShouldEqual, 15.0)
			})

			Convey("And unknown categories should not be found", func() {
				_, ok := res.Get("Design")
				So(ok, ShouldBeFalse)
				_, ok = res.Total("Design")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a category name repeats", func() {
			input := []model.Category{
				model.NewCategory("A", comp("one", 1)),
				model.NewCategory("B", comp("two", 2)),
				model.NewCategory("A", comp("five", 5)),
			}
			res, err := aggregate.Aggregate(input)

			Convey("Then the last occurrence should replace the first", func() {
				So(err, ShouldBeNil)
				So(res.Len(), ShouldEqual, 2)
				total, ok := res.Total("A")
				So(ok, ShouldBeTrue)
				So(total, ShouldEqual, 5.0)

				a, _ := res.Get("A")
				So(a.Competencies, ShouldHaveLength, 1)
				So(a.Competencies[0].Name, ShouldEqual, "five")
			})

			Convey("And the key should keep its first-seen position", func() {
				So(res.Keys(), ShouldResemble, []string{"A", "B"})
			})
		})

		Convey("When a category has no competencies", func() {
			res, err := aggregate.Aggregate([]model.Category{model.NewCategory("B")})

			Convey("Then it should be present with a zero total", func() {
				So(err, ShouldBeNil)
				total, ok := res.Total("B")
				So(ok, ShouldBeTrue)
				So(total, ShouldEqual, 0.0)
			})
		})

		Convey("When values are negative", func() {
			res, err := aggregate.Aggregate([]model.Category{
				model.NewCategory("Debt", comp("x", -4), comp("y", 1.5)),
			})

			Convey("Then they should be summed without clamping", func() {
				So(err, ShouldBeNil)
				total, _ := res.Total("Debt")
				So(total, ShouldEqual, -2.5)
			})
		})

		Convey("When a competency has no value", func() {
			input := []model.Category{
				model.NewCategory("Ok", comp("a", 1)),
				model.NewCategory("Broken", comp("b", 2), model.Competency{Name: "c"}),
			}
			res, err := aggregate.Aggregate(input)

			Convey("Then it should fail with a MalformedInputError and no result", func() {
				So(res, ShouldBeNil)
				So(errors.Is(err, aggregate.ErrMalformedInput), ShouldBeTrue)

				var mie *aggregate.MalformedInputError
				So(errors.As(err, &mie), ShouldBeTrue)
				So(mie.Index, ShouldEqual, 1)
				So(mie.CompetencyIndex, ShouldEqual, 1)
				So(mie.Field, ShouldEqual, aggregate.FieldValue)
				So(err.Error(), ShouldContainSubstring, "categories[1].competencies[1].value")
			})
		})

		Convey("When a value is not finite", func() {
			for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
				_, err := aggregate.Aggregate([]model.Category{model.NewCategory("X", comp("bad", v))})
				So(errors.Is(err, aggregate.ErrMalformedInput), ShouldBeTrue)
			}
		})

		Convey("When a category has no name", func() {
			_, err := aggregate.Aggregate([]model.Category{{Competencies: []model.Competency{}}})

			Convey("Then the error should point at the category field", func() {
				var mie *aggregate.MalformedInputError
				So(errors.As(err, &mie), ShouldBeTrue)
				So(mie.Field, ShouldEqual, aggregate.FieldCategory)
				So(mie.CompetencyIndex, ShouldEqual, -1)
			})
		})

		Convey("When a category has no competencies field", func() {
			name := "NoList"
			_, err := aggregate.Aggregate([]model.Category{{Name: &name}})

			Convey("Then the error should point at the competencies field", func() {
				var mie *aggregate.MalformedInputError
				So(errors.As(err, &mie), ShouldBeTrue)
				So(mie.Field, ShouldEqual, aggregate.FieldCompetencies)
			})
		})
	})
}

func TestAggregateProperties(t *testing.T) {
	Convey("Given randomly generated categories with unique names", t, func() {
		rng := rand.New(rand.NewSource(7))
		input := make([]model.Category, 0, 50)
		var flat float64
		for i := 0; i < 50; i++ {
			n := rng.Intn(6)
			comps := make([]model.Competency, 0, n)
			for j := 0; j < n; j++ {
				v := float64(rng.Intn(200) - 50)
				flat += v
				comps = append(comps, comp(fmt.Sprintf("c%d-%d", i, j), v))
			}
			input = append(input, model.NewCategory(fmt.Sprintf("cat-%02d", i), comps...))
		}

		res, err := aggregate.Aggregate(input)
		So(err, ShouldBeNil)

		Convey("Then the grand total should equal the sum of every value", func() {
			So(res.Len(), ShouldEqual, 50)
			So(res.GrandTotal(), ShouldEqual, flat)
		})

		Convey("Then aggregating again should give a structurally equal result", func() {
			again, err := aggregate.Aggregate(input)
			So(err, ShouldBeNil)
			So(cmp.Diff(res.Summaries(), again.Summaries()), ShouldBeEmpty)
			So(cmp.Diff(res.Totals(), again.Totals()), ShouldBeEmpty)
		})

		Convey("Then concurrent calls should agree", func() {
			var wg sync.WaitGroup
			results := make([]*aggregate.Result, 8)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i], _ = aggregate.Aggregate(input)
				}(i)
			}
			wg.Wait()
			for _, r := range results {
				So(cmp.Diff(res.Totals(), r.Totals()), ShouldBeEmpty)
			}
		})
	})
}

func TestResultIsolation(t *testing.T) {
	Convey("Given an aggregated result", t, func() {
		input := []model.Category{model.NewCategory("A", comp("x", 1))}
		res, err := aggregate.Aggregate(input)
		So(err, ShouldBeNil)

		Convey("When the input is mutated afterwards", func() {
			*input[0].Competencies[0].Value = 100
			input[0].Competencies[0].Name = "changed"

			Convey("Then the result should be unaffected", func() {
				a, _ := res.Get("A")
				So(a.Value, ShouldEqual, 1.0)
				So(a.Competencies[0].Name, ShouldEqual, "x")
				So(a.Competencies[0].Amount(), ShouldEqual, 1.0)
			})
		})

		Convey("When a returned summary is mutated", func() {
			a, _ := res.Get("A")
			a.Competencies[0].Name = "changed"
			keys := res.Keys()
			keys[0] = "Z"

			Convey("Then the result should be unaffected", func() {
				again, _ := res.Get("A")
				So(again.Competencies[0].Name, ShouldEqual, "x")
				So(res.Keys(), ShouldResemble, []string{"A"})
			})
		})
	})
}

func TestResultFlattening(t *testing.T) {
	Convey("Given a result with duplicates", t, func() {
		res, err := aggregate.Aggregate([]model.Category{
			model.NewCategory("A", comp("a1", 1), comp("a2", 2)),
			model.NewCategory("B", comp("b1", 3)),
			model.NewCategory("A", comp("a3", 4)),
		})
		So(err, ShouldBeNil)

		Convey("Then Competencies should list retained entries in key order", func() {
			entries := res.Competencies()
			So(res.CompetencyCount(), ShouldEqual, 2)
			So(entries, ShouldHaveLength, 2)
			So(entries[0].Category, ShouldEqual, "A")
			So(entries[0].Name, ShouldEqual, "a3")
			So(entries[1].Category, ShouldEqual, "B")
			So(entries[1].Name, ShouldEqual, "b1")
		})
	})
}

func TestResultJSON(t *testing.T) {
	Convey("Given a result", t, func() {
		res, err := aggregate.Aggregate([]model.Category{
			model.NewCategory("Zeta", comp("z", 2)),
			model.NewCategory("Alpha"),
		})
		So(err, ShouldBeNil)

		Convey("When it is marshalled", func() {
			data, err := json.Marshal(res)
			So(err, ShouldBeNil)

			Convey("Then totals should keep insertion order", func() {
				So(string(data), ShouldContainSubstring, `"totals":{"Zeta":2,"Alpha":0}`)
				So(string(data), ShouldContainSubstring, `"total":2`)
				So(string(data), ShouldContainSubstring, `"competencies":[]`)
			})
		})

		Convey("When an empty result is marshalled", func() {
			empty, _ := aggregate.Aggregate(nil)
			data, err := json.Marshal(empty)

			Convey("Then it should emit empty collections", func() {
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, `{"categories":[],"totals":{},"total":0}`)
			})
		})
	})
}
