package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/competence/internal/domain/model"
)

const document = `[
  {"category": "Frontend", "competencies": [
    {"name": "CSS", "description": "Styling", "value": 3},
    {"name": "JavaScript", "description": "Scripting", "value": 7}
  ]},
  {"category": "Backend", "competencies": [
    {"name": "SQL", "description": "Queries", "value": 5}
  ]}
]`

func execute(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeDocument(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "competence.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestAggregateCommand(t *testing.T) {
	convey.Convey("Given a competence document on disk", t, func() {
		path := writeDocument(t, document)

		convey.Convey("When aggregating as a table", func() {
			out, _, err := execute("aggregate", path)

			convey.Convey("Then totals are printed in order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "Frontend")
				convey.So(out, convey.ShouldContainSubstring, "10.00")
				convey.So(out, convey.ShouldContainSubstring, "15.00")
			})
		})

		convey.Convey("When aggregating as JSON", func() {
			out, _, err := execute("aggregate", "--format", "json", path)
			convey.So(err, convey.ShouldBeNil)

			var body struct {
				Total float64 `json:"total"`
			}
			convey.So(json.Unmarshal([]byte(out), &body), convey.ShouldBeNil)
			convey.So(body.Total, convey.ShouldEqual, 15)
		})

		convey.Convey("When aggregating as YAML", func() {
			out, _, err := execute("aggregate", "--format", "yaml", path)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "totals:")
		})

		convey.Convey("When the format is unknown", func() {
			_, _, err := execute("aggregate", "--format", "xml", path)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When printing the chart", func() {
			out, _, err := execute("chart", "--title", "Skills", path)
			convey.So(err, convey.ShouldBeNil)

			var body struct {
				Title      string `json:"title"`
				Categories []struct {
					Color string `json:"color"`
				} `json:"categories"`
			}
			convey.So(json.Unmarshal([]byte(out), &body), convey.ShouldBeNil)
			convey.So(body.Title, convey.ShouldEqual, "Skills")
			convey.So(len(body.Categories), convey.ShouldEqual, 2)
			convey.So(body.Categories[0].Color, convey.ShouldEqual, "#1f77b4")
		})
	})

	convey.Convey("Given a malformed document", t, func() {
		path := writeDocument(t, `[{"category": "A", "competencies": [{"name": "x"}]}]`)

		convey.Convey("Then aggregate reports the missing value", func() {
			_, errOut, err := execute("aggregate", path)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errOut, convey.ShouldContainSubstring, "categories[0].competencies[0].value")
		})
	})

	convey.Convey("Given a document served over HTTP", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(document))
		}))
		defer srv.Close()

		convey.Convey("Then aggregate reads it", func() {
			out, _, err := execute("aggregate", "--retries", "0", "--format", "json", srv.URL)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, `"Backend": 5`)
		})
	})
}

func TestGenerateCommand(t *testing.T) {
	convey.Convey("Given the generate command", t, func() {
		convey.Convey("When writing to a file and aggregating it", func() {
			path := filepath.Join(t.TempDir(), "doc.json")
			_, _, err := execute("generate", "--categories", "3", "--competencies", "2", "--seed", "9", "-o", path)
			convey.So(err, convey.ShouldBeNil)

			out, _, err := execute("aggregate", "--format", "json", path)

			convey.Convey("Then three categories are summarised", func() {
				convey.So(err, convey.ShouldBeNil)
				var body struct {
					Categories []json.RawMessage `json:"categories"`
				}
				convey.So(json.Unmarshal([]byte(out), &body), convey.ShouldBeNil)
				convey.So(len(body.Categories), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the same seed is used twice", func() {
			a, _, err := execute("generate", "--seed", "3")
			convey.So(err, convey.ShouldBeNil)
			b, _, _ := execute("generate", "--seed", "3")

			convey.Convey("Then the output is identical", func() {
				convey.So(a, convey.ShouldEqual, b)
			})
		})
	})
}

type failingCloser struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (f *failingCloser) Close() error {
	f.closed = true
	return f.closeErr
}

func TestWriteAndClose(t *testing.T) {
	convey.Convey("Given a generated document", t, func() {
		categories := []model.Category{model.NewCategory("A", model.NewCompetency("x", "", 1))}

		convey.Convey("When closing the output fails", func() {
			w := &failingCloser{closeErr: errors.New("disk full")}
			err := writeAndClose(w, categories)

			convey.Convey("Then the close error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "disk full")
				convey.So(w.closed, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When closing succeeds", func() {
			w := &failingCloser{}
			err := writeAndClose(w, categories)

			convey.Convey("Then the document is written", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.String(), convey.ShouldContainSubstring, `"category"`)
				convey.So(w.closed, convey.ShouldBeTrue)
			})
		})
	})
}
