package service_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/competence/internal/app"
	"github.com/okian/competence/internal/adapters/source"
)

func TestServiceIntegration(t *testing.T) {
	doc, err := os.ReadFile(filepath.Join("..", "adapters", "source", "testdata", "competence.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	Convey("Given a service reading a document over HTTP", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(doc)
		}))
		defer srv.Close()

		svc := service.New(
			service.WithSource(srv.URL),
			service.WithFetcher(source.NewFetcher(source.WithTimeout(time.Second), source.WithMaxRetries(0))),
			service.WithRefreshInterval(0),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the fixture is summarised in document order", func() {
			snap, err := svc.Latest(ctx)
			So(err, ShouldBeNil)
			So(snap.Result.Keys(), ShouldResemble, []string{"Frontend", "Backend"})

			total, ok := snap.Result.Total("Frontend")
			So(ok, ShouldBeTrue)
			So(total, ShouldEqual, 10)
			So(snap.Result.GrandTotal(), ShouldEqual, 15)
		})
	})

	Convey("Given a service reading a document from disk", t, func() {
		path := filepath.Join("..", "adapters", "source", "testdata", "competence.json")
		svc := service.New(service.WithSource(path))

		Convey("When refreshing without starting", func() {
			snap, err := svc.Refresh(context.Background(), service.ReasonManual)

			Convey("Then the snapshot is published", func() {
				So(err, ShouldBeNil)
				So(snap.Result.CompetencyCount(), ShouldEqual, 3)
			})
		})
	})
}
