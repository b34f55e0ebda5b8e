package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/competence/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.SourceURL, convey.ShouldEqual, "data/competence.json")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 16)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 1)
			convey.So(cfg.FetchTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.RefreshInterval(), convey.ShouldEqual, time.Minute)
			convey.So(cfg.Palette, convey.ShouldHaveLength, 10)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "competence")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the source is blank", func() {
			cfg.SourceURL = "  "

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a metrics label name is reserved", func() {
			cfg.MetricsLabels = map[string]string{"__name__": "x"}

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a duration is negative", func() {
			cfg.RefreshIntervalMS = -1

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
