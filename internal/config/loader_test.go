package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/pumpfest/crux/internal/config"
)

func TestLoad(t *testing.T) {
	Convey("Given a clean environment", t, func() {
		ctx := context.Background()
		t.Setenv("CRUX_CONFIG", "")

		Convey("Load returns the defaults", func() {
			cfg, err := config.Load(ctx)
			So(err, ShouldBeNil)
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.CacheRetention, ShouldEqual, 100)
			So(cfg.HistoryInterval, ShouldEqual, "hourly")
			So(cfg.MemoryCacheMaxEntries, ShouldEqual, 1000)
		})

		Convey("Environment variables override defaults", func() {
			t.Setenv("CRUX_LOG_LEVEL", "debug")
			t.Setenv("CRUX_CACHE_RETENTION", "25")
			t.Setenv("CRUX_HISTORY_INTERVAL", "daily")

			cfg, err := config.Load(ctx)
			So(err, ShouldBeNil)
			So(cfg.LogLevel, ShouldEqual, "debug")
			So(cfg.CacheRetention, ShouldEqual, 25)
			So(cfg.HistoryInterval, ShouldEqual, "daily")
		})

		Convey("A YAML file layers under the environment", func() {
			path := filepath.Join(t.TempDir(), "crux.yaml")
			So(os.WriteFile(path, []byte("log_level: warn\ncache_path: /tmp/alt.db\n"), 0o600), ShouldBeNil)
			t.Setenv("CRUX_CONFIG", path)
			t.Setenv("CRUX_LOG_LEVEL", "error")

			cfg, err := config.Load(ctx)
			So(err, ShouldBeNil)
			So(cfg.LogLevel, ShouldEqual, "error") // env wins
			So(cfg.CachePath, ShouldEqual, "/tmp/alt.db")
		})

		Convey("A missing config file fails loading", func() {
			t.Setenv("CRUX_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
			_, err := config.Load(ctx)
			So(err, ShouldNotBeNil)
			So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
		})

		Convey("Invalid values are rejected", func() {
			Convey("Zero retention", func() {
				t.Setenv("CRUX_CACHE_RETENTION", "0")
				_, err := config.Load(ctx)
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})

			Convey("Unknown history interval", func() {
				t.Setenv("CRUX_HISTORY_INTERVAL", "fortnightly")
				_, err := config.Load(ctx)
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		})
	})
}
