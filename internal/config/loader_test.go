package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/wfmsim/internal/config"
	"github.com/okian/wfmsim/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
				convey.So(cfg.IntervalMinutes, convey.ShouldEqual, 30)
				convey.So(len(cfg.Channels), convey.ShouldEqual, 3)
				convey.So(len(cfg.Scenarios), convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("WFM_QUEUE_SIZE", "64")
			_ = os.Setenv("WFM_WORKER_COUNT", "16")
			_ = os.Setenv("WFM_INTERVAL_MINUTES", "60")
			_ = os.Setenv("WFM_OUTPUT_DRIVER", "csv")
			_ = os.Setenv("WFM_PROGRESS", "false")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.IntervalMinutes, convey.ShouldEqual, 60)
				convey.So(cfg.OutputDriver, convey.ShouldEqual, "csv")
				convey.So(cfg.Progress, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
# run at quarter hours
interval_minutes: 15
horizon_days: 7
output_driver: memory
channels:
  voice:
    real_time: true
    sla_target_seconds: 15
    sla_target_fraction: 0.9
scenarios:
  - name: surge
    label: Surge
    demand_multiplier: 1.5
    wage_multiplier: 1
    staffing_buffer_pct: 0.1
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("WFM_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values replace the stock channels and scenarios", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.IntervalMinutes, convey.ShouldEqual, 15)
				convey.So(cfg.HorizonDays, convey.ShouldEqual, 7)
				convey.So(len(cfg.Channels), convey.ShouldEqual, 1)
				convey.So(cfg.Channels["voice"].SLATargetSeconds, convey.ShouldEqual, 15)
				convey.So(len(cfg.Scenarios), convey.ShouldEqual, 1)
				convey.So(cfg.Scenarios[0].DemandMultiplier, convey.ShouldEqual, 1.5)

				set, err := cfg.ScenarioSet()
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(set), convey.ShouldEqual, 2)
				convey.So(set[0].Name, convey.ShouldEqual, model.BaselineName)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("horizon_days: 7\nholdout_days: 3\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("WFM_CONFIG", tmpFile)
			_ = os.Setenv("WFM_HORIZON_DAYS", "28")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.HorizonDays, convey.ShouldEqual, 28)
				convey.So(cfg.HoldoutDays, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When a .env file is present", func() {
			envFile := createTempFile("wfm-*.env", "WFM_HOLDOUT_DAYS=5\nWFM_LOG_FORMAT=json\n")
			defer func() { _ = os.Remove(envFile) }()
			_ = os.Setenv("WFM_ENV_FILE", envFile)
			_ = os.Setenv("WFM_LOG_FORMAT", "text")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then its values apply below the process environment", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.HoldoutDays, convey.ShouldEqual, 5)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("WFM_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("WFM_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("WFM_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a loaded value fails validation", func() {
			_ = os.Setenv("WFM_WORKER_COUNT", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "worker_count")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"WFM_CONFIG",
		"WFM_ENV_FILE",
		"WFM_QUEUE_SIZE",
		"WFM_WORKER_COUNT",
		"WFM_INTERVAL_MINUTES",
		"WFM_OUTPUT_DRIVER",
		"WFM_PROGRESS",
		"WFM_HORIZON_DAYS",
		"WFM_HOLDOUT_DAYS",
		"WFM_LOG_FORMAT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	return createTempFile("wfm-config-*.yaml", content)
}

func createTempFile(pattern, content string) string {
	tmpFile, err := os.CreateTemp("", pattern)
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
