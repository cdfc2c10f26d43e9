package config

import (
	"fmt"
	"time"

	"github.com/Veraticus/spice-ops/internal/common"
	"github.com/Veraticus/spice-ops/internal/scheduler"
	"github.com/spf13/viper"
)

// Daemon holds the settings for the long-running scheduler process.
type Daemon struct {
	MetricsAddr       string
	ContractsSchedule string
	RunwaySchedule    string
	JobTimeout        time.Duration
	RetryAttempts     int
}

// SetDaemonDefaults registers daemon defaults on viper.
func SetDaemonDefaults(v *viper.Viper) {
	v.SetDefault("daemon.metrics_addr", ":9090")
	v.SetDefault("daemon.contracts_schedule", scheduler.DefaultContractsSchedule)
	v.SetDefault("daemon.runway_schedule", scheduler.DefaultRunwaySchedule)
	v.SetDefault("daemon.job_timeout", 5*time.Minute)
	v.SetDefault("daemon.retry_attempts", 3)
}

// LoadDaemon reads daemon settings from v.
func LoadDaemon(v *viper.Viper) (Daemon, error) {
	d := Daemon{
		MetricsAddr:       v.GetString("daemon.metrics_addr"),
		ContractsSchedule: v.GetString("daemon.contracts_schedule"),
		RunwaySchedule:    v.GetString("daemon.runway_schedule"),
		JobTimeout:        v.GetDuration("daemon.job_timeout"),
		RetryAttempts:     v.GetInt("daemon.retry_attempts"),
	}

	if d.ContractsSchedule == "" || d.RunwaySchedule == "" {
		return Daemon{}, fmt.Errorf("%w: daemon schedules must not be empty", common.ErrInvalidConfig)
	}
	if d.JobTimeout < 0 {
		return Daemon{}, fmt.Errorf("%w: daemon.job_timeout must not be negative", common.ErrInvalidConfig)
	}

	if d.RetryAttempts < 1 {
		return Daemon{}, fmt.Errorf("%w: daemon.retry_attempts must be at least 1", common.ErrInvalidConfig)
	}

	return d, nil
}
