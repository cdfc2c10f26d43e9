package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Veraticus/spice-ops/internal/config"
	"github.com/Veraticus/spice-ops/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	jobContracts = "contracts"
	jobRunway    = "runway"

	shutdownTimeout = 30 * time.Second
)

func daemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the scheduled checks and serve metrics",
		Long: `Run contract and runway checks for every user on cron schedules until
interrupted. Prometheus metrics are served on daemon.metrics_addr.

Schedules use five-field cron syntax and can be set in the config file:

  daemon:
    contracts_schedule: "0 8 * * *"
    runway_schedule: "*/15 * * * *"`,
		RunE: runDaemon,
	}

	cmd.Flags().Bool("run-now", false, "Run every job once at startup")
	cmd.Flags().String("metrics-addr", "", "Metrics listen address (default: daemon.metrics_addr)")
	_ = viper.BindPFlag("daemon.metrics_addr", cmd.Flags().Lookup("metrics-addr"))

	return cmd
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	runNow, _ := cmd.Flags().GetBool("run-now")

	cfg, err := config.LoadDaemon(viper.GetViper())
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := slog.Default()
	retry := scheduler.DefaultRetry
	retry.MaxAttempts = cfg.RetryAttempts

	sched := scheduler.New(logger, cfg.JobTimeout)
	contracts := scheduler.PerUser(a.store, func(ctx context.Context, userID int64) error {
		_, err := a.monitor.CheckContractExpirations(ctx, userID)
		return err
	}, retry, nil)
	runway := scheduler.PerUser(a.store, func(ctx context.Context, userID int64) error {
		_, err := a.monitor.CheckRunway(ctx, userID)
		return err
	}, retry, nil)

	if err := sched.Register(jobContracts, cfg.ContractsSchedule, contracts); err != nil {
		return err
	}
	if err := sched.Register(jobRunway, cfg.RunwaySchedule, runway); err != nil {
		return err
	}

	server, err := startMetricsServer(cfg.MetricsAddr, logger)
	if err != nil {
		return err
	}

	if runNow {
		for _, name := range []string{jobContracts, jobRunway} {
			if err := sched.RunNow(ctx, name); err != nil {
				logger.Error("Initial run failed", "job", name, "error", err)
			}
		}
	}

	if err := sched.Start(); err != nil {
		return err
	}
	logger.Info("Daemon running", "metrics_addr", cfg.MetricsAddr)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := sched.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop scheduler: %w", err))
	}
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop metrics server: %w", err))
		}
	}
	logger.Info("Daemon stopped")
	return errors.Join(errs...)
}

// startMetricsServer serves /metrics and /healthz on addr. An empty addr
// disables the server.
func startMetricsServer(addr string, logger *slog.Logger) (*http.Server, error) {
	if addr == "" {
		return nil, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "ok")
	})

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()

	return server, nil
}
