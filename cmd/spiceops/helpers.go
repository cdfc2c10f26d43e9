package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-ops/internal/common"
	"github.com/Veraticus/spice-ops/internal/config"
	"github.com/Veraticus/spice-ops/internal/monitor"
	"github.com/Veraticus/spice-ops/internal/settings"
	"github.com/Veraticus/spice-ops/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const defaultDBPath = "$HOME/.local/share/spiceops/spiceops.db"

// app bundles what most commands need: storage, settings and the monitor.
type app struct {
	store    *storage.SQLiteStorage
	settings *settings.Provider
	monitor  *monitor.Monitor
}

// initStorage opens the database with proper path expansion and migrates it.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	store, err := storage.NewSQLiteStorage(config.ExpandPath(dbPath))
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// settingDefaults lets the config file override built-in setting defaults.
// Values stored with `spiceops settings set` still take precedence.
func settingDefaults() map[string]string {
	defaults := make(map[string]string)
	for key := range settings.DefaultValues() {
		if viper.IsSet(key) {
			defaults[key] = viper.GetString(key)
		}
	}
	return defaults
}

func openApp(ctx context.Context) (*app, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	provider := settings.NewProvider(store, settings.NewTTLCache(settings.DefaultTTL), settingDefaults())
	mon := monitor.New(store, provider, monitor.NewLogNotifier(slog.Default()))

	return &app{store: store, settings: provider, monitor: mon}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}

func (a *app) currency(ctx context.Context) string {
	cur, err := a.settings.Get(ctx, settings.KeyCurrency)
	if err != nil || cur == "" {
		return "USD"
	}
	return strings.ToUpper(cur)
}

func currentUser() int64 {
	return viper.GetInt64("user.id")
}

// parseDate accepts YYYY-MM-DD and returns midnight UTC.
func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, common.NewUserError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s), err)
	}
	return t, nil
}

// parseOptionalDate returns nil for an empty string.
func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseAmount parses a non-negative decimal amount, tolerating a leading
// currency symbol and thousands separators.
func parseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer(",", "", "$", "", "€", "", "£", "").Replace(strings.TrimSpace(s))
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, common.NewUserError(fmt.Sprintf("invalid amount %q", s), err)
	}
	if d.IsNegative() {
		return decimal.Zero, common.NewUserError(fmt.Sprintf("amount must not be negative, got %s", s), nil)
	}
	return d, nil
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
