// Package settings provides runtime-tunable values backed by the settings
// table, with defaults from configuration and a read-through cache.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Veraticus/spice-ops/internal/common"
	"github.com/shopspring/decimal"
)

// Well-known keys.
const (
	KeyCurrency             = "cashflow.currency"
	KeyProjectionMonths     = "cashflow.projection_months"
	KeyRunwayThreshold      = "alerts.runway_threshold_months"
	KeyContractReminderDays = "alerts.contract_reminder_days"
)

// ErrInvalidKey is returned for keys that are not dotted lowercase names.
var ErrInvalidKey = errors.New("invalid setting key")

// Store is the persistence the provider reads through to.
type Store interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Provider resolves settings in order: cache, store, defaults.
type Provider struct {
	store    Store
	cache    Cache
	defaults map[string]string
}

// DefaultValues are used when neither the store nor the caller supplies a value.
func DefaultValues() map[string]string {
	return map[string]string{
		KeyCurrency:             "USD",
		KeyProjectionMonths:     "12",
		KeyRunwayThreshold:      "3",
		KeyContractReminderDays: "30",
	}
}

// NewProvider creates a provider. defaults overlay DefaultValues; cache may
// be nil to disable caching.
func NewProvider(store Store, cache Cache, defaults map[string]string) *Provider {
	merged := DefaultValues()
	for k, v := range defaults {
		merged[k] = v
	}
	return &Provider{store: store, cache: cache, defaults: merged}
}

// Get returns the value for key.
func (p *Provider) Get(ctx context.Context, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	if p.cache != nil {
		if value, ok := p.cache.Get(key); ok {
			return value, nil
		}
	}

	value, err := p.store.GetSetting(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrNotFound):
		def, ok := p.defaults[key]
		if !ok {
			return "", fmt.Errorf("setting %q: %w", key, common.ErrNotFound)
		}
		value = def
	default:
		return "", fmt.Errorf("failed to load setting %q: %w", key, err)
	}

	if p.cache != nil {
		p.cache.Set(key, value)
	}
	return value, nil
}

// Set persists value for key and evicts any cached copy.
func (p *Provider) Set(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := p.store.SetSetting(ctx, key, value); err != nil {
		return fmt.Errorf("failed to save setting %q: %w", key, err)
	}
	if p.cache != nil {
		p.cache.Delete(key)
	}
	return nil
}

// Int returns key parsed as an integer.
func (p *Provider) Int(ctx context.Context, key string) (int, error) {
	value, err := p.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", common.ErrInvalidConfig, key, value)
	}
	return n, nil
}

// Decimal returns key parsed as a decimal.
func (p *Provider) Decimal(ctx context.Context, key string) (decimal.Decimal, error) {
	value, err := p.Get(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s=%q is not a number", common.ErrInvalidConfig, key, value)
	}
	return d, nil
}

// Keys lists every key that has a default.
func (p *Provider) Keys() []string {
	keys := make([]string, 0, len(p.defaults))
	for k := range p.defaults {
		keys = append(keys, k)
	}
	return keys
}

func validateKey(key string) error {
	ok, err := common.MatchRegex(common.SettingKeyPattern, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
