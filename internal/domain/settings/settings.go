// Package settings provides typed access to system-wide configuration
// stored as key/value rows. Values are read per operation, never cached
// across requests, so a changed limit applies to the next call.
package settings

import (
	"context"
	"fmt"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/security"
	"bottleworks/internal/core/types"
	"bottleworks/pkg/logger"
)

// Known setting keys.
const (
	// KeyAddonMaxPercent caps an add-on order's total as a percentage
	// of its parent order's total.
	KeyAddonMaxPercent = "addon_max_percent"
)

// DefaultAddonMaxPercent applies when the setting row is absent:
// an add-on may be as large as its parent, never larger.
var DefaultAddonMaxPercent = types.MustMoney("100")

// Repository stores raw setting values.
type Repository interface {
	// Get returns the raw value for key, or a not-found error.
	Get(ctx context.Context, key string) (string, error)

	// Set upserts the value for key.
	Set(ctx context.Context, key, value string) error
}

// Service reads and writes typed settings.
type Service struct {
	repo Repository
}

// NewService creates a settings service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// AddonMaxPercent returns the configured add-on size cap, falling back
// to the default when unset.
func (s *Service) AddonMaxPercent(ctx context.Context) (types.Money, error) {
	raw, err := s.repo.Get(ctx, KeyAddonMaxPercent)
	if err != nil {
		if apperror.IsNotFound(err) {
			return DefaultAddonMaxPercent, nil
		}
		return types.Zero(), fmt.Errorf("read setting %s: %w", KeyAddonMaxPercent, err)
	}

	pct, err := types.NewMoneyFromString(raw)
	if err != nil {
		logger.Warn(ctx, "invalid setting value, using default",
			"key", KeyAddonMaxPercent,
			"value", raw)
		return DefaultAddonMaxPercent, nil
	}
	if pct.IsNegative() {
		return DefaultAddonMaxPercent, nil
	}
	return pct, nil
}

// SetAddonMaxPercent updates the add-on size cap. Admin action.
func (s *Service) SetAddonMaxPercent(ctx context.Context, pct types.Money) error {
	if err := security.RequireAdmin(ctx); err != nil {
		return err
	}
	if pct.IsNegative() {
		return apperror.NewValidation("percent cannot be negative").
			WithDetail("field", "value")
	}

	if err := s.repo.Set(ctx, KeyAddonMaxPercent, pct.String()); err != nil {
		return fmt.Errorf("write setting %s: %w", KeyAddonMaxPercent, err)
	}

	logger.Info(ctx, "setting updated",
		"key", KeyAddonMaxPercent,
		"value", pct)

	return nil
}
