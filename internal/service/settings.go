package service

import (
	"context"
	"fmt"
	"strings"

	"godwillpos/backend/internal/domain"
	"godwillpos/backend/internal/persist"
	"godwillpos/backend/internal/snapshot"
	"godwillpos/backend/internal/store"
)

// DefaultSettings builds first-run settings with both secrets hashed.
func DefaultSettings(shopName string, systemPassword string, inventoryPassword string) (domain.ShopSettings, error) {
	settings := store.DefaultSettings(shopName)
	var err error
	if settings.SystemPassword, err = ensureHashed(systemPassword); err != nil {
		return domain.ShopSettings{}, err
	}
	if settings.InventoryPassword, err = ensureHashed(inventoryPassword); err != nil {
		return domain.ShopSettings{}, err
	}
	return settings, nil
}

func (s *Service) GetSettings(ctx context.Context) (domain.ShopSettings, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.ShopSettings{}, err
	}
	return settings.Redacted(), nil
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (domain.ShopSettings, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.ShopSettings{}, err
	}

	changed := make([]string, 0, 6)
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.ShopSettings{}, fmt.Errorf("%w: shop name is required", domain.ErrValidation)
		}
		settings.Name = name
		changed = append(changed, "name")
	}
	if req.Footer != nil {
		settings.Footer = strings.TrimSpace(*req.Footer)
		changed = append(changed, "footer")
	}
	if req.AutoBackupThreshold != nil {
		if *req.AutoBackupThreshold < 0 {
			return domain.ShopSettings{}, fmt.Errorf("%w: autoBackupThreshold must not be negative", domain.ErrValidation)
		}
		settings.AutoBackupThreshold = *req.AutoBackupThreshold
		changed = append(changed, "autoBackupThreshold")
	}
	if req.AutoPrintReceipts != nil {
		settings.AutoPrintReceipts = *req.AutoPrintReceipts
		changed = append(changed, "autoPrintReceipts")
	}
	if req.SystemPassword != nil {
		if settings.SystemPassword, err = newSecret(*req.SystemPassword); err != nil {
			return domain.ShopSettings{}, err
		}
		changed = append(changed, "systemPassword")
	}
	if req.InventoryPassword != nil {
		if settings.InventoryPassword, err = newSecret(*req.InventoryPassword); err != nil {
			return domain.ShopSettings{}, err
		}
		changed = append(changed, "inventoryPassword")
	}

	saved, err := s.repo.SaveSettings(ctx, settings)
	if err != nil {
		return domain.ShopSettings{}, err
	}
	s.logAudit(ctx, "settings_update", "settings", "shop", strings.Join(changed, ","))
	s.persist(ctx, snapshot.KeySettings)
	return saved.Redacted(), nil
}

func newSecret(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < minSecretLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minSecretLength)
	}
	return hashSecret(raw)
}

func (s *Service) VerifySystemPassword(ctx context.Context, password string) bool {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return false
	}
	return verifySecret(settings.SystemPassword, password)
}

func (s *Service) VerifyInventoryPassword(ctx context.Context, password string) bool {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return false
	}
	return verifySecret(settings.InventoryPassword, password)
}

// ExportBackup encodes the full state bundle.
func (s *Service) ExportBackup(ctx context.Context) ([]byte, error) {
	state, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.Encode(state)
}

// Restore overlays a backup bundle on the current state. Missing or unreadable
// fields keep their current values; only a body that is not a JSON object is
// rejected, and then nothing changes.
func (s *Service) Restore(ctx context.Context, body []byte) (domain.RestoreResult, error) {
	partial, err := snapshot.Decode(body)
	if err != nil {
		s.log.Warn().Err(err).Msg("restore rejected")
		return domain.RestoreResult{}, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
	}
	result := domain.RestoreResult{Applied: partial.Fields(), Warnings: partial.Warnings}
	for _, warning := range partial.Warnings {
		s.log.Warn().Str("field", warning).Msg("restore field skipped")
	}
	if partial.Empty() {
		return result, nil
	}

	if err := s.overlay(ctx, partial); err != nil {
		return domain.RestoreResult{}, err
	}
	s.logAudit(ctx, "backup_restore", "backup", "bundle", strings.Join(result.Applied, ","))
	s.persist(ctx)
	return result, nil
}

// Hydrate loads persisted documents into the store at startup. Documents that
// cannot be read are skipped with a warning and the seeded values stay.
func (s *Service) Hydrate(ctx context.Context) ([]string, error) {
	docs, failed := persist.LoadAll(ctx, s.backend, snapshot.StateKeys)
	for key, err := range failed {
		s.metrics.PersistFailures.WithLabelValues(key).Inc()
		s.log.Warn().Err(err).Str("key", key).Msg("load document failed")
	}

	partial := snapshot.FromDocuments(docs)
	for _, warning := range partial.Warnings {
		s.log.Warn().Str("document", warning).Msg("persisted document malformed, keeping seed value")
	}
	if partial.Empty() {
		return nil, nil
	}
	if err := s.overlay(ctx, partial); err != nil {
		return nil, err
	}
	fields := partial.Fields()
	s.log.Info().Strs("fields", fields).Msg("state hydrated")
	return fields, nil
}

func (s *Service) overlay(ctx context.Context, partial snapshot.Partial) error {
	return s.repo.Update(ctx, func(current domain.Backup) (domain.Backup, error) {
		next := partial.Apply(current)
		var err error
		if next.ShopSettings.SystemPassword, err = ensureHashed(next.ShopSettings.SystemPassword); err != nil {
			return domain.Backup{}, err
		}
		if next.ShopSettings.InventoryPassword, err = ensureHashed(next.ShopSettings.InventoryPassword); err != nil {
			return domain.Backup{}, err
		}
		return next, nil
	})
}

// Reset reloads the seed catalog and default settings, drops sales and
// Z-reports, reopens the day and empties the cart.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.repo.Replace(ctx, domain.Backup{
		Products:     store.SeedProducts(),
		ShopSettings: s.defaults,
	}); err != nil {
		return err
	}
	s.ClearCart()

	s.persistMu.Lock()
	s.salesSinceBackup = 0
	s.persistMu.Unlock()

	s.log.Warn().Msg("system reset to seed state")
	s.logAudit(ctx, "system_reset", "system", "*", "")
	s.persist(ctx)
	return nil
}
