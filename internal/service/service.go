package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"godwillpos/backend/internal/cart"
	"godwillpos/backend/internal/domain"
	"godwillpos/backend/internal/obs"
	"godwillpos/backend/internal/persist"
	"godwillpos/backend/internal/receipt"
	"godwillpos/backend/internal/snapshot"
	"godwillpos/backend/internal/store"
	"godwillpos/backend/internal/xid"
)

const (
	DefaultCashier = "Main Counter"
	persistTimeout = 5 * time.Second
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Config struct {
	Logger   zerolog.Logger
	Metrics  *obs.Metrics
	Location *time.Location
	// TaxRate falls back to cart.DefaultTaxRate only when unset; a valid
	// zero disables tax.
	TaxRate  decimal.NullDecimal
	Currency string
	// Defaults are the settings restored by a system reset.
	Defaults domain.ShopSettings
	Now      func() time.Time
}

type Service struct {
	repo     store.Repository
	backend  persist.Backend
	log      zerolog.Logger
	metrics  *obs.Metrics
	loc      *time.Location
	taxRate  decimal.Decimal
	currency string
	defaults domain.ShopSettings
	now      func() time.Time
	validate *validator.Validate

	cartMu sync.Mutex
	cart   *cart.Cart

	persistMu        sync.Mutex
	salesSinceBackup int
}

func New(repo store.Repository, backend persist.Backend, cfg Config) *Service {
	if backend == nil {
		backend = persist.Noop{}
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	taxRate := cart.DefaultTaxRate
	if cfg.TaxRate.Valid && !cfg.TaxRate.Decimal.IsNegative() {
		taxRate = cfg.TaxRate.Decimal
	}
	if cfg.Currency == "" {
		cfg.Currency = "Ksh"
	}
	if cfg.Metrics == nil {
		cfg.Metrics = obs.NewMetrics("godwill", nil)
	}

	s := &Service{
		repo:     repo,
		backend:  backend,
		log:      cfg.Logger.With().Str("component", "service").Logger(),
		metrics:  cfg.Metrics,
		loc:      cfg.Location,
		taxRate:  taxRate,
		currency: cfg.Currency,
		defaults: cfg.Defaults,
		now:      cfg.Now,
		validate: newValidator(),
	}
	s.cart = cart.New(taxRate, s.liveProduct)
	return s
}

// Today is the shop's calendar date by its own clock and timezone.
func (s *Service) Today() string {
	return domain.CalendarDate(s.now(), s.loc)
}

// liveProduct backs the cart's stock checks with the current catalog.
func (s *Service) liveProduct(id string) (domain.Product, bool) {
	product, err := s.repo.GetProduct(context.Background(), id)
	if err != nil {
		return domain.Product{}, false
	}
	return *product, true
}

func (s *Service) layout(ctx context.Context) receipt.Layout {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		settings = s.defaults
	}
	return receipt.Layout{
		ShopName: settings.Name,
		Footer:   settings.Footer,
		Currency: s.currency,
		TaxRate:  s.taxRate,
		Location: s.loc,
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now().UTC(),
	}); err != nil {
		s.log.Warn().Err(err).Str("action", action).Str("entity", entityType+"/"+entityID).Msg("audit write failed")
	}
}

// ListAuditLogs returns one calendar day of entries, today when date is empty.
func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	if date = strings.TrimSpace(date); date == "" {
		date = domain.CalendarDate(s.now(), s.loc)
	}
	day, err := domain.ParseCalendarDate(date, s.loc)
	if err != nil {
		return nil, domain.ErrInvalidRange
	}
	return s.repo.ListAuditLogs(ctx, day, day.AddDate(0, 0, 1), limit)
}

// persist writes the given documents from the current state. Failures are
// logged and counted; they never reach the caller.
func (s *Service) persist(ctx context.Context, keys ...string) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	state, err := s.repo.Snapshot(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("snapshot for persistence failed")
		return
	}
	docs, err := snapshot.Documents(state)
	if err != nil {
		s.log.Warn().Err(err).Msg("encode documents failed")
		return
	}
	if len(keys) == 0 {
		keys = snapshot.StateKeys
	}
	for _, key := range keys {
		body, ok := docs[key]
		if !ok {
			continue
		}
		if err := s.backend.Save(ctx, key, body); err != nil {
			s.metrics.PersistFailures.WithLabelValues(key).Inc()
			s.log.Warn().Err(err).Str("key", key).Msg("persist failed")
		}
	}
}

// maybeAutoBackup saves the full bundle once enough sales have accumulated
// since the last one.
func (s *Service) maybeAutoBackup(ctx context.Context) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil || settings.AutoBackupThreshold <= 0 {
		return
	}

	s.persistMu.Lock()
	s.salesSinceBackup++
	due := s.salesSinceBackup >= settings.AutoBackupThreshold
	if due {
		s.salesSinceBackup = 0
	}
	s.persistMu.Unlock()
	if !due {
		return
	}

	body, err := s.ExportBackup(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("auto backup encode failed")
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.backend.Save(saveCtx, snapshot.KeyBackupLatest, body); err != nil {
		s.metrics.PersistFailures.WithLabelValues(snapshot.KeyBackupLatest).Inc()
		s.log.Warn().Err(err).Msg("auto backup failed")
		return
	}
	s.log.Info().Int("threshold", settings.AutoBackupThreshold).Msg("auto backup saved")
}
