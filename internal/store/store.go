package store

import (
	"context"
	"time"

	"godwillpos/backend/internal/domain"
)

var ErrNotFound = domain.ErrNotFound

// Repository owns the authoritative shop state. Every method is safe for
// concurrent use and returns copies, never references into the state.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ImportProducts(ctx context.Context, products []domain.Product) (domain.ImportResult, error)

	// CommitSale re-checks the day flag and every line against live stock,
	// then appends the sale and decrements stock. The sale id is assigned
	// here when empty. Nothing changes unless every check passes.
	CommitSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	ListSales(ctx context.Context) ([]domain.Sale, error)
	FindSale(ctx context.Context, id string) (*domain.Sale, error)
	PurgeSales(ctx context.Context) (int, error)

	IsDayClosed(ctx context.Context) (bool, error)
	// CloseDay builds the report from the current sales and archives it in one
	// step. It fails with domain.ErrDayAlreadyClosed when the flag is set.
	CloseDay(ctx context.Context, build func(sales []domain.Sale) domain.ZReport) (*domain.ZReport, error)
	ReopenDay(ctx context.Context) error
	CurrentZReport(ctx context.Context) (*domain.ZReport, error)
	ListZReports(ctx context.Context) ([]domain.ZReport, error)

	GetSettings(ctx context.Context) (domain.ShopSettings, error)
	SaveSettings(ctx context.Context, settings domain.ShopSettings) (domain.ShopSettings, error)

	Snapshot(ctx context.Context) (domain.Backup, error)
	Replace(ctx context.Context, state domain.Backup) error
	// Update applies fn to the current state atomically with respect to every
	// other mutation.
	Update(ctx context.Context, fn func(current domain.Backup) (domain.Backup, error)) error

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
}
