package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"tbmpos/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
)

// Repository is the day-bucketed table store. Every method resolves the active
// day snapshot before touching a table; compound mutations are atomic with
// respect to each other.
type Repository interface {
	// ResolveSnapshot ensures the current date's snapshot exists (carrying the
	// latest prior snapshot forward if this is the first access of the day)
	// and returns its date.
	ResolveSnapshot(ctx context.Context) (string, error)

	// Raw table access, used by the import/export endpoints. Schemas are
	// authoritative: reads backfill missing columns, writes emit every column.
	ReadTable(ctx context.Context, table string) ([]domain.Row, error)
	WriteTable(ctx context.Context, table string, rows []domain.Row) error
	AppendRow(ctx context.Context, table string, row domain.Row) error
	ExportTable(ctx context.Context, table string) ([]byte, error)
	ImportTable(ctx context.Context, table string, data []byte) error

	ListReadyProducts(ctx context.Context) ([]domain.ReadyProduct, error)
	CreateReadyProduct(ctx context.Context, req domain.ReadyProductCreateRequest) (*domain.ReadyProduct, error)
	UpdateReadyProduct(ctx context.Context, id string, req domain.ReadyProductUpdateRequest) (*domain.ReadyProduct, error)
	DeleteReadyProduct(ctx context.Context, id string) error
	AdjustReadyStock(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error)

	ListRawItems(ctx context.Context) ([]domain.RawItem, error)
	CreateRawItem(ctx context.Context, req domain.RawItemCreateRequest) (*domain.RawItem, error)
	UpdateRawItem(ctx context.Context, id string, req domain.RawItemUpdateRequest) (*domain.RawItem, error)
	DeleteRawItem(ctx context.Context, id string) error

	ListBranches(ctx context.Context) ([]domain.Branch, error)
	CreateBranch(ctx context.Context, req domain.BranchCreateRequest) (*domain.Branch, error)

	ListPurchases(ctx context.Context) ([]domain.Purchase, error)
	ReceivePurchase(ctx context.Context, req domain.PurchaseRequest) (*domain.PurchaseResult, error)
	DeletePurchase(ctx context.Context, id string) error

	ListSales(ctx context.Context) ([]domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	RecordSale(ctx context.Context, req domain.SaleRequest) (*domain.SaleResult, error)
	UpdateSalePayment(ctx context.Context, req domain.SalePaymentUpdateRequest) (*domain.Sale, error)

	// NextOrderID returns the next POS order number. With peek it previews the
	// number without consuming it; otherwise the persisted sequence advances.
	NextOrderID(ctx context.Context, peek bool) (int64, error)
}
