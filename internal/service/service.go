package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"tbmpos/backend/internal/cache"
	"tbmpos/backend/internal/domain"
	"tbmpos/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo       store.Repository
	cache      cache.ReportCache
	cacheTTL   int
	fullInvent bool
}

func New(repo store.Repository, reportCache cache.ReportCache, cacheTTLSeconds int, fullInvent bool) *Service {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	if cacheTTLSeconds < 1 {
		cacheTTLSeconds = 30
	}

	return &Service{
		repo:       repo,
		cache:      reportCache,
		cacheTTL:   cacheTTLSeconds,
		fullInvent: fullInvent,
	}
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}
	return nil
}

// AppConfig is the payload of the config endpoint.
type AppConfig struct {
	FullInvent     bool     `json:"full_invent"`
	Categories     []string `json:"categories"`
	Units          []string `json:"units"`
	Subcategories  []string `json:"subcategories"`
	PaymentStatus  []string `json:"payment_statuses"`
	PaymentModes   []string `json:"payment_modes"`
	ActiveSnapshot string   `json:"active_snapshot"`
}

func (s *Service) Config(ctx context.Context) (AppConfig, error) {
	snap, err := s.repo.ResolveSnapshot(ctx)
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		FullInvent:     s.fullInvent,
		Categories:     domain.Categories,
		Units:          domain.Units,
		Subcategories:  domain.Subcategories,
		PaymentStatus:  domain.PaymentStatuses,
		PaymentModes:   domain.PaymentModes,
		ActiveSnapshot: snap,
	}, nil
}

func (s *Service) ListReadyProducts(ctx context.Context) ([]domain.ReadyProduct, error) {
	return s.repo.ListReadyProducts(ctx)
}

func (s *Service) CreateReadyProduct(ctx context.Context, req domain.ReadyProductCreateRequest) (*domain.ReadyProduct, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name required", store.ErrInvalidInput)
	}
	if !domain.ValidCategory(req.Category) {
		return nil, fmt.Errorf("%w: category must be one of %v", store.ErrInvalidInput, domain.Categories)
	}
	if !domain.ValidUnit(req.Unit) {
		return nil, fmt.Errorf("%w: unit must be one of %v", store.ErrInvalidInput, domain.Units)
	}
	if req.Quantity.IsNegative() || req.UnitCost.IsNegative() || req.Price.IsNegative() || req.Threshold.IsNegative() {
		return nil, fmt.Errorf("%w: numeric fields must not be negative", store.ErrInvalidInput)
	}

	return s.repo.CreateReadyProduct(ctx, req)
}

func (s *Service) UpdateReadyProduct(ctx context.Context, id string, req domain.ReadyProductUpdateRequest) (*domain.ReadyProduct, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: id required", store.ErrInvalidInput)
	}
	if req.Category != nil && !domain.ValidCategory(*req.Category) {
		return nil, fmt.Errorf("%w: category must be one of %v", store.ErrInvalidInput, domain.Categories)
	}
	if req.Unit != nil && !domain.ValidUnit(*req.Unit) {
		return nil, fmt.Errorf("%w: unit must be one of %v", store.ErrInvalidInput, domain.Units)
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be blank", store.ErrInvalidInput)
	}

	return s.repo.UpdateReadyProduct(ctx, id, req)
}

func (s *Service) DeleteReadyProduct(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteReadyProduct(ctx, id)
}

func (s *Service) AdjustReadyStock(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return decimal.Zero, fmt.Errorf("authentication required")
	}
	if delta.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: delta must not be zero", store.ErrInvalidInput)
	}
	return s.repo.AdjustReadyStock(ctx, id, delta)
}

func (s *Service) ListRawItems(ctx context.Context) ([]domain.RawItem, error) {
	return s.repo.ListRawItems(ctx)
}

func (s *Service) CreateRawItem(ctx context.Context, req domain.RawItemCreateRequest) (*domain.RawItem, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name required", store.ErrInvalidInput)
	}
	if !domain.ValidCategory(req.Category) {
		return nil, fmt.Errorf("%w: category must be one of %v", store.ErrInvalidInput, domain.Categories)
	}
	if !domain.ValidSubcategory(req.Subcategory) {
		return nil, fmt.Errorf("%w: subcategory must be one of %v", store.ErrInvalidInput, domain.Subcategories)
	}
	if !domain.ValidUnit(req.Unit) {
		return nil, fmt.Errorf("%w: unit must be one of %v", store.ErrInvalidInput, domain.Units)
	}
	if req.Stock.IsNegative() || req.UnitCost.IsNegative() || req.Threshold.IsNegative() {
		return nil, fmt.Errorf("%w: numeric fields must not be negative", store.ErrInvalidInput)
	}

	return s.repo.CreateRawItem(ctx, req)
}

func (s *Service) UpdateRawItem(ctx context.Context, id string, req domain.RawItemUpdateRequest) (*domain.RawItem, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: id required", store.ErrInvalidInput)
	}
	if req.Category != nil && !domain.ValidCategory(*req.Category) {
		return nil, fmt.Errorf("%w: category must be one of %v", store.ErrInvalidInput, domain.Categories)
	}
	if req.Subcategory != nil && !domain.ValidSubcategory(*req.Subcategory) {
		return nil, fmt.Errorf("%w: subcategory must be one of %v", store.ErrInvalidInput, domain.Subcategories)
	}
	if req.Unit != nil && !domain.ValidUnit(*req.Unit) {
		return nil, fmt.Errorf("%w: unit must be one of %v", store.ErrInvalidInput, domain.Units)
	}

	return s.repo.UpdateRawItem(ctx, id, req)
}

func (s *Service) DeleteRawItem(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteRawItem(ctx, id)
}

func (s *Service) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	return s.repo.ListBranches(ctx)
}

func (s *Service) CreateBranch(ctx context.Context, req domain.BranchCreateRequest) (*domain.Branch, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.CreateBranch(ctx, req)
}

func (s *Service) ListPurchases(ctx context.Context) ([]domain.Purchase, error) {
	return s.repo.ListPurchases(ctx)
}

func (s *Service) ReceivePurchase(ctx context.Context, req domain.PurchaseRequest) (*domain.PurchaseResult, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return nil, fmt.Errorf("authentication required")
	}

	req.Item = strings.TrimSpace(req.Item)
	if req.Item == "" {
		return nil, fmt.Errorf("%w: item required", store.ErrInvalidInput)
	}
	if !domain.ValidCategory(req.Category) {
		return nil, fmt.Errorf("%w: category must be one of %v", store.ErrInvalidInput, domain.Categories)
	}
	if !domain.ValidSubcategory(req.Subcategory) {
		return nil, fmt.Errorf("%w: subcategory must be one of %v", store.ErrInvalidInput, domain.Subcategories)
	}
	if !domain.ValidUnit(req.Unit) {
		return nil, fmt.Errorf("%w: unit must be one of %v", store.ErrInvalidInput, domain.Units)
	}
	if !req.Qty.IsPositive() {
		return nil, fmt.Errorf("%w: qty must be positive", store.ErrInvalidInput)
	}
	if req.UnitCost.IsNegative() {
		return nil, fmt.Errorf("%w: unit_cost must not be negative", store.ErrInvalidInput)
	}

	return s.repo.ReceivePurchase(ctx, req)
}

func (s *Service) DeletePurchase(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeletePurchase(ctx, id)
}

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx)
}

func (s *Service) NextOrderID(ctx context.Context) (int64, error) {
	return s.repo.NextOrderID(ctx, true)
}

func (s *Service) RecordSale(ctx context.Context, req domain.SaleRequest) (*domain.SaleResult, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return nil, fmt.Errorf("authentication required")
	}

	req.Item = strings.TrimSpace(req.Item)
	if req.Item == "" {
		return nil, fmt.Errorf("%w: item required", store.ErrInvalidInput)
	}
	if !domain.ValidCategory(req.Category) {
		return nil, fmt.Errorf("%w: category must be one of %v", store.ErrInvalidInput, domain.Categories)
	}
	if !req.Qty.IsPositive() {
		return nil, fmt.Errorf("%w: qty must be positive", store.ErrInvalidInput)
	}
	if req.PaymentStatus == "" {
		req.PaymentStatus = domain.PaymentStatusLive
	}
	if !domain.ValidPaymentStatus(req.PaymentStatus) {
		return nil, fmt.Errorf("%w: payment_status must be one of %v", store.ErrInvalidInput, domain.PaymentStatuses)
	}
	if req.PaymentMode != "" && !domain.ValidPaymentMode(req.PaymentMode) {
		return nil, fmt.Errorf("%w: payment_mode must be one of %v", store.ErrInvalidInput, domain.PaymentModes)
	}

	return s.repo.RecordSale(ctx, req)
}

func (s *Service) UpdateSalePayment(ctx context.Context, req domain.SalePaymentUpdateRequest) (*domain.Sale, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return nil, fmt.Errorf("authentication required")
	}
	if req.ID == "" {
		return nil, fmt.Errorf("%w: id required", store.ErrInvalidInput)
	}
	if req.PaymentStatus != nil && !domain.ValidPaymentStatus(*req.PaymentStatus) {
		return nil, fmt.Errorf("%w: payment_status must be one of %v", store.ErrInvalidInput, domain.PaymentStatuses)
	}
	if req.PaymentMode != nil && *req.PaymentMode != "" && !domain.ValidPaymentMode(*req.PaymentMode) {
		return nil, fmt.Errorf("%w: payment_mode must be one of %v", store.ErrInvalidInput, domain.PaymentModes)
	}

	return s.repo.UpdateSalePayment(ctx, req)
}

func (s *Service) ExportTable(ctx context.Context, table string) ([]byte, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ExportTable(ctx, table)
}

func (s *Service) ImportTable(ctx context.Context, table string, data []byte) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.ImportTable(ctx, table, data)
}
