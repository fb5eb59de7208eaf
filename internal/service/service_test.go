package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tbmpos/backend/internal/cache"
	"tbmpos/backend/internal/domain"
	"tbmpos/backend/internal/store"
	"tbmpos/backend/internal/store/csvstore"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	base := t.TempDir()
	repo, err := csvstore.New(filepath.Join(base, "data"), filepath.Join(base, "conf"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return New(repo, cache.NoopReportCache{}, 5, false)
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"})
}

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateReadyProductRequiresAdmin(t *testing.T) {
	svc := newTestService(t)

	req := domain.ReadyProductCreateRequest{
		Name: "Burger", Category: "Home Delivery", Unit: "Pieces", Price: dec("100"),
	}
	if _, err := svc.CreateReadyProduct(cashierCtx(), req); err == nil {
		t.Fatalf("expected cashier create to fail")
	}
	if _, err := svc.CreateReadyProduct(adminCtx(), req); err != nil {
		t.Fatalf("admin create failed: %v", err)
	}
}

func TestCreateReadyProductValidatesEnums(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateReadyProduct(adminCtx(), domain.ReadyProductCreateRequest{
		Name: "Burger", Category: "Takeaway", Unit: "Pieces",
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid category error, got %v", err)
	}

	_, err = svc.CreateReadyProduct(adminCtx(), domain.ReadyProductCreateRequest{
		Name: "Burger", Category: "Home Delivery", Unit: "Dozen",
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid unit error, got %v", err)
	}
}

func TestReceivePurchaseValidatesSubcategory(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ReceivePurchase(cashierCtx(), domain.PurchaseRequest{
		Category: "Home Delivery", Subcategory: "Snacks",
		Item: "Chips", Unit: "Pieces", Qty: dec("1"), UnitCost: dec("10"),
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid subcategory error, got %v", err)
	}
}

func TestRecordSaleDefaultsToLiveStatus(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.CreateReadyProduct(adminCtx(), domain.ReadyProductCreateRequest{
		Name: "Burger", Category: "Home Delivery", Unit: "Pieces",
		Price: dec("100"), Quantity: dec("10"),
	}); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	result, err := svc.RecordSale(cashierCtx(), domain.SaleRequest{
		Category: "Home Delivery", Item: "Burger", Unit: "Pieces", Qty: dec("1"),
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	sales, err := svc.ListSales(cashierCtx())
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 1 || sales[0].ID != result.ID {
		t.Fatalf("expected one sale, got %+v", sales)
	}
	if sales[0].PaymentStatus != "Live" {
		t.Fatalf("expected default status Live, got %q", sales[0].PaymentStatus)
	}
}

func TestRecordSaleRejectsBadPaymentMode(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.RecordSale(cashierCtx(), domain.SaleRequest{
		Category: "Home Delivery", Item: "Burger", Unit: "Pieces",
		Qty: dec("1"), PaymentStatus: "Paid", PaymentMode: "Cheque",
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid payment mode error, got %v", err)
	}
}

func seedSales(t *testing.T, svc *Service) {
	t.Helper()
	if _, err := svc.CreateReadyProduct(adminCtx(), domain.ReadyProductCreateRequest{
		Name: "Burger", Category: "Home Delivery", Unit: "Pieces",
		Price: dec("100"), Quantity: dec("100"),
	}); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	for _, s := range []struct {
		date, branch string
		qty          string
	}{
		{"2026-06-01", "Main Road", "2"},
		{"2026-06-10", "Main Road", "1"},
		{"2026-06-10", "Lake View", "3"},
		{"2026-04-01", "Main Road", "5"},
	} {
		if _, err := svc.RecordSale(cashierCtx(), domain.SaleRequest{
			Date: s.date, Category: "Home Delivery", Branch: s.branch,
			Item: "Burger", Unit: "Pieces", Qty: dec(s.qty),
		}); err != nil {
			t.Fatalf("seed sale: %v", err)
		}
	}
}

func TestSalesReportFiltersByPeriodAndBranch(t *testing.T) {
	svc := newTestService(t)
	seedSales(t, svc)

	restore := timeNow
	timeNow = func() time.Time { return time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC) }
	defer func() { timeNow = restore }()

	report, err := svc.SalesReport(cashierCtx(), SalesFilter{Period: "last30"})
	if err != nil {
		t.Fatalf("sales report: %v", err)
	}
	// The April sale falls outside last30.
	if !report.TotalSales.Equal(dec("600")) {
		t.Fatalf("expected total 600, got %s", report.TotalSales)
	}
	if len(report.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(report.Rows))
	}

	report, err = svc.SalesReport(cashierCtx(), SalesFilter{Period: "last30", Branch: "Lake View"})
	if err != nil {
		t.Fatalf("filtered report: %v", err)
	}
	if !report.TotalSales.Equal(dec("300")) {
		t.Fatalf("expected Lake View total 300, got %s", report.TotalSales)
	}
}

func TestSpendReportDateRange(t *testing.T) {
	svc := newTestService(t)

	for _, p := range []struct{ date, qty, cost string }{
		{"2026-06-01", "2", "50"},
		{"2026-05-01", "1", "80"},
	} {
		if _, err := svc.ReceivePurchase(cashierCtx(), domain.PurchaseRequest{
			Date: p.date, Category: "Home Delivery", Subcategory: "Grocery",
			Item: "Flour", Unit: "KG", Qty: dec(p.qty), UnitCost: dec(p.cost),
		}); err != nil {
			t.Fatalf("seed purchase: %v", err)
		}
	}

	report, err := svc.SpendReport(cashierCtx(), SpendFilter{
		Period: "daterange", Start: "2026-06-01", End: "2026-06-30",
	})
	if err != nil {
		t.Fatalf("spend report: %v", err)
	}
	if !report.TotalSpend.Equal(dec("100")) {
		t.Fatalf("expected spend 100, got %s", report.TotalSpend)
	}
	if !report.ByItem["Flour"].Equal(dec("100")) {
		t.Fatalf("expected Flour spend 100, got %s", report.ByItem["Flour"])
	}
}

func TestLowStockAlertsRespectThreshold(t *testing.T) {
	svc := newTestService(t)

	for _, p := range []struct{ name, qty, threshold string }{
		{"Burger", "2", "5"},
		{"Pizza", "50", "5"},
		{"Momo", "0", "0"},
	} {
		if _, err := svc.CreateReadyProduct(adminCtx(), domain.ReadyProductCreateRequest{
			Name: p.name, Category: "Home Delivery", Unit: "Pieces",
			Price: dec("100"), Quantity: dec(p.qty), Threshold: dec(p.threshold),
		}); err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}

	low, err := svc.LowReadyProducts(cashierCtx())
	if err != nil {
		t.Fatalf("low ready: %v", err)
	}
	if len(low) != 1 || low[0].Name != "Burger" {
		t.Fatalf("expected only Burger low, got %+v", low)
	}
}

func TestBranchTablesCountsOpenOrders(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.CreateReadyProduct(adminCtx(), domain.ReadyProductCreateRequest{
		Name: "Burger", Category: "Home Delivery", Unit: "Pieces",
		Price: dec("100"), Quantity: dec("100"),
	}); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	for _, table := range []string{"T1", "T1", "T2", ""} {
		if _, err := svc.RecordSale(cashierCtx(), domain.SaleRequest{
			Category: "Home Delivery", Branch: "Main Road", TableNo: table,
			Item: "Burger", Unit: "Pieces", Qty: dec("1"),
		}); err != nil {
			t.Fatalf("seed sale: %v", err)
		}
	}

	rows, err := svc.BranchTables(cashierCtx(), "Main Road", "")
	if err != nil {
		t.Fatalf("branch tables: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 table groups, got %+v", rows)
	}
	counts := map[string]int{}
	for _, r := range rows {
		counts[r.TableNo] = r.OpenOrders
	}
	if counts["T1"] != 2 || counts["T2"] != 1 || counts["(no table)"] != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestBillRendersSaleDetails(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.CreateReadyProduct(adminCtx(), domain.ReadyProductCreateRequest{
		Name: "Burger", Category: "Home Delivery", Unit: "Pieces",
		Price: dec("100"), Quantity: dec("10"),
	}); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	result, err := svc.RecordSale(cashierCtx(), domain.SaleRequest{
		Category: "Home Delivery", Item: "Burger", Unit: "Pieces",
		Qty: dec("2"), Discount: dec("20"), CustomerName: "Asha",
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	bill, err := svc.Bill(cashierCtx(), result.ID)
	if err != nil {
		t.Fatalf("bill: %v", err)
	}
	for _, want := range []string{"TBM - Bill", "Order: #1", "Burger", "₹180.00", "Asha"} {
		if !strings.Contains(bill, want) {
			t.Fatalf("bill missing %q:\n%s", want, bill)
		}
	}

	if _, err := svc.Bill(cashierCtx(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown sale, got %v", err)
	}
}

func TestConfigExposesEnumerations(t *testing.T) {
	svc := newTestService(t)

	cfg, err := svc.Config(cashierCtx())
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if len(cfg.Categories) != 3 || len(cfg.Units) != 6 {
		t.Fatalf("unexpected enumerations: %+v", cfg)
	}
	if cfg.ActiveSnapshot == "" {
		t.Fatalf("expected active snapshot date")
	}
}
