package csvstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tbmpos/backend/internal/domain"
	"tbmpos/backend/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	base := t.TempDir()
	s, err := New(filepath.Join(base, "data"), filepath.Join(base, "conf"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func setDay(s *Store, day string) {
	ts, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	s.now = func() time.Time { return ts }
}

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func seedProduct(t *testing.T, s *Store, name string, qty, price string) *domain.ReadyProduct {
	t.Helper()
	p, err := s.CreateReadyProduct(context.Background(), domain.ReadyProductCreateRequest{
		Name:         name,
		Category:     "Home Delivery",
		ItemCategory: "Chicken",
		Unit:         "Pieces",
		Price:        dec(price),
		Quantity:     dec(qty),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func TestNewDayStartsWithHeaderOnlyTables(t *testing.T) {
	s := newTestStore(t)
	setDay(s, "2090-03-01")

	snap, err := s.ResolveSnapshot(context.Background())
	if err != nil {
		t.Fatalf("resolve snapshot: %v", err)
	}
	if snap != "2090-03-01" {
		t.Fatalf("expected snapshot 2090-03-01, got %s", snap)
	}

	for table := range domain.TableHeaders {
		rows, err := s.ReadTable(context.Background(), table)
		if err != nil {
			t.Fatalf("read %s: %v", table, err)
		}
		if len(rows) != 0 {
			t.Fatalf("expected empty %s, got %d rows", table, len(rows))
		}
	}
}

func TestDayRotationCarriesStateForward(t *testing.T) {
	s := newTestStore(t)
	setDay(s, "2090-03-01")

	seedProduct(t, s, "Burger", "20", "100")

	setDay(s, "2090-03-05")
	products, err := s.ListReadyProducts(context.Background())
	if err != nil {
		t.Fatalf("list after rotation: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Burger" {
		t.Fatalf("expected carried-forward Burger, got %+v", products)
	}
	if !products[0].Quantity.Equal(dec("20")) {
		t.Fatalf("expected quantity 20 after carry forward, got %s", products[0].Quantity)
	}

	// The old snapshot must be untouched.
	old, err := os.ReadFile(filepath.Join(s.dataDir, "2090-03-01", "ready_products.csv"))
	if err != nil {
		t.Fatalf("read old snapshot: %v", err)
	}
	if len(old) == 0 {
		t.Fatalf("old snapshot file went empty")
	}
}

func TestResolveSnapshotIsIdempotentWithinADay(t *testing.T) {
	s := newTestStore(t)
	setDay(s, "2090-03-01")
	seedProduct(t, s, "Burger", "20", "100")

	before, err := os.ReadFile(filepath.Join(s.dataDir, "2090-03-01", "ready_products.csv"))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.ResolveSnapshot(context.Background()); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}
	after, err := os.ReadFile(filepath.Join(s.dataDir, "2090-03-01", "ready_products.csv"))
	if err != nil {
		t.Fatalf("re-read snapshot: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("snapshot changed on re-resolution")
	}
}

func TestDuplicateProductCodeRejected(t *testing.T) {
	s := newTestStore(t)
	setDay(s, "2090-03-01")

	if _, err := s.CreateReadyProduct(context.Background(), domain.ReadyProductCreateRequest{
		Name: "Burger", Category: "Home Delivery", Unit: "Pieces", Code: "1CB",
	}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := s.CreateReadyProduct(context.Background(), domain.ReadyProductCreateRequest{
		Name: "Biryani", Category: "Home Delivery", Unit: "Plates", Code: "1CB",
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput on duplicate code, got %v", err)
	}
}

func TestGeneratedCodesAvoidCollisions(t *testing.T) {
	s := newTestStore(t)
	setDay(s, "2090-03-01")

	first := seedProduct(t, s, "Momo", "1", "50")
	second, err := s.CreateReadyProduct(context.Background(), domain.ReadyProductCreateRequest{
		Name:         "Masala Fries",
		Category:     "Home Delivery",
		ItemCategory: "Chicken",
		Unit:         "Plates",
	})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.Code == "" || second.Code == "" {
		t.Fatalf("expected generated codes, got %q and %q", first.Code, second.Code)
	}
	if first.Code == "1CM" && second.Code == "1CM" {
		t.Fatalf("generated codes collide")
	}
}

func TestNextOrderIDPeekAndConsume(t *testing.T) {
	s := newTestStore(t)
	setDay(s, "2090-03-01")
	ctx := context.Background()

	peek, err := s.NextOrderID(ctx, true)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if peek != 1 {
		t.Fatalf("expected first order id 1, got %d", peek)
	}
	again, _ := s.NextOrderID(ctx, true)
	if again != 1 {
		t.Fatalf("peek must not consume, got %d", again)
	}

	got, err := s.NextOrderID(ctx, false)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected consumed id 1, got %d", got)
	}
	next, _ := s.NextOrderID(ctx, true)
	if next != 2 {
		t.Fatalf("expected next id 2 after consume, got %d", next)
	}
}

func TestOrderIDSequenceSurvivesDayRotation(t *testing.T) {
	s := newTestStore(t)
	setDay(s, "2090-03-01")
	ctx := context.Background()

	if _, err := s.NextOrderID(ctx, false); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, err := s.NextOrderID(ctx, false); err != nil {
		t.Fatalf("consume: %v", err)
	}

	setDay(s, "2090-03-02")
	next, err := s.NextOrderID(ctx, true)
	if err != nil {
		t.Fatalf("peek after rotation: %v", err)
	}
	if next != 3 {
		t.Fatalf("expected sequence to continue at 3, got %d", next)
	}
}

func TestReceivePurchaseConvertsUnits(t *testing.T) {
	s := newTestStore(t)
	setDay(s, "2090-03-01")
	ctx := context.Background()

	if _, err := s.CreateRawItem(ctx, domain.RawItemCreateRequest{
		Name: "Chicken", Category: "Home Delivery", Subcategory: "Meat and Fish",
		Unit: "KG", Stock: dec("10"),
	}); err != nil {
		t.Fatalf("seed raw item: %v", err)
	}

	result, err := s.ReceivePurchase(ctx, domain.PurchaseRequest{
		Category: "Home Delivery", Subcategory: "Meat and Fish",
		Item: "chicken", Unit: "GM", Qty: dec("5"), UnitCost: dec("0.2"),
	})
	if err != nil {
		t.Fatalf("receive purchase: %v", err)
	}
	if result.Unit != "KG" {
		t.Fatalf("expected stock reported in KG, got %s", result.Unit)
	}
	if !result.NewStock.Equal(dec("10.005")) {
		t.Fatalf("expected stock 10.005 KG, got %s", result.NewStock)
	}

	purchases, err := s.ListPurchases(ctx)
	if err != nil {
		t.Fatalf("list purchases: %v", err)
	}
	if len(purchases) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(purchases))
	}
	// Ledger keeps the purchase as entered, before conversion.
	if purchases[0].Unit != "GM" || !purchases[0].Qty.Equal(dec("5")) {
		t.Fatalf("ledger row altered: unit=%s qty=%s", purchases[0].Unit, purchases[0].Qty)
	}
	if !purchases[0].TotalCost.Equal(dec("1")) {
		t.Fatalf("expected total cost 1.00, got %s", purchases[0].TotalCost)
	}
}

func TestReceivePurchaseRejectsUnconvertibleUnits(t *testing.T) {
	s := newTestStore(t)
	setDay(s, "2090-03-01")
	ctx := context.Background()

	if _, err := s.CreateRawItem(ctx, domain.RawItemCreateRequest{
		Name: "Boxes", Category: "Home Delivery", Subcategory: "Packaging",
		Unit: "Pieces", Stock: dec("100"),
	}); err != nil {
		t.Fatalf("seed raw item: %v", err)
	}

	_, err := s.ReceivePurchase(ctx, domain.PurchaseRequest{
		Category: "Home Delivery", Subcategory: "Packaging",
		Item: "Boxes", Unit: "KG", Qty: dec("2"), UnitCost: dec("10"),
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for Pieces<-KG, got %v", err)
	}
}

func TestReceivePurchaseCreatesMissingItem(t *testing.T) {
	s := newTestStore(t)
	setDay(s, "2090-03-01")
	ctx := context.Background()

	result, err := s.ReceivePurchase(ctx, domain.PurchaseRequest{
		Category: "Frozen Products", Subcategory: "Veggies",
		Item: "Peas", Unit: "KG", Qty: dec("3"), UnitCost: dec("40"),
	})
	if err != nil {
		t.Fatalf("receive purchase: %v", err)
	}
	if !result.NewStock.Equal(dec("3")) {
		t.Fatalf("expected stock 3 on auto-created item, got %s", result.NewStock)
	}

	items, _ := s.ListRawItems(ctx)
	if len(items) != 1 || items[0].Name != "Peas" || items[0].Unit != "KG" {
		t.Fatalf("expected auto-created Peas item, got %+v", items)
	}
}

func TestRecordSaleComputesTotalAndDeductsStock(t *testing.T) {
	s := newTestStore(t)
	setDay(s, "2090-03-01")
	ctx := context.Background()

	seedProduct(t, s, "Burger", "20", "100")

	result, err := s.RecordSale(ctx, domain.SaleRequest{
		Category: "Home Delivery", Item: "burger", Unit: "Pieces",
		Qty: dec("3"), Discount: dec("10"), PaymentStatus: "Live",
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if !result.TotalPrice.Equal(dec("290")) {
		t.Fatalf("expected total 290, got %s", result.TotalPrice)
	}
	if !result.RemainingStock.Equal(dec("17")) {
		t.Fatalf("expected remaining 17, got %s", result.RemainingStock)
	}
	if result.OrderID != 1 {
		t.Fatalf("expected order id 1, got %d", result.OrderID)
	}
}

func TestRecordSaleInsufficientStockLeavesStateUntouched(t *testing.T) {
	s := newTestStore(t)
	setDay(s, "2090-03-01")
	ctx := context.Background()

	seedProduct(t, s, "Burger", "20", "100")

	_, err := s.RecordSale(ctx, domain.SaleRequest{
		Category: "Home Delivery", Item: "Burger", Unit: "Pieces",
		Qty: dec("21"), PaymentStatus: "Live",
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	products, _ := s.ListReadyProducts(ctx)
	if !products[0].Quantity.Equal(dec("20")) {
		t.Fatalf("stock changed on rejected sale: %s", products[0].Quantity)
	}
	sales, _ := s.ListSales(ctx)
	if len(sales) != 0 {
		t.Fatalf("ledger row written on rejected sale")
	}
}

func TestRecordSaleUnitMismatchRejected(t *testing.T) {
	s := newTestStore(t)
	setDay(s, "2090-03-01")

	seedProduct(t, s, "Burger", "20", "100")

	_, err := s.RecordSale(context.Background(), domain.SaleRequest{
		Category: "Home Delivery", Item: "Burger", Unit: "Plates",
		Qty: dec("1"), PaymentStatus: "Live",
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput on unit mismatch, got %v", err)
	}
}

func TestRecordSaleNegativeDiscountClampedToZero(t *testing.T) {
	s := newTestStore(t)
	setDay(s, "2090-03-01")

	seedProduct(t, s, "Burger", "20", "100")

	result, err := s.RecordSale(context.Background(), domain.SaleRequest{
		Category: "Home Delivery", Item: "Burger", Unit: "Pieces",
		Qty: dec("1"), Discount: dec("-5"), PaymentStatus: "Live",
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if !result.TotalPrice.Equal(dec("100")) {
		t.Fatalf("expected total 100 with clamped discount, got %s", result.TotalPrice)
	}
}

func TestAdjustReadyStockRejectsNegativeResult(t *testing.T) {
	s := newTestStore(t)
	setDay(s, "2090-03-01")
	ctx := context.Background()

	p := seedProduct(t, s, "Burger", "5", "100")

	if _, err := s.AdjustReadyStock(ctx, p.ID, dec("-6")); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative result, got %v", err)
	}
	got, err := s.AdjustReadyStock(ctx, p.ID, dec("-5"))
	if err != nil {
		t.Fatalf("adjust to zero: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected zero stock, got %s", got)
	}
}

func TestCreateBranchDeduplicatesByName(t *testing.T) {
	s := newTestStore(t)
	setDay(s, "2090-03-01")
	ctx := context.Background()

	first, err := s.CreateBranch(ctx, domain.BranchCreateRequest{Name: "Main Road", IsActive: true})
	if err != nil {
		t.Fatalf("create branch: %v", err)
	}
	second, err := s.CreateBranch(ctx, domain.BranchCreateRequest{Name: "  main road "})
	if err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same branch, got %s and %s", first.ID, second.ID)
	}
	branches, _ := s.ListBranches(ctx)
	if len(branches) != 1 {
		t.Fatalf("expected 1 branch, got %d", len(branches))
	}
}

func TestUpdateSalePaymentClearsModeUnlessPaid(t *testing.T) {
	s := newTestStore(t)
	setDay(s, "2090-03-01")
	ctx := context.Background()

	seedProduct(t, s, "Burger", "20", "100")
	result, err := s.RecordSale(ctx, domain.SaleRequest{
		Category: "Home Delivery", Item: "Burger", Unit: "Pieces",
		Qty: dec("1"), PaymentStatus: "Live",
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	due := "Due"
	cash := "Cash"
	sale, err := s.UpdateSalePayment(ctx, domain.SalePaymentUpdateRequest{
		ID: result.ID, PaymentStatus: &due, PaymentMode: &cash,
	})
	if err != nil {
		t.Fatalf("update payment: %v", err)
	}
	if sale.PaymentMode != "" {
		t.Fatalf("mode should be cleared while not Paid, got %q", sale.PaymentMode)
	}

	paid := "Paid"
	sale, err = s.UpdateSalePayment(ctx, domain.SalePaymentUpdateRequest{
		ID: result.ID, PaymentStatus: &paid, PaymentMode: &cash,
	})
	if err != nil {
		t.Fatalf("update to paid: %v", err)
	}
	if sale.PaymentMode != "Cash" {
		t.Fatalf("expected mode Cash once Paid, got %q", sale.PaymentMode)
	}
}

func TestImportTableRequiresExactHeader(t *testing.T) {
	s := newTestStore(t)
	setDay(s, "2090-03-01")
	ctx := context.Background()

	err := s.ImportTable(ctx, domain.TableBranches, []byte("id,name\n"))
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad header, got %v", err)
	}

	good := []byte("id,name,is_active\nb1,Main Road,1\n")
	if err := s.ImportTable(ctx, domain.TableBranches, good); err != nil {
		t.Fatalf("import: %v", err)
	}
	exported, err := s.ExportTable(ctx, domain.TableBranches)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if string(exported) != string(good) {
		t.Fatalf("export mismatch:\n%s", exported)
	}
}

func TestArchiveForFullInventRunsOnce(t *testing.T) {
	base := t.TempDir()
	s, err := New(filepath.Join(base, "data"), filepath.Join(base, "conf"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	setDay(s, "2090-03-01")
	seedProduct(t, s, "Burger", "20", "100")

	backup := filepath.Join(base, "backup")
	if err := s.ArchiveForFullInvent(backup); err != nil {
		t.Fatalf("archive: %v", err)
	}
	entries, err := os.ReadDir(backup)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one backup entry, got %v (%v)", entries, err)
	}

	products, err := s.ListReadyProducts(context.Background())
	if err != nil {
		t.Fatalf("list after archive: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("expected fresh data root, got %d products", len(products))
	}

	// Second call must be a no-op thanks to the marker.
	if err := s.ArchiveForFullInvent(backup); err != nil {
		t.Fatalf("second archive: %v", err)
	}
	entries, _ = os.ReadDir(backup)
	if len(entries) != 1 {
		t.Fatalf("archive ran twice, %d backup entries", len(entries))
	}
}
