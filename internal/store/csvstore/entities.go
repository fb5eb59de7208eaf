package csvstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"tbmpos/backend/internal/domain"
	"tbmpos/backend/internal/store"
	"tbmpos/backend/internal/xid"
)

func (s *Store) ListReadyProducts(_ context.Context) ([]domain.ReadyProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRowsLocked(domain.TableReadyProducts)
	if err != nil {
		return nil, err
	}
	products := make([]domain.ReadyProduct, 0, len(rows))
	for _, r := range rows {
		products = append(products, readyProductFromRow(r))
	}
	return products, nil
}

// CreateReadyProduct resolves the product code under the store lock: an
// explicit code must be well formed and unused, an empty one is generated
// from the name and item category.
func (s *Store) CreateReadyProduct(_ context.Context, req domain.ReadyProductCreateRequest) (*domain.ReadyProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRowsLocked(domain.TableReadyProducts)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(rows))
	for _, r := range rows {
		if code := strings.ToUpper(r["code"]); code != "" {
			existing[code] = true
		}
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code != "" {
		if !domain.ValidProductCode(code) {
			return nil, fmt.Errorf("%w: code must be 1 digit followed by 2 letters (e.g. 1CM, 5CB)", store.ErrInvalidInput)
		}
		if existing[code] {
			return nil, fmt.Errorf("%w: code %q already exists", store.ErrInvalidInput, code)
		}
	} else {
		code, err = domain.AssignProductCode(req.Name, req.ItemCategory, existing)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
		}
	}

	product := domain.ReadyProduct{
		ID:           xid.New(),
		Name:         strings.TrimSpace(req.Name),
		Category:     req.Category,
		ItemCategory: strings.TrimSpace(req.ItemCategory),
		Code:         code,
		Unit:         req.Unit,
		UnitCost:     req.UnitCost,
		Price:        req.Price,
		Quantity:     req.Quantity,
		Threshold:    req.Threshold,
	}
	if err := s.writeRowsLocked(domain.TableReadyProducts, append(rows, rowFromReadyProduct(product))); err != nil {
		return nil, err
	}
	// Re-read through the row mapping so the caller sees the persisted
	// fixed-point values, not the raw request decimals.
	saved := readyProductFromRow(rowFromReadyProduct(product))
	return &saved, nil
}

func (s *Store) UpdateReadyProduct(_ context.Context, id string, req domain.ReadyProductUpdateRequest) (*domain.ReadyProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRowsLocked(domain.TableReadyProducts)
	if err != nil {
		return nil, err
	}

	if req.Code != nil {
		code := strings.ToUpper(strings.TrimSpace(*req.Code))
		if code != "" {
			if !domain.ValidProductCode(code) {
				return nil, fmt.Errorf("%w: code must be 1 digit followed by 2 letters (e.g. 1CM, 5CB)", store.ErrInvalidInput)
			}
			for _, r := range rows {
				if r["id"] != id && strings.EqualFold(r["code"], code) {
					return nil, fmt.Errorf("%w: code %q already exists", store.ErrInvalidInput, code)
				}
			}
		}
		req.Code = &code // clearing the code is allowed
	}

	for i, r := range rows {
		if r["id"] != id {
			continue
		}
		p := readyProductFromRow(r)
		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.Category != nil {
			p.Category = *req.Category
		}
		if req.ItemCategory != nil {
			p.ItemCategory = strings.TrimSpace(*req.ItemCategory)
		}
		if req.Code != nil {
			p.Code = *req.Code
		}
		if req.Unit != nil {
			p.Unit = *req.Unit
		}
		if req.UnitCost != nil {
			p.UnitCost = *req.UnitCost
		}
		if req.Price != nil {
			p.Price = *req.Price
		}
		if req.Quantity != nil {
			p.Quantity = *req.Quantity
		}
		if req.Threshold != nil {
			p.Threshold = *req.Threshold
		}
		rows[i] = rowFromReadyProduct(p)
		if err := s.writeRowsLocked(domain.TableReadyProducts, rows); err != nil {
			return nil, err
		}
		saved := readyProductFromRow(rows[i])
		return &saved, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) DeleteReadyProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteByIDLocked(domain.TableReadyProducts, id)
}

// AdjustReadyStock applies a manual delta to a finished good's quantity.
// A delta that would take the quantity negative is rejected.
func (s *Store) AdjustReadyStock(_ context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRowsLocked(domain.TableReadyProducts)
	if err != nil {
		return decimal.Zero, err
	}
	for i, r := range rows {
		if r["id"] != id {
			continue
		}
		q := parseDec(r["quantity"]).Add(delta)
		if q.IsNegative() {
			return decimal.Zero, fmt.Errorf("%w: resulting stock would be negative", store.ErrInvalidInput)
		}
		rows[i]["quantity"] = qty3(q)
		if err := s.writeRowsLocked(domain.TableReadyProducts, rows); err != nil {
			return decimal.Zero, err
		}
		return q, nil
	}
	return decimal.Zero, store.ErrNotFound
}

func (s *Store) ListRawItems(_ context.Context) ([]domain.RawItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRowsLocked(domain.TableRawInventory)
	if err != nil {
		return nil, err
	}
	items := make([]domain.RawItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, rawItemFromRow(r))
	}
	return items, nil
}

func (s *Store) CreateRawItem(_ context.Context, req domain.RawItemCreateRequest) (*domain.RawItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := domain.RawItem{
		ID:          xid.New(),
		Name:        strings.TrimSpace(req.Name),
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Unit:        req.Unit,
		UnitCost:    req.UnitCost,
		Stock:       req.Stock,
		Threshold:   req.Threshold,
	}

	rows, err := s.readRowsLocked(domain.TableRawInventory)
	if err != nil {
		return nil, err
	}
	if err := s.writeRowsLocked(domain.TableRawInventory, append(rows, rowFromRawItem(item))); err != nil {
		return nil, err
	}
	saved := rawItemFromRow(rowFromRawItem(item))
	return &saved, nil
}

func (s *Store) UpdateRawItem(_ context.Context, id string, req domain.RawItemUpdateRequest) (*domain.RawItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRowsLocked(domain.TableRawInventory)
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		if r["id"] != id {
			continue
		}
		item := rawItemFromRow(r)
		if req.Name != nil {
			item.Name = strings.TrimSpace(*req.Name)
		}
		if req.Category != nil {
			item.Category = *req.Category
		}
		if req.Subcategory != nil {
			item.Subcategory = *req.Subcategory
		}
		if req.Unit != nil {
			item.Unit = *req.Unit
		}
		if req.UnitCost != nil {
			item.UnitCost = *req.UnitCost
		}
		if req.Stock != nil {
			item.Stock = *req.Stock
		}
		if req.Threshold != nil {
			item.Threshold = *req.Threshold
		}
		rows[i] = rowFromRawItem(item)
		if err := s.writeRowsLocked(domain.TableRawInventory, rows); err != nil {
			return nil, err
		}
		saved := rawItemFromRow(rows[i])
		return &saved, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) DeleteRawItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteByIDLocked(domain.TableRawInventory, id)
}

func (s *Store) ListBranches(_ context.Context) ([]domain.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRowsLocked(domain.TableBranches)
	if err != nil {
		return nil, err
	}
	branches := make([]domain.Branch, 0, len(rows))
	for _, r := range rows {
		branches = append(branches, branchFromRow(r))
	}
	return branches, nil
}

// CreateBranch is idempotent on name: a case-insensitive match returns the
// existing branch instead of creating a duplicate.
func (s *Store) CreateBranch(_ context.Context, req domain.BranchCreateRequest) (*domain.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: branch name required", store.ErrInvalidInput)
	}

	rows, err := s.readRowsLocked(domain.TableBranches)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if strings.EqualFold(strings.TrimSpace(r["name"]), name) {
			b := branchFromRow(r)
			return &b, nil
		}
	}

	branch := domain.Branch{ID: xid.New(), Name: name, IsActive: req.IsActive}
	if err := s.writeRowsLocked(domain.TableBranches, append(rows, rowFromBranch(branch))); err != nil {
		return nil, err
	}
	return &branch, nil
}

func (s *Store) ListPurchases(_ context.Context) ([]domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRowsLocked(domain.TablePurchases)
	if err != nil {
		return nil, err
	}
	purchases := make([]domain.Purchase, 0, len(rows))
	for _, r := range rows {
		purchases = append(purchases, purchaseFromRow(r))
	}
	return purchases, nil
}

func (s *Store) DeletePurchase(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteByIDLocked(domain.TablePurchases, id)
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRowsLocked(domain.TableSales)
	if err != nil {
		return nil, err
	}
	sales := make([]domain.Sale, 0, len(rows))
	for _, r := range rows {
		sales = append(sales, saleFromRow(r))
	}
	return sales, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRowsLocked(domain.TableSales)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r["id"] == id {
			sale := saleFromRow(r)
			return &sale, nil
		}
	}
	return nil, store.ErrNotFound
}

// UpdateSalePayment changes payment status and/or mode on a recorded sale.
// A mode only sticks while the sale is Paid; otherwise it is forced blank.
func (s *Store) UpdateSalePayment(_ context.Context, req domain.SalePaymentUpdateRequest) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRowsLocked(domain.TableSales)
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		if r["id"] != req.ID {
			continue
		}
		if req.PaymentStatus != nil {
			rows[i]["payment_status"] = *req.PaymentStatus
		}
		if req.PaymentMode != nil {
			if rows[i]["payment_status"] != domain.PaymentStatusPaid {
				rows[i]["payment_mode"] = ""
			} else {
				rows[i]["payment_mode"] = *req.PaymentMode
			}
		}
		if err := s.writeRowsLocked(domain.TableSales, rows); err != nil {
			return nil, err
		}
		sale := saleFromRow(rows[i])
		return &sale, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) deleteByIDLocked(table, id string) error {
	rows, err := s.readRowsLocked(table)
	if err != nil {
		return err
	}
	kept := rows[:0]
	for _, r := range rows {
		if r["id"] != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(rows) {
		return store.ErrNotFound
	}
	return s.writeRowsLocked(table, kept)
}
