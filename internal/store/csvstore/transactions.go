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

// ReceivePurchase adds purchased stock to raw inventory and appends the
// purchase to the ledger. The inventory item is matched by name, category and
// subcategory; a miss creates the item with zero stock in the purchase's unit.
// When the purchase unit differs from the item's stored unit the quantity is
// converted (KG<->GM only) before adding, while the ledger keeps the quantity
// as purchased. Unit cost on the item is overwritten, last write wins.
func (s *Store) ReceivePurchase(_ context.Context, req domain.PurchaseRequest) (*domain.PurchaseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.readRowsLocked(domain.TableRawInventory)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Item)
	idx := -1
	for i, r := range items {
		if strings.EqualFold(strings.TrimSpace(r["name"]), name) &&
			r["category"] == req.Category && r["subcategory"] == req.Subcategory {
			idx = i
			break
		}
	}
	if idx == -1 {
		items = append(items, rowFromRawItem(domain.RawItem{
			ID:          xid.New(),
			Name:        name,
			Category:    req.Category,
			Subcategory: req.Subcategory,
			Unit:        req.Unit,
		}))
		idx = len(items) - 1
	}

	item := rawItemFromRow(items[idx])
	added, err := domain.ConvertQty(req.Qty, req.Unit, item.Unit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	item.Stock = item.Stock.Add(added)
	item.UnitCost = req.UnitCost
	items[idx] = rowFromRawItem(item)

	if err := s.writeRowsLocked(domain.TableRawInventory, items); err != nil {
		return nil, err
	}

	date := req.Date
	if date == "" {
		date = s.today()
	}
	purchase := domain.Purchase{
		ID:          xid.New(),
		Date:        date,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Item:        name,
		Unit:        req.Unit,
		Qty:         req.Qty,
		UnitCost:    req.UnitCost,
		TotalCost:   req.Qty.Mul(req.UnitCost),
		Notes:       req.Notes,
	}
	ledger, err := s.readRowsLocked(domain.TablePurchases)
	if err == nil {
		err = s.writeRowsLocked(domain.TablePurchases, append(ledger, rowFromPurchase(purchase)))
	}
	if err != nil {
		// Put the stock back so inventory and ledger stay consistent.
		item.Stock = item.Stock.Sub(added)
		items[idx] = rowFromRawItem(item)
		if rbErr := s.writeRowsLocked(domain.TableRawInventory, items); rbErr != nil {
			return nil, fmt.Errorf("ledger append failed (%v) and stock rollback failed: %w", err, rbErr)
		}
		return nil, err
	}

	return &domain.PurchaseResult{ID: purchase.ID, NewStock: item.Stock, Unit: item.Unit}, nil
}

// RecordSale deducts sold quantity from a finished good and appends the sale
// to the ledger. The product is matched by name and category, the sale unit
// must equal the product's unit exactly, and a quantity exceeding stock is
// rejected without any change.
func (s *Store) RecordSale(_ context.Context, req domain.SaleRequest) (*domain.SaleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.readRowsLocked(domain.TableReadyProducts)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Item)
	idx := -1
	for i, r := range products {
		if strings.EqualFold(strings.TrimSpace(r["name"]), name) && r["category"] == req.Category {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("%w: product %q in category %q", store.ErrNotFound, name, req.Category)
	}

	product := readyProductFromRow(products[idx])
	if req.Unit != product.Unit {
		return nil, fmt.Errorf("%w: unit %q does not match product unit %q", store.ErrInvalidInput, req.Unit, product.Unit)
	}
	if req.Qty.GreaterThan(product.Quantity) {
		return nil, fmt.Errorf("%w: have %s, want %s", store.ErrInsufficientStock, qty3(product.Quantity), qty3(req.Qty))
	}

	price := product.Price
	if req.UnitPrice != nil {
		price = *req.UnitPrice
	}
	discount := req.Discount
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	total := req.Qty.Mul(price).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	product.Quantity = product.Quantity.Sub(req.Qty)
	products[idx] = rowFromReadyProduct(product)
	if err := s.writeRowsLocked(domain.TableReadyProducts, products); err != nil {
		return nil, err
	}

	var orderID int64
	if req.OrderID != nil {
		orderID = *req.OrderID
	} else {
		orderID, err = s.nextOrderIDLocked(false)
		if err != nil {
			return nil, s.rollbackSaleStock(products, idx, product, req.Qty, err)
		}
	}

	date := req.Date
	if date == "" {
		date = s.today()
	}
	sale := domain.Sale{
		ID:            xid.New(),
		Date:          date,
		Category:      req.Category,
		Branch:        strings.TrimSpace(req.Branch),
		OrderID:       orderID,
		Item:          product.Name,
		Unit:          req.Unit,
		Qty:           req.Qty,
		UnitPrice:     price,
		Discount:      discount,
		TotalPrice:    total,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		TableNo:       strings.TrimSpace(req.TableNo),
		PaymentStatus: req.PaymentStatus,
		PaymentMode:   req.PaymentMode,
		PaymentNote:   req.PaymentNote,
		Notes:         req.Notes,
	}
	if sale.PaymentStatus != domain.PaymentStatusPaid {
		sale.PaymentMode = ""
	}

	ledger, err := s.readRowsLocked(domain.TableSales)
	if err == nil {
		err = s.writeRowsLocked(domain.TableSales, append(ledger, rowFromSale(sale)))
	}
	if err != nil {
		return nil, s.rollbackSaleStock(products, idx, product, req.Qty, err)
	}

	return &domain.SaleResult{
		ID:             sale.ID,
		OrderID:        orderID,
		RemainingStock: product.Quantity,
		TotalPrice:     total,
	}, nil
}

func (s *Store) rollbackSaleStock(products []domain.Row, idx int, product domain.ReadyProduct, qty decimal.Decimal, cause error) error {
	product.Quantity = product.Quantity.Add(qty)
	products[idx] = rowFromReadyProduct(product)
	if rbErr := s.writeRowsLocked(domain.TableReadyProducts, products); rbErr != nil {
		return fmt.Errorf("sale append failed (%v) and stock rollback failed: %w", cause, rbErr)
	}
	return cause
}
