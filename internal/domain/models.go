package domain

import "github.com/shopspring/decimal"

// Row is the wire shape of a single CSV record: column name to raw value.
// Typed structs below are mapped to and from rows by the store.
type Row map[string]string

const (
	TableReadyProducts = "ready_products"
	TableRawInventory  = "raw_inventory"
	TablePurchases     = "purchases"
	TableSales         = "sales"
	TableBranches      = "branches"
)

// TableHeaders is the authoritative column list for every table, in emit order.
// Files are written with exactly these columns; anything else is ignored on read.
var TableHeaders = map[string][]string{
	TableReadyProducts: {
		"id", "name", "category", "item_category", "code",
		"unit", "unit_cost", "price", "quantity", "threshold",
	},
	TableRawInventory: {
		"id", "name", "category", "subcategory", "unit",
		"unit_cost", "stock", "threshold",
	},
	TablePurchases: {
		"id", "date", "category", "subcategory", "item",
		"unit", "qty", "unit_cost", "total_cost", "notes",
	},
	TableSales: {
		"id", "date", "category", "branch", "order_id", "item", "unit", "qty",
		"unit_price", "discount", "total_price", "customer_name", "customer_phone",
		"table_no", "payment_status", "payment_mode", "payment_note", "notes",
	},
	TableBranches: {"id", "name", "is_active"},
}

type ReadyProduct struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	ItemCategory string          `json:"item_category"`
	Code         string          `json:"code"`
	Unit         string          `json:"unit"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Price        decimal.Decimal `json:"price"`
	Quantity     decimal.Decimal `json:"quantity"`
	Threshold    decimal.Decimal `json:"threshold"`
}

type ReadyProductCreateRequest struct {
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	ItemCategory string          `json:"item_category"`
	Code         string          `json:"code"`
	Unit         string          `json:"unit"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Price        decimal.Decimal `json:"price"`
	Quantity     decimal.Decimal `json:"quantity"`
	Threshold    decimal.Decimal `json:"threshold"`
}

type ReadyProductUpdateRequest struct {
	Name         *string          `json:"name,omitempty"`
	Category     *string          `json:"category,omitempty"`
	ItemCategory *string          `json:"item_category,omitempty"`
	Code         *string          `json:"code,omitempty"`
	Unit         *string          `json:"unit,omitempty"`
	UnitCost     *decimal.Decimal `json:"unit_cost,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Quantity     *decimal.Decimal `json:"quantity,omitempty"`
	Threshold    *decimal.Decimal `json:"threshold,omitempty"`
}

type RawItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Unit        string          `json:"unit"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Stock       decimal.Decimal `json:"stock"`
	Threshold   decimal.Decimal `json:"threshold"`
}

type RawItemCreateRequest struct {
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Unit        string          `json:"unit"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Stock       decimal.Decimal `json:"stock"`
	Threshold   decimal.Decimal `json:"threshold"`
}

type RawItemUpdateRequest struct {
	Name        *string          `json:"name,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Subcategory *string          `json:"subcategory,omitempty"`
	Unit        *string          `json:"unit,omitempty"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
	Stock       *decimal.Decimal `json:"stock,omitempty"`
	Threshold   *decimal.Decimal `json:"threshold,omitempty"`
}

// Purchase is an append-only ledger row. Qty and Unit are recorded as
// purchased, before any conversion into the inventory item's stored unit.
type Purchase struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Item        string          `json:"item"`
	Unit        string          `json:"unit"`
	Qty         decimal.Decimal `json:"qty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	Notes       string          `json:"notes"`
}

type PurchaseRequest struct {
	Date        string          `json:"date,omitempty"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Item        string          `json:"item"`
	Unit        string          `json:"unit"`
	Qty         decimal.Decimal `json:"qty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Notes       string          `json:"notes,omitempty"`
}

// PurchaseResult reports the stock level after a received purchase, expressed
// in the inventory item's stored unit (which may differ from the purchase unit).
type PurchaseResult struct {
	ID       string          `json:"id"`
	NewStock decimal.Decimal `json:"new_stock"`
	Unit     string          `json:"unit"`
}

type Sale struct {
	ID            string          `json:"id"`
	Date          string          `json:"date"`
	Category      string          `json:"category"`
	Branch        string          `json:"branch"`
	OrderID       int64           `json:"order_id"`
	Item          string          `json:"item"`
	Unit          string          `json:"unit"`
	Qty           decimal.Decimal `json:"qty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Discount      decimal.Decimal `json:"discount"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	TableNo       string          `json:"table_no"`
	PaymentStatus string          `json:"payment_status"`
	PaymentMode   string          `json:"payment_mode"`
	PaymentNote   string          `json:"payment_note"`
	Notes         string          `json:"notes"`
}

type SaleRequest struct {
	Date          string           `json:"date,omitempty"`
	Category      string           `json:"category"`
	Branch        string           `json:"branch,omitempty"`
	OrderID       *int64           `json:"order_id,omitempty"`
	Item          string           `json:"item"`
	Unit          string           `json:"unit"`
	Qty           decimal.Decimal  `json:"qty"`
	UnitPrice     *decimal.Decimal `json:"unit_price,omitempty"`
	Discount      decimal.Decimal  `json:"discount"`
	CustomerName  string           `json:"customer_name,omitempty"`
	CustomerPhone string           `json:"customer_phone,omitempty"`
	TableNo       string           `json:"table_no,omitempty"`
	PaymentStatus string           `json:"payment_status"`
	PaymentMode   string           `json:"payment_mode,omitempty"`
	PaymentNote   string           `json:"payment_note,omitempty"`
	Notes         string           `json:"notes,omitempty"`
}

type SaleResult struct {
	ID             string          `json:"id"`
	OrderID        int64           `json:"order_id"`
	RemainingStock decimal.Decimal `json:"remaining_stock"`
	TotalPrice     decimal.Decimal `json:"total_price"`
}

type SalePaymentUpdateRequest struct {
	ID            string  `json:"id"`
	PaymentStatus *string `json:"payment_status,omitempty"`
	PaymentMode   *string `json:"payment_mode,omitempty"`
}

type Branch struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

type BranchCreateRequest struct {
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// BranchTableSummary counts open orders per table for one branch.
type BranchTableSummary struct {
	TableNo    string `json:"table_no"`
	OpenOrders int    `json:"open_orders"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type SpendReport struct {
	Period     ReportPeriod               `json:"period"`
	TotalSpend decimal.Decimal            `json:"total_spend"`
	ByCategory map[string]decimal.Decimal `json:"by_category"`
	ByItem     map[string]decimal.Decimal `json:"by_item"`
	Rows       []Purchase                 `json:"rows"`
}

type SalesReport struct {
	Period     ReportPeriod               `json:"period"`
	TotalSales decimal.Decimal            `json:"total_sales"`
	ByCategory map[string]decimal.Decimal `json:"by_category"`
	ByItem     map[string]decimal.Decimal `json:"by_item"`
	ByBranch   map[string]decimal.Decimal `json:"by_branch"`
	Rows       []Sale                     `json:"rows"`
}

type ReportPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
