package csvstore

import (
	"strconv"

	"github.com/shopspring/decimal"

	"tbmpos/backend/internal/domain"
)

// Money columns carry two decimals, quantity columns three. Parsing is
// lenient (blank or junk reads as zero, matching how old files behave);
// writing always emits the fixed-point form.

func parseDec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func qty3(d decimal.Decimal) string { return d.StringFixed(3) }

func readyProductFromRow(r domain.Row) domain.ReadyProduct {
	return domain.ReadyProduct{
		ID:           r["id"],
		Name:         r["name"],
		Category:     r["category"],
		ItemCategory: r["item_category"],
		Code:         r["code"],
		Unit:         r["unit"],
		UnitCost:     parseDec(r["unit_cost"]),
		Price:        parseDec(r["price"]),
		Quantity:     parseDec(r["quantity"]),
		Threshold:    parseDec(r["threshold"]),
	}
}

func rowFromReadyProduct(p domain.ReadyProduct) domain.Row {
	return domain.Row{
		"id":            p.ID,
		"name":          p.Name,
		"category":      p.Category,
		"item_category": p.ItemCategory,
		"code":          p.Code,
		"unit":          p.Unit,
		"unit_cost":     money(p.UnitCost),
		"price":         money(p.Price),
		"quantity":      qty3(p.Quantity),
		"threshold":     qty3(p.Threshold),
	}
}

func rawItemFromRow(r domain.Row) domain.RawItem {
	return domain.RawItem{
		ID:          r["id"],
		Name:        r["name"],
		Category:    r["category"],
		Subcategory: r["subcategory"],
		Unit:        r["unit"],
		UnitCost:    parseDec(r["unit_cost"]),
		Stock:       parseDec(r["stock"]),
		Threshold:   parseDec(r["threshold"]),
	}
}

func rowFromRawItem(i domain.RawItem) domain.Row {
	return domain.Row{
		"id":          i.ID,
		"name":        i.Name,
		"category":    i.Category,
		"subcategory": i.Subcategory,
		"unit":        i.Unit,
		"unit_cost":   money(i.UnitCost),
		"stock":       qty3(i.Stock),
		"threshold":   qty3(i.Threshold),
	}
}

func purchaseFromRow(r domain.Row) domain.Purchase {
	return domain.Purchase{
		ID:          r["id"],
		Date:        r["date"],
		Category:    r["category"],
		Subcategory: r["subcategory"],
		Item:        r["item"],
		Unit:        r["unit"],
		Qty:         parseDec(r["qty"]),
		UnitCost:    parseDec(r["unit_cost"]),
		TotalCost:   parseDec(r["total_cost"]),
		Notes:       r["notes"],
	}
}

func rowFromPurchase(p domain.Purchase) domain.Row {
	return domain.Row{
		"id":          p.ID,
		"date":        p.Date,
		"category":    p.Category,
		"subcategory": p.Subcategory,
		"item":        p.Item,
		"unit":        p.Unit,
		"qty":         qty3(p.Qty),
		"unit_cost":   money(p.UnitCost),
		"total_cost":  money(p.TotalCost),
		"notes":       p.Notes,
	}
}

func saleFromRow(r domain.Row) domain.Sale {
	orderID, _ := strconv.ParseInt(r["order_id"], 10, 64)
	return domain.Sale{
		ID:            r["id"],
		Date:          r["date"],
		Category:      r["category"],
		Branch:        r["branch"],
		OrderID:       orderID,
		Item:          r["item"],
		Unit:          r["unit"],
		Qty:           parseDec(r["qty"]),
		UnitPrice:     parseDec(r["unit_price"]),
		Discount:      parseDec(r["discount"]),
		TotalPrice:    parseDec(r["total_price"]),
		CustomerName:  r["customer_name"],
		CustomerPhone: r["customer_phone"],
		TableNo:       r["table_no"],
		PaymentStatus: r["payment_status"],
		PaymentMode:   r["payment_mode"],
		PaymentNote:   r["payment_note"],
		Notes:         r["notes"],
	}
}

func rowFromSale(s domain.Sale) domain.Row {
	return domain.Row{
		"id":             s.ID,
		"date":           s.Date,
		"category":       s.Category,
		"branch":         s.Branch,
		"order_id":       strconv.FormatInt(s.OrderID, 10),
		"item":           s.Item,
		"unit":           s.Unit,
		"qty":            qty3(s.Qty),
		"unit_price":     money(s.UnitPrice),
		"discount":       money(s.Discount),
		"total_price":    money(s.TotalPrice),
		"customer_name":  s.CustomerName,
		"customer_phone": s.CustomerPhone,
		"table_no":       s.TableNo,
		"payment_status": s.PaymentStatus,
		"payment_mode":   s.PaymentMode,
		"payment_note":   s.PaymentNote,
		"notes":          s.Notes,
	}
}

func branchFromRow(r domain.Row) domain.Branch {
	return domain.Branch{
		ID:       r["id"],
		Name:     r["name"],
		IsActive: r["is_active"] == "1",
	}
}

func rowFromBranch(b domain.Branch) domain.Row {
	active := "0"
	if b.IsActive {
		active = "1"
	}
	return domain.Row{"id": b.ID, "name": b.Name, "is_active": active}
}
