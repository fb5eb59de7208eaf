package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tbmpos/backend/internal/domain"
	"tbmpos/backend/internal/store"
)

// stubbed in tests
var timeNow = time.Now

const dateLayout = "2006-01-02"

// resolvePeriod turns a period preset into an inclusive start/end date pair.
// Unknown presets fall back to last30, matching the report defaults.
func resolvePeriod(period, start, end string) (time.Time, time.Time, error) {
	now := timeNow()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch period {
	case "today":
		return today, today, nil
	case "week":
		return today.AddDate(0, 0, -6), today, nil
	case "month":
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()), today, nil
	case "last30":
		return today.AddDate(0, 0, -29), today, nil
	case "last90":
		return today.AddDate(0, 0, -89), today, nil
	case "last180":
		return today.AddDate(0, 0, -179), today, nil
	case "daterange":
		if start == "" || end == "" {
			return today.AddDate(0, 0, -29), today, nil
		}
		s, err := time.Parse(dateLayout, start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: bad start date %q", store.ErrInvalidInput, start)
		}
		e, err := time.Parse(dateLayout, end)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: bad end date %q", store.ErrInvalidInput, end)
		}
		return s, e, nil
	default:
		return today.AddDate(0, 0, -29), today, nil
	}
}

func inRange(dateStr string, start, end time.Time) bool {
	d, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return false
	}
	return !d.Before(start) && !d.After(end)
}

type SpendFilter struct {
	Period   string
	Category string
	Item     string
	Start    string
	End      string
}

func (s *Service) SpendReport(ctx context.Context, f SpendFilter) (*domain.SpendReport, error) {
	start, end, err := resolvePeriod(f.Period, f.Start, f.End)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("report:spend:%s:%s:%s:%s", start.Format(dateLayout), end.Format(dateLayout), f.Category, strings.ToLower(f.Item))
	if payload, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
		var report domain.SpendReport
		if err := json.Unmarshal(payload, &report); err == nil {
			return &report, nil
		}
	} else if err != nil {
		log.Printf("[service] WARN: report cache get: %v", err)
	}

	rows, err := s.repo.ListPurchases(ctx)
	if err != nil {
		return nil, err
	}

	report := domain.SpendReport{
		Period:     domain.ReportPeriod{Start: start.Format(dateLayout), End: end.Format(dateLayout)},
		ByCategory: map[string]decimal.Decimal{},
		ByItem:     map[string]decimal.Decimal{},
		Rows:       []domain.Purchase{},
	}
	for _, p := range rows {
		if !inRange(p.Date, start, end) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Item != "" && !strings.EqualFold(strings.TrimSpace(p.Item), strings.TrimSpace(f.Item)) {
			continue
		}
		report.TotalSpend = report.TotalSpend.Add(p.TotalCost)
		report.ByCategory[p.Category] = report.ByCategory[p.Category].Add(p.TotalCost)
		item := strings.TrimSpace(p.Item)
		report.ByItem[item] = report.ByItem[item].Add(p.TotalCost)
		report.Rows = append(report.Rows, p)
	}

	s.cacheReport(ctx, cacheKey, &report)
	return &report, nil
}

type SalesFilter struct {
	Period        string
	Category      string
	Item          string
	Branch        string
	PaymentStatus string
	Start         string
	End           string
}

func (s *Service) SalesReport(ctx context.Context, f SalesFilter) (*domain.SalesReport, error) {
	start, end, err := resolvePeriod(f.Period, f.Start, f.End)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("report:sales:%s:%s:%s:%s:%s:%s",
		start.Format(dateLayout), end.Format(dateLayout), f.Category, strings.ToLower(f.Item), f.Branch, f.PaymentStatus)
	if payload, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
		var report domain.SalesReport
		if err := json.Unmarshal(payload, &report); err == nil {
			return &report, nil
		}
	} else if err != nil {
		log.Printf("[service] WARN: report cache get: %v", err)
	}

	rows, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}

	report := domain.SalesReport{
		Period:     domain.ReportPeriod{Start: start.Format(dateLayout), End: end.Format(dateLayout)},
		ByCategory: map[string]decimal.Decimal{},
		ByItem:     map[string]decimal.Decimal{},
		ByBranch:   map[string]decimal.Decimal{},
		Rows:       []domain.Sale{},
	}
	for _, sale := range rows {
		if !inRange(sale.Date, start, end) {
			continue
		}
		if f.Category != "" && sale.Category != f.Category {
			continue
		}
		if f.Item != "" && !strings.EqualFold(strings.TrimSpace(sale.Item), strings.TrimSpace(f.Item)) {
			continue
		}
		if f.Branch != "" && sale.Branch != f.Branch {
			continue
		}
		if f.PaymentStatus != "" && sale.PaymentStatus != f.PaymentStatus {
			continue
		}
		report.TotalSales = report.TotalSales.Add(sale.TotalPrice)
		report.ByCategory[sale.Category] = report.ByCategory[sale.Category].Add(sale.TotalPrice)
		report.ByItem[sale.Item] = report.ByItem[sale.Item].Add(sale.TotalPrice)
		report.ByBranch[sale.Branch] = report.ByBranch[sale.Branch].Add(sale.TotalPrice)
		report.Rows = append(report.Rows, sale)
	}

	s.cacheReport(ctx, cacheKey, &report)
	return &report, nil
}

func (s *Service) cacheReport(ctx context.Context, key string, report any) {
	payload, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, time.Duration(s.cacheTTL)*time.Second); err != nil {
		log.Printf("[service] WARN: report cache set: %v", err)
	}
}

// LowReadyProducts lists finished goods at or below their alert threshold.
// A zero threshold disables the alert for that product.
func (s *Service) LowReadyProducts(ctx context.Context) ([]domain.ReadyProduct, error) {
	products, err := s.repo.ListReadyProducts(ctx)
	if err != nil {
		return nil, err
	}
	low := []domain.ReadyProduct{}
	for _, p := range products {
		if p.Threshold.IsPositive() && p.Quantity.LessThanOrEqual(p.Threshold) {
			low = append(low, p)
		}
	}
	return low, nil
}

func (s *Service) LowRawItems(ctx context.Context) ([]domain.RawItem, error) {
	items, err := s.repo.ListRawItems(ctx)
	if err != nil {
		return nil, err
	}
	low := []domain.RawItem{}
	for _, i := range items {
		if i.Threshold.IsPositive() && i.Stock.LessThanOrEqual(i.Threshold) {
			low = append(low, i)
		}
	}
	return low, nil
}

// BranchTables counts open orders per table for one branch, a minimal live
// floor view. Sales without a table number group under a placeholder label.
func (s *Service) BranchTables(ctx context.Context, branch, status string) ([]domain.BranchTableSummary, error) {
	if status == "" {
		status = domain.PaymentStatusLive
	}
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, sale := range sales {
		if sale.Branch != branch || sale.PaymentStatus != status {
			continue
		}
		table := sale.TableNo
		if table == "" {
			table = "(no table)"
		}
		counts[table]++
	}

	tables := make([]string, 0, len(counts))
	for t := range counts {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	out := make([]domain.BranchTableSummary, 0, len(tables))
	for _, t := range tables {
		out = append(out, domain.BranchTableSummary{TableNo: t, OpenOrders: counts[t]})
	}
	return out, nil
}

// Bill renders a plain-text bill for one sale, ready to print or save.
func (s *Service) Bill(ctx context.Context, saleID string) (string, error) {
	sale, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("TBM - Bill")
	line("Date: %s    Order: #%d", sale.Date, sale.OrderID)
	if sale.Category != "" {
		line("Category: %s", sale.Category)
	}
	if sale.Branch != "" {
		line("Branch: %s", sale.Branch)
	}
	if sale.TableNo != "" {
		line("Table: %s", sale.TableNo)
	}
	line(strings.Repeat("-", 40))
	line("Item: %s  (%s)", sale.Item, sale.Unit)
	line("Qty: %s  Unit Price: ₹%s", sale.Qty.String(), sale.UnitPrice.StringFixed(2))
	line("Discount: ₹%s", sale.Discount.StringFixed(2))
	line("Total: ₹%s", sale.TotalPrice.StringFixed(2))
	line(strings.Repeat("-", 40))
	if sale.CustomerName != "" || sale.CustomerPhone != "" {
		line("Customer: %s  %s", sale.CustomerName, sale.CustomerPhone)
	}
	line("Payment: %s %s", sale.PaymentStatus, sale.PaymentMode)
	if sale.PaymentNote != "" {
		line("Note: %s", sale.PaymentNote)
	}
	if sale.Notes != "" {
		line("Remarks: %s", sale.Notes)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
