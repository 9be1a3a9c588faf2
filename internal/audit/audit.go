// Package audit runs the data integrity checks operators use to spot sync
// drift: duplicate summary pairs, orders without items, currency mismatches.
package audit

import (
	"time"

	"sp-sync/internal/models"

	"gorm.io/gorm"
)

type DuplicatePair struct {
	Date    time.Time `json:"date"`
	Country string    `json:"country"`
	Count   int64     `json:"count"`
}

type CurrencyUsage struct {
	Country  string `json:"country"`
	Currency string `json:"currency"`
	Count    int64  `json:"count"`
}

type Report struct {
	NullUnitCountSummaries int64                 `json:"null_unit_count_summaries"`
	EmptyOrderIDs          int64                 `json:"empty_order_ids"`
	DuplicateSummaryPairs  []DuplicatePair       `json:"duplicate_summary_pairs"`
	CurrencyMismatches     []CurrencyUsage       `json:"currency_mismatches"`
	OrdersWithoutItems     int64                 `json:"orders_without_items"`
	RecentSummaries        []models.SalesSummary `json:"recent_summaries"`
}

// Run executes all integrity checks against the store.
func Run(db *gorm.DB) (*Report, error) {
	report := &Report{}

	err := db.Model(&models.SalesSummary{}).
		Where("unit_count IS NULL").
		Count(&report.NullUnitCountSummaries).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&models.Order{}).
		Where("amazon_order_id IS NULL OR amazon_order_id = ''").
		Count(&report.EmptyOrderIDs).Error
	if err != nil {
		return nil, err
	}

	// The composite unique index should make this impossible; a non-empty
	// result means the constraint is missing or was bypassed.
	err = db.Model(&models.SalesSummary{}).
		Select("date, country, COUNT(*) AS count").
		Group("date, country").
		Having("COUNT(*) > 1").
		Scan(&report.DuplicateSummaryPairs).Error
	if err != nil {
		return nil, err
	}

	// A country reporting more than one currency over time points at a
	// marketplace configuration problem upstream.
	err = db.Model(&models.SalesSummary{}).
		Select("country, currency, COUNT(*) AS count").
		Group("country, currency").
		Scan(&report.CurrencyMismatches).Error
	if err != nil {
		return nil, err
	}
	report.CurrencyMismatches = keepMismatches(report.CurrencyMismatches)

	err = db.Model(&models.Order{}).
		Where("amazon_order_id NOT IN (?)",
			db.Model(&models.OrderItem{}).Distinct("order_id")).
		Count(&report.OrdersWithoutItems).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&models.SalesSummary{}).
		Order("date DESC").
		Limit(10).
		Find(&report.RecentSummaries).Error
	if err != nil {
		return nil, err
	}

	return report, nil
}

// keepMismatches drops countries that use a single currency.
func keepMismatches(usages []CurrencyUsage) []CurrencyUsage {
	perCountry := make(map[string]int)
	for _, u := range usages {
		perCountry[u.Country]++
	}
	var out []CurrencyUsage
	for _, u := range usages {
		if perCountry[u.Country] > 1 {
			out = append(out, u)
		}
	}
	return out
}
