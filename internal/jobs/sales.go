package jobs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sp-sync/internal/export"
	"sp-sync/internal/models"
	"sp-sync/internal/spapi"
	"sp-sync/internal/store"
)

// backfillDays is the historic window of the one-off sales backfill.
const backfillDays = 720

// SyncDailySales pulls the last three days of order metrics per marketplace
// and inserts any (date, country) summary not yet stored. Existing rows are
// skipped, never refreshed.
func (r *Runner) SyncDailySales() (int, error) {
	inserted := 0
	for _, mp := range r.marketplaces {
		creds, ok := r.credentials(mp)
		if !ok {
			r.log.Warnf("No credentials for %s. Skipping.", mp.Country)
			continue
		}

		loc, err := time.LoadLocation(mp.TimeZone)
		if err != nil {
			r.log.Errorf("Bad time zone for %s: %v", mp.Country, err)
			continue
		}

		now := r.now().In(loc)
		end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 0, 0, loc)
		start := end.AddDate(0, 0, -3)

		r.log.Infof("Fetching %s sales between %s and %s", mp.Country,
			start.Format(time.RFC3339), end.Format(time.RFC3339))

		rows, err := r.newAPI(mp, creds).GetOrderMetrics(spapi.MetricsQuery{
			Start: start,
			End:   end,
			Zone:  mp.TimeZone,
		})
		if err != nil {
			if errors.Is(err, spapi.ErrUnauthorized) {
				r.log.Errorf("Auth error for %s: %v", mp.Country, err)
			} else {
				r.log.Errorf("Error fetching sales for %s: %v", mp.Country, err)
			}
			continue
		}

		for _, entry := range rows {
			date, err := metricDate(entry.Interval)
			if err != nil {
				r.log.Warnf("Skipping metric row for %s: %v", mp.Country, err)
				continue
			}

			exists, err := r.store.SummaryExists(date, mp.Country)
			if err != nil {
				r.log.Errorf("Summary lookup failed for %s on %s: %v", mp.Country, date.Format("2006-01-02"), err)
				continue
			}
			if exists {
				r.log.Infof("Skipping duplicate record for %s on %s", mp.Country, date.Format("2006-01-02"))
				continue
			}

			if err := r.insertSummary(date, mp.Country, entry); err != nil {
				if errors.Is(err, store.ErrDuplicate) {
					continue
				}
				r.log.Errorf("Failed to insert summary for %s on %s: %v", mp.Country, date.Format("2006-01-02"), err)
				continue
			}
			r.log.Infof("Inserted summary for %s on %s", mp.Country, date.Format("2006-01-02"))
			inserted++
		}
	}

	r.log.Infof("Daily sales sync complete. Inserted: %d", inserted)
	return inserted, nil
}

// BackfillSales pulls the full historic metrics window per marketplace,
// inserting with duplicate-skip counting, and writes the flat Excel snapshot
// of everything fetched. The snapshot is best effort only.
func (r *Runner) BackfillSales() (int, error) {
	end := r.now().UTC()
	start := end.AddDate(0, 0, -backfillDays)

	inserted := 0
	skipped := 0
	var snapshot []export.SalesRow

	for _, mp := range r.marketplaces {
		creds, ok := r.credentials(mp)
		if !ok {
			r.log.Warnf("No credentials for %s. Skipping.", mp.Country)
			continue
		}

		r.log.Infof("Fetching data for %s...", mp.Country)
		rows, err := r.newAPI(mp, creds).GetOrderMetrics(spapi.MetricsQuery{
			Start: start,
			End:   end,
		})
		if err != nil {
			if errors.Is(err, spapi.ErrUnauthorized) {
				r.log.Errorf("Authorization error for %s: %v", mp.Country, err)
			} else {
				r.log.Errorf("Error fetching sales for %s: %v", mp.Country, err)
			}
			continue
		}

		for _, entry := range rows {
			date, err := metricDate(entry.Interval)
			if err != nil {
				r.log.Warnf("Skipping metric row for %s: %v", mp.Country, err)
				continue
			}

			if err := r.insertSummary(date, mp.Country, entry); err != nil {
				if errors.Is(err, store.ErrDuplicate) {
					skipped++
				} else {
					r.log.Errorf("Failed to insert summary for %s on %s: %v", mp.Country, date.Format("2006-01-02"), err)
					skipped++
				}
			} else {
				inserted++
			}

			snapshot = append(snapshot, export.SalesRow{
				Date:             date.Format("2006-01-02"),
				Country:          mp.Country,
				AverageUnitPrice: entry.AverageUnitPrice.Amount,
				OrderItemCount:   entry.OrderItemCount,
				UnitCount:        entry.UnitCount,
				TotalSales:       entry.TotalSales.Amount,
				Currency:         entry.TotalSales.CurrencyCode,
			})
		}
	}

	r.log.Infof("Inserted: %d, Skipped (duplicates or errors): %d", inserted, skipped)

	if err := export.WriteSalesSnapshot(r.cfg.ExportPath, snapshot); err != nil {
		r.log.Errorf("Failed to write sales snapshot: %v", err)
	} else {
		r.log.Infof("Data has been written to %s", r.cfg.ExportPath)
	}

	return inserted, nil
}

func (r *Runner) insertSummary(date time.Time, country string, entry spapi.MetricRow) error {
	return r.store.InsertSalesSummary(&models.SalesSummary{
		Date:             date,
		Country:          country,
		AverageUnitPrice: entry.AverageUnitPrice.Amount,
		OrderItemCount:   entry.OrderItemCount,
		UnitCount:        entry.UnitCount,
		TotalSales:       entry.TotalSales.Amount,
		Currency:         entry.TotalSales.CurrencyCode,
	})
}

// metricDate extracts the day from a metrics interval such as
// "2024-05-01T00:00:00-07:00--2024-05-02T00:00:00-07:00".
func metricDate(interval string) (time.Time, error) {
	datePart, _, found := strings.Cut(interval, "T")
	if !found {
		return time.Time{}, fmt.Errorf("bad interval %q", interval)
	}
	date, err := time.Parse("2006-01-02", datePart)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad interval %q: %w", interval, err)
	}
	return date, nil
}
