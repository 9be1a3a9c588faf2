package jobs

import (
	"errors"
	"fmt"
	"time"

	"sp-sync/internal/models"
	"sp-sync/internal/spapi"
	"sp-sync/internal/store"
)

// watermarkFallbackDays bounds the first-ever sync when the orders table is empty.
const watermarkFallbackDays = 720

const createdAfterFormat = "2006-01-02T15:04:05Z"

// watermark returns the starting point for the next incremental fetch:
// max(purchase_date) over stored orders, or now minus 720 days on an empty store.
func (r *Runner) watermark() (time.Time, error) {
	latest, err := r.store.LatestPurchaseDate()
	if err != nil {
		return time.Time{}, fmt.Errorf("query watermark: %w", err)
	}
	if latest.IsZero() {
		return r.now().UTC().AddDate(0, 0, -watermarkFallbackDays), nil
	}
	return latest, nil
}

// SyncOrders walks every configured marketplace and pulls orders created after
// the shared watermark. One marketplace failing never stops the others; the
// return value is the total of rows actually inserted.
func (r *Runner) SyncOrders() (int, error) {
	watermark, err := r.watermark()
	if err != nil {
		return 0, err
	}
	r.log.Infof("Starting order sync from %s", watermark.Format(time.RFC3339))

	totalAll := 0
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
		start := watermark.In(loc)

		inserted, err := r.fetchAndInsertOrders(r.newAPI(mp, creds), mp, start)
		totalAll += inserted
		if err != nil {
			r.log.Errorf("Error syncing %s: %v", mp.Country, err)
			continue
		}
		r.log.Infof("%d total inserted for %s", inserted, mp.Country)
	}

	r.log.Infof("Order sync complete. Total inserted: %d", totalAll)
	r.verifyRecentOrders()
	return totalAll, nil
}

// fetchAndInsertOrders walks the token-paginated order list for one
// marketplace. The first request filters by start timestamp; every follow-up
// carries only the continuation token. Rate limiting retries the same page
// with linear backoff; any other upstream error ends this marketplace's
// sequence and reports what was inserted so far.
func (r *Runner) fetchAndInsertOrders(api UpstreamAPI, mp spapi.Marketplace, start time.Time) (int, error) {
	r.log.Infof("Fetching orders for %s starting from %s", mp.Country, start.Format(time.RFC3339))

	nextToken := ""
	attempt := 0
	total := 0

	for {
		params := spapi.GetOrdersParams{NextToken: nextToken}
		if nextToken == "" {
			params.CreatedAfter = start.Format(createdAfterFormat)
			params.PageSize = r.cfg.PageSize
		}

		page, err := api.GetOrders(params)
		if err != nil {
			if errors.Is(err, spapi.ErrRateLimited) {
				attempt++
				wait := backoffWait(attempt)
				r.log.Warnf("Quota exceeded for %s. Sleeping %s and retrying... [Attempt %d]", mp.Country, wait, attempt)
				r.sleep(wait)
				continue
			}
			return total, err
		}

		if len(page.Orders) == 0 {
			break
		}

		inserted := r.insertOrders(page.Orders)
		r.log.Infof("Inserted %d orders for %s in this batch", inserted, mp.Country)
		total += inserted

		nextToken = page.NextToken
		if nextToken == "" {
			break
		}
		r.sleep(r.pageDelay)
	}

	return total, nil
}

// insertOrders persists one page of raw orders, one row per transaction. A
// duplicate external order identifier rolls back only that record and the page
// continues; the count excludes skipped rows.
func (r *Runner) insertOrders(orders []spapi.Order) int {
	inserted := 0
	for _, o := range orders {
		purchase, err := time.Parse(time.RFC3339, o.PurchaseDate)
		if err != nil {
			r.log.Warnf("Skipping order %s: bad purchase date %q", o.AmazonOrderID, o.PurchaseDate)
			continue
		}

		row := models.Order{
			AmazonOrderID: o.AmazonOrderID,
			PurchaseDate:  purchase,
			OrderStatus:   o.OrderStatus,
			BuyerName:     o.BuyerInfo.BuyerName,
			BuyerEmail:    o.BuyerInfo.BuyerEmail,
			MarketplaceID: o.MarketplaceID,
			OrderTotal:    o.OrderTotal.Amount,
			Currency:      o.OrderTotal.CurrencyCode,
		}

		if err := r.store.InsertOrder(&row); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				continue
			}
			r.log.Errorf("Failed to insert order %s: %v", o.AmazonOrderID, err)
			continue
		}
		inserted++
	}
	return inserted
}

// verifyRecentOrders is the operator-visibility check after a run: how many
// order rows landed with a purchase date inside the last ten minutes.
func (r *Runner) verifyRecentOrders() {
	since := r.now().UTC().Add(-10 * time.Minute)
	rows, err := r.store.OrdersSince(since)
	if err != nil {
		r.log.Errorf("Verification query failed: %v", err)
		return
	}
	r.log.Infof("%d orders inserted in the last 10 minutes.", len(rows))
	if len(rows) > 0 {
		sample := rows[0]
		r.log.Infof("Sample order: ID %s, Status %s, Date %s",
			sample.AmazonOrderID, sample.OrderStatus, sample.PurchaseDate.Format(time.RFC3339))
	}
}
