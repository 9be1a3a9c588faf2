package jobs

import (
	"context"
	"errors"
	"strconv"
	"time"

	"sp-sync/internal/models"
	"sp-sync/internal/spapi"

	"golang.org/x/time/rate"
)

// maxItemFetchAttempts bounds the per-order retry loop. The original sync
// retried rate-limited item fetches without limit; a bounded loop keeps a
// sustained quota outage from stalling the whole batch on one order.
const maxItemFetchAttempts = 5

// SyncItems populates order_items for stored orders that have none yet. It
// keeps draining the unfetched-order selector until it comes back empty, so a
// re-run never fetches items for an order that already has rows.
func (r *Runner) SyncItems() (int, error) {
	// One item request per second across all marketplaces, matching the
	// upstream per-seller quota.
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)
	ctx := context.Background()

	totalInserted := 0
	for {
		orders, err := r.store.UnfetchedOrders(r.cfg.SelectorLimit)
		if err != nil {
			return totalInserted, err
		}
		if len(orders) == 0 {
			r.log.Info("No more orders to fetch. Exiting.")
			break
		}

		r.log.Infof("Found %d orders without items.", len(orders))

		progressed := false
		for _, order := range orders {
			mp, ok := r.marketplaceByID(order.MarketplaceID)
			if !ok {
				r.log.Warnf("Skipping order %s: unknown marketplace %s.", order.AmazonOrderID, order.MarketplaceID)
				continue
			}
			creds, ok := r.credentials(mp)
			if !ok {
				r.log.Warnf("Skipping order %s: missing credentials for %s.", order.AmazonOrderID, mp.Region)
				continue
			}

			if err := limiter.Wait(ctx); err != nil {
				return totalInserted, err
			}

			r.log.Infof("Fetching items for order %s in %s", order.AmazonOrderID, mp.Country)
			items, err := r.fetchOrderItems(r.newAPI(mp, creds), order.AmazonOrderID)
			if err != nil {
				r.log.Errorf("Unexpected error on %s: %v", order.AmazonOrderID, err)
				continue
			}

			rows := buildItemRows(order.AmazonOrderID, items, mp.Country)
			if err := r.store.InsertOrderItems(rows); err != nil {
				r.log.Errorf("Failed to insert items for order %s: %v", order.AmazonOrderID, err)
				continue
			}
			r.log.Infof("Inserted %d items for order %s", len(rows), order.AmazonOrderID)
			totalInserted += len(rows)
			if len(rows) > 0 {
				progressed = true
			}
		}

		// Orders that keep failing (or legitimately have zero items) stay in
		// the selector result; without forward progress the loop would spin on
		// the same batch forever.
		if !progressed {
			r.log.Warn("No progress in this batch, stopping item sync.")
			break
		}
	}

	r.log.Infof("Done. Total items inserted: %d", totalInserted)
	return totalInserted, nil
}

// fetchOrderItems retries a rate-limited item fetch with the same linear
// backoff as the order pagination, but bounded, as an explicit loop rather
// than recursion.
func (r *Runner) fetchOrderItems(api UpstreamAPI, orderID string) ([]spapi.OrderItem, error) {
	for attempt := 1; ; attempt++ {
		items, err := api.GetOrderItems(orderID)
		if err == nil {
			return items, nil
		}
		if !errors.Is(err, spapi.ErrRateLimited) || attempt >= maxItemFetchAttempts {
			return nil, err
		}
		wait := backoffWait(attempt)
		r.log.Warnf("Quota exceeded on order %s. Sleeping %s and retrying... [Attempt %d]", orderID, wait, attempt)
		r.sleep(wait)
	}
}

// buildItemRows converts raw item records into storage rows. Unit price is
// derived as item price over quantity when both are present, else left null.
func buildItemRows(orderID string, items []spapi.OrderItem, country string) []models.OrderItem {
	rows := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		row := models.OrderItem{
			OrderID:         orderID,
			ASIN:            item.ASIN,
			SellerSKU:       item.SellerSKU,
			Title:           item.Title,
			QuantityOrdered: item.QuantityOrdered,
			Country:         country,
		}

		if item.ItemPrice != nil {
			if price, err := strconv.ParseFloat(item.ItemPrice.Amount, 64); err == nil {
				row.ItemPrice = &price
				row.ItemCurrency = item.ItemPrice.CurrencyCode
				if item.QuantityOrdered > 0 {
					unit := price / float64(item.QuantityOrdered)
					row.UnitPrice = &unit
				}
			}
		}
		if item.ShippingPrice != nil {
			if price, err := strconv.ParseFloat(item.ShippingPrice.Amount, 64); err == nil {
				row.ShippingPrice = &price
				row.ShippingCurrency = item.ShippingPrice.CurrencyCode
			}
		}

		rows = append(rows, row)
	}
	return rows
}
