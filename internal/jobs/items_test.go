package jobs

import (
	"testing"
	"time"

	"sp-sync/internal/config"
	"sp-sync/internal/models"
	"sp-sync/internal/spapi"
)

func money(amount string) *spapi.Money {
	return &spapi.Money{Amount: amount, CurrencyCode: "USD"}
}

func storedOrder(st *fakeStore, id, marketplaceID string) {
	st.orders[id] = models.Order{AmazonOrderID: id, MarketplaceID: marketplaceID, PurchaseDate: time.Now().UTC()}
	st.orderSeq = append(st.orderSeq, id)
}

func TestSyncItemsPopulatesEveryUnfetchedOrder(t *testing.T) {
	st := newFakeStore()
	storedOrder(st, "ORD-1", "MKT-US")
	storedOrder(st, "ORD-2", "MKT-US")

	api := &fakeAPI{itemsByOrder: map[string][]spapi.OrderItem{
		"ORD-1": {
			{ASIN: "B001", QuantityOrdered: 2, ItemPrice: money("10.00")},
			{ASIN: "B002", QuantityOrdered: 1, ItemPrice: money("5.00")},
		},
		"ORD-2": {
			{ASIN: "B003", QuantityOrdered: 1, ItemPrice: money("7.50")},
		},
	}}

	r, _ := testRunner(t, st, []spapi.Marketplace{testMarketplace("US")},
		func(spapi.Marketplace, config.Credentials) UpstreamAPI { return api })

	total, err := r.SyncItems()
	if err != nil {
		t.Fatalf("SyncItems returned error: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected 3 items inserted, got %d", total)
	}
	if len(st.items["ORD-1"]) != 2 || len(st.items["ORD-2"]) != 1 {
		t.Errorf("Item counts per order wrong: %d / %d", len(st.items["ORD-1"]), len(st.items["ORD-2"]))
	}

	// Every stored item carries the parent order id and country label.
	for _, item := range st.items["ORD-1"] {
		if item.OrderID != "ORD-1" || item.Country != "US" {
			t.Errorf("Bad item row: %+v", item)
		}
	}
}

func TestSyncItemsSkipsAlreadyFetchedOrders(t *testing.T) {
	st := newFakeStore()
	storedOrder(st, "ORD-1", "MKT-US")
	st.items["ORD-1"] = []models.OrderItem{{OrderID: "ORD-1", ASIN: "B000"}}

	api := &fakeAPI{itemsByOrder: map[string][]spapi.OrderItem{
		"ORD-1": {{ASIN: "B001", QuantityOrdered: 1, ItemPrice: money("1.00")}},
	}}

	r, _ := testRunner(t, st, []spapi.Marketplace{testMarketplace("US")},
		func(spapi.Marketplace, config.Credentials) UpstreamAPI { return api })

	total, err := r.SyncItems()
	if err != nil {
		t.Fatalf("SyncItems returned error: %v", err)
	}
	if total != 0 {
		t.Errorf("Fetched order must not be re-fetched, got %d inserts", total)
	}
	if api.itemCalls != 0 {
		t.Errorf("Expected no upstream item calls, got %d", api.itemCalls)
	}
}

func TestFetchOrderItemsRetriesRateLimitWithBoundedBackoff(t *testing.T) {
	st := newFakeStore()
	storedOrder(st, "ORD-1", "MKT-US")

	api := &fakeAPI{
		itemsByOrder: map[string][]spapi.OrderItem{
			"ORD-1": {{ASIN: "B001", QuantityOrdered: 1, ItemPrice: money("3.00")}},
		},
		itemErrs: map[string][]error{
			"ORD-1": {spapi.ErrRateLimited, spapi.ErrRateLimited},
		},
	}

	r, slept := testRunner(t, st, []spapi.Marketplace{testMarketplace("US")},
		func(spapi.Marketplace, config.Credentials) UpstreamAPI { return api })

	total, err := r.SyncItems()
	if err != nil {
		t.Fatalf("SyncItems returned error: %v", err)
	}
	if total != 1 {
		t.Errorf("Expected 1 item after retries, got %d", total)
	}

	want := []time.Duration{60 * time.Second, 120 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("Expected %d backoff sleeps, got %v", len(want), *slept)
	}
	for i, d := range want {
		if (*slept)[i] != d {
			t.Errorf("Sleep %d: expected %v, got %v", i, d, (*slept)[i])
		}
	}
}

func TestFetchOrderItemsGivesUpAfterMaxAttempts(t *testing.T) {
	st := newFakeStore()
	storedOrder(st, "ORD-1", "MKT-US")

	errs := make([]error, maxItemFetchAttempts+3)
	for i := range errs {
		errs[i] = spapi.ErrRateLimited
	}
	api := &fakeAPI{itemErrs: map[string][]error{"ORD-1": errs}}

	r, _ := testRunner(t, st, []spapi.Marketplace{testMarketplace("US")},
		func(spapi.Marketplace, config.Credentials) UpstreamAPI { return api })

	total, err := r.SyncItems()
	if err != nil {
		t.Fatalf("SyncItems returned error: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected no inserts, got %d", total)
	}
	if api.itemCalls != maxItemFetchAttempts {
		t.Errorf("Expected %d attempts, got %d", maxItemFetchAttempts, api.itemCalls)
	}
}

func TestSyncItemsStopsWithoutProgress(t *testing.T) {
	st := newFakeStore()
	storedOrder(st, "ORD-1", "UNKNOWN-MKT")

	r, _ := testRunner(t, st, []spapi.Marketplace{testMarketplace("US")},
		func(spapi.Marketplace, config.Credentials) UpstreamAPI { return &fakeAPI{} })

	done := make(chan struct{})
	go func() {
		defer close(done)
		if total, err := r.SyncItems(); err != nil || total != 0 {
			t.Errorf("SyncItems = (%d, %v), want (0, nil)", total, err)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("SyncItems spun forever on an order it can never fetch")
	}
}

func TestBuildItemRowsDerivesUnitPrice(t *testing.T) {
	qty2 := spapi.OrderItem{ASIN: "B001", QuantityOrdered: 2, ItemPrice: money("10.00"), ShippingPrice: money("4.00")}
	noPrice := spapi.OrderItem{ASIN: "B002", QuantityOrdered: 3}
	zeroQty := spapi.OrderItem{ASIN: "B003", QuantityOrdered: 0, ItemPrice: money("9.00")}

	rows := buildItemRows("ORD-9", []spapi.OrderItem{qty2, noPrice, zeroQty}, "DE")
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}

	if rows[0].UnitPrice == nil || *rows[0].UnitPrice != 5.0 {
		t.Errorf("Expected unit price 5.0, got %v", rows[0].UnitPrice)
	}
	if rows[0].ShippingPrice == nil || *rows[0].ShippingPrice != 4.0 {
		t.Errorf("Expected shipping price 4.0, got %v", rows[0].ShippingPrice)
	}
	if rows[1].UnitPrice != nil || rows[1].ItemPrice != nil {
		t.Error("Item without price must have nil price and unit price")
	}
	if rows[2].UnitPrice != nil {
		t.Error("Zero quantity must not derive a unit price")
	}
	for _, row := range rows {
		if row.Country != "DE" || row.OrderID != "ORD-9" {
			t.Errorf("Bad row metadata: %+v", row)
		}
	}
}
