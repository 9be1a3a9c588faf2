package jobs

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"sp-sync/internal/config"
	"sp-sync/internal/models"
	"sp-sync/internal/spapi"
	"sp-sync/internal/store"

	"github.com/sirupsen/logrus"
)

// fakeStore is an in-memory store.Store with the same duplicate semantics as
// the MySQL-backed one.
type fakeStore struct {
	orders    map[string]models.Order
	orderSeq  []string
	items     map[string][]models.OrderItem
	summaries map[string]models.SalesSummary
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:    make(map[string]models.Order),
		items:     make(map[string][]models.OrderItem),
		summaries: make(map[string]models.SalesSummary),
	}
}

func (s *fakeStore) InsertOrder(o *models.Order) error {
	if _, exists := s.orders[o.AmazonOrderID]; exists {
		return store.ErrDuplicate
	}
	s.orders[o.AmazonOrderID] = *o
	s.orderSeq = append(s.orderSeq, o.AmazonOrderID)
	return nil
}

func (s *fakeStore) LatestPurchaseDate() (time.Time, error) {
	var latest time.Time
	for _, o := range s.orders {
		if o.PurchaseDate.After(latest) {
			latest = o.PurchaseDate
		}
	}
	return latest, nil
}

func (s *fakeStore) UnfetchedOrders(limit int) ([]models.Order, error) {
	var out []models.Order
	for _, id := range s.orderSeq {
		if len(s.items[id]) == 0 {
			out = append(out, s.orders[id])
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *fakeStore) InsertOrderItems(items []models.OrderItem) error {
	for _, item := range items {
		s.items[item.OrderID] = append(s.items[item.OrderID], item)
	}
	return nil
}

func summaryKey(date time.Time, country string) string {
	return date.Format("2006-01-02") + "/" + country
}

func (s *fakeStore) SummaryExists(date time.Time, country string) (bool, error) {
	_, ok := s.summaries[summaryKey(date, country)]
	return ok, nil
}

func (s *fakeStore) InsertSalesSummary(sum *models.SalesSummary) error {
	key := summaryKey(sum.Date, sum.Country)
	if _, exists := s.summaries[key]; exists {
		return store.ErrDuplicate
	}
	s.summaries[key] = *sum
	return nil
}

func (s *fakeStore) OrdersSince(since time.Time) ([]models.Order, error) {
	var out []models.Order
	for _, o := range s.orders {
		if !o.PurchaseDate.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

// fakeAPI scripts upstream responses per call.
type ordersCall struct {
	payload *spapi.OrdersPayload
	err     error
}

type fakeAPI struct {
	ordersCalls  []ordersCall
	ordersParams []spapi.GetOrdersParams

	itemsByOrder map[string][]spapi.OrderItem
	itemErrs     map[string][]error
	itemCalls    int

	metrics    []spapi.MetricRow
	metricsErr error
}

func (f *fakeAPI) GetOrders(params spapi.GetOrdersParams) (*spapi.OrdersPayload, error) {
	f.ordersParams = append(f.ordersParams, params)
	if len(f.ordersCalls) == 0 {
		return &spapi.OrdersPayload{}, nil
	}
	call := f.ordersCalls[0]
	f.ordersCalls = f.ordersCalls[1:]
	return call.payload, call.err
}

func (f *fakeAPI) GetOrderItems(orderID string) ([]spapi.OrderItem, error) {
	f.itemCalls++
	if errs := f.itemErrs[orderID]; len(errs) > 0 {
		err := errs[0]
		f.itemErrs[orderID] = errs[1:]
		return nil, err
	}
	return f.itemsByOrder[orderID], nil
}

func (f *fakeAPI) GetOrderMetrics(q spapi.MetricsQuery) ([]spapi.MetricRow, error) {
	if f.metricsErr != nil {
		return nil, f.metricsErr
	}
	return f.metrics, nil
}

func testMarketplace(country string) spapi.Marketplace {
	return spapi.Marketplace{
		ID:       "MKT-" + country,
		Country:  country,
		Region:   "North America",
		TimeZone: "UTC",
		Endpoint: "https://example.invalid",
	}
}

func allRegionCreds() map[string]config.Credentials {
	creds := config.Credentials{ClientID: "id", ClientSecret: "secret", RefreshToken: "token"}
	return map[string]config.Credentials{
		"North America": creds,
		"Europe":        creds,
		"Far East":      creds,
		"Australia":     creds,
	}
}

// testRunner builds a Runner with silent logging, no real sleeping, and the
// given marketplaces and API factory.
func testRunner(t *testing.T, st store.Store, mps []spapi.Marketplace, factory APIFactory) (*Runner, *[]time.Duration) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{
		Regions:       allRegionCreds(),
		PageSize:      100,
		SelectorLimit: 100,
		ExportPath:    filepath.Join(t.TempDir(), "sales_data.xlsx"),
	}

	r := NewRunner(st, cfg, log)
	r.marketplaces = mps
	r.newAPI = factory

	slept := &[]time.Duration{}
	r.sleep = func(d time.Duration) { *slept = append(*slept, d) }
	return r, slept
}

func page(token string, ids ...string) *spapi.OrdersPayload {
	p := &spapi.OrdersPayload{NextToken: token}
	for _, id := range ids {
		p.Orders = append(p.Orders, spapi.Order{
			AmazonOrderID: id,
			PurchaseDate:  time.Now().UTC().Format(time.RFC3339),
			OrderStatus:   "Shipped",
			MarketplaceID: "MKT-US",
			OrderTotal:    spapi.Money{Amount: "42.00", CurrencyCode: "USD"},
		})
	}
	return p
}

var errUpstreamBroken = errors.New("upstream broken")
