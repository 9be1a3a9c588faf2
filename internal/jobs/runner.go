// Package jobs implements the three scheduled batch jobs: order sync, order
// item sync, and daily sales-summary sync. Each job is safely re-runnable;
// duplicate rows are skipped, never merged or overwritten.
package jobs

import (
	"time"

	"sp-sync/internal/config"
	"sp-sync/internal/spapi"
	"sp-sync/internal/store"

	"github.com/sirupsen/logrus"
)

// UpstreamAPI is the slice of the Selling Partner API the jobs use.
// *spapi.Client implements it; tests substitute fakes.
type UpstreamAPI interface {
	GetOrders(params spapi.GetOrdersParams) (*spapi.OrdersPayload, error)
	GetOrderItems(orderID string) ([]spapi.OrderItem, error)
	GetOrderMetrics(q spapi.MetricsQuery) ([]spapi.MetricRow, error)
}

// APIFactory builds an upstream client for one marketplace.
type APIFactory func(mp spapi.Marketplace, creds config.Credentials) UpstreamAPI

// Runner carries the shared collaborators of all jobs. One Runner is built per
// process invocation; the storage session it holds is scoped to that run.
type Runner struct {
	store store.Store
	cfg   *config.Config
	log   *logrus.Logger

	marketplaces []spapi.Marketplace
	newAPI       APIFactory

	// sleep and now are injection points for tests.
	sleep     func(time.Duration)
	now       func() time.Time
	pageDelay time.Duration
}

func NewRunner(st store.Store, cfg *config.Config, log *logrus.Logger) *Runner {
	return &Runner{
		store:        st,
		cfg:          cfg,
		log:          log,
		marketplaces: spapi.All(),
		newAPI: func(mp spapi.Marketplace, creds config.Credentials) UpstreamAPI {
			return spapi.NewClient(mp, creds)
		},
		sleep:     time.Sleep,
		now:       time.Now,
		pageDelay: 2 * time.Second,
	}
}

// backoffWait is the linear rate-limit backoff: 60s per attempt, capped at 5
// minutes. Attempts are unbounded for the order pagination loop; only the wait
// is capped.
func backoffWait(attempt int) time.Duration {
	secs := 60 * attempt
	if secs > 300 {
		secs = 300
	}
	return time.Duration(secs) * time.Second
}

// marketplaceByID resolves a stored marketplace identifier within the
// runner's marketplace set.
func (r *Runner) marketplaceByID(id string) (spapi.Marketplace, bool) {
	for _, mp := range r.marketplaces {
		if mp.ID == id {
			return mp, true
		}
	}
	return spapi.Marketplace{}, false
}

// credentials resolves a marketplace's region bundle. The false return is the
// ConfigurationMissing case: warn and skip, not an error.
func (r *Runner) credentials(mp spapi.Marketplace) (config.Credentials, bool) {
	creds, ok := r.cfg.Regions[mp.Region]
	return creds, ok
}
