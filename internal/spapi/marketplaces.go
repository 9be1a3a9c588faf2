package spapi

import (
	"fmt"
	"time"
)

// Marketplace describes one region-specific storefront understood by the
// Selling Partner API.
type Marketplace struct {
	// ID is the marketplace identifier the API expects (e.g. ATVPDKIKX0DER).
	ID string
	// Country is the storefront country code, used as the item/summary country label.
	Country string
	// Region is the credential-bundle grouping label.
	Region string
	// TimeZone is the fixed IANA zone of the storefront.
	TimeZone string
	// Endpoint is the regional API host.
	Endpoint string
}

const (
	endpointNA = "https://sellingpartnerapi-na.amazon.com"
	endpointEU = "https://sellingpartnerapi-eu.amazon.com"
	endpointFE = "https://sellingpartnerapi-fe.amazon.com"
)

// marketplaces is the fixed set of storefronts the sync jobs cover. The table
// replaces per-marketplace conditional dispatch; Validate checks it at startup.
var marketplaces = []Marketplace{
	{ID: "ATVPDKIKX0DER", Country: "US", Region: "North America", TimeZone: "America/Los_Angeles", Endpoint: endpointNA},
	{ID: "A2EUQ1WTGCTBG2", Country: "CA", Region: "North America", TimeZone: "America/Los_Angeles", Endpoint: endpointNA},
	{ID: "A1AM78C64UM0Y8", Country: "MX", Region: "North America", TimeZone: "America/Mexico_City", Endpoint: endpointNA},
	{ID: "A1PA6795UKMFR9", Country: "DE", Region: "Europe", TimeZone: "Europe/Berlin", Endpoint: endpointEU},
	{ID: "A13V1IB3VIYZZH", Country: "FR", Region: "Europe", TimeZone: "Europe/Paris", Endpoint: endpointEU},
	{ID: "APJ6JRA9NG5V4", Country: "IT", Region: "Europe", TimeZone: "Europe/Rome", Endpoint: endpointEU},
	{ID: "A1RKKUPIHCS9HS", Country: "ES", Region: "Europe", TimeZone: "Europe/Madrid", Endpoint: endpointEU},
	{ID: "A1805IZSGTT6HS", Country: "NL", Region: "Europe", TimeZone: "Europe/Amsterdam", Endpoint: endpointEU},
	{ID: "AMEN7PMS3EDWL", Country: "BE", Region: "Europe", TimeZone: "Europe/Brussels", Endpoint: endpointEU},
	{ID: "A2NODRKZP88ZB9", Country: "SE", Region: "Europe", TimeZone: "Europe/Stockholm", Endpoint: endpointEU},
	{ID: "A1C3SOZRARQ6R3", Country: "PL", Region: "Europe", TimeZone: "Europe/Warsaw", Endpoint: endpointEU},
	{ID: "A33AVAJ2PDY3EV", Country: "TR", Region: "Europe", TimeZone: "Europe/Istanbul", Endpoint: endpointEU},
	{ID: "A1F83G8C2ARO7P", Country: "UK", Region: "Europe", TimeZone: "Europe/London", Endpoint: endpointEU},
	{ID: "A1VC38T7YXB528", Country: "JP", Region: "Far East", TimeZone: "Asia/Tokyo", Endpoint: endpointFE},
	{ID: "A39IBJ37TRP1C6", Country: "AU", Region: "Australia", TimeZone: "Australia/Sydney", Endpoint: endpointFE},
}

// All returns the fixed marketplace set in sync order.
func All() []Marketplace {
	out := make([]Marketplace, len(marketplaces))
	copy(out, marketplaces)
	return out
}

// ByID resolves a stored marketplace identifier back to its table entry.
func ByID(id string) (Marketplace, bool) {
	for _, mp := range marketplaces {
		if mp.ID == id {
			return mp, true
		}
	}
	return Marketplace{}, false
}

// Validate checks the marketplace table for completeness: every entry needs an
// ID, country, region label, resolvable IANA zone and endpoint, and IDs must
// be unique. Called once at job startup.
func Validate() error {
	seen := make(map[string]string, len(marketplaces))
	for _, mp := range marketplaces {
		if mp.ID == "" || mp.Country == "" || mp.Region == "" || mp.Endpoint == "" {
			return fmt.Errorf("marketplace %q: incomplete table entry", mp.Country)
		}
		if prev, dup := seen[mp.ID]; dup {
			return fmt.Errorf("marketplace id %s duplicated between %s and %s", mp.ID, prev, mp.Country)
		}
		seen[mp.ID] = mp.Country
		if _, err := time.LoadLocation(mp.TimeZone); err != nil {
			return fmt.Errorf("marketplace %s: bad time zone %q: %w", mp.Country, mp.TimeZone, err)
		}
	}
	return nil
}
