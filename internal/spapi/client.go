package spapi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"sp-sync/internal/config"

	"github.com/go-resty/resty/v2"
)

const lwaTokenURL = "https://api.amazon.com/auth/o2/token"

// Client talks to the Selling Partner API for a single marketplace with one
// region credential bundle. It is not safe for concurrent use; the sync jobs
// are single-threaded by design.
type Client struct {
	mp    Marketplace
	creds config.Credentials
	http  *resty.Client

	authURL     string
	accessToken string
	tokenExpiry time.Time
}

func NewClient(mp Marketplace, creds config.Credentials) *Client {
	http := resty.New()
	http.SetTimeout(30 * time.Second)
	http.SetBaseURL(mp.Endpoint)

	return &Client{
		mp:      mp,
		creds:   creds,
		http:    http,
		authURL: lwaTokenURL,
	}
}

type lwaTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// ensureToken exchanges the refresh token for an access token when the cached
// one is missing or about to expire.
func (c *Client) ensureToken() error {
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-1*time.Minute)) {
		return nil
	}

	resp, err := c.http.R().
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": c.creds.RefreshToken,
			"client_id":     c.creds.ClientID,
			"client_secret": c.creds.ClientSecret,
		}).
		Post(c.authURL)
	if err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: token exchange returned %d", ErrUnauthorized, resp.StatusCode())
	}

	var token lwaTokenResponse
	if err := json.Unmarshal(resp.Body(), &token); err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}
	if token.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrUnauthorized)
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return nil
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiErrorBody struct {
	Errors []apiError `json:"errors"`
}

// classify maps an upstream response to the error taxonomy: 429 or a
// QuotaExceeded code is rate limiting, 401/403 is an authorization failure,
// anything else non-2xx is an opaque upstream error.
func classify(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}

	var body apiErrorBody
	_ = json.Unmarshal(resp.Body(), &body)
	for _, e := range body.Errors {
		if e.Code == "QuotaExceeded" {
			return ErrRateLimited
		}
	}

	switch resp.StatusCode() {
	case 429:
		return ErrRateLimited
	case 401, 403:
		return ErrUnauthorized
	}

	msg := ""
	if len(body.Errors) > 0 {
		msg = body.Errors[0].Message
	}
	return fmt.Errorf("upstream error %d: %s", resp.StatusCode(), msg)
}

// GetOrdersParams selects either the first page (CreatedAfter) or a
// continuation page (NextToken) of the order list. Never both.
type GetOrdersParams struct {
	CreatedAfter string
	NextToken    string
	PageSize     int
}

type Money struct {
	Amount       string `json:"Amount"`
	CurrencyCode string `json:"CurrencyCode"`
}

type BuyerInfo struct {
	BuyerName  string `json:"BuyerName"`
	BuyerEmail string `json:"BuyerEmail"`
}

type Order struct {
	AmazonOrderID string    `json:"AmazonOrderId"`
	PurchaseDate  string    `json:"PurchaseDate"`
	OrderStatus   string    `json:"OrderStatus"`
	BuyerInfo     BuyerInfo `json:"BuyerInfo"`
	MarketplaceID string    `json:"MarketplaceId"`
	OrderTotal    Money     `json:"OrderTotal"`
}

type OrdersPayload struct {
	Orders    []Order `json:"Orders"`
	NextToken string  `json:"NextToken"`
}

type ordersResponse struct {
	Payload OrdersPayload `json:"payload"`
}

// GetOrders fetches one page of the order list.
func (c *Client) GetOrders(params GetOrdersParams) (*OrdersPayload, error) {
	if err := c.ensureToken(); err != nil {
		return nil, err
	}

	req := c.http.R().SetHeader("x-amz-access-token", c.accessToken)
	if params.NextToken != "" {
		req.SetQueryParam("NextToken", params.NextToken)
	} else {
		req.SetQueryParams(map[string]string{
			"CreatedAfter":      params.CreatedAfter,
			"MarketplaceIds":    c.mp.ID,
			"MaxResultsPerPage": strconv.Itoa(params.PageSize),
		})
	}

	resp, err := req.Get("/orders/v0/orders")
	if err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}
	if err := classify(resp); err != nil {
		return nil, err
	}

	var out ordersResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}
	return &out.Payload, nil
}

type OrderItem struct {
	ASIN            string `json:"ASIN"`
	SellerSKU       string `json:"SellerSKU"`
	Title           string `json:"Title"`
	QuantityOrdered int    `json:"QuantityOrdered"`
	ItemPrice       *Money `json:"ItemPrice"`
	ShippingPrice   *Money `json:"ShippingPrice"`
}

type orderItemsResponse struct {
	Payload struct {
		AmazonOrderID string      `json:"AmazonOrderId"`
		OrderItems    []OrderItem `json:"OrderItems"`
	} `json:"payload"`
}

// GetOrderItems fetches all item lines of one order.
func (c *Client) GetOrderItems(orderID string) ([]OrderItem, error) {
	if err := c.ensureToken(); err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetHeader("x-amz-access-token", c.accessToken).
		Get("/orders/v0/orders/" + orderID + "/orderItems")
	if err != nil {
		return nil, fmt.Errorf("get order items %s: %w", orderID, err)
	}
	if err := classify(resp); err != nil {
		return nil, err
	}

	var out orderItemsResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("get order items %s: %w", orderID, err)
	}
	return out.Payload.OrderItems, nil
}

// SalesMoney is the lower-cased money shape the sales metrics API uses.
type SalesMoney struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

type MetricRow struct {
	Interval         string     `json:"interval"`
	OrderItemCount   int        `json:"orderItemCount"`
	UnitCount        int        `json:"unitCount"`
	AverageUnitPrice SalesMoney `json:"averageUnitPrice"`
	TotalSales       SalesMoney `json:"totalSales"`
}

type metricsResponse struct {
	Payload []MetricRow `json:"payload"`
}

// MetricsQuery asks for DAY-granularity order metrics over [Start, End] in the
// marketplace's zone.
type MetricsQuery struct {
	Start time.Time
	End   time.Time
	Zone  string
}

const intervalFormat = "2006-01-02T15:04:05Z"

// GetOrderMetrics fetches daily sales metrics for the query interval.
func (c *Client) GetOrderMetrics(q MetricsQuery) ([]MetricRow, error) {
	if err := c.ensureToken(); err != nil {
		return nil, err
	}

	params := map[string]string{
		"marketplaceIds": c.mp.ID,
		"interval":       q.Start.Format(intervalFormat) + "--" + q.End.Format(intervalFormat),
		"granularity":    "Day",
	}
	if q.Zone != "" {
		params["granularityTimeZone"] = q.Zone
	}

	resp, err := c.http.R().
		SetHeader("x-amz-access-token", c.accessToken).
		SetQueryParams(params).
		Get("/sales/v1/orderMetrics")
	if err != nil {
		return nil, fmt.Errorf("get order metrics: %w", err)
	}
	if err := classify(resp); err != nil {
		return nil, err
	}

	var out metricsResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("get order metrics: %w", err)
	}
	return out.Payload, nil
}
