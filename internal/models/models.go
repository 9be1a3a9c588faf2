package models

import (
	"time"
)

// Order is one marketplace order header row. AmazonOrderID is globally unique;
// re-fetching an existing order must never create a second row, so the writer
// relies on the unique index and skips duplicate inserts.
type Order struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	AmazonOrderID string    `json:"amazon_order_id" gorm:"uniqueIndex;size:64;not null"`
	PurchaseDate  time.Time `json:"purchase_date" gorm:"index"`
	OrderStatus   string    `json:"order_status" gorm:"size:32"`
	BuyerName     string    `json:"buyer_name"`
	BuyerEmail    string    `json:"buyer_email"`
	MarketplaceID string    `json:"marketplace_id" gorm:"index;size:32"`
	OrderTotal    string    `json:"order_total" gorm:"size:32"`
	Currency      string    `json:"currency" gorm:"size:8"`
	CreatedAt     time.Time `json:"created_at"`

	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID;references:AmazonOrderID;constraint:OnDelete:CASCADE"`
}

// OrderItem is one line of an order, keyed back to the parent by the external
// order identifier. The parent row always exists before items are written; the
// unfetched-order selector guarantees an order's items are fetched only once.
type OrderItem struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	OrderID          string    `json:"order_id" gorm:"index;size:64;not null"`
	ASIN             string    `json:"asin" gorm:"size:32"`
	SellerSKU        string    `json:"seller_sku" gorm:"size:64"`
	Title            string    `json:"title"`
	QuantityOrdered  int       `json:"quantity_ordered"`
	ItemPrice        *float64  `json:"item_price"`
	ItemCurrency     string    `json:"item_currency" gorm:"size:8"`
	ShippingPrice    *float64  `json:"shipping_price"`
	ShippingCurrency string    `json:"shipping_currency" gorm:"size:8"`
	Country          string    `json:"country" gorm:"size:8"`
	UnitPrice        *float64  `json:"unit_price"`
	CreatedAt        time.Time `json:"created_at"`
}

// SalesSummary holds one day of order metrics for one marketplace country.
// At most one row per (date, country) pair.
type SalesSummary struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	Date             time.Time `json:"date" gorm:"uniqueIndex:idx_sales_date_country;not null"`
	Country          string    `json:"country" gorm:"uniqueIndex:idx_sales_date_country;size:8;not null"`
	AverageUnitPrice string    `json:"average_unit_price" gorm:"size:32"`
	OrderItemCount   int       `json:"order_item_count"`
	UnitCount        int       `json:"unit_count"`
	TotalSales       string    `json:"total_sales" gorm:"size:32"`
	Currency         string    `json:"currency" gorm:"size:8"`
	CreatedAt        time.Time `json:"created_at"`
}
