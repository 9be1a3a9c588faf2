// Package store wraps the relational storage operations the sync jobs need.
package store

import (
	"database/sql"
	"errors"
	"time"

	"sp-sync/internal/models"

	"gorm.io/gorm"
)

// ErrDuplicate reports that an insert hit a uniqueness constraint. The writer
// treats it as "row already present" and continues with the next record.
var ErrDuplicate = errors.New("store: duplicate row")

type Store interface {
	// InsertOrder writes one order row in its own transaction. Returns
	// ErrDuplicate when the external order identifier is already stored.
	InsertOrder(o *models.Order) error

	// LatestPurchaseDate returns max(purchase_date) across all orders, or the
	// zero time when no orders are stored.
	LatestPurchaseDate() (time.Time, error)

	// UnfetchedOrders returns up to limit orders that have no item rows yet.
	UnfetchedOrders(limit int) ([]models.Order, error)

	// InsertOrderItems bulk-inserts the item rows of one order.
	InsertOrderItems(items []models.OrderItem) error

	// SummaryExists reports whether a (date, country) summary row is stored.
	SummaryExists(date time.Time, country string) (bool, error)

	// InsertSalesSummary writes one summary row. Returns ErrDuplicate when the
	// (date, country) pair is already stored.
	InsertSalesSummary(s *models.SalesSummary) error

	// OrdersSince returns orders purchased at or after the given instant,
	// newest first. Used by the post-sync verification step.
	OrdersSince(since time.Time) ([]models.Order, error)
}

type gormStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) InsertOrder(o *models.Order) error {
	if err := s.db.Create(o).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *gormStore) LatestPurchaseDate() (time.Time, error) {
	var latest sql.NullTime
	row := s.db.Model(&models.Order{}).Select("MAX(purchase_date)").Row()
	if err := row.Scan(&latest); err != nil {
		return time.Time{}, err
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return latest.Time, nil
}

func (s *gormStore) UnfetchedOrders(limit int) ([]models.Order, error) {
	var orders []models.Order
	sub := s.db.Model(&models.OrderItem{}).Distinct("order_id")
	err := s.db.
		Where("amazon_order_id NOT IN (?)", sub).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *gormStore) InsertOrderItems(items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return s.db.Create(&items).Error
}

func (s *gormStore) SummaryExists(date time.Time, country string) (bool, error) {
	var count int64
	err := s.db.Model(&models.SalesSummary{}).
		Where("date = ? AND country = ?", date, country).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *gormStore) InsertSalesSummary(sum *models.SalesSummary) error {
	if err := s.db.Create(sum).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *gormStore) OrdersSince(since time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.
		Where("purchase_date >= ?", since).
		Order("purchase_date DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
