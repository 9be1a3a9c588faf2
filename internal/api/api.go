// Package api is the operator-facing HTTP surface: health, integrity audit,
// and recent-insert visibility. Read only; the sync jobs stay batch binaries.
package api

import (
	"net/http"
	"strconv"
	"time"

	"sp-sync/internal/audit"
	"sp-sync/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func SetupRoutes(r *gin.Engine, db *gorm.DB) *Handler {
	handler := &Handler{db: db}

	r.GET("/health", handler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/audit", handler.AuditReport)
		v1.GET("/orders/recent", handler.RecentOrders)
		v1.GET("/summaries/recent", handler.RecentSummaries)
	}

	return handler
}

func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) AuditReport(c *gin.Context) {
	report, err := audit.Run(h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// RecentOrders lists orders purchased within the last N minutes (default 10).
func (h *Handler) RecentOrders(c *gin.Context) {
	minutes, err := strconv.Atoi(c.DefaultQuery("minutes", "10"))
	if err != nil || minutes <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "minutes must be a positive integer"})
		return
	}

	since := time.Now().UTC().Add(-time.Duration(minutes) * time.Minute)
	var orders []models.Order
	if err := h.db.Where("purchase_date >= ?", since).Order("purchase_date DESC").Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

func (h *Handler) RecentSummaries(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	var summaries []models.SalesSummary
	if err := h.db.Order("date DESC").Limit(limit).Find(&summaries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(summaries), "summaries": summaries})
}
