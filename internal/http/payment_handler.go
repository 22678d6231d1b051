package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"duemate/internal/clock"
	"duemate/internal/domain"
	"duemate/internal/service"
)

// PaymentHandler expone el CRUD de pagos del usuario autenticado.
type PaymentHandler struct {
	logger   *zap.Logger
	payments *service.PaymentService
	clock    clock.Clocker
}

func NewPaymentHandler(logger *zap.Logger, payments *service.PaymentService, clk clock.Clocker) *PaymentHandler {
	if clk == nil {
		clk = clock.New()
	}
	return &PaymentHandler{logger: logger, payments: payments, clock: clk}
}

type paymentResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"payment_name"`
	Description string  `json:"description,omitempty"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Deadline    string  `json:"deadline"`
	Status      string  `json:"status"`
	IsOverdue   bool    `json:"is_overdue"`
	CreatedAt   string  `json:"created_at"`
}

func (h *PaymentHandler) toResponse(p domain.Payment) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Amount:      p.Amount,
		Category:    p.Category,
		Deadline:    p.Deadline.UTC().Format(time.RFC3339),
		Status:      p.Status,
		IsOverdue:   p.IsOverdue(h.clock.Now()),
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Create maneja POST /api/payments.
func (h *PaymentHandler) Create(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "missing token"})
		return
	}
	var req struct {
		Name        string    `json:"payment_name"`
		Description string    `json:"description"`
		Amount      float64   `json:"amount"`
		Category    string    `json:"category"`
		Deadline    time.Time `json:"deadline"`
		Status      string    `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Invalid JSON"})
		return
	}

	p, err := h.payments.Create(c.Request.Context(), service.CreatePaymentInput{
		UserID:      claims.UserID,
		Name:        req.Name,
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
		Deadline:    req.Deadline,
		Status:      req.Status,
	})
	if err != nil {
		h.writeError(c, "create payment", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Payment created successfully",
		"payment": h.toResponse(p),
	})
}

// List maneja GET /api/payments.
func (h *PaymentHandler) List(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "missing token"})
		return
	}
	page, err := queryInt(c, "page", 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Invalid query parameters"})
		return
	}
	perPage, err := queryInt(c, "per_page", 10)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Invalid query parameters"})
		return
	}

	result, err := h.payments.List(c.Request.Context(), domain.PaymentFilter{
		UserID:    claims.UserID,
		Status:    c.Query("status"),
		Category:  c.Query("category"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Page:      page,
		PerPage:   perPage,
	})
	if err != nil {
		h.writeError(c, "list payments", err)
		return
	}

	pagination := gin.H{
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total_count": result.TotalCount,
		"total_pages": result.TotalPages(),
		"has_next":    result.HasNext(),
		"has_prev":    result.HasPrev(),
		"next_page":   nil,
		"prev_page":   nil,
	}
	if result.HasNext() {
		pagination["next_page"] = result.Page + 1
	}
	if result.HasPrev() {
		pagination["prev_page"] = result.Page - 1
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"payments":   lo.Map(result.Items, func(p domain.Payment, _ int) paymentResponse { return h.toResponse(p) }),
		"pagination": pagination,
		"filters": gin.H{
			"status":     c.Query("status"),
			"category":   c.Query("category"),
			"search":     c.Query("search"),
			"sort_by":    c.DefaultQuery("sort_by", "deadline"),
			"sort_order": c.DefaultQuery("sort_order", "asc"),
		},
	})
}

// UpdateStatus maneja PATCH /api/payments/:id/status.
func (h *PaymentHandler) UpdateStatus(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "missing token"})
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Invalid JSON"})
		return
	}

	change, err := h.payments.UpdateStatus(c.Request.Context(), claims.UserID, c.Param("id"), req.Status)
	if err != nil {
		h.writeError(c, "update payment status", err)
		return
	}
	message := "Payment status updated successfully"
	if !change.Changed {
		message = fmt.Sprintf("Payment status is already '%s'", change.Payment.Status)
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "success",
		"message":         message,
		"payment":         h.toResponse(change.Payment),
		"previous_status": change.PreviousStatus,
	})
}

// Delete maneja DELETE /api/payments/:id.
func (h *PaymentHandler) Delete(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "missing token"})
		return
	}
	p, err := h.payments.Delete(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		h.writeError(c, "delete payment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("Payment '%s' deleted successfully", p.Name),
		"deleted_payment": gin.H{
			"id":           p.ID,
			"payment_name": p.Name,
			"amount":       p.Amount,
		},
	})
}

func (h *PaymentHandler) writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPayment):
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": err.Error()})
	case errors.Is(err, service.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "fail", "message": "Payment not found"})
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "fail", "message": "Failed to " + op})
	}
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
