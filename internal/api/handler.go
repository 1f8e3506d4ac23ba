// Package api is the gin HTTP surface in front of the matching engine: it
// parses and validates inbound requests into domain.Order values, calls
// the engine, and serializes results back per the wire conventions in
// SPEC_FULL §6. It holds none of the matching invariants itself.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"drakon/internal/domain"
	"drakon/internal/engine"
	"drakon/internal/metrics"
)

const defaultDepthLevels = 20

// Handler wires gin routes to the matching engine.
type Handler struct {
	engine  *engine.MatchingEngine
	metrics *metrics.Metrics
}

// NewHandler creates a Handler over engine, recording request metrics
// into m if m is non-nil.
func NewHandler(e *engine.MatchingEngine, m *metrics.Metrics) *Handler {
	return &Handler{engine: e, metrics: m}
}

// RegisterRoutes mounts the /v1 order, cancel, bbo, and depth endpoints.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/v1")
	v1.Use(h.metricsMiddleware())
	{
		v1.POST("/orders", h.SubmitOrder)
		v1.DELETE("/orders/:symbol/:order_id", h.CancelOrder)
		v1.GET("/bbo/:symbol", h.GetBBO)
		v1.GET("/depth/:symbol", h.GetDepth)
	}
}

// metricsMiddleware times every /v1 request into HTTPRequestDuration and
// counts it into HTTPRequestsTotal, regardless of outcome.
func (h *Handler) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if h.metrics == nil {
			return
		}
		h.metrics.HTTPRequestsTotal.Inc()
		h.metrics.HTTPRequestDuration.Observe(time.Since(start).Seconds())
	}
}

// SubmitOrder handles POST /v1/orders.
func (h *Handler) SubmitOrder(c *gin.Context) {
	var req submitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orderType, err := parseOrderType(req.OrderType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quantity"})
		return
	}

	var price *decimal.Decimal
	if req.Price != "" {
		p, err := decimal.NewFromString(req.Price)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
			return
		}
		price = &p
	}

	order, err := domain.NewOrder(req.OrderID, req.Symbol, orderType, side, quantity, price, timeNow(), h.engine.NextSequence())
	if err != nil {
		if h.metrics != nil {
			h.metrics.OrdersRejectedTotal.Inc()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.metrics != nil {
		h.metrics.OrdersSubmittedTotal.Inc()
	}
	order, trades := h.engine.SubmitOrder(order)
	if h.metrics != nil {
		if order.Status == domain.Cancelled {
			h.metrics.OrdersCancelledTotal.Inc()
		}
		for _, t := range trades {
			h.metrics.TradesTotal.Inc()
			h.metrics.TradeQtyTotal.Add(mustFloat(t.Quantity))
		}
	}

	c.JSON(http.StatusOK, toOrderResponse(order, trades))
}

// CancelOrder handles DELETE /v1/orders/:symbol/:order_id.
func (h *Handler) CancelOrder(c *gin.Context) {
	symbol := c.Param("symbol")
	orderID := c.Param("order_id")
	cancelled := h.engine.CancelOrder(symbol, orderID)
	if cancelled && h.metrics != nil {
		h.metrics.OrdersCancelledTotal.Inc()
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

// GetBBO handles GET /v1/bbo/:symbol.
func (h *Handler) GetBBO(c *gin.Context) {
	symbol := c.Param("symbol")
	if !h.engine.HasBook(symbol) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol"})
		return
	}
	c.JSON(http.StatusOK, toBBOResponse(h.engine.BBO(symbol)))
}

// GetDepth handles GET /v1/depth/:symbol?levels=k.
func (h *Handler) GetDepth(c *gin.Context) {
	symbol := c.Param("symbol")
	if !h.engine.HasBook(symbol) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol"})
		return
	}
	levels, err := strconv.Atoi(c.DefaultQuery("levels", strconv.Itoa(defaultDepthLevels)))
	if err != nil || levels <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid levels"})
		return
	}
	c.JSON(http.StatusOK, toDepthResponse(h.engine.Depth(symbol, levels)))
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
