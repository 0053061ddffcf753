// Package admin exposes the operational HTTP surface: manual orders,
// approval-queue review and read-only portfolio/audit queries.
package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"quantdesk/internal/logger"
	"quantdesk/internal/orchestrator"
	"quantdesk/internal/store"
	"quantdesk/internal/strategy"
)

// Server wraps the gin engine and its listener lifecycle.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig describes the admin server dependencies.
type ServerConfig struct {
	Addr  string
	Pipe  *orchestrator.Orchestrator
	Store store.Store
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Pipe == nil || cfg.Store == nil {
		return nil, errors.New("admin server requires orchestrator and store")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	h := &handlers{pipe: cfg.Pipe, store: cfg.Store}
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := router.Group("/api")
	{
		api.POST("/orders", h.submitOrder)
		api.GET("/pending", h.listPending)
		api.POST("/pending/:trace_id/resolve", h.resolvePending)
		api.GET("/portfolios/:user_id", h.getPortfolio)
		api.GET("/portfolios/:user_id/trades", h.listTrades)
		api.GET("/audit/:trace_id", h.listAudit)
	}

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Start blocks until ctx is cancelled, then shuts the listener down.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("admin http listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("http %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Truncate(time.Millisecond))
	}
}

type handlers struct {
	pipe  *orchestrator.Orchestrator
	store store.Store
}

type submitOrderRequest struct {
	UserID   string  `json:"user_id" binding:"required"`
	Symbol   string  `json:"symbol" binding:"required"`
	Action   string  `json:"action" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required"`
}

func (h *handlers) submitOrder(c *gin.Context) {
	var req submitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	trade, err := h.pipe.SubmitManualOrder(c.Request.Context(), req.UserID, req.Symbol, strategy.Action(req.Action), req.Quantity)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if trade == nil {
		// Rejected or escalated by the risk gate; the audit trail has the
		// decision but this request carries no trade.
		c.JSON(http.StatusAccepted, gin.H{"trade": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trade": trade})
}

func (h *handlers) listPending(c *gin.Context) {
	pending, err := h.store.Pending().ListOpen(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

type resolveRequest struct {
	Approve  bool   `json:"approve"`
	Reviewer string `json:"reviewer" binding:"required"`
}

func (h *handlers) resolvePending(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	traceID := c.Param("trace_id")
	trade, err := h.pipe.ResolvePending(c.Request.Context(), traceID, req.Approve, req.Reviewer)
	switch {
	case errors.Is(err, orchestrator.ErrAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{"error": "already resolved"})
		return
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown trace id"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trade": trade})
}

func (h *handlers) getPortfolio(c *gin.Context) {
	pf, err := h.store.Portfolios().GetByUser(c.Request.Context(), c.Param("user_id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "portfolio not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"portfolio": pf})
}

func (h *handlers) listTrades(c *gin.Context) {
	pf, err := h.store.Portfolios().GetByUser(c.Request.Context(), c.Param("user_id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "portfolio not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	trades, err := h.store.Trades().ListRecent(c.Request.Context(), pf.ID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (h *handlers) listAudit(c *gin.Context) {
	entries, err := h.store.Audits().ListByTrace(c.Request.Context(), c.Param("trace_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
