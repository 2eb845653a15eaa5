package server

import (
	"net/http"
	"strings"
	"time"

	payabledomain "github.com/Girosmedia/tendo-app-sub002/internal/payable/domain"
	"github.com/gin-gonic/gin"
)

type createPayableRequest struct {
	SupplierID string    `json:"supplier_id"`
	Amount     int64     `json:"amount"`
	DueDate    time.Time `json:"due_date"`
}

func (s *Server) CreatePayable(c *gin.Context) {
	var req createPayableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.payableSvc.Create(c.Request.Context(), payabledomain.CreatePayableRequest{
		SupplierID: strings.TrimSpace(req.SupplierID),
		Amount:     req.Amount,
		DueDate:    req.DueDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPayables(c *gin.Context) {
	var query struct {
		SupplierID string `form:"supplier_id"`
		Status     string `form:"status"`
		PageToken  string `form:"page_token"`
		PageSize   int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.payableSvc.List(c.Request.Context(), payabledomain.ListPayablesRequest{
		SupplierID: strings.TrimSpace(query.SupplierID),
		Status:     query.Status,
		PageToken:  query.PageToken,
		PageSize:   query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPayableByID(c *gin.Context) {
	resp, err := s.payableSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type registerPayablePaymentRequest struct {
	Amount      int64  `json:"amount"`
	Method      string `json:"method"`
	MarkPartial bool   `json:"mark_partial"`
}

func (s *Server) RegisterPayablePayment(c *gin.Context) {
	var req registerPayablePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.payableSvc.RegisterPayment(c.Request.Context(), payabledomain.RegisterPaymentRequest{
		PayableID:   strings.TrimSpace(c.Param("id")),
		Amount:      req.Amount,
		Method:      req.Method,
		MarkPartial: req.MarkPartial,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.LedgerPayments.WithLabelValues("payable").Inc()
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelPayable(c *gin.Context) {
	resp, err := s.payableSvc.Cancel(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeletePayable(c *gin.Context) {
	resp, err := s.payableSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
