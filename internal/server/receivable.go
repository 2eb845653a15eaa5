package server

import (
	"net/http"
	"strings"
	"time"

	receivabledomain "github.com/Girosmedia/tendo-app-sub002/internal/receivable/domain"
	"github.com/gin-gonic/gin"
)

type createCreditRequest struct {
	CustomerID string    `json:"customer_id"`
	Amount     int64     `json:"amount"`
	DueDate    time.Time `json:"due_date"`
}

func (s *Server) CreateCredit(c *gin.Context) {
	var req createCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.receivableSvc.Create(c.Request.Context(), receivabledomain.CreateCreditRequest{
		CustomerID: strings.TrimSpace(req.CustomerID),
		Amount:     req.Amount,
		DueDate:    req.DueDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCredits(c *gin.Context) {
	var query struct {
		CustomerID string `form:"customer_id"`
		Status     string `form:"status"`
		PageToken  string `form:"page_token"`
		PageSize   int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.receivableSvc.List(c.Request.Context(), receivabledomain.ListCreditsRequest{
		CustomerID: strings.TrimSpace(query.CustomerID),
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

func (s *Server) GetCreditByID(c *gin.Context) {
	resp, err := s.receivableSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type registerCreditPaymentRequest struct {
	Amount int64  `json:"amount"`
	Method string `json:"method"`
}

func (s *Server) RegisterCreditPayment(c *gin.Context) {
	var req registerCreditPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.receivableSvc.RegisterPayment(c.Request.Context(), receivabledomain.RegisterPaymentRequest{
		CreditID: strings.TrimSpace(c.Param("id")),
		Amount:   req.Amount,
		Method:   req.Method,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.LedgerPayments.WithLabelValues("receivable").Inc()
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelCredit(c *gin.Context) {
	resp, err := s.receivableSvc.Cancel(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCredit(c *gin.Context) {
	resp, err := s.receivableSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
