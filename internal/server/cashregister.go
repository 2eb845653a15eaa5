package server

import (
	"net/http"
	"strings"

	cashregisterdomain "github.com/Girosmedia/tendo-app-sub002/internal/cashregister/domain"
	"github.com/gin-gonic/gin"
)

type openShiftRequest struct {
	OpeningCash int64  `json:"opening_cash"`
	Notes       string `json:"notes"`
}

func (s *Server) OpenShift(c *gin.Context) {
	var req openShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cashRegisterSvc.Open(c.Request.Context(), cashregisterdomain.OpenShiftRequest{
		OpeningCash: req.OpeningCash,
		Notes:       req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListShifts(c *gin.Context) {
	var query struct {
		Status    string `form:"status"`
		PageToken string `form:"page_token"`
		PageSize  int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cashRegisterSvc.List(c.Request.Context(), cashregisterdomain.ListShiftsRequest{
		Status:    query.Status,
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetShiftByID(c *gin.Context) {
	resp, err := s.cashRegisterSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type recordSaleRequest struct {
	Method string `json:"method"`
	Total  int64  `json:"total"`
}

func (s *Server) RecordSale(c *gin.Context) {
	var req recordSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cashRegisterSvc.RecordSale(c.Request.Context(), cashregisterdomain.RecordSaleRequest{
		ShiftID: strings.TrimSpace(c.Param("id")),
		Method:  req.Method,
		Total:   req.Total,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type closeShiftRequest struct {
	ActualCash int64  `json:"actual_cash"`
	Notes      string `json:"notes"`
}

func (s *Server) CloseShift(c *gin.Context) {
	var req closeShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cashRegisterSvc.Close(c.Request.Context(), cashregisterdomain.CloseShiftRequest{
		ShiftID:    strings.TrimSpace(c.Param("id")),
		ActualCash: req.ActualCash,
		Notes:      req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.ShiftCloses.WithLabelValues(string(resp.VarianceClass)).Inc()
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
