package server

import (
	"net/http"

	documentdomain "github.com/Girosmedia/tendo-app-sub002/internal/document/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ComputeDocumentTotals(c *gin.Context) {
	var req documentdomain.ComputeTotalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.documentSvc.ComputeTotals(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.DocumentCalculations.Inc()
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
