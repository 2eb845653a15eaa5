package server

import (
	"net/http"
	"strings"

	subscriptiondomain "github.com/Girosmedia/tendo-app-sub002/internal/subscription/domain"
	"github.com/gin-gonic/gin"
)

type createSubscriptionRequest struct {
	PlanID        string `json:"plan_id"`
	BasePlanPrice int64  `json:"base_plan_price"`
}

func (s *Server) CreateSubscription(c *gin.Context) {
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Create(c.Request.Context(), subscriptiondomain.CreateSubscriptionRequest{
		PlanID:        strings.TrimSpace(req.PlanID),
		BasePlanPrice: req.BasePlanPrice,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSubscription(c *gin.Context) {
	resp, err := s.subscriptionSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type transitionSubscriptionRequest struct {
	Action string `json:"action"`
}

func (s *Server) TransitionSubscription(c *gin.Context) {
	var req transitionSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Transition(c.Request.Context(), subscriptiondomain.TransitionRequest{
		Action: subscriptiondomain.Action(req.Action),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.SubscriptionTransitions.WithLabelValues(strings.ToUpper(strings.TrimSpace(req.Action))).Inc()
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
