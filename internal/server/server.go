package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Girosmedia/tendo-app-sub002/internal/cashregister"
	cashregisterdomain "github.com/Girosmedia/tendo-app-sub002/internal/cashregister/domain"
	"github.com/Girosmedia/tendo-app-sub002/internal/config"
	"github.com/Girosmedia/tendo-app-sub002/internal/document"
	documentdomain "github.com/Girosmedia/tendo-app-sub002/internal/document/domain"
	"github.com/Girosmedia/tendo-app-sub002/internal/payable"
	payabledomain "github.com/Girosmedia/tendo-app-sub002/internal/payable/domain"
	"github.com/Girosmedia/tendo-app-sub002/internal/receivable"
	receivabledomain "github.com/Girosmedia/tendo-app-sub002/internal/receivable/domain"
	"github.com/Girosmedia/tendo-app-sub002/internal/subscription"
	subscriptiondomain "github.com/Girosmedia/tendo-app-sub002/internal/subscription/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	document.Module,
	cashregister.Module,
	receivable.Module,
	payable.Module,
	subscription.Module,
	fx.Provide(NewMetrics),
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLog(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine  *gin.Engine
	cfg     config.Config
	metrics *Metrics

	documentSvc     documentdomain.Service
	cashRegisterSvc cashregisterdomain.Service
	receivableSvc   receivabledomain.Service
	payableSvc      payabledomain.Service
	subscriptionSvc subscriptiondomain.Service
}

type ServerParams struct {
	fx.In

	Gin     *gin.Engine
	Cfg     config.Config
	Metrics *Metrics

	DocumentSvc     documentdomain.Service
	CashRegisterSvc cashregisterdomain.Service
	ReceivableSvc   receivabledomain.Service
	PayableSvc      payabledomain.Service
	SubscriptionSvc subscriptiondomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:  p.Gin,
		cfg:     p.Cfg,
		metrics: p.Metrics,

		documentSvc:     p.DocumentSvc,
		cashRegisterSvc: p.CashRegisterSvc,
		receivableSvc:   p.ReceivableSvc,
		payableSvc:      p.PayableSvc,
		subscriptionSvc: p.SubscriptionSvc,
	}

	s.registerAPIRoutes()
	return s
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(OrgContext())

	// -------- Documents --------
	api.POST("/documents/totals", s.ComputeDocumentTotals)

	// -------- Cash register --------
	api.POST("/shifts", s.OpenShift)
	api.GET("/shifts", s.ListShifts)
	api.GET("/shifts/:id", s.GetShiftByID)
	api.POST("/shifts/:id/sales", s.RecordSale)
	api.POST("/shifts/:id/close", s.CloseShift)

	// -------- Receivables --------
	api.POST("/credits", s.CreateCredit)
	api.GET("/credits", s.ListCredits)
	api.GET("/credits/:id", s.GetCreditByID)
	api.POST("/credits/:id/payments", s.RegisterCreditPayment)
	api.POST("/credits/:id/cancel", s.CancelCredit)
	api.DELETE("/credits/:id", s.DeleteCredit)

	// -------- Payables --------
	api.POST("/payables", s.CreatePayable)
	api.GET("/payables", s.ListPayables)
	api.GET("/payables/:id", s.GetPayableByID)
	api.POST("/payables/:id/payments", s.RegisterPayablePayment)
	api.POST("/payables/:id/cancel", s.CancelPayable)
	api.DELETE("/payables/:id", s.DeletePayable)

	// -------- Subscription --------
	// One per organization, addressed by the org context rather than an id.
	api.POST("/subscription", s.CreateSubscription)
	api.GET("/subscription", s.GetSubscription)
	api.POST("/subscription/transition", s.TransitionSubscription)
}
