package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	assignmentdomain "github.com/smallbiznis/printfan/internal/assignment/domain"
	"github.com/smallbiznis/printfan/internal/config"
	dispatchdomain "github.com/smallbiznis/printfan/internal/dispatch/domain"
	"github.com/smallbiznis/printfan/internal/observability"
	obslogger "github.com/smallbiznis/printfan/internal/observability/logger"
	obstracing "github.com/smallbiznis/printfan/internal/observability/tracing"
	printerdomain "github.com/smallbiznis/printfan/internal/printer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewEngine(obsCfg observability.Config, log *zap.Logger) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log, obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	PrinterSvc    printerdomain.Service
	AssignmentSvc assignmentdomain.Service
	DispatchSvc   dispatchdomain.Service
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	printerSvc    printerdomain.Service
	assignmentSvc assignmentdomain.Service
	dispatchSvc   dispatchdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		printerSvc:    p.PrinterSvc,
		assignmentSvc: p.AssignmentSvc,
		dispatchSvc:   p.DispatchSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Printers --------
	api.GET("/printers", s.ListPrinters)
	api.POST("/printers", s.RegisterPrinter)
	api.GET("/printers/:id", s.GetPrinterByID)
	api.PATCH("/printers/:id", s.UpdatePrinter)
	api.POST("/printers/:id/deactivate", s.DeactivatePrinter)
	api.DELETE("/printers/:id", s.DeletePrinter)

	// -------- Assignments --------
	api.GET("/assignments", s.ListAssignments)
	api.POST("/assignments", s.AddAssignment)
	api.DELETE("/assignments/:id", s.RemoveAssignment)

	// -------- Dispatch --------
	api.POST("/orders/dispatch", s.DispatchOrder)
}

func run(lc fx.Lifecycle, cfg config.Config, srv *Server, log *zap.Logger) {
	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Engine(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	})
}
