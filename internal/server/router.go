package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kural1554/Finance/internal/auth"
	"github.com/kural1554/Finance/internal/config"
	"github.com/kural1554/Finance/internal/domain/staff"
	"github.com/kural1554/Finance/internal/http/handlers"
	"github.com/kural1554/Finance/internal/http/middleware"
	"github.com/kural1554/Finance/internal/version"
	"github.com/kural1554/Finance/internal/ws"
)

type Dependencies struct {
	Pinger           handlers.Pinger
	AuthHandler      *handlers.AuthHandler
	LoanHandler      *handlers.LoanHandler
	ApplicantHandler *handlers.ApplicantHandler
	StaffHandler     *handlers.StaffHandler
	WSHandler        *ws.Handler
	JWTManager       *auth.JWTManager
}

func NewRouter(cfg config.Config, logger *slog.Logger, deps Dependencies) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(middleware.RequestBodyLimit(cfg.MaxRequestBodyBytes))

	health := handlers.NewHealthHandler(deps.Pinger)
	meta := handlers.NewMetaHandler(cfg.Env, version.Version, cfg.LoanIDPrefix)

	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/v1/meta", meta.GetMeta)

	if deps.JWTManager != nil {
		requireAuth := middleware.RequireAuth(deps.JWTManager, cfg.AuthEnableBearer)

		if deps.AuthHandler != nil {
			authGroup := r.Group("/v1/auth")
			authGroup.POST("/login", deps.AuthHandler.Login)
			authGroup.POST("/refresh", deps.AuthHandler.Refresh)
			authGroup.POST("/logout", deps.AuthHandler.Logout)
			authGroup.GET("/me", requireAuth, deps.AuthHandler.Me)
		}

		staffGroup := r.Group("/v1")
		staffGroup.Use(requireAuth, middleware.RequireRole(staff.RoleStaff))
		managerGroup := r.Group("/v1")
		managerGroup.Use(requireAuth, middleware.RequireRole(staff.RoleManager))

		if deps.ApplicantHandler != nil {
			staffGroup.POST("/applicants", deps.ApplicantHandler.Create)
			staffGroup.GET("/applicants", deps.ApplicantHandler.List)
			staffGroup.GET("/applicants/:applicantId", deps.ApplicantHandler.Get)
		}
		if deps.LoanHandler != nil {
			staffGroup.POST("/loans", deps.LoanHandler.CreateLoan)
			staffGroup.GET("/loans", deps.LoanHandler.ListLoans)
			staffGroup.GET("/loans/:loanId", deps.LoanHandler.GetLoan)
			staffGroup.PUT("/loans/:loanId/schedule", deps.LoanHandler.SubmitSchedule)
			staffGroup.PUT("/loans/:loanId/nominees", deps.LoanHandler.ReplaceNominees)
			staffGroup.GET("/loans/:loanId/totals", deps.LoanHandler.GetTotals)
			staffGroup.GET("/loans/:loanId/history", deps.LoanHandler.History)

			managerGroup.POST("/loans/:loanId/status", deps.LoanHandler.TransitionLoan)
			managerGroup.PATCH("/loans/:loanId/remarks", deps.LoanHandler.UpdateRemarks)
		}
		if deps.StaffHandler != nil {
			managerGroup.POST("/staff", deps.StaffHandler.Create)
			managerGroup.GET("/staff", deps.StaffHandler.List)
			managerGroup.GET("/staff/:staffId", deps.StaffHandler.Get)
		}
		if deps.WSHandler != nil {
			staffGroup.GET("/ws", deps.WSHandler.HandleWebSocket)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	return r
}
