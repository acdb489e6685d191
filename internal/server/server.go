package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/tracklane/tracklane/internal/clock"
	"github.com/tracklane/tracklane/internal/config"
	"github.com/tracklane/tracklane/internal/invoice"
	invoicedomain "github.com/tracklane/tracklane/internal/invoice/domain"
	"github.com/tracklane/tracklane/internal/issue"
	issuedomain "github.com/tracklane/tracklane/internal/issue/domain"
	"github.com/tracklane/tracklane/internal/notification"
	notificationdomain "github.com/tracklane/tracklane/internal/notification/domain"
	"github.com/tracklane/tracklane/internal/observability"
	obsmiddleware "github.com/tracklane/tracklane/internal/observability/logger"
	obsmetrics "github.com/tracklane/tracklane/internal/observability/metrics"
	obstracing "github.com/tracklane/tracklane/internal/observability/tracing"
	"github.com/tracklane/tracklane/internal/project"
	projectdomain "github.com/tracklane/tracklane/internal/project/domain"
	"github.com/tracklane/tracklane/internal/quota"
	"github.com/tracklane/tracklane/internal/ratelimit"
	"github.com/tracklane/tracklane/internal/timeentry"
	timedomain "github.com/tracklane/tracklane/internal/timeentry/domain"
	"github.com/tracklane/tracklane/internal/user"
	userdomain "github.com/tracklane/tracklane/internal/user/domain"
)

var Module = fx.Module("http.server",
	config.Module,
	clock.Module,
	fx.Provide(registerGin),
	ratelimit.Module,
	quota.Module,
	user.Module,
	project.Module,
	notification.Module,
	issue.Module,
	timeentry.Module,
	invoice.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
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
	db      *gorm.DB
	genID   *snowflake.Node
	metrics *obsmetrics.Metrics

	userSvc         userdomain.Service
	projectSvc      projectdomain.Service
	issueSvc        issuedomain.Service
	notificationSvc notificationdomain.Service
	timeSvc         timedomain.Service
	invoiceSvc      invoicedomain.Service
}

type ServerParams struct {
	fx.In

	Gin     *gin.Engine
	Cfg     config.Config
	DB      *gorm.DB
	GenID   *snowflake.Node
	Metrics *obsmetrics.Metrics `optional:"true"`

	UserSvc         userdomain.Service
	ProjectSvc      projectdomain.Service
	IssueSvc        issuedomain.Service
	NotificationSvc notificationdomain.Service
	TimeSvc         timedomain.Service
	InvoiceSvc      invoicedomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:  p.Gin,
		cfg:     p.Cfg,
		db:      p.DB,
		genID:   p.GenID,
		metrics: p.Metrics,

		userSvc:         p.UserSvc,
		projectSvc:      p.ProjectSvc,
		issueSvc:        p.IssueSvc,
		notificationSvc: p.NotificationSvc,
		timeSvc:         p.TimeSvc,
		invoiceSvc:      p.InvoiceSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/users", s.RegisterUser)

	authed := api.Group("", s.AuthRequired())

	// -------- Users --------
	authed.GET("/users", s.ListUsersByIDs)
	authed.GET("/users/me", s.GetMe)
	authed.PATCH("/users/me", s.UpdateMe)
	authed.GET("/users/:username", s.GetUserByUsername)

	// -------- Projects --------
	authed.POST("/projects", s.CreateProject)
	authed.GET("/projects", s.ListProjects)
	authed.GET("/projects/:id", s.GetProjectByID)
	authed.POST("/projects/:id/members", s.AddProjectMember)
	authed.DELETE("/projects/:id/members/:userId", s.RemoveProjectMember)

	// -------- Issues --------
	authed.POST("/issues", s.CreateIssue)
	authed.GET("/issues", s.ListIssues)
	authed.GET("/issues/favorites", s.ListFavoriteIssues)
	authed.GET("/issues/:id", s.GetIssueByID)
	authed.PUT("/issues/:id/status", s.SetIssueStatus)
	authed.PUT("/issues/:id/assignees", s.SetIssueAssignees)
	authed.PUT("/issues/:id/labels", s.SetIssueLabels)
	authed.POST("/issues/:id/favorite", s.ToggleIssueFavorite)
	authed.POST("/issues/:id/links", s.ToggleIssueLink)
	authed.POST("/issues/:id/comments", s.AddIssueComment)
	authed.GET("/issues/:id/comments", s.ListIssueComments)
	authed.POST("/issues/:id/reactions", s.ToggleIssueReaction)
	authed.GET("/issues/:id/reactions", s.ListIssueReactions)

	// -------- Time tracking --------
	authed.POST("/time/start", s.StartTimer)
	authed.POST("/time/stop", s.StopTimer)
	authed.GET("/time/active", s.GetActiveTimer)
	authed.GET("/time/entries", s.ListTimeEntries)

	// -------- Invoices --------
	authed.POST("/invoices/draft", s.PreviewInvoiceDraft)
	authed.POST("/invoices", s.FinalizeInvoice)
	authed.GET("/invoices", s.ListInvoices)
	authed.GET("/invoices/:id", s.GetInvoiceByID)
	authed.PATCH("/invoices/:id", s.UpdateInvoice)
	authed.GET("/invoices/:id/time-entries", s.ListInvoiceTimeEntries)
	authed.GET("/invoices/:id/export/csv", s.ExportInvoiceCSV)
	authed.GET("/invoices/:id/export/pdf", s.ExportInvoicePDF)

	// -------- Notifications --------
	authed.GET("/notifications", s.ListNotifications)
	authed.GET("/notifications/unread-count", s.GetUnreadNotificationCount)
	authed.POST("/notifications/:id/read", s.MarkNotificationRead)
	authed.POST("/notifications/read-all", s.MarkAllNotificationsRead)
}
