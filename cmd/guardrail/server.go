package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/porchlight-social/guardrail/appeals"
	"github.com/porchlight-social/guardrail/countstore"
	"github.com/porchlight-social/guardrail/engine"
	"github.com/porchlight-social/guardrail/filter"
	"github.com/porchlight-social/guardrail/models"
	"github.com/porchlight-social/guardrail/rules"
	"github.com/porchlight-social/guardrail/throttle"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	"gorm.io/gorm"
)

type Server struct {
	logger  *slog.Logger
	db      *gorm.DB
	echo    *echo.Echo
	catalog *rules.Catalog
	engine  *engine.Engine
	guard   *throttle.Guard
	filters *filter.Engine
	appeals *appeals.Workflow
}

type Config struct {
	RedisURL string
	Logger   *slog.Logger
}

func NewServer(db *gorm.DB, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	if err := db.AutoMigrate(
		&models.ContentClassification{},
		&models.ModerationAction{},
		&models.ComplianceLog{},
		&models.UserFilterProfile{},
		&models.UserFilterPreference{},
		&models.Appeal{},
	); err != nil {
		return nil, fmt.Errorf("migrating moderation tables: %w", err)
	}

	var counters countstore.CountStore
	if config.RedisURL != "" {
		cnt, err := countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %w", err)
		}
		counters = cnt
		logger.Info("using redis countstore")
	} else {
		counters = countstore.NewMemCountStore()
		logger.Info("using in-process countstore")
	}

	catalog := rules.NewCatalog()
	eng := engine.NewEngine(db, catalog, logger)
	guard := throttle.NewGuard(counters, eng, logger, nil, nil)

	// ownership resolvers are registered by the host application; the
	// admin daemon only decides appeals, which needs no resolution
	owners := appeals.NewOwnershipRegistry()

	srv := &Server{
		logger:  logger,
		db:      db,
		catalog: catalog,
		engine:  eng,
		guard:   guard,
		filters: filter.NewEngine(db, logger),
		appeals: appeals.NewWorkflow(db, owners, logger),
	}
	return srv, nil
}

func (srv *Server) RunAPI(bind string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(srv.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.RemoveTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusFound,
	}))
	srv.echo = e

	e.GET("/_health", srv.handleHealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// service-to-service moderation surface for host applications
	// that integrate over HTTP instead of linking the library
	e.POST("/moderation/precheck", srv.handleModerationPrecheck)

	e.GET("/admin/rules", srv.handleListRules)
	e.GET("/admin/users/:id/filter", srv.handleGetUserFilter)
	e.GET("/admin/actions", srv.handleListActions)
	e.GET("/admin/classifications", srv.handleListClassifications)
	e.GET("/admin/compliance", srv.handleListCompliance)
	e.GET("/admin/appeals", srv.handleListAppeals)
	e.POST("/admin/appeals/:id/decide", srv.handleDecideAppeal)
	e.POST("/admin/appeals/bulk-decide", srv.handleBulkDecideAppeals)

	srv.logger.Info("starting admin API", "bind", bind)
	httpd := &http.Server{
		Handler:      e,
		Addr:         bind,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
	}
	return httpd.ListenAndServe()
}

func (srv *Server) handleHealthCheck(c echo.Context) error {
	if err := srv.db.Exec("SELECT 1").Error; err != nil {
		srv.logger.Error("healthcheck can't connect to database", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"status": "error", "message": "can't connect to database"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
