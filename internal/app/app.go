package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/optilift/entitlements/internal/config"
	"github.com/optilift/entitlements/internal/db"
	adminapi "github.com/optilift/entitlements/internal/http/api/admin"
	"github.com/optilift/entitlements/internal/http/api/front"
	"github.com/optilift/entitlements/internal/metrics"
	"github.com/optilift/entitlements/internal/profile"
	"github.com/optilift/entitlements/internal/ratelimit"
	internalsettings "github.com/optilift/entitlements/internal/settings"
	"github.com/optilift/entitlements/internal/store"
	"github.com/optilift/entitlements/internal/usage"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the entitlement API server with database-backed components.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	if initialized, errInit := HasAdminInitialized(conn); errInit != nil {
		return errInit
	} else if !initialized {
		log.Warn("no admin account exists yet; the admin API is unusable until one is created")
	}

	internalsettings.Bind(conn)
	jwtConfig, _ := config.LoadJWTConfig(configPath)
	if jwtConfig.Secret == "" {
		return fmt.Errorf("missing jwt secret (set `jwt.secret` in config file or JWT_SECRET)")
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	profileStore := store.NewGormProfileStore(conn)
	profiles := profile.NewService(profileStore, profile.WithCollector(collector))
	tracker := usage.NewTracker(profileStore,
		usage.WithEventLog(conn),
		usage.WithCollector(collector),
	)
	limiter := ratelimit.NewManager(nil, nil, nil)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	adminapi.RegisterAdminRoutes(engine, conn, jwtConfig, profiles)
	front.RegisterFrontRoutes(engine, conn, jwtConfig, profiles, tracker, limiter)
	engine.GET("/metrics", gin.WrapH(metrics.Handler(registry)))

	if defaultPort <= 0 {
		defaultPort = 8318
	}
	port := config.LoadServerPort(configPath, defaultPort)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	log.Infof("starting entitlement server on :%d with config=%s", port, configPath)
	if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
		return errListen
	}
	return nil
}
