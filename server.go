package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ikelabs/counts_backend/config"
	"github.com/ikelabs/counts_backend/controllers"
	"github.com/ikelabs/counts_backend/covasync"
	"github.com/ikelabs/counts_backend/middlewares"
	"github.com/ikelabs/counts_backend/models"
)

const defaultPort = "8080"

// RateLimiter is a simple fixed-window limiter backed by redis.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := c.ClientIP()

	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

// customErrorLogger logs only requests that ended with errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func registerRoutes(r *gin.Engine, syncService *covasync.Service) {

	r.POST("/auth/login", controllers.Login)

	api := r.Group("/api")
	api.Use(middlewares.RequireAuth())

	api.POST("/users", controllers.Register)

	api.POST("/stores", controllers.CreateStore)
	api.GET("/stores", controllers.ListStores)
	api.GET("/stores/:storeId", controllers.GetStore)
	api.POST("/stores/:storeId/locations", controllers.CreateLocation)
	api.GET("/stores/:storeId/locations", controllers.ListLocations)
	api.PUT("/locations/:locationId/active", controllers.ToggleLocation)

	api.POST("/products", controllers.CreateProduct)
	api.GET("/products", controllers.ListProducts)
	api.GET("/products/lookup/:code", controllers.LookupProduct)

	api.POST("/sessions", controllers.CreateCountSession)
	api.GET("/sessions", controllers.ListCountSessions)
	api.GET("/sessions/:sessionId", controllers.GetCountSession)
	api.DELETE("/sessions/:sessionId", controllers.DeleteCountSession)
	api.POST("/sessions/:sessionId/start", controllers.StartCountSession())
	api.POST("/sessions/:sessionId/submit", controllers.SubmitCountSession())
	api.POST("/sessions/:sessionId/reconcile", controllers.ReconcileCountSession())
	api.POST("/sessions/:sessionId/close", controllers.CloseCountSession())
	api.GET("/sessions/:sessionId/history", controllers.GetSessionHistory)

	api.POST("/sessions/:sessionId/passes", controllers.OpenCountPass)
	api.GET("/sessions/:sessionId/passes", controllers.ListCountPasses)
	api.POST("/passes/:passId/submit", controllers.SubmitCountPass)
	api.POST("/passes/:passId/void", controllers.VoidCountPass)

	api.POST("/passes/:passId/lines", controllers.RecordCountLine)
	api.GET("/passes/:passId/lines", controllers.ListCountLines)
	api.PUT("/lines/:lineId", controllers.CorrectCountLine)
	api.DELETE("/lines/:lineId", controllers.DeleteCountLine)

	api.POST("/movements", controllers.CreateMovement)
	api.GET("/movements", controllers.ListMovements)

	api.GET("/sessions/:sessionId/variance", controllers.GetSessionVariance)
	api.GET("/sessions/:sessionId/variance/export", controllers.ExportSessionVariance)

	covasync.RegisterRoutes(api, syncService)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(func(c *gin.Context) {
		// Always allow the startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate everything else on database readiness. Redis is optional.
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := redis.NewClient(&redis.Options{Addr: os.Getenv("REDIS_ADDRESS")})
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	middlewares.InitMetrics()
	r.Use(middlewares.PrometheusMiddleware())
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	storeIds, err := covasync.LoadStoreIdMap()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "covasync"}).Panic("invalid COVA_STORE_MAP: " + err.Error())
	}
	syncService := covasync.NewService(storeIds, covasync.NewDBSalesFeed())

	registerRoutes(r, syncService)

	// Start listening immediately (the startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	// AutoMigrate can run DDL that blocks tables; allow running migrations
	// as a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
		covasync.Migrate()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
