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
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/mmdatafocus/nowmirror_backend/config"
	"github.com/mmdatafocus/nowmirror_backend/handlers"
	"github.com/mmdatafocus/nowmirror_backend/middlewares"
	"github.com/mmdatafocus/nowmirror_backend/models"
	"github.com/mmdatafocus/nowmirror_backend/nowsync"
	"github.com/mmdatafocus/nowmirror_backend/utils"
	"github.com/mmdatafocus/nowmirror_backend/workflow"
)

const defaultPort = "8080"

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func getRedisClient(redisAddress string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
	return client
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func newFileStorage(logger *logrus.Logger) utils.FileStorage {
	if utils.GetStorageProvider() != utils.StorageProviderGCS {
		return nil
	}
	files, err := utils.NewGCSFileStorage()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "storage"}).Warn("file storage disabled: " + err.Error())
		return nil
	}
	return files
}

func registerEntityRoutes(r *gin.Engine, h *handlers.Handler) {
	type entityRoutes struct {
		path string
		spec nowsync.EntitySpec
	}
	// Entities served entirely by the generic CRUD surface. Contacts, quotes
	// and product offerings carry extra behavior and get explicit routes.
	generic := []entityRoutes{
		{"/accounts", nowsync.Account},
		{"/locations", nowsync.Location},
		{"/opportunities", nowsync.Opportunity},
		{"/quote-lines", nowsync.QuoteLine},
		{"/price-lists", nowsync.PriceList},
		{"/contracts", nowsync.Contract},
		{"/orders", nowsync.Order},
	}
	for _, e := range generic {
		r.POST(e.path, h.CreateEntity(e.spec))
		r.GET(e.path, h.ListEntity(e.spec))
		r.GET(e.path+"/:id", h.GetEntity(e.spec))
		r.PATCH(e.path+"/:id", h.UpdateEntity(e.spec))
		r.DELETE(e.path+"/:id", h.DeleteEntity(e.spec))
	}

	r.POST("/contacts", h.CreateContact)
	r.GET("/contacts", h.ListEntity(nowsync.Contact))
	r.GET("/contacts/:id", h.GetEntity(nowsync.Contact))
	r.PATCH("/contacts/:id", h.UpdateEntity(nowsync.Contact))
	r.DELETE("/contacts/:id", h.DeleteEntity(nowsync.Contact))

	r.POST("/quotes", h.CreateEntity(nowsync.Quote))
	r.GET("/quotes", h.ListEntity(nowsync.Quote))
	r.GET("/quotes/:id", h.GetEntity(nowsync.Quote))
	r.GET("/quotes/:id/detail", h.GetQuoteDetail)
	r.POST("/quotes/:id/pdf", h.UploadQuotePDF)
	r.PATCH("/quotes/:id", h.UpdateEntity(nowsync.Quote))
	r.DELETE("/quotes/:id", h.DeleteQuote)

	r.POST("/product-offerings", h.CreateProductOffering)
	r.GET("/product-offerings", h.ListEntity(nowsync.ProductOffering))
	r.GET("/product-offerings/:id", h.GetEntity(nowsync.ProductOffering))
	r.GET("/product-offerings/:id/categories", h.ListOfferingCategories)
	r.PATCH("/product-offerings/:id", h.UpdateProductOffering)
	r.DELETE("/product-offerings/:id", h.DeleteEntity(nowsync.ProductOffering))

	r.POST("/product-offering-categories", h.CreateProductOfferingCategory)
	r.GET("/product-offering-categories", h.ListEntity(nowsync.ProductOfferingCategory))
	r.GET("/product-offering-categories/:id", h.GetEntity(nowsync.ProductOfferingCategory))
	r.GET("/product-offering-categories/:id/offerings", h.ListCategoryOfferings)
	r.PATCH("/product-offering-categories/:id", h.UpdateProductOfferingCategory)
	r.DELETE("/product-offering-categories/:id", h.DeleteEntity(nowsync.ProductOfferingCategory))

	r.GET("/export/opportunities.xlsx", h.ExportOpportunities)

	r.GET("/internal/ops/sync-events", h.ListSyncEvents)
	r.POST("/internal/ops/relink/:entity/:sys_id", h.Relink)
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, we return 503 for app endpoints.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness.
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("session", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
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

	sessions := utils.NewRedisSessionStore()

	r.Use(middlewares.SessionMiddleware(sessions))
	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	// Synchronizer stack: table client -> one-refresh retry -> dual-write.
	refresher := &nowsync.SessionTokenRefresher{Sessions: sessions, Logger: logger}
	remote := &nowsync.RefreshingClient{
		Next:   nowsync.NewTableClient(config.ServiceNowBaseURL(), config.ServiceNowTimeout()),
		Tokens: refresher,
		Logger: logger,
	}
	store := models.NewMirrorStore(nil)
	events := models.NewEventRecorder(nil, logger)
	synchronizer := nowsync.NewSynchronizer(remote, store, events, logger)
	relationships := nowsync.NewRelationshipSynchronizer(remote, store, events, logger)
	// No external document generator is deployed; the PDF route requires an
	// uploaded file until one is wired in.
	h := handlers.New(synchronizer, relationships, store, nil, sessions, newFileStorage(logger), nil, &utils.LogMailSender{Logger: logger}, logger)

	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.Refresh)
	r.POST("/auth/logout", h.Logout)
	registerEntityRoutes(r, h)
	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
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
	// IMPORTANT: AutoMigrate can run DDL that blocks tables and causes 504/502 timeouts.
	// Allow disabling migrations on startup (run them as a separate job instead).
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Start outbox dispatcher (publishes AFTER commit).
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	if config.OutboxDispatcherEnabled() {
		go workflow.NewOutboxDispatcher(db, logger).Run(dispatcherCtx)
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

	// Stop background workers first so they don't start new work while we're draining.
	cancelDispatcher()

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	// Get the IP address or user identifier from the request.
	key := c.ClientIP() // Assuming IP-based rate limiting

	// Check if the key exists in Redis.
	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the key doesn't exist, create it and set expiry.
	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	// If the key exists, get the current count.
	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the count exceeds the limit, return an error response.
	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
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
