package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/guildtrack/guildtrack/handlers"
	"github.com/guildtrack/guildtrack/internal/config"
	"github.com/guildtrack/guildtrack/internal/database"
	"github.com/guildtrack/guildtrack/internal/directory"
	"github.com/guildtrack/guildtrack/internal/oidc"
	"github.com/guildtrack/guildtrack/internal/store"
	"github.com/guildtrack/guildtrack/internal/tokens"
	"github.com/guildtrack/guildtrack/internal/tracker"
	"github.com/guildtrack/guildtrack/pkg/logger"
	"github.com/guildtrack/guildtrack/pkg/metrics"
	"github.com/guildtrack/guildtrack/pkg/middleware"
)

var startTime = time.Now()

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.Directory.BaseURL == "" {
		logger.Fatalf("DIRECTORY_BASE_URL is required")
	}
	logger.Infof("config loaded: directory=%s mongo=%v redis=%v", cfg.Directory.BaseURL, cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	ctx := context.Background()
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Redis: directory cache and the distributed rate limiter
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Store: Mongo when configured, in-memory otherwise
	var memberStore store.Store
	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		var client *mongo.Client
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			c, errConn := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				client = c
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if client == nil {
			logger.Fatalf("could not connect to MongoDB after %d attempts", maxAttempts)
		}
		defer func() { _ = client.Disconnect(ctx) }()
		col := client.Database(cfg.MongoDB.Database).Collection("members")
		ms := store.NewMongoStore(col)
		if err := ms.EnsureIndexes(ctx); err != nil {
			logger.Fatalf("failed to ensure indexes: %v", err)
		}
		memberStore = ms
	} else {
		logger.Warn("MONGODB_URI not set; using in-memory member store")
		memberStore = store.NewMemoryStore()
	}

	// Directory client, cached through Redis when available
	var dir directory.Client = directory.NewRESTClient(cfg.Directory.BaseURL, cfg.Directory.Token, cfg.Directory.Timeout)
	if redisClient != nil {
		dir = directory.NewCachedClient(dir, redisClient, "dir:", cfg.Directory.CacheTTL)
	}

	svc, err := tracker.NewService(dir, memberStore)
	if err != nil {
		logger.Fatalf("failed to build tracker: %v", err)
	}

	// Bearer auth: OIDC when an issuer is configured, service tokens as the
	// machine-to-machine fallback. No auth when neither is configured.
	var verifier middleware.Verifier
	if cfg.Auth.Issuer != "" && cfg.Auth.ClientID != "" {
		v, err := oidc.NewVerifier(ctx, cfg.Auth.Issuer, cfg.Auth.ClientID)
		if err != nil {
			logger.Fatalf("failed to initialize OIDC verifier: %v", err)
		}
		verifier = v
	} else if cfg.Auth.ServiceTokenSecret != "" {
		verifier = tokens.NewVerifier(cfg.Auth.ServiceTokenSecret)
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{
			"store":     memberStore != nil,
			"directory": cfg.Directory.BaseURL != "",
			"redis":     cfg.Redis.Host == "" || redisClient != nil,
		}
		for _, ok := range deps {
			if !ok {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": time.Since(startTime).String()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": time.Since(startTime).String()})
	})

	api := r.Group("/")
	if verifier != nil {
		api.Use(middleware.AuthMiddleware(verifier))
	} else {
		logger.Warn("no OIDC issuer or service token secret configured; API is unauthenticated")
	}
	handlers.NewIdentityHandler(svc, memberStore).Register(api)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting identity tracker on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
