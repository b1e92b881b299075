package main

import (
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"classboard-api/api"
	"classboard-api/cache"
	"classboard-api/session"
	"classboard-api/sheets"
)

func main() {
	_ = godotenv.Load()

	logger := log.New()
	logger.SetFormatter(&log.JSONFormatter{})
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		logger.SetLevel(log.DebugLevel)
	}

	endpoint := os.Getenv("SHEETS_ENDPOINT")
	if endpoint == "" {
		logger.Fatal("missing SHEETS_ENDPOINT")
	}
	client, err := sheets.New(endpoint, envDur(logger, "SHEETS_TIMEOUT", 30*time.Second))
	if err != nil {
		logger.Fatalf("sheets client: %v", err)
	}

	var rc *redis.Client
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			parts := strings.Split(redisConn, ",")
			redisOpts = &redis.Options{Addr: parts[0]}
			for _, p := range parts[1:] {
				kv := strings.SplitN(p, "=", 2)
				if len(kv) != 2 {
					continue
				}
				switch strings.ToLower(kv[0]) {
				case "password":
					redisOpts.Password = kv[1]
				case "ssl":
					if strings.ToLower(kv[1]) == "true" {
						redisOpts.TLSConfig = &tls.Config{}
					}
				}
			}
		}
		rc = redis.NewClient(redisOpts)
	} else {
		logger.Warn("no REDIS_CONNECTION_STRING; durable cache tier disabled")
	}

	memTTL := envDur(logger, "CACHE_MEMORY_TTL", 30*time.Second)
	redisTTL := envDur(logger, "CACHE_REDIS_TTL", 5*time.Minute)
	store := cache.New(client, rc, memTTL, redisTTL, logger)

	refreshSpec := os.Getenv("REFRESH_SCHEDULE")
	if refreshSpec == "" {
		refreshSpec = "@every 2m"
	}
	sessions := session.NewManager(store, client, logger, refreshSpec)

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		logger.Fatal("missing SESSION_SECRET")
	}
	auth := api.NewAuth([]byte(secret), envDur(logger, "SESSION_TTL", 12*time.Hour))

	otel.SetTracerProvider(sdktrace.NewTracerProvider())

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.Register(e, sessions, store, client, auth, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

func envDur(logger *log.Logger, name string, def time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		logger.Fatalf("invalid %s: %v", name, raw)
	}
	return d
}
