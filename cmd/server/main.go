// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/animeguessr/server/internal/auth"
	"github.com/animeguessr/server/internal/cache"
	"github.com/animeguessr/server/internal/catalog"
	"github.com/animeguessr/server/internal/database"
	"github.com/animeguessr/server/internal/events"
	"github.com/animeguessr/server/internal/handlers"
	"github.com/animeguessr/server/internal/middleware"
	"github.com/animeguessr/server/internal/room"
	"github.com/animeguessr/server/internal/stream"
)

const (
	reaperInterval = time.Hour
	roomMaxIdle    = 3 * time.Hour
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	auth.Init()

	// Redis and Postgres are optional: without them the catalog runs
	// uncached and the tag layer serves empty results.
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, catalog caching disabled: %v", err)
	}
	if err := database.ConnectDB(); err != nil {
		logger.Warnf("database unavailable, character tags disabled: %v", err)
	}

	broker := events.NewBroker()
	registry := room.NewRegistry(broker)
	tracker := stream.NewTracker(registry, broker)
	tags := database.NewTagStore()
	cat := catalog.NewClient(tags)

	registry.StartReaper(context.Background(), reaperInterval, roomMaxIdle)

	srv := handlers.NewServer(logger, registry, broker, tracker, cat, tags)
	mux := http.NewServeMux()
	srv.Routes(mux)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Infof("listening on :%s", port)
	if err := http.ListenAndServe(":"+port, middleware.LogMiddleware(logger)(mux)); err != nil {
		logger.Fatalf("server error: %v", err)
	}
}
