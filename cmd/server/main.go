/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the hotel booking engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Open the store selected by STORE_DRIVER
  3. Build the room locker, notifier and payment processor
  4. Build the booking policy and import the catalog file, if any
  5. Create API handler, router and housekeeping scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides HTTP_PORT)
  -db      SQLite database path (overrides SQLITE_PATH)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  STORE_DRIVER        sqlite | postgres | memory (default sqlite)
  POSTGRES_DSN        required for postgres
  REDIS_ADDR          enables the distributed room lock
  AMQP_URL            enables booking event publishing
  JWT_SECRET          signs staff/admin tokens (random when unset)
  CURRENCY, TAX_RATE, SEASON_BASIS, PAYMENT_TIMEOUT, NO_SHOW_GRACE
  SCHEDULER_INTERVAL, POLICY_FILE, CATALOG_FILE
  See config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the housekeeping scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close broker and database connections

EXAMPLES:
  # Run with file database
  ./server -db="./data/booking.db"

  # Run against Postgres with a shared lock
  STORE_DRIVER=postgres POSTGRES_DSN=postgres://... REDIS_ADDR=localhost:6379 ./server

SEE ALSO:
  - config/config.go: Environment configuration
  - api/server.go: Router configuration
  - api/scheduler.go: Housekeeping scheduler
*/
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/warp/booking-engine/api"
	"github.com/warp/booking-engine/config"
	"github.com/warp/booking-engine/factory"
	"github.com/warp/booking-engine/hotel"
	"github.com/warp/booking-engine/lock"
	"github.com/warp/booking-engine/notify"
	"github.com/warp/booking-engine/payment"
	"github.com/warp/booking-engine/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Flags
	port := flag.String("port", cfg.HTTPPort, "HTTP server port")
	dbPath := flag.String("db", cfg.SQLitePath, "SQLite database path")
	flag.Parse()
	cfg.HTTPPort, cfg.SQLitePath = *port, *dbPath

	ctx := context.Background()

	policy, err := cfg.Policy()
	if err != nil {
		log.Fatalf("Invalid booking policy: %v", err)
	}

	// Initialize store
	db, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	locker, closeLock := newLocker(ctx, cfg, policy)
	defer closeLock()

	notifier, closeNotifier := newNotifier(cfg)
	defer closeNotifier()

	svc := hotel.NewBookingService(db, locker,
		hotel.WithPolicy(policy),
		hotel.WithPayments(payment.NewSandbox()),
		hotel.WithNotifier(notifier),
	)

	if cfg.CatalogFile != "" {
		rooms, err := factory.LoadCatalogFile(cfg.CatalogFile, policy.Currency)
		if err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
		if err := factory.ImportRooms(ctx, db, rooms, policy.Currency); err != nil {
			log.Fatalf("Failed to import catalog: %v", err)
		}
		log.Printf("Imported %d rooms from %s", len(rooms), cfg.CatalogFile)
	}

	// Initialize handler
	handler := api.NewHandler(svc, db)
	handler.Reset = db.Reset

	secret := cfg.JWTSecret
	if secret == "" {
		secret = randomSecret()
		log.Println("Warning: JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}
	router := api.NewRouter(handler, api.NewAuth(secret))

	scheduler := api.NewHousekeepingScheduler(handler.Housekeeper)
	scheduler.CheckInterval = cfg.SchedulerInterval
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%s (store: %s)", cfg.HTTPPort, cfg.StoreDriver)
		log.Printf("📊 API available at http://localhost:%s/api", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// newLocker uses Redis when configured so several instances share room
// locks. The lease outlives the payment timeout.
func newLocker(ctx context.Context, cfg config.Config, policy hotel.Policy) (hotel.Locker, func()) {
	if cfg.RedisAddr == "" {
		return lock.NewLocal(), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
	}
	log.Printf("Using Redis room lock at %s", cfg.RedisAddr)
	l := lock.NewRedis(client, "").WithTTL(policy.PaymentTimeout + 30*time.Second)
	return l, func() { client.Close() }
}

func newNotifier(cfg config.Config) (hotel.Notifier, func()) {
	if cfg.AMQPURL == "" {
		return notify.Log{}, func() {}
	}
	pub := notify.NewAMQPPublisher(cfg.AMQPURL)
	if err := pub.Connect(); err != nil {
		// The publisher redials on the next event.
		log.Printf("Warning: AMQP broker unavailable: %v", err)
	}
	return notify.Multi{notify.Log{}, pub}, func() { pub.Close() }
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return hex.EncodeToString(b)
}
