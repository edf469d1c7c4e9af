package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/globalbooks/fulfillment-system/orders-service/config"
	"github.com/globalbooks/fulfillment-system/shared/auth"
	"github.com/globalbooks/fulfillment-system/shared/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg, err := config.ReadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Printf("Starting %s in %s environment on port %s\n", cfg.ServiceName, cfg.Env, cfg.Port)

	ctx := context.Background()

	// Initialize telemetry
	tel, telShutdown, err := telemetry.InitTelemetry(ctx,
		telemetry.OrdersServiceConfig.WithOTLPEndpoint(cfg.Telemetry.OTLPEndpoint))
	if err != nil {
		log.Printf("Telemetry disabled: %v", err)
	}
	if telShutdown != nil {
		defer telShutdown()
	}

	// Initialize dependencies
	deps, err := config.BuildDependencies(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to build dependencies: %v", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			log.Printf("Error closing dependencies: %v", err)
		}
	}()

	// Start event subscribers
	if err := deps.PaymentResponseSubscriber.Start(ctx); err != nil {
		log.Fatalf("Failed to start payment response subscriber: %v", err)
	}
	if err := deps.ShippingStatusSubscriber.Start(ctx); err != nil {
		log.Fatalf("Failed to start shipping status subscriber: %v", err)
	}
	if err := deps.DeadLetterConsumer.Start(ctx); err != nil {
		log.Fatalf("Failed to start dead letter consumer: %v", err)
	}

	// Setup HTTP router
	router := setupRouter(cfg, deps, tel)

	// Setup and start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Printf("Shutting down %s...\n", cfg.ServiceName)

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := deps.PaymentResponseSubscriber.Stop(shutdownCtx); err != nil {
		log.Printf("Error stopping payment response subscriber: %v", err)
	}
	if err := deps.ShippingStatusSubscriber.Stop(shutdownCtx); err != nil {
		log.Printf("Error stopping shipping status subscriber: %v", err)
	}
	if err := deps.DeadLetterConsumer.Stop(shutdownCtx); err != nil {
		log.Printf("Error stopping dead letter consumer: %v", err)
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	fmt.Printf("%s stopped\n", cfg.ServiceName)
}

func setupRouter(cfg *config.Config, deps *config.Dependencies, tel *telemetry.Telemetry) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// Telemetry middleware (inject telemetry into context)
	if tel != nil {
		r.Use(telemetry.Middleware(tel))
	}

	// Health check
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := deps.DB.PingContext(req.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := deps.AMQPClient.Ping(2 * time.Second); err != nil {
			http.Error(w, "broker unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Metrics endpoint for Prometheus
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated API routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(deps.Authenticator))
		deps.OrderHandlers.RegisterRoutes(r)
		deps.DeadLetterHandlers.RegisterRoutes(r)
	})

	return r
}
