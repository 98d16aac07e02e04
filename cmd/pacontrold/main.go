// Command pacontrold runs the Playback Arbitration Controller process:
// the HTTP/websocket control plane in front of a single in-process
// arbiter.Controller.
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

	"github.com/itskum47/pa-control/internal/arbiter"
	"github.com/itskum47/pa-control/internal/idempotency"
	"github.com/itskum47/pa-control/internal/observability"
	"github.com/itskum47/pa-control/internal/rehydrate"
	"github.com/itskum47/pa-control/internal/store"
	"github.com/itskum47/pa-control/internal/streaming"
	"github.com/itskum47/pa-control/internal/timeline"
	"github.com/itskum47/pa-control/internal/transport/httpapi"
	"github.com/itskum47/pa-control/internal/wshub"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, idemBackend := buildStore()

	publisher := streaming.NewLogPublisher()
	defer publisher.Close()

	events := timeline.NewStore(1000)
	controller := arbiter.New(st, publisher, events)
	controller.ResetState(ctx)

	if err := rehydrate.Run(ctx, controller, st); err != nil {
		log.Printf("rehydration failed, starting with an empty queue: %v", err)
	}

	loop := arbiter.NewLoop(controller, time.Second)
	go loop.Run(ctx)

	hub := wshub.New(func() wshub.Snapshot {
		return wshub.Snapshot{Current: controller.Current(), Queue: controller.Queue()}
	})
	go hub.Run(ctx)

	idemStore := idempotency.NewStore(idemBackend)
	limiter := httpapi.NewTokenBucketLimiter(5, 10)
	server := httpapi.NewServer(controller, events, idemStore, limiter, hub)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", server)

	addr := os.Getenv("PACONTROLD_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	fmt.Println("==================================================")
	fmt.Println("PA CONTROL — Playback Arbitration Controller")
	fmt.Println("==================================================")
	fmt.Printf("Listening:   %s\n", addr)
	fmt.Printf("Store:       %T\n", st)
	fmt.Println("==================================================")

	observability.Mode.WithLabelValues(string(arbiter.ModeIdle)).Set(1)

	httpServer := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("pacontrold listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// buildStore selects the persistence backend from STORE_BACKEND
// (memory, redis, postgres; default memory), and returns it alongside
// an idempotency.Backend when the chosen store can double as one.
func buildStore() (store.Store, idempotency.Backend) {
	switch os.Getenv("STORE_BACKEND") {
	case "redis":
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		rs, err := store.NewRedisStore(addr, os.Getenv("REDIS_PASSWORD"), 0)
		if err != nil {
			log.Fatalf("failed to connect to redis at %s: %v", addr, err)
		}
		log.Printf("connected to redis at %s", addr)
		return rs, rs

	case "postgres":
		connString := os.Getenv("DATABASE_URL")
		if connString == "" {
			log.Fatal("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
		ps, err := store.NewPostgresStore(context.Background(), connString)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		log.Println("connected to postgres")
		return ps, nil

	default:
		log.Println("using in-memory store (set STORE_BACKEND=redis|postgres for a durable backend)")
		return store.NewMemoryStore(), nil
	}
}
