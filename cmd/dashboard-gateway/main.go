package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/mykaresto/engine/internal/gateway"
	"github.com/mykaresto/engine/pkg/idempotency"
	"github.com/mykaresto/engine/pkg/logging"
	"github.com/mykaresto/engine/pkg/shutdown"
)

func main() {
	log := logging.New("dashboard-gateway")

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	kafkaBrokers := []string{env("KAFKA_ADDR", "localhost:9092")}
	redisAddr := env("REDIS_ADDR", "localhost:6379")
	httpAddr := env("HTTP_ADDR", ":8081")
	topic := env("OUTBOX_TOPIC", "lifecycle.events")
	group := env("CONSUMER_GROUP", "dashboard-gateway")

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()
	idem := idempotency.NewStore(rdb, 24*time.Hour)

	hub := gateway.NewHub(log)
	consumer := gateway.NewConsumer(log, kafkaBrokers, topic, group, hub, idem)

	r := chi.NewRouter()
	r.Get("/ws", hub.HandleWebSocket)
	srv := &http.Server{
		Addr:        httpAddr,
		Handler:     r,
		ReadTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		err := consumer.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info("ws listening", "addr", httpAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("dashboard-gateway stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("dashboard-gateway shutdown complete")
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
