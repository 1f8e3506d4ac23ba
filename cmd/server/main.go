// Command server runs the drakon matching engine behind an HTTP + websocket
// collaborator surface: order submission, cancellation, BBO/depth queries,
// a trade/market-data stream, and a Prometheus metrics endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tomb "gopkg.in/tomb.v2"

	"drakon/internal/api"
	"drakon/internal/engine"
	"drakon/internal/logging"
	"drakon/internal/metrics"
	"drakon/internal/server"
	"drakon/internal/stream"
)

func main() {
	var (
		httpAddr    = flag.String("http-addr", "0.0.0.0:8080", "address to serve the HTTP/websocket API on")
		metricsPort = flag.Int("metrics-port", 9090, "port to serve Prometheus metrics on")
		serviceName = flag.String("service-name", "matching_engine", "metrics subsystem name")
		debug       = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	logger := logging.New(*debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	m := metrics.New(*serviceName)
	if err := m.Register(logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to register metrics")
	}
	if err := metrics.StartHTTPServer(*metricsPort, "/metrics", logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to start metrics server")
	}

	eng := engine.New(logger, m)
	hub := stream.NewHub(logger, m)
	hub.RegisterListeners(eng)

	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": *serviceName})
	})
	api.NewHandler(eng, m).RegisterRoutes(router)
	hub.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:         *httpAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	sup := server.NewSupervisor(logger)
	sup.Go("http", server.HTTPComponent(httpServer, 10*time.Second))
	sup.Go("stream-hub", func(t *tomb.Tomb) error {
		hub.Run(t.Dying())
		return nil
	})

	go func() {
		<-ctx.Done()
		sup.Kill(nil)
	}()

	if err := sup.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
	logger.Info().Msg(fmt.Sprintf("%s stopped", *serviceName))
}
