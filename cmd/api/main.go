package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	api "todoweb/internal/adapter/http"
	"todoweb/internal/shared"
)

func main() {
	ctx := context.Background()

	config := shared.LoadConfig()

	logger, err := shared.NewAppLogger("todoweb", os.Getenv("LOKI_URL"))

	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	defer logger.Sync()

	otlpEndpoint := os.Getenv("OTLP_ENDPOINT")

	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	telemetry, err := shared.InitTelemetry(shared.TelemetryConfig{
		ServiceName:    "todoweb",
		ServiceVersion: "1.0.0",
		Environment:    config.Environment,
		MetricsPort:    "9091",
		OTLPEndpoint:   otlpEndpoint,
	})

	if err != nil {
		log.Fatal("Failed to initialize telemetry:", err)
	}

	defer telemetry.Shutdown(ctx)

	metrics := shared.NewAppMetrics(telemetry.PrometheusRegistry)
	metrics.StartSystemMetrics(ctx)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if os.Getenv("GIN_MODE") == "release" {
			config.Environment = "production"
			config.EnforceHTTPS = true
		}

		api.StartServerWithConfig(metrics, logger, config)
	}()

	<-c
	logger.Logger.Info("Shutting down gracefully...")
}
