package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"nfse-busca/internal/api"
	"nfse-busca/internal/config"
	"nfse-busca/internal/logx"
	"nfse-busca/internal/metrics"
	"nfse-busca/internal/queue"
	"nfse-busca/internal/worker"
)

func main() {
	logx.Init(os.Getenv("LOG_LEVEL"))
	slog.Info("[nfse-busca-worker] iniciando...")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("erro carregando config", "err", err)
		os.Exit(1)
	}
	logx.Init(cfg.LogLevel)

	// inicia métricas Prometheus
	metrics.Init()
	metrics.StartHTTPServer(cfg.MetricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout)

	var consumer queue.Consumer
	if cfg.UseRabbitMQ() {
		rmq, err := queue.NewRabbitMQ(queue.Options{
			URL:        cfg.RabbitMQURL,
			Queue:      cfg.RabbitMQQueue,
			MaxRetries: cfg.RabbitMQMaxRetries,
			Prefetch:   cfg.RabbitMQPrefetch,
		})
		if err != nil {
			slog.Error("erro criando cliente RabbitMQ no worker; caindo para modo polling", "err", err)
		} else {
			defer rmq.Close()
			consumer = rmq
			slog.Info("RabbitMQ habilitado no worker", "queue", cfg.RabbitMQQueue)
		}
	} else {
		slog.Info("fila RabbitMQ desabilitada no worker (NFSE_QUEUE_BACKEND != rabbitmq)")
	}

	w := worker.New(cfg, client, consumer)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker finalizou com erro", "err", err)
		os.Exit(1)
	}

	slog.Info("worker finalizado")
}
