package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"nfse-busca/internal/config"
	"nfse-busca/internal/logx"
	"nfse-busca/internal/metrics"
	"nfse-busca/internal/queue"
	"nfse-busca/internal/watcher"
)

func main() {
	logx.Init(os.Getenv("LOG_LEVEL"))
	slog.Info("[nfse-busca-watcher] iniciando...")

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

	var pub queue.Publisher
	if cfg.UseRabbitMQ() {
		rmq, err := queue.NewRabbitMQ(queue.Options{
			URL:        cfg.RabbitMQURL,
			Queue:      cfg.RabbitMQQueue,
			MaxRetries: cfg.RabbitMQMaxRetries,
			Prefetch:   cfg.RabbitMQPrefetch,
		})
		if err != nil {
			slog.Error("erro conectando no RabbitMQ", "err", err)
			os.Exit(1)
		}
		defer rmq.Close()
		pub = rmq
		slog.Info("RabbitMQ habilitado no watcher", "queue", cfg.RabbitMQQueue)
	} else {
		slog.Info("fila RabbitMQ desabilitada no watcher (NFSE_QUEUE_BACKEND != rabbitmq)")
	}

	w, err := watcher.New(cfg, pub)
	if err != nil {
		slog.Error("erro criando watcher", "err", err)
		os.Exit(1)
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("watcher finalizou com erro", "err", err)
		os.Exit(1)
	}

	slog.Info("[nfse-busca-watcher] finalizado")
}
