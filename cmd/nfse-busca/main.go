package main

import (
	"fmt"
	"os"

	"nfse-busca/internal/api"
	"nfse-busca/internal/cli"
	"nfse-busca/internal/config"
	"nfse-busca/internal/logx"
	"nfse-busca/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "erro carregando config: %v\n", err)
		os.Exit(1)
	}

	logx.InitWriter(os.Stderr, cfg.LogLevel)

	metrics.Init()
	metrics.StartHTTPServer(cfg.MetricsAddr)

	app := &cli.App{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Config: cfg,
		Client: api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout),
	}
	os.Exit(app.Run(os.Args[1:]))
}
