package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nfse-busca/internal/config"
	"nfse-busca/internal/dates"
	"nfse-busca/internal/export"
	"nfse-busca/internal/filter"
	"nfse-busca/internal/metrics"
	"nfse-busca/internal/queue"
)

// Exporter é a parte do cliente da API usada pelo worker.
type Exporter interface {
	ExportAll(ctx context.Context, params filter.Params) ([]byte, error)
}

// Worker executa as exportações dos filtros que estão em processing.
type Worker struct {
	cfg      *config.Config
	client   Exporter
	interval time.Duration
	clock    func() time.Time

	consumer queue.Consumer
}

// New cria o worker. consumer nil: modo polling do diretório de processing.
func New(cfg *config.Config, client Exporter, consumer queue.Consumer) *Worker {
	return &Worker{
		cfg:      cfg,
		client:   client,
		interval: 2 * time.Second,
		clock:    time.Now,
		consumer: consumer,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	// garante diretórios
	dirs := []string{
		w.cfg.ProcessingDir,
		w.cfg.ProcessedDir,
		w.cfg.FailedDir,
		w.cfg.ExportDir,
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}

	if w.consumer != nil {
		slog.Info("worker rodando em modo fila (RabbitMQ)",
			"processing_dir", w.cfg.ProcessingDir,
			"export_dir", w.cfg.ExportDir,
		)
		return w.consumer.ConsumeJobs(ctx, func(job queue.ExportJob) error {
			return w.handleJob(ctx, job)
		})
	}

	slog.Info("worker rodando em modo polling de diretório",
		"processing_dir", w.cfg.ProcessingDir,
		"export_dir", w.cfg.ExportDir,
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("contexto cancelado, encerrando worker")
			return ctx.Err()
		case <-ticker.C:
			w.processProcessingFolder(ctx)
		}
	}
}

// ----------------------------------------------------------------------
// MODO FILA (RabbitMQ)
// ----------------------------------------------------------------------

// handleJob devolve erro só para falhas de exportação, que a fila reenfileira
// ou manda para a DLQ. Nesse caso o filtro continua em processing.
func (w *Worker) handleJob(ctx context.Context, job queue.ExportJob) error {
	info, err := os.Stat(job.Path)
	if err != nil {
		slog.Warn("arquivo do job não está acessível, ignorando",
			"job_id", job.ID,
			"path", job.Path,
			"err", err,
		)
		return nil
	}
	if info.IsDir() {
		return nil
	}

	_, err = w.exportFile(ctx, job.Path)
	if err == nil {
		w.moveTo(job.Path, w.cfg.ProcessedDir)
		return nil
	}

	var invalid *invalidFilterError
	if errors.As(err, &invalid) {
		w.moveTo(job.Path, w.cfg.FailedDir)
		return nil
	}
	return err
}

// ----------------------------------------------------------------------
// MODO POLLING
// ----------------------------------------------------------------------

func (w *Worker) processProcessingFolder(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.ProcessingDir)
	if err != nil {
		slog.Error("erro lendo diretório processing", "dir", w.cfg.ProcessingDir, "err", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		w.handleProcessingFile(ctx, filepath.Join(w.cfg.ProcessingDir, entry.Name()))
	}
}

// No polling não há reentrega: qualquer falha vai para failed.
func (w *Worker) handleProcessingFile(ctx context.Context, path string) {
	if _, err := w.exportFile(ctx, path); err != nil {
		w.moveTo(path, w.cfg.FailedDir)
		return
	}
	w.moveTo(path, w.cfg.ProcessedDir)
}

// ----------------------------------------------------------------------
// Exportação
// ----------------------------------------------------------------------

type invalidFilterError struct {
	err error
}

func (e *invalidFilterError) Error() string { return "filtro inválido: " + e.err.Error() }
func (e *invalidFilterError) Unwrap() error { return e.err }

// exportFile lê o filtro, baixa a planilha de todas as notas e grava em ExportDir.
func (w *Worker) exportFile(ctx context.Context, path string) (string, error) {
	start := time.Now()
	status := "exported"
	defer func() {
		metrics.ObserveFilterFile(status)
	}()

	now := w.clock().In(w.cfg.Location)

	criteria, err := readCriteria(path, now)
	if err != nil {
		status = "invalid"
		slog.Error("filtro inválido em processing", "path", path, "err", err)
		return "", &invalidFilterError{err: err}
	}

	params, err := filter.SerializeExport(criteria, w.cfg.Location)
	if err != nil {
		status = "invalid"
		return "", &invalidFilterError{err: err}
	}

	data, err := w.client.ExportAll(ctx, params)
	if err != nil {
		status = "export_error"
		slog.Error("erro exportando NFSe", "path", path, "err", err)
		return "", err
	}

	summary, err := export.Inspect(data)
	if err != nil {
		status = "export_error"
		slog.Error("resposta da exportação não é planilha", "path", path, "err", err)
		return "", err
	}

	startDate, _ := dates.Normalize(criteria.Start, w.cfg.Location)
	dest, err := export.Save(w.cfg.ExportDir, export.FileNameAll(startDate, now), data)
	if err != nil {
		status = "export_error"
		slog.Error("erro gravando planilha", "path", path, "err", err)
		return "", err
	}

	slog.Info("exportação concluída",
		"filtro", path,
		"planilha", dest,
		"linhas", summary.DataRows(),
		"duracao", time.Since(start).String(),
	)
	return dest, nil
}

func readCriteria(path string, now time.Time) (filter.Criteria, error) {
	f, err := os.Open(path)
	if err != nil {
		return filter.Criteria{}, fmt.Errorf("erro abrindo filtro: %w", err)
	}
	defer f.Close()
	return filter.DecodeCriteria(f, now)
}

func (w *Worker) moveTo(srcPath, dir string) {
	destPath := filepath.Join(dir, filepath.Base(srcPath))
	if err := os.Rename(srcPath, destPath); err != nil {
		slog.Error("erro movendo arquivo de filtro",
			"src", srcPath,
			"dest", destPath,
			"err", err,
		)
		return
	}
	slog.Info("arquivo de filtro movido",
		"src", srcPath,
		"dest", destPath,
	)
}
