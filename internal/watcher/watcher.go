package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"nfse-busca/internal/config"
	"nfse-busca/internal/filter"
	"nfse-busca/internal/metrics"
	"nfse-busca/internal/queue"
)

// Resultado da triagem de um arquivo em incoming (também é o label da métrica).
const (
	OutcomeAccepted = "accepted"
	OutcomeQueued   = "queued"
	OutcomeInvalid  = "invalid"
	OutcomeIgnored  = "ignored"
	OutcomeRemoved  = "removed"
	OutcomeUnstable = "unstable"
)

// Watcher faz a triagem dos arquivos de filtro que caem no diretório de entrada.
type Watcher struct {
	cfg     *config.Config
	watcher *fsnotify.Watcher
	clock   func() time.Time

	stableAttempts int
	stableDelay    time.Duration

	pub queue.Publisher
}

// New cria o watcher. pub nil: os filtros válidos só vão para processing
// e o worker em modo polling os encontra lá.
func New(cfg *config.Config, pub queue.Publisher) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		cfg:            cfg,
		watcher:        w,
		clock:          time.Now,
		stableAttempts: 5,
		stableDelay:    200 * time.Millisecond,
		pub:            pub,
	}, nil
}

func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	// Garante diretórios
	dirs := []string{
		w.cfg.IncomingDir,
		w.cfg.ProcessingDir,
		w.cfg.FailedDir,
		w.cfg.IgnoredDir,
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}

	slog.Info("processando filtros já existentes em incoming",
		"incoming_dir", w.cfg.IncomingDir,
	)
	w.processExistingFiles(ctx)

	if err := w.watcher.Add(w.cfg.IncomingDir); err != nil {
		return err
	}

	slog.Info("watching diretório de entrada",
		"incoming_dir", w.cfg.IncomingDir,
		"fila", w.pub != nil,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("contexto cancelado, encerrando watcher")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("erro no watcher", "err", err)
		}
	}
}

func (w *Watcher) processExistingFiles(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.IncomingDir)
	if err != nil {
		slog.Error("erro lendo diretório incoming",
			"dir", w.cfg.IncomingDir,
			"err", err,
		)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.handleIncomingFile(ctx, filepath.Join(w.cfg.IncomingDir, entry.Name()))
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Chmod) == 0 {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Debug("arquivo não está mais acessível em evento, ignorando",
				"path", event.Name,
				"err", err,
			)
		}
		return
	}
	if info.IsDir() {
		return
	}

	w.handleIncomingFile(ctx, event.Name)
}

// handleIncomingFile classifica e move o arquivo; devolve o resultado da triagem.
func (w *Watcher) handleIncomingFile(ctx context.Context, path string) string {
	outcome := w.triage(ctx, path)
	if outcome != OutcomeUnstable {
		metrics.ObserveFilterFile(outcome)
	}
	return outcome
}

func (w *Watcher) triage(ctx context.Context, path string) string {
	filename := filepath.Base(path)

	if isZoneIdentifier(filename) {
		slog.Info("arquivo de metadata (Zone.Identifier) detectado; removendo", "path", path)
		if err := os.Remove(path); err != nil {
			slog.Warn("falha ao remover arquivo de metadata", "path", path, "err", err)
		}
		return OutcomeRemoved
	}

	if strings.ToLower(filepath.Ext(filename)) != ".json" {
		w.move(path, w.cfg.IgnoredDir)
		return OutcomeIgnored
	}

	if !w.waitFileStable(path) {
		slog.Warn("arquivo não estabilizou, ignorando por enquanto", "path", path)
		return OutcomeUnstable
	}

	if err := w.validate(path); err != nil {
		slog.Warn("filtro inválido, movendo para failed",
			"path", path,
			"err", err,
		)
		w.move(path, w.cfg.FailedDir)
		return OutcomeInvalid
	}

	dest, ok := w.move(path, w.cfg.ProcessingDir)
	if !ok || w.pub == nil {
		return OutcomeAccepted
	}

	job := queue.NewExportJob(dest, w.clock())
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := w.pub.PublishJob(pubCtx, job); err != nil {
		slog.Error("erro publicando job no RabbitMQ",
			"path", dest,
			"job_id", job.ID,
			"err", err,
		)
		return OutcomeAccepted
	}
	slog.Info("job de exportação publicado", "path", dest, "job_id", job.ID)
	return OutcomeQueued
}

func (w *Watcher) validate(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	now := w.clock().In(w.cfg.Location)
	_, err = filter.DecodeCriteria(f, now)
	return err
}

func (w *Watcher) waitFileStable(path string) bool {
	var lastSize int64 = -1

	for i := 0; i < w.stableAttempts; i++ {
		info, err := os.Stat(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				slog.Debug("erro ao stat arquivo durante espera de estabilidade",
					"path", path,
					"err", err,
				)
			}
			return false
		}

		size := info.Size()
		if size > 0 && size == lastSize {
			return true
		}

		lastSize = size
		time.Sleep(w.stableDelay)
	}

	return false
}

func (w *Watcher) move(srcPath, dir string) (string, bool) {
	destPath := filepath.Join(dir, filepath.Base(srcPath))
	if err := os.Rename(srcPath, destPath); err != nil {
		slog.Error("erro movendo arquivo de incoming",
			"src", srcPath,
			"dest", destPath,
			"err", err,
		)
		return "", false
	}
	slog.Info("arquivo movido de incoming",
		"src", srcPath,
		"dest", destPath,
	)
	return destPath, true
}

func isZoneIdentifier(name string) bool {
	return strings.Contains(strings.ToLower(name), "zone.identifier")
}
