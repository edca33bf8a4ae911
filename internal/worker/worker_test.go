package worker

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nfse-busca/internal/api"
	"nfse-busca/internal/config"
	"nfse-busca/internal/export"
	"nfse-busca/internal/filter"
	"nfse-busca/internal/queue"
)

var brt = time.FixedZone("BRT", -3*60*60)

type exporterFunc func(ctx context.Context, params filter.Params) ([]byte, error)

func (f exporterFunc) ExportAll(ctx context.Context, params filter.Params) ([]byte, error) {
	return f(ctx, params)
}

func spreadsheet(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := export.WriteRecords(&buf, []api.Record{{ID: "1"}, {ID: "2"}}, brt); err != nil {
		t.Fatalf("build spreadsheet: %v", err)
	}
	return buf.Bytes()
}

func newTestWorker(t *testing.T, client Exporter) *Worker {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		Location:      brt,
		ExportDir:     filepath.Join(root, "exports"),
		ProcessingDir: filepath.Join(root, "processing"),
		ProcessedDir:  filepath.Join(root, "processed"),
		FailedDir:     filepath.Join(root, "failed"),
	}
	for _, d := range []string{cfg.ProcessingDir, cfg.ProcessedDir, cfg.FailedDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	w := New(cfg, client, nil)
	w.clock = func() time.Time { return time.Date(2024, 6, 20, 12, 0, 0, 0, brt) }
	return w
}

func writeFilter(t *testing.T, w *Worker, name, content string) string {
	t.Helper()
	path := filepath.Join(w.cfg.ProcessingDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestHandleJobExports(t *testing.T) {
	data := spreadsheet(t)
	var got filter.Params
	w := newTestWorker(t, exporterFunc(func(_ context.Context, params filter.Params) ([]byte, error) {
		got = params
		return data, nil
	}))
	path := writeFilter(t, w, "junho.json", `{"initialDate":"2024-06-01","finalDate":"2024-06-19","cnpj_prestador":"12.345.678/0001-90","status":"Todos"}`)

	if err := w.handleJob(context.Background(), queue.NewExportJob(path, time.Now())); err != nil {
		t.Fatalf("handle job: %v", err)
	}
	if got.Get("initialDate") != "2024-06-01T03:00:00.000Z" || got.Get("cnpj_prestador") != "12345678000190" || got.Get("status") != "" {
		t.Fatalf("unexpected params: %s", got.Encode())
	}
	if !exists(filepath.Join(w.cfg.ProcessedDir, "junho.json")) {
		t.Fatalf("filter should be in processed")
	}

	entries, err := os.ReadDir(w.cfg.ExportDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one spreadsheet, got %v (%v)", entries, err)
	}
	if !strings.HasPrefix(entries[0].Name(), "2024-06-01-") {
		t.Fatalf("unexpected spreadsheet name: %s", entries[0].Name())
	}
}

func TestHandleJobInvalidFilter(t *testing.T) {
	w := newTestWorker(t, exporterFunc(func(context.Context, filter.Params) ([]byte, error) {
		t.Fatalf("invalid filter must not be exported")
		return nil, nil
	}))
	path := writeFilter(t, w, "largo.json", `{"initialDate":"2024-01-01","finalDate":"2024-06-19"}`)

	if err := w.handleJob(context.Background(), queue.NewExportJob(path, time.Now())); err != nil {
		t.Fatalf("invalid filter should not be redelivered: %v", err)
	}
	if !exists(filepath.Join(w.cfg.FailedDir, "largo.json")) {
		t.Fatalf("filter should be in failed")
	}
}

func TestHandleJobExportErrorIsReturned(t *testing.T) {
	boom := &api.NetworkError{Kind: api.KindExportAll, Status: 503}
	w := newTestWorker(t, exporterFunc(func(context.Context, filter.Params) ([]byte, error) {
		return nil, boom
	}))
	path := writeFilter(t, w, "a.json", `{}`)

	err := w.handleJob(context.Background(), queue.NewExportJob(path, time.Now()))
	if !errors.Is(err, api.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if !exists(path) {
		t.Fatalf("filter should stay in processing for redelivery")
	}
}

func TestHandleJobMissingFile(t *testing.T) {
	w := newTestWorker(t, exporterFunc(func(context.Context, filter.Params) ([]byte, error) {
		t.Fatalf("nothing to export")
		return nil, nil
	}))
	job := queue.NewExportJob(filepath.Join(w.cfg.ProcessingDir, "sumiu.json"), time.Now())
	if err := w.handleJob(context.Background(), job); err != nil {
		t.Fatalf("missing file should be acked: %v", err)
	}
}

func TestPollingMovesFailuresToFailed(t *testing.T) {
	data := spreadsheet(t)
	w := newTestWorker(t, exporterFunc(func(_ context.Context, params filter.Params) ([]byte, error) {
		if params.Get("municipio") == "Erro" {
			return []byte("<html>"), nil
		}
		return data, nil
	}))
	writeFilter(t, w, "ok.json", `{"municipio":"Curitiba"}`)
	writeFilter(t, w, "ruim.json", `{"municipio":"Erro"}`)
	writeFilter(t, w, "leia.txt", "não é filtro")

	w.processProcessingFolder(context.Background())

	if !exists(filepath.Join(w.cfg.ProcessedDir, "ok.json")) {
		t.Fatalf("ok.json should be in processed")
	}
	if !exists(filepath.Join(w.cfg.FailedDir, "ruim.json")) {
		t.Fatalf("ruim.json should be in failed")
	}
	if !exists(filepath.Join(w.cfg.ProcessingDir, "leia.txt")) {
		t.Fatalf("non-json files are left alone")
	}
}
