package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nfse-busca/internal/config"
	"nfse-busca/internal/queue"
)

var brt = time.FixedZone("BRT", -3*60*60)

type fakePublisher struct {
	jobs []queue.ExportJob
	err  error
}

func (p *fakePublisher) PublishJob(_ context.Context, job queue.ExportJob) error {
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

func newTestWatcher(t *testing.T, pub queue.Publisher) *Watcher {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		Location:      brt,
		IncomingDir:   filepath.Join(root, "incoming"),
		ProcessingDir: filepath.Join(root, "processing"),
		FailedDir:     filepath.Join(root, "failed"),
		IgnoredDir:    filepath.Join(root, "ignored"),
	}
	for _, d := range []string{cfg.IncomingDir, cfg.ProcessingDir, cfg.FailedDir, cfg.IgnoredDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	w, err := New(cfg, pub)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	t.Cleanup(func() { w.watcher.Close() })
	w.clock = func() time.Time { return time.Date(2024, 6, 20, 12, 0, 0, 0, brt) }
	w.stableDelay = time.Millisecond
	return w
}

func drop(t *testing.T, w *Watcher, name, content string) string {
	t.Helper()
	path := filepath.Join(w.cfg.IncomingDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestTriageValidFilterIsQueued(t *testing.T) {
	pub := &fakePublisher{}
	w := newTestWatcher(t, pub)
	path := drop(t, w, "junho.json", `{"initialDate":"2024-06-01","finalDate":"2024-06-19"}`)

	if got := w.handleIncomingFile(context.Background(), path); got != OutcomeQueued {
		t.Fatalf("expected queued, got %s", got)
	}
	dest := filepath.Join(w.cfg.ProcessingDir, "junho.json")
	if !exists(dest) || exists(path) {
		t.Fatalf("file should have moved to processing")
	}
	if len(pub.jobs) != 1 || pub.jobs[0].Path != dest || pub.jobs[0].Filename != "junho.json" {
		t.Fatalf("unexpected jobs: %+v", pub.jobs)
	}
}

func TestTriageWithoutQueue(t *testing.T) {
	w := newTestWatcher(t, nil)
	path := drop(t, w, "hoje.json", `{}`)

	if got := w.handleIncomingFile(context.Background(), path); got != OutcomeAccepted {
		t.Fatalf("expected accepted, got %s", got)
	}
	if !exists(filepath.Join(w.cfg.ProcessingDir, "hoje.json")) {
		t.Fatalf("file should be in processing")
	}
}

func TestTriagePublishFailureKeepsFileInProcessing(t *testing.T) {
	w := newTestWatcher(t, &fakePublisher{err: errors.New("broker fora")})
	path := drop(t, w, "a.json", `{}`)

	if got := w.handleIncomingFile(context.Background(), path); got != OutcomeAccepted {
		t.Fatalf("expected accepted, got %s", got)
	}
	if !exists(filepath.Join(w.cfg.ProcessingDir, "a.json")) {
		t.Fatalf("file should stay in processing")
	}
}

func TestTriageInvalidFilter(t *testing.T) {
	pub := &fakePublisher{}
	w := newTestWatcher(t, pub)

	cases := []struct {
		name    string
		content string
	}{
		{"largo.json", `{"initialDate":"2024-01-01","finalDate":"2024-06-19"}`},
		{"quebrado.json", `{"initialDate":`},
		{"futuro.json", `{"initialDate":"2024-06-21","finalDate":"2024-06-22"}`},
	}
	for _, c := range cases {
		path := drop(t, w, c.name, c.content)
		if got := w.handleIncomingFile(context.Background(), path); got != OutcomeInvalid {
			t.Fatalf("%s: expected invalid, got %s", c.name, got)
		}
		if !exists(filepath.Join(w.cfg.FailedDir, c.name)) {
			t.Fatalf("%s should be in failed", c.name)
		}
	}
	if len(pub.jobs) != 0 {
		t.Fatalf("invalid filters must not be queued")
	}
}

func TestTriageOtherFiles(t *testing.T) {
	w := newTestWatcher(t, nil)

	txt := drop(t, w, "notas.txt", "x")
	if got := w.handleIncomingFile(context.Background(), txt); got != OutcomeIgnored {
		t.Fatalf("expected ignored, got %s", got)
	}
	if !exists(filepath.Join(w.cfg.IgnoredDir, "notas.txt")) {
		t.Fatalf("txt should be in ignored")
	}

	zone := drop(t, w, "hoje.json:Zone.Identifier", "[ZoneTransfer]")
	if got := w.handleIncomingFile(context.Background(), zone); got != OutcomeRemoved {
		t.Fatalf("expected removed, got %s", got)
	}
	if exists(zone) {
		t.Fatalf("zone identifier should be deleted")
	}

	empty := drop(t, w, "vazio.json", "")
	if got := w.handleIncomingFile(context.Background(), empty); got != OutcomeUnstable {
		t.Fatalf("expected unstable for empty file, got %s", got)
	}
	if !exists(empty) {
		t.Fatalf("unstable file should stay in incoming")
	}
}
