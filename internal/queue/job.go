package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ExportJob pede ao worker a exportação de um arquivo de filtro
// que já está no diretório de processamento.
type ExportJob struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Filename   string    `json:"filename"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func NewExportJob(path string, now time.Time) ExportJob {
	return ExportJob{
		ID:         uuid.NewString(),
		Path:       path,
		Filename:   filepath.Base(path),
		EnqueuedAt: now,
	}
}

// Publisher é usado pelo watcher; Consumer pelo worker.
type Publisher interface {
	PublishJob(ctx context.Context, job ExportJob) error
}

type Consumer interface {
	ConsumeJobs(ctx context.Context, handler func(ExportJob) error) error
}

func encodeJob(job ExportJob) ([]byte, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("erro serializando job: %w", err)
	}
	return body, nil
}

func decodeJob(body []byte) (ExportJob, error) {
	var job ExportJob
	if err := json.Unmarshal(body, &job); err != nil {
		return ExportJob{}, fmt.Errorf("erro de unmarshal de job: %w", err)
	}
	if job.Path == "" {
		return ExportJob{}, fmt.Errorf("job %q sem caminho do arquivo de filtro", job.ID)
	}
	return job, nil
}

type action int

const (
	actionRetry action = iota
	actionDeadLetter
)

// nextAction decide o destino de uma mensagem cujo handler falhou.
func nextAction(retries, maxRetries int) action {
	if retries < maxRetries {
		return actionRetry
	}
	return actionDeadLetter
}
