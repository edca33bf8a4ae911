package queue

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestNewExportJob(t *testing.T) {
	now := time.Date(2024, 6, 20, 10, 0, 0, 0, time.UTC)
	job := NewExportJob("/srv/processing/filtro.json", now)
	if job.ID == "" || job.Filename != "filtro.json" || !job.EnqueuedAt.Equal(now) {
		t.Fatalf("unexpected job: %+v", job)
	}
	other := NewExportJob("/srv/processing/filtro.json", now)
	if other.ID == job.ID {
		t.Fatalf("job ids must be unique")
	}
}

func TestJobEncoding(t *testing.T) {
	job := NewExportJob("/srv/processing/a.json", time.Now())
	body, err := encodeJob(job)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeJob(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != job.ID || got.Path != job.Path {
		t.Fatalf("unexpected job: %+v", got)
	}

	if _, err := decodeJob([]byte(`{"id":"x"}`)); err == nil {
		t.Fatalf("job without path should be rejected")
	}
	if _, err := decodeJob([]byte(`nope`)); err == nil {
		t.Fatalf("malformed body should be rejected")
	}
}

func TestNextAction(t *testing.T) {
	if nextAction(0, 0) != actionDeadLetter {
		t.Fatalf("without retries a failure goes straight to the DLQ")
	}
	if nextAction(0, 2) != actionRetry || nextAction(1, 2) != actionRetry {
		t.Fatalf("expected retry below the limit")
	}
	if nextAction(2, 2) != actionDeadLetter {
		t.Fatalf("expected dead letter at the limit")
	}
}

func TestExtractRetries(t *testing.T) {
	cases := []struct {
		headers amqp.Table
		want    int
	}{
		{nil, 0},
		{amqp.Table{}, 0},
		{amqp.Table{retriesHeader: int32(2)}, 2},
		{amqp.Table{retriesHeader: int64(3)}, 3},
		{amqp.Table{retriesHeader: float64(1)}, 1},
		{amqp.Table{retriesHeader: "4"}, 0},
	}
	for _, c := range cases {
		if got := extractRetries(c.headers); got != c.want {
			t.Fatalf("extractRetries(%v) = %d, want %d", c.headers, got, c.want)
		}
	}
}
