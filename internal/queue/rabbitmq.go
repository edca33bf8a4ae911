package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const retriesHeader = "x-retries"

type Options struct {
	URL   string
	Queue string
	// MaxRetries 0: falha vai direto para a DLQ.
	MaxRetries int
	Prefetch   int
}

type RabbitMQ struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	queueName  string
	confirmCh  <-chan amqp.Confirmation
	maxRetries int
}

func NewRabbitMQ(opts Options) (*RabbitMQ, error) {
	if opts.Prefetch <= 0 {
		opts.Prefetch = 10
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	conn, err := amqp.Dial(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("erro conectando no RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("erro abrindo canal no RabbitMQ: %w", err)
	}

	if err := declareTopology(ch, opts); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	// publisher confirms
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("erro habilitando publisher confirms: %w", err)
	}

	return &RabbitMQ{
		conn:       conn,
		ch:         ch,
		queueName:  opts.Queue,
		confirmCh:  ch.NotifyPublish(make(chan amqp.Confirmation, opts.Prefetch*2)),
		maxRetries: opts.MaxRetries,
	}, nil
}

// declareTopology cria fila principal, DLX e DLQ e aplica o prefetch.
func declareTopology(ch *amqp.Channel, opts Options) error {
	dlxName := opts.Queue + ".dlx"
	dlqName := opts.Queue + ".dlq"

	if err := ch.ExchangeDeclare(dlxName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("erro declarando exchange DLX %q: %w", dlxName, err)
	}
	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("erro declarando fila DLQ %q: %w", dlqName, err)
	}
	if err := ch.QueueBind(dlqName, dlqName, dlxName, false, nil); err != nil {
		return fmt.Errorf("erro bindando DLQ %q no DLX %q: %w", dlqName, dlxName, err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    dlxName,
		"x-dead-letter-routing-key": dlqName,
	}
	if _, err := ch.QueueDeclare(opts.Queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("erro declarando fila %q: %w", opts.Queue, err)
	}

	if err := ch.Qos(opts.Prefetch, 0, false); err != nil {
		return fmt.Errorf("erro configurando QoS (prefetch=%d): %w", opts.Prefetch, err)
	}
	return nil
}

func (r *RabbitMQ) publish(ctx context.Context, body []byte, retries int) error {
	err := r.ch.PublishWithContext(
		ctx,
		"", // exchange padrão
		r.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Headers:      amqp.Table{retriesHeader: int32(retries)},
		},
	)
	if err != nil {
		return fmt.Errorf("erro publicando mensagem no RabbitMQ: %w", err)
	}

	// Espera confirmação do broker
	select {
	case conf := <-r.confirmCh:
		if !conf.Ack {
			return errors.New("mensagem não confirmada pelo broker")
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (r *RabbitMQ) PublishJob(ctx context.Context, job ExportJob) error {
	body, err := encodeJob(job)
	if err != nil {
		return err
	}
	return r.publish(ctx, body, 0)
}

// ConsumeJobs entrega cada job ao handler até ctx ser cancelado.
// Erro do handler reenfileira até MaxRetries e depois manda para a DLQ.
func (r *RabbitMQ) ConsumeJobs(ctx context.Context, handler func(ExportJob) error) error {
	msgs, err := r.ch.Consume(
		r.queueName,
		"",
		false, // autoAck
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("erro iniciando consumo do RabbitMQ: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-msgs:
			if !ok {
				return errors.New("canal de mensagens encerrado")
			}
			r.handle(ctx, msg, handler)
		}
	}
}

func (r *RabbitMQ) handle(ctx context.Context, msg amqp.Delivery, handler func(ExportJob) error) {
	job, err := decodeJob(msg.Body)
	if err != nil {
		slog.Error("job inválido recebido do RabbitMQ, descartando", "err", err)
		_ = msg.Nack(false, false)
		return
	}

	herr := handler(job)
	if herr == nil {
		_ = msg.Ack(false)
		return
	}

	retries := extractRetries(msg.Headers)
	switch nextAction(retries, r.maxRetries) {
	case actionRetry:
		slog.Warn("erro processando job, reenfileirando",
			"job_id", job.ID,
			"filename", job.Filename,
			"retries", retries,
			"max_retries", r.maxRetries,
			"err", herr,
		)
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if perr := r.publish(pubCtx, msg.Body, retries+1); perr != nil {
			slog.Error("falha ao reenfileirar job", "job_id", job.ID, "err", perr)
		}
		cancel()
		_ = msg.Ack(false)
	default:
		slog.Error("erro processando job, enviando para DLQ",
			"job_id", job.ID,
			"filename", job.Filename,
			"retries", retries,
			"max_retries", r.maxRetries,
			"err", herr,
		)
		// Nack sem requeue → vai pro DLQ por causa do DLX
		_ = msg.Nack(false, false)
	}
}

func (r *RabbitMQ) Close() error {
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func extractRetries(h amqp.Table) int {
	v, ok := h[retriesHeader]
	if !ok {
		return 0
	}

	switch t := v.(type) {
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float32:
		return int(t)
	case float64:
		return int(t)
	default:
		return 0
	}
}
