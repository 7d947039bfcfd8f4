package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/caseflow-systems/docingest/internal/metrics"
)

// DLQStream holds dead-lettered jobs for every instance of the service.
var DLQStream = jetstream.StreamConfig{
	Name:     "DOCINGEST_DLQ",
	Subjects: []string{"docingest.dlq.>"},
	MaxAge:   7 * 24 * time.Hour,
	MaxBytes: 256 * 1024 * 1024,
	Storage:  jetstream.FileStorage,
}

// JetStreamQueue writes failed jobs to NATS JetStream for a centralized
// DLQ. Safe for use across multiple service instances.
type JetStreamQueue struct {
	conn    *nats.Conn
	stream  jetstream.Stream
	js      jetstream.JetStream
	written uint64
}

// NewJetStreamQueue connects to NATS and ensures the DLQ stream exists.
func NewJetStreamQueue(ctx context.Context, natsURL string) (*JetStreamQueue, error) {
	conn, err := nats.Connect(natsURL,
		nats.Name("docingest-dlq"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, DLQStream)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create dlq stream: %w", err)
	}

	log.Printf("DLQ: JetStream stream %s ready", DLQStream.Name)

	return &JetStreamQueue{
		conn:   conn,
		stream: stream,
		js:     js,
	}, nil
}

// Write publishes a failed job to the JetStream DLQ.
func (q *JetStreamQueue) Write(ctx context.Context, job *FailedJob, cause error, reason string) error {
	if q == nil {
		return nil
	}

	now := time.Now().UTC()
	job.Timestamp = now
	job.LastAttempt = now
	job.Error = cause.Error()
	job.Reason = reason
	job.Attempts = 1

	data, err := json.Marshal(job)
	if err != nil {
		log.Printf("ERROR: failed to marshal DLQ entry: %v", err)
		return err
	}

	subject := fmt.Sprintf("docingest.dlq.%s", reason)
	if _, err := q.js.Publish(ctx, subject, data); err != nil {
		log.Printf("ERROR: failed to publish DLQ entry: %v", err)
		return err
	}

	atomic.AddUint64(&q.written, 1)
	metrics.DLQWrites.WithLabelValues(reason).Inc()
	log.Printf("DLQ: published failed %s (reason: %s)", job.Kind, reason)

	return nil
}

// Stats returns DLQ metrics from JetStream.
func (q *JetStreamQueue) Stats(ctx context.Context) map[string]interface{} {
	if q == nil {
		return map[string]interface{}{
			"enabled": false,
			"backend": "jetstream",
		}
	}

	info, err := q.stream.Info(ctx)
	if err != nil {
		log.Printf("ERROR: failed to get DLQ stream info: %v", err)
		return map[string]interface{}{
			"enabled":       true,
			"backend":       "jetstream",
			"written_local": atomic.LoadUint64(&q.written),
			"error":         err.Error(),
		}
	}

	return map[string]interface{}{
		"enabled":        true,
		"backend":        "jetstream",
		"written_local":  atomic.LoadUint64(&q.written),
		"total_messages": info.State.Msgs,
		"total_bytes":    info.State.Bytes,
		"first_seq":      info.State.FirstSeq,
		"last_seq":       info.State.LastSeq,
	}
}

// List returns failed jobs from the JetStream DLQ.
func (q *JetStreamQueue) List(ctx context.Context, limit int) ([]FailedJob, error) {
	if q == nil {
		return nil, fmt.Errorf("dlq not enabled")
	}
	if limit <= 0 {
		limit = 100
	}

	consumer, err := q.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject: "docingest.dlq.>",
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		MaxDeliver:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("create list consumer: %w", err)
	}

	msgs, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	var jobs []FailedJob
	for msg := range msgs.Messages() {
		var job FailedJob
		if err := json.Unmarshal(msg.Data(), &job); err != nil {
			log.Printf("WARN: failed to parse DLQ message: %v", err)
			continue
		}
		jobs = append(jobs, job)
	}
	if msgs.Error() != nil {
		log.Printf("WARN: fetch completed with error: %v", msgs.Error())
	}

	return jobs, nil
}

// Close drains the NATS connection.
func (q *JetStreamQueue) Close() {
	if q == nil || q.conn == nil {
		return
	}
	q.conn.Close()
}
