// Package dlq keeps a record of work the pipeline gave up on: documents
// that could not be transferred and analyses that failed for good. Entries
// land either in a local spool directory or in a NATS JetStream stream
// shared across instances.
package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/caseflow-systems/docingest/internal/metrics"
)

// FailedJob is one dead-lettered unit of work.
type FailedJob struct {
	Timestamp   time.Time       `json:"timestamp"`
	Kind        string          `json:"kind"`
	CaseID      string          `json:"case_id"`
	Document    string          `json:"document,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Error       string          `json:"error"`
	Reason      string          `json:"reason"`
	Attempts    int             `json:"attempts"`
	LastAttempt time.Time       `json:"last_attempt"`
}

// Writer records failed jobs. Implementations tolerate a nil receiver so
// callers can write unconditionally whether or not the DLQ is enabled.
type Writer interface {
	Write(ctx context.Context, job *FailedJob, cause error, reason string) error
	Stats(ctx context.Context) map[string]interface{}
	List(ctx context.Context, limit int) ([]FailedJob, error)
}

const defaultPath = "/var/lib/docingest/dlq"

// Queue is the file-backed DLQ: one JSON file per failed job.
type Queue struct {
	path    string
	written uint64
}

// NewQueue creates a file-backed DLQ rooted at path.
func NewQueue(path string) (*Queue, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create dlq directory: %w", err)
	}
	return &Queue{path: path}, nil
}

// Write records a failed job as a JSON file in the spool directory.
func (q *Queue) Write(_ context.Context, job *FailedJob, cause error, reason string) error {
	if q == nil {
		return nil
	}

	now := time.Now().UTC()
	job.Timestamp = now
	job.LastAttempt = now
	job.Error = cause.Error()
	job.Reason = reason
	job.Attempts = 1

	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		log.Printf("ERROR: failed to marshal DLQ entry: %v", err)
		return err
	}

	filename := fmt.Sprintf("%d-%s.json", now.UnixNano(), reason)
	if err := os.WriteFile(filepath.Join(q.path, filename), data, 0o644); err != nil {
		log.Printf("ERROR: failed to write DLQ entry: %v", err)
		return err
	}

	atomic.AddUint64(&q.written, 1)
	metrics.DLQWrites.WithLabelValues(reason).Inc()
	log.Printf("DLQ: recorded failed %s (reason: %s)", job.Kind, reason)

	return nil
}

// Stats returns DLQ counters and the on-disk entry count.
func (q *Queue) Stats(_ context.Context) map[string]interface{} {
	if q == nil {
		return map[string]interface{}{
			"enabled": false,
			"backend": "file",
		}
	}

	entries, err := os.ReadDir(q.path)
	if err != nil {
		return map[string]interface{}{
			"enabled":       true,
			"backend":       "file",
			"written_local": atomic.LoadUint64(&q.written),
			"error":         err.Error(),
		}
	}

	return map[string]interface{}{
		"enabled":       true,
		"backend":       "file",
		"written_local": atomic.LoadUint64(&q.written),
		"total_entries": len(entries),
		"path":          q.path,
	}
}

// List returns up to limit dead-lettered jobs, oldest first.
func (q *Queue) List(_ context.Context, limit int) ([]FailedJob, error) {
	if q == nil {
		return nil, fmt.Errorf("dlq not enabled")
	}
	if limit <= 0 {
		limit = 100
	}

	entries, err := os.ReadDir(q.path)
	if err != nil {
		return nil, fmt.Errorf("read dlq directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	// Filenames start with a nanosecond timestamp, so lexical order is
	// chronological order.
	sort.Strings(names)

	var jobs []FailedJob
	for _, name := range names {
		if len(jobs) >= limit {
			break
		}
		data, err := os.ReadFile(filepath.Join(q.path, name))
		if err != nil {
			log.Printf("WARN: failed to read DLQ entry %s: %v", name, err)
			continue
		}
		var job FailedJob
		if err := json.Unmarshal(data, &job); err != nil {
			log.Printf("WARN: failed to parse DLQ entry %s: %v", name, err)
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}
