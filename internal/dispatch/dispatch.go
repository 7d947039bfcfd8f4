// Package dispatch runs background jobs behind a bounded queue. Webhook
// handlers answer immediately; the slow work (document transfers, analysis
// invocations) goes through here. A full queue rejects the job rather than
// blocking the caller.
package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/caseflow-systems/docingest/internal/logging"
	"github.com/caseflow-systems/docingest/internal/metrics"
)

var ErrQueueFull = errors.New("dispatch queue full")

// Job is one unit of deferred work. Kind labels it in logs and metrics.
type Job struct {
	Kind string
	Run  func(ctx context.Context)
}

type Dispatcher struct {
	jobQueue chan Job
	stopChan chan struct{}
	wg       sync.WaitGroup
	logger   *logging.Logger
}

func New(queueSize, workers int, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}

	d := &Dispatcher{
		jobQueue: make(chan Job, queueSize),
		stopChan: make(chan struct{}),
		logger:   logger,
	}
	metrics.QueueCapacity.Set(float64(queueSize))

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.processJobs()
	}

	return d
}

// Enqueue queues a job without blocking. Returns ErrQueueFull when the
// queue has no room.
func (d *Dispatcher) Enqueue(job Job) error {
	select {
	case d.jobQueue <- job:
		metrics.QueueDepth.Set(float64(len(d.jobQueue)))
		return nil
	default:
		metrics.JobsTotal.WithLabelValues(job.Kind, "rejected").Inc()
		return ErrQueueFull
	}
}

// Depth reports how many jobs are waiting.
func (d *Dispatcher) Depth() int {
	return len(d.jobQueue)
}

func (d *Dispatcher) processJobs() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			metrics.QueueDepth.Set(float64(len(d.jobQueue)))
			d.runJob(job)

		case <-d.stopChan:
			// Drain what is already queued before exiting.
			for {
				select {
				case job := <-d.jobQueue:
					d.runJob(job)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) runJob(job Job) {
	ctx := context.Background()
	defer func() {
		if r := recover(); r != nil {
			metrics.JobsTotal.WithLabelValues(job.Kind, "panic").Inc()
			d.logger.ErrorContext(ctx, "job panicked", "kind", job.Kind, "panic", r)
		}
	}()

	job.Run(ctx)
	metrics.JobsTotal.WithLabelValues(job.Kind, "done").Inc()
}

// Stop waits for queued jobs to drain and the workers to exit.
func (d *Dispatcher) Stop() {
	close(d.stopChan)
	d.wg.Wait()
}
