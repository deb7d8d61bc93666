package alert

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nishant-jng/shopify-backend-sub000/internal/mailer"
	"github.com/nishant-jng/shopify-backend-sub000/prometheus"
)

const sendTimeout = 30 * time.Second

// EmailJob is one event's email fan-out
type EmailJob struct {
	Event      string
	POID       string
	Recipients []Recipient
	Subject    string
	Text       string
	HTML       string
}

// Dispatcher delivers email jobs on background workers so request handlers
// never wait on the mail provider.
type Dispatcher struct {
	sender mailer.Sender
	jobs   chan EmailJob
	log    *zap.Logger
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sender mailer.Sender, workers, queueSize int, log *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{
		sender: sender,
		jobs:   make(chan EmailJob, queueSize),
		log:    log,
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Submit enqueues job without blocking. A full queue drops the job.
func (d *Dispatcher) Submit(job EmailJob) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("Email dispatcher closed, job dropped", zap.String("event", job.Event), zap.String("po_id", job.POID))
		return false
	}
	select {
	case d.jobs <- job:
		return true
	default:
		prometheus.AlertEmailCounter.WithLabelValues("dropped").Add(float64(len(job.Recipients)))
		d.log.Error("Email queue full, job dropped",
			zap.String("event", job.Event),
			zap.String("po_id", job.POID),
			zap.Int("recipients", len(job.Recipients)))
		return false
	}
}

// Close stops accepting jobs and waits for queued ones until ctx expires
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.jobs {
		d.deliver(job)
	}
}

// deliver sends one email per recipient concurrently and logs a summary
func (d *Dispatcher) deliver(job EmailJob) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		sent   int
		failed int
	)
	for _, r := range job.Recipients {
		if r.Email == "" {
			continue
		}
		wg.Add(1)
		go func(r Recipient) {
			defer wg.Done()
			err := d.sender.Send(ctx, mailer.Message{
				To:      r.Email,
				ToName:  r.Name,
				Subject: job.Subject,
				Text:    job.Text,
				HTML:    job.HTML,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				prometheus.AlertEmailCounter.WithLabelValues("failed").Inc()
				d.log.Error("Alert email failed",
					zap.String("event", job.Event),
					zap.String("po_id", job.POID),
					zap.String("to", r.Email),
					zap.Error(err))
				return
			}
			sent++
			prometheus.AlertEmailCounter.WithLabelValues("sent").Inc()
		}(r)
	}
	wg.Wait()

	d.log.Info("Alert emails dispatched",
		zap.String("event", job.Event),
		zap.String("po_id", job.POID),
		zap.Int("sent", sent),
		zap.Int("failed", failed))
}
