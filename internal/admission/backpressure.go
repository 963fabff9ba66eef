package admission

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gitdwsong72/auth-system/internal/apperror"
	"github.com/gitdwsong72/auth-system/internal/config"
)

// Backpressure is a bounded semaphore guarding the downstream handler, with
// three shed thresholds evaluated in order: reject (system overload) ->
// queue-full -> wait-timeout. Metrics are counted per-request and exposed
// through Status for the health endpoint.
type Backpressure struct {
	maxConcurrent   int
	queueCapacity   int
	rejectThreshold int
	waitTimeout     time.Duration

	slots chan struct{}

	mu        sync.Mutex
	inflight  int
	queued    int
	rejected  int64
	timedOut  int64
	total     int64
	processed int64
}

func NewBackpressure(cfg config.BackpressureConfig) *Backpressure {
	return &Backpressure{
		maxConcurrent:   cfg.MaxConcurrent,
		queueCapacity:   cfg.QueueCapacity,
		rejectThreshold: cfg.RejectThreshold(),
		waitTimeout:     cfg.WaitTimeout(),
		slots:           make(chan struct{}, cfg.MaxConcurrent),
	}
}

type admitResult int

const (
	admitOK admitResult = iota
	admitOverload
	admitQueueFull
	admitTimeout
)

// acquire implements the three-threshold check. release must be called
// exactly once when admitOK is returned.
func (b *Backpressure) acquire(waitTimeout time.Duration) (admitResult, func(), time.Duration) {
	atomic.AddInt64(&b.total, 1)

	b.mu.Lock()
	queuedPlusInflight := b.queued + b.inflight
	if queuedPlusInflight >= b.rejectThreshold {
		b.mu.Unlock()
		atomic.AddInt64(&b.rejected, 1)
		return admitOverload, nil, 0
	}
	if b.queued >= b.queueCapacity {
		b.mu.Unlock()
		atomic.AddInt64(&b.rejected, 1)
		return admitQueueFull, nil, 0
	}
	b.queued++
	b.mu.Unlock()

	start := time.Now()
	timer := time.NewTimer(waitTimeout)
	defer timer.Stop()

	// A free slot is taken without waiting, even when waitTimeout is zero.
	acquired := false
	select {
	case b.slots <- struct{}{}:
		acquired = true
	default:
		select {
		case b.slots <- struct{}{}:
			acquired = true
		case <-timer.C:
		}
	}

	if acquired {
		wait := time.Since(start)
		b.mu.Lock()
		b.queued--
		b.inflight++
		b.mu.Unlock()
		atomic.AddInt64(&b.processed, 1)
		release := func() {
			<-b.slots
			b.mu.Lock()
			b.inflight--
			b.mu.Unlock()
		}
		return admitOK, release, wait
	}
	b.mu.Lock()
	b.queued--
	b.mu.Unlock()
	atomic.AddInt64(&b.timedOut, 1)
	return admitTimeout, nil, time.Since(start)
}

// Status is the health/metrics summary spec.md §4.5 requires.
type Status struct {
	Inflight    int     `json:"inflight"`
	Queued      int     `json:"queued"`
	MaxConcurrent int   `json:"max_concurrent"`
	Rejected    int64   `json:"rejected"`
	TimedOut    int64   `json:"timed_out"`
	Total       int64   `json:"total"`
	Processed   int64   `json:"processed"`
	Utilization float64 `json:"utilization"`
	Health      string  `json:"health"`
}

func (b *Backpressure) Status() Status {
	b.mu.Lock()
	inflight, queued := b.inflight, b.queued
	b.mu.Unlock()

	util := 0.0
	if b.rejectThreshold > 0 {
		util = float64(inflight+queued) / float64(b.rejectThreshold)
	}
	health := "healthy"
	if util >= 0.85 {
		health = "critical"
	} else if util >= 0.70 {
		health = "warning"
	}

	return Status{
		Inflight:      inflight,
		Queued:        queued,
		MaxConcurrent: b.maxConcurrent,
		Rejected:      atomic.LoadInt64(&b.rejected),
		TimedOut:      atomic.LoadInt64(&b.timedOut),
		Total:         atomic.LoadInt64(&b.total),
		Processed:     atomic.LoadInt64(&b.processed),
		Utilization:   util,
		Health:        health,
	}
}

// Middleware wraps next with the backpressure filter. exemptPaths (health,
// metrics) bypass it entirely.
func (b *Backpressure) Middleware(exemptPaths map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exemptPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			result, release, wait := b.acquire(b.waitTimeout)
			switch result {
			case admitOverload:
				writeShed(w, apperror.ErrSystemOverload, 5, "rejected")
				return
			case admitQueueFull:
				writeShed(w, apperror.ErrQueueFull, 1, "full")
				return
			case admitTimeout:
				writeShed(w, apperror.ErrQueueTimeout, 2, "timeout")
				return
			}
			defer release()

			if wait > 100*time.Millisecond {
				w.Header().Set("X-Queue-Wait-Time", wait.String())
			}
			w.Header().Set("X-Queue-Status", "processed")
			next.ServeHTTP(w, r)
		})
	}
}

func writeShed(w http.ResponseWriter, ae *apperror.AuthError, retryAfter int, queueStatus string) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	w.Header().Set("X-Queue-Status", queueStatus)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.Status)
	_ = json.NewEncoder(w).Encode(ae.Envelope())
}
