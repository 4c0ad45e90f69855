package queue

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-access/internal/core/domain"
	"github.com/99minutos/identity-access/internal/core/ports"
	"github.com/99minutos/identity-access/internal/pkg/metrics"
)

const (
	defaultWorkers = 2
	channelBuffer  = 64
)

var ErrPoolClosed = errors.New("hashing pool: closed")

type hashResult struct {
	hash domain.PasswordHash
	ok   bool
	err  error
}

type hashJob struct {
	ctx    context.Context
	op     string
	run    func(ctx context.Context) hashResult
	result chan hashResult
}

// HashingPool runs password hashing on a fixed set of worker goroutines so
// CPU-bound bcrypt work never executes on request goroutines and its
// concurrency is bounded. It implements ports.PasswordHasher by delegating to
// the wrapped hasher.
type HashingPool struct {
	hasher  ports.PasswordHasher
	workers int
	jobs    chan hashJob
	log     zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	stopped chan struct{}
	wg      sync.WaitGroup
}

// NewHashingPool creates a pool with numWorkers workers. If numWorkers <= 0,
// defaultWorkers is used. Call Start before submitting work.
func NewHashingPool(numWorkers int, hasher ports.PasswordHasher, log zerolog.Logger) *HashingPool {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	return &HashingPool{
		hasher:  hasher,
		workers: numWorkers,
		jobs:    make(chan hashJob, channelBuffer),
		log:     log,
		stopped: make(chan struct{}),
	}
}

// Start launches the workers. Cancelling ctx has the same effect as Close,
// except that it does not wait for the workers to return.
func (p *HashingPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.runWorker(i)
	}
	go func() {
		select {
		case <-ctx.Done():
			p.stop()
		case <-p.stopped:
		}
	}()
}

// Close stops the pool and blocks until every worker has returned. Queued
// jobs are not run: their callers get ErrPoolClosed.
func (p *HashingPool) Close() {
	p.stop()
	p.wg.Wait()
}

func (p *HashingPool) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.stopped)
	}
}

func (p *HashingPool) Hash(ctx context.Context, raw domain.RawPassword) (domain.PasswordHash, error) {
	res, err := p.submit(ctx, "hash", func(ctx context.Context) hashResult {
		h, err := p.hasher.Hash(ctx, raw)
		return hashResult{hash: h, err: err}
	})
	if err != nil {
		return nil, err
	}
	return res.hash, res.err
}

func (p *HashingPool) Verify(ctx context.Context, raw domain.RawPassword, hashed domain.PasswordHash) (bool, error) {
	res, err := p.submit(ctx, "verify", func(ctx context.Context) hashResult {
		ok, err := p.hasher.Verify(ctx, raw, hashed)
		return hashResult{ok: ok, err: err}
	})
	if err != nil {
		return false, err
	}
	return res.ok, res.err
}

// submit enqueues a job and waits for its result. Both phases give up when
// ctx is done; a job abandoned mid-flight finishes on its worker and its
// result is dropped.
func (p *HashingPool) submit(ctx context.Context, op string, run func(ctx context.Context) hashResult) (hashResult, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return hashResult{}, ErrPoolClosed
	}

	job := hashJob{ctx: ctx, op: op, run: run, result: make(chan hashResult, 1)}

	select {
	case <-ctx.Done():
		return hashResult{}, ctx.Err()
	case <-p.stopped:
		return hashResult{}, ErrPoolClosed
	case p.jobs <- job:
		metrics.HashQueueDepth.Set(float64(len(p.jobs)))
	}

	select {
	case <-ctx.Done():
		return hashResult{}, ctx.Err()
	case res := <-job.result:
		return res, nil
	case <-p.stopped:
		// A worker may have answered just before the pool stopped.
		select {
		case res := <-job.result:
			return res, nil
		default:
			return hashResult{}, ErrPoolClosed
		}
	}
}

func (p *HashingPool) runWorker(id int) {
	defer p.wg.Done()
	worker := strconv.Itoa(id)
	for {
		select {
		case <-p.stopped:
			return
		case job := <-p.jobs:
			metrics.HashQueueDepth.Set(float64(len(p.jobs)))
			if job.ctx.Err() != nil {
				job.result <- hashResult{err: job.ctx.Err()}
				continue
			}

			start := time.Now()
			res := job.run(job.ctx)
			metrics.PasswordHashDuration.WithLabelValues(job.op).Observe(time.Since(start).Seconds())

			if res.err != nil && !errors.Is(res.err, context.Canceled) {
				p.log.Error().Err(res.err).
					Str("op", job.op).
					Str("worker_id", worker).
					Msg("password hashing failed")
			}
			job.result <- res
		}
	}
}
