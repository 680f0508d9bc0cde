package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/upi-extractor/constants"
	"github.com/joseph-ayodele/upi-extractor/internal/common"
	"github.com/joseph-ayodele/upi-extractor/internal/entity"
)

const (
	DefaultWorkers      = 4
	DefaultImageTimeout = 3 * time.Minute
)

type Request struct {
	ImageRefs []string
	// Override skips classification when set.
	Override *constants.SourceType
	// Concurrency bounds in-flight images; 0 uses the batch default.
	Concurrency int
}

// Outcome is the result for one image. Record is set only for PROCESSED.
type Outcome struct {
	Index    int
	ImageRef string
	Status   constants.OutcomeStatus
	Record   *entity.Record
	Err      error
	Duration time.Duration
}

type Batch struct {
	proc    *Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	limiter *rate.Limiter
}

type Option func(*Batch)

func WithWorkers(n int) Option {
	return func(b *Batch) {
		if n > 0 {
			b.workers = n
		}
	}
}

func WithImageTimeout(d time.Duration) Option {
	return func(b *Batch) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithRateLimit caps OCR calls per second across the batch; 0 means unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(b *Batch) {
		if perSecond > 0 {
			b.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func NewBatch(proc *Processor, logger *slog.Logger, opts ...Option) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Batch{
		proc:    proc,
		logger:  logger,
		workers: DefaultWorkers,
		timeout: DefaultImageTimeout,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Run checks the OCR engine, then processes req.ImageRefs with bounded
// concurrency. An unavailable engine is returned immediately and nothing runs.
//
// Outcomes arrive on the returned channel in input order, one per image; the
// channel is closed when the batch is done. Once ctx is cancelled no new image
// starts: in-flight images finish and the rest are reported CANCELLED.
func (b *Batch) Run(ctx context.Context, req Request) (<-chan Outcome, error) {
	if err := b.proc.CheckEngine(ctx); err != nil {
		return nil, err
	}

	workers := req.Concurrency
	if workers <= 0 {
		workers = b.workers
	}
	batchID := uuid.NewString()
	ctx = common.WithBatchID(ctx, batchID)
	b.logger.Info("batch.start", "batch_id", batchID, "images", len(req.ImageRefs), "workers", workers)

	results := make(chan Outcome, len(req.ImageRefs))
	out := make(chan Outcome)

	go b.schedule(ctx, req, workers, results)
	go reorder(results, out)
	return out, nil
}

func (b *Batch) schedule(ctx context.Context, req Request, workers int, results chan<- Outcome) {
	defer close(results)
	start := time.Now()
	sem := semaphore.NewWeighted(int64(workers))
	var g errgroup.Group

	for i, ref := range req.ImageRefs {
		if err := b.acquire(ctx, sem); err != nil {
			b.logger.Warn("batch.cancelled", "batch_id", common.BatchIDFromContext(ctx), "scheduled", i, "remaining", len(req.ImageRefs)-i)
			for j := i; j < len(req.ImageRefs); j++ {
				results <- Outcome{Index: j, ImageRef: req.ImageRefs[j], Status: constants.OutcomeCancelled, Err: err}
			}
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			results <- b.process(ctx, i, ref, req.Override)
			return nil
		})
	}
	_ = g.Wait()
	b.logger.Info("batch.done", "batch_id", common.BatchIDFromContext(ctx), "elapsed_ms", time.Since(start).Milliseconds())
}

// acquire takes a worker slot unless ctx is already done.
func (b *Batch) acquire(ctx context.Context, sem *semaphore.Weighted) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		sem.Release(1)
		return err
	}
	return nil
}

// process runs one image detached from the batch's cancellation, bounded by
// the per-image timeout.
func (b *Batch) process(ctx context.Context, idx int, ref string, override *constants.SourceType) Outcome {
	start := time.Now()
	wctx, cancel := common.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	defer cancel()
	wctx = common.WithImageRef(wctx, ref)

	o := Outcome{Index: idx, ImageRef: ref}
	if b.limiter != nil {
		if err := b.limiter.Wait(wctx); err != nil {
			o.Status, o.Err, o.Duration = constants.OutcomeFailed, err, time.Since(start)
			return o
		}
	}

	rec, err := b.proc.ProcessImage(wctx, ref, override)
	o.Duration = time.Since(start)
	switch {
	case errors.Is(err, common.ErrNoTextDetected):
		o.Status, o.Err = constants.OutcomeSkipped, err
	case err != nil:
		o.Status, o.Err = constants.OutcomeFailed, err
	default:
		o.Status, o.Record = constants.OutcomeProcessed, rec
	}
	b.logger.Debug("batch.image.done",
		"batch_id", common.BatchIDFromContext(ctx),
		"image", ref,
		"status", o.Status,
		"duration_ms", o.Duration.Milliseconds(),
	)
	return o
}

// reorder forwards outcomes in index order, holding back early finishers.
func reorder(in <-chan Outcome, out chan<- Outcome) {
	defer close(out)
	pending := map[int]Outcome{}
	next := 0
	for o := range in {
		pending[o.Index] = o
		for {
			p, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			out <- p
			next++
		}
	}
}
