// Package batch runs several bakes one after another from a single tick.
package batch

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/spritebake/internal/bake"
)

// ErrInProgress is returned by Start while a batch is running.
var ErrInProgress = errors.New("batch: already in progress")

// Job is one source to bake. Settings overrides the batch settings when set.
type Job struct {
	Name     string
	Kind     bake.Kind
	Model    bake.Model
	Renderer bake.Renderer
	Settings *bake.Settings
}

// Result is the outcome of one job.
type Result struct {
	Index int
	Name  string
	Views []*bake.ViewResult
	Err   error
}

// Option configures a Batcher.
type Option func(*Batcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Batcher) { b.log = l }
}

// WithBakeOptions passes options to every Baker the batch creates.
func WithBakeOptions(opts ...bake.Option) Option {
	return func(b *Batcher) { b.bakeOpts = append(b.bakeOpts, opts...) }
}

// OnComplete sets the function called once the batch is over, whether it ran
// to the end or was cancelled.
func OnComplete(fn func()) Option {
	return func(b *Batcher) { b.onComplete = fn }
}

// Batcher bakes jobs in order, at most one at a time. Nil jobs are skipped.
type Batcher struct {
	jobs       []*Job
	settings   bake.Settings
	bakeOpts   []bake.Option
	log        *zap.Logger
	onComplete func()

	current   int
	baker     *bake.Baker
	running   bool
	draining  bool
	cancelled atomic.Bool

	finished int
	results  []Result
}

// New creates a batch over jobs.
func New(jobs []*Job, settings bake.Settings, opts ...Option) *Batcher {
	b := &Batcher{
		jobs:     jobs,
		settings: settings,
		log:      zap.NewNop(),
		current:  -1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start begins the batch. The first Tick starts the first job.
func (b *Batcher) Start() error {
	if b.running {
		return ErrInProgress
	}
	b.current = -1
	b.baker = nil
	b.draining = false
	b.cancelled.Store(false)
	b.finished = 0
	b.results = nil
	b.running = true
	b.log.Info("batch started", zap.Int("jobs", b.count()))
	return nil
}

// Tick does one unit of work. It reports whether the batch was running.
func (b *Batcher) Tick() bool {
	if !b.running {
		return false
	}

	if b.draining {
		// One idle tick after the last job so the host can show 100%.
		b.draining = false
		b.running = false
		b.log.Info("batch finished",
			zap.Int("jobs", len(b.results)),
			zap.Bool("cancelled", b.cancelled.Load()),
		)
		if b.onComplete != nil {
			b.onComplete()
		}
		return true
	}

	if b.baker != nil && b.baker.IsInProgress() {
		if b.cancelled.Load() {
			b.baker.Cancel()
		}
		b.baker.Update()
		if !b.baker.IsInProgress() {
			b.record(b.baker.Err())
		}
		return true
	}

	if b.cancelled.Load() {
		b.draining = true
		return true
	}

	job := b.advance()
	if job == nil {
		b.draining = true
		return true
	}
	if err := b.begin(job); err != nil {
		b.log.Error("job failed to start", zap.String("job", job.Name), zap.Error(err))
		b.baker = nil
		b.record(err)
	}
	return true
}

// advance moves to the next non-nil job.
func (b *Batcher) advance() *Job {
	for b.current+1 < len(b.jobs) {
		b.current++
		if j := b.jobs[b.current]; j != nil {
			return j
		}
	}
	return nil
}

func (b *Batcher) begin(job *Job) error {
	settings := b.settings
	if job.Settings != nil {
		settings = *job.Settings
	}
	opts := append([]bake.Option{bake.WithLogger(b.log.Named("bake"))}, b.bakeOpts...)
	baker, err := bake.NewBaker(job.Kind, job.Model, job.Renderer, settings, opts...)
	if err != nil {
		return err
	}
	b.baker = baker
	if err := baker.Start(); err != nil {
		return err
	}
	b.log.Debug("job started", zap.String("job", job.Name), zap.Stringer("kind", job.Kind))
	return nil
}

// record stores the outcome of the current job. A cancelled job aborts the
// rest of the batch. Any other failure only ends that job.
func (b *Batcher) record(err error) {
	job := b.jobs[b.current]
	res := Result{Index: b.current, Name: job.Name, Err: err}
	if b.baker != nil {
		res.Views = b.baker.Results()
	}
	b.results = append(b.results, res)
	b.finished++

	switch {
	case errors.Is(err, bake.ErrCancelled):
		b.cancelled.Store(true)
		b.log.Warn("job cancelled, aborting batch", zap.String("job", job.Name))
	case err != nil:
		b.log.Error("job failed", zap.String("job", job.Name), zap.Error(err))
	default:
		b.log.Info("job done", zap.String("job", job.Name), zap.Int("views", len(res.Views)))
	}
}

// Cancel aborts the running job and skips the rest. It may be called from
// any goroutine.
func (b *Batcher) Cancel() { b.cancelled.Store(true) }

// IsCancelled reports whether the batch was cancelled.
func (b *Batcher) IsCancelled() bool { return b.cancelled.Load() }

// IsInProgress reports whether the batch still needs ticks.
func (b *Batcher) IsInProgress() bool { return b.running }

// Progress returns the finished fraction of the non-nil jobs in [0,1].
func (b *Batcher) Progress() float64 {
	n := b.count()
	if n == 0 {
		if b.running {
			return 0
		}
		return 1
	}
	done := float64(b.finished)
	if b.baker != nil && b.baker.IsInProgress() {
		done += b.baker.Progress()
	}
	return min(done/float64(n), 1)
}

// Results returns the outcome of every job run so far.
func (b *Batcher) Results() []Result { return b.results }

// Err summarizes the batch: ErrCancelled when cancelled, otherwise the
// joined job errors.
func (b *Batcher) Err() error {
	if b.cancelled.Load() {
		return bake.ErrCancelled
	}
	var errs []error
	for _, r := range b.results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}
	return errors.Join(errs...)
}

func (b *Batcher) count() int {
	n := 0
	for _, j := range b.jobs {
		if j != nil {
			n++
		}
	}
	return n
}
