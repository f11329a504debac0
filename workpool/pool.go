// Package workpool provides chunked parallel execution over an index range.
// Its primary client is the field evaluator's per-beam summation (spec
// §4.D "chunked parallel summation"): the lookup-tensor contraction over a
// beam's slots is associative, so it can be split into disjoint chunks,
// computed in parallel, and folded together, with the result independent
// of how the work was chunked to the tolerance spec §4.D and §8 scenario
// 7 require. Reduce below makes that accumulate-per-chunk/merge-into-
// shared-result pattern a first-class pool operation, rather than leaving
// every caller to hand-roll its own mutex around a bare chunk-range
// callback (see field.SynthesizeBeam/DifferenceBeam). The job/worker/
// dispatch machinery underneath is adapted from a generic worker pool for
// parallel numeric loops.
package workpool

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

var (
	// ErrPoolClosed is returned when submitting work to a closed worker pool.
	ErrPoolClosed = errors.New("workpool: pool closed")
	// ErrWorkerCallbackNil is returned when the provided callback is nil.
	ErrWorkerCallbackNil = errors.New("workpool: callback cannot be nil")
	// ErrPoolAlreadyInitialized is returned when Init is called twice without Close.
	ErrPoolAlreadyInitialized = errors.New("workpool: pool already initialized")
	// ErrPoolNotInitialized is returned when operations are attempted before Init.
	ErrPoolNotInitialized = errors.New("workpool: pool not initialized")
)

// Callback processes one chunk [start,end) of the index range.
type Callback func(start, end int) error

// ChunkSizer controls how many elements belong to a chunk for a given workload.
type ChunkSizer func(total, workers int) int

// Option configures Pool construction.
type Option func(*poolConfig)

type poolConfig struct {
	workers int
	sizer   ChunkSizer
}

// Pool coordinates chunked parallel execution of a callback over
// [0,total) with bounded backpressure: the task queue holds as many chunks
// as there are workers, and submission blocks once every worker is busy
// and that queue is full.
type Pool struct {
	// Size and ChunkSizer may be set before Init to override defaults.
	Size       int
	ChunkSizer ChunkSizer

	workers     int
	tasks       chan *job
	stopCh      chan struct{}
	chunkSizer  ChunkSizer
	workerGroup sync.WaitGroup
	jobPool     sync.Pool
	closed      atomic.Bool
	initialized atomic.Bool
}

type job struct {
	start int
	end   int
	state *execState
}

func (j *job) reset() {
	j.start = 0
	j.end = 0
	j.state = nil
}

type execState struct {
	cb      Callback
	wg      sync.WaitGroup
	failure atomic.Uint32
	err     error
}

func newExecState(cb Callback) *execState {
	return &execState{cb: cb}
}

func (s *execState) add(delta int)  { s.wg.Add(delta) }
func (s *execState) done()          { s.wg.Done() }
func (s *execState) wait()          { s.wg.Wait() }
func (s *execState) shouldSkip() bool { return s.failure.Load() == 1 }
func (s *execState) Err() error     { return s.err }

func (s *execState) setErr(err error) {
	if err == nil {
		return
	}
	if s.failure.CompareAndSwap(0, 1) {
		s.err = err
	}
}

// Init prepares the pool for use. Init must be called before Execute. The
// receiver must not be copied after initialization.
func (p *Pool) Init(opts ...Option) error {
	if p == nil {
		return errors.New("workpool: nil pool")
	}
	if p.initialized.Load() {
		return ErrPoolAlreadyInitialized
	}

	cfg := poolConfig{
		workers: p.Size,
		sizer:   p.ChunkSizer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	normalise(&cfg)

	p.workers = cfg.workers
	p.chunkSizer = cfg.sizer
	p.tasks = make(chan *job, cfg.workers)
	p.stopCh = make(chan struct{})
	p.jobPool = sync.Pool{New: func() any { return &job{} }}
	p.closed.Store(false)
	p.workerGroup = sync.WaitGroup{}

	p.workerGroup.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.worker()
	}

	p.initialized.Store(true)
	return nil
}

// Execute splits [0,total) into chunks and runs fn over each chunk in
// parallel, returning the first error encountered (if any) after all
// in-flight chunks have finished.
func (p *Pool) Execute(total int, fn Callback) error {
	if fn == nil {
		return ErrWorkerCallbackNil
	}
	if total <= 0 {
		return nil
	}
	if p.closed.Load() {
		return ErrPoolClosed
	}
	if !p.initialized.Load() {
		return ErrPoolNotInitialized
	}

	state := newExecState(fn)
	chunkSize := p.chunkSize(total)

	for start := 0; start < total; start += chunkSize {
		end := start + chunkSize
		if end > total {
			end = total
		}
		if err := p.dispatch(state, start, end); err != nil {
			state.wait()
			return err
		}
	}

	state.wait()
	if err := state.Err(); err != nil {
		return err
	}
	if p.closed.Load() {
		return ErrPoolClosed
	}
	return nil
}

// Reduce splits [0,total) into chunks and runs fn over each in parallel,
// folding every chunk's partial accumulator into a single result via
// merge. zero constructs one fresh accumulator per chunk (and the
// returned result); merge folds a chunk's accumulator into the result and
// is always called under Reduce's own lock, so it need not be
// concurrency-safe itself. This is the shape field.SynthesizeBeam and
// field.DifferenceBeam need: a partial B-field per chunk of slots,
// summed into the beam's full field (spec §4.D). A nil pool runs fn
// once, sequentially, over the whole range.
func Reduce[T any](p *Pool, total int, zero func() T, fn func(start, end int, acc T) error, merge func(dst, src T)) (T, error) {
	result := zero()
	if total <= 0 {
		return result, nil
	}

	var mu sync.Mutex
	combine := func(start, end int) error {
		acc := zero()
		if err := fn(start, end, acc); err != nil {
			return err
		}
		mu.Lock()
		merge(result, acc)
		mu.Unlock()
		return nil
	}

	if p == nil {
		return result, combine(0, total)
	}
	return result, p.Execute(total, combine)
}

// Close gracefully shuts down the pool, waiting for outstanding chunks to
// complete before workers exit.
func (p *Pool) Close() {
	if p == nil {
		return
	}
	if !p.initialized.Load() {
		return
	}
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	close(p.stopCh)
	p.workerGroup.Wait()
	p.initialized.Store(false)
}

func (p *Pool) worker() {
	defer p.workerGroup.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case j := <-p.tasks:
			if j == nil {
				continue
			}
			state := j.state
			if state == nil {
				j.reset()
				p.jobPool.Put(j)
				continue
			}
			if state.shouldSkip() {
				state.done()
				j.reset()
				p.jobPool.Put(j)
				continue
			}
			if err := state.cb(j.start, j.end); err != nil {
				state.setErr(err)
			}
			state.done()
			j.reset()
			p.jobPool.Put(j)
		}
	}
}

func (p *Pool) dispatch(state *execState, start, end int) error {
	state.add(1)
	j := p.jobPool.Get().(*job)
	j.start = start
	j.end = end
	j.state = state

	if err := p.submit(j); err != nil {
		state.done()
		j.reset()
		p.jobPool.Put(j)
		return err
	}
	return nil
}

func (p *Pool) submit(j *job) error {
	select {
	case <-p.stopCh:
		return ErrPoolClosed
	case p.tasks <- j:
		return nil
	}
}

func (p *Pool) chunkSize(total int) int {
	if total <= 0 {
		return 0
	}
	size := p.chunkSizer(total, p.workers)
	if size <= 0 {
		return 1
	}
	return size
}

func normalise(cfg *poolConfig) {
	if cfg.workers <= 0 {
		cfg.workers = runtime.GOMAXPROCS(0)
		if cfg.workers <= 0 {
			cfg.workers = 1
		}
	}
	if cfg.sizer == nil {
		cfg.sizer = defaultChunkSizer
	}
}

func defaultChunkSizer(total, workers int) int {
	if total <= 0 {
		return 0
	}
	if workers <= 0 {
		workers = 1
	}
	size := (total + workers - 1) / workers
	if size <= 0 {
		return 1
	}
	return size
}

// WithWorkers overrides the worker count used by the pool.
func WithWorkers(workers int) Option {
	return func(cfg *poolConfig) {
		if workers > 0 {
			cfg.workers = workers
		}
	}
}

// WithTargetChunkSize caps chunk size to the given maximum.
func WithTargetChunkSize(size int) Option {
	return func(cfg *poolConfig) {
		if size <= 0 {
			return
		}
		cfg.sizer = func(total, _ int) int {
			if total <= 0 {
				return 0
			}
			if total < size {
				return total
			}
			return size
		}
	}
}
