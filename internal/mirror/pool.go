package mirror

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/studio1767/s3mirror/internal/logging"
	"github.com/studio1767/s3mirror/internal/s3io"
)

// PoolOptions configures the worker pool.
type PoolOptions struct {
	Workers int
	Retries int

	// OnFatal is invoked on the first unrecoverable failure. The default
	// logs nothing extra and exits the process: a pipeline that can no
	// longer upload must not keep running and silently lose data.
	OnFatal func(err error)
}

// Pool drains the queue with a fixed set of workers. Each worker dials its
// own store connection; nothing mutable is shared between them except the
// queue itself.
type Pool struct {
	queue    *Queue
	connect  s3io.Connector
	namer    *Namer
	oracle   *Oracle
	executor *Executor
	opts     PoolOptions
	log      logging.Logger

	fatalOnce sync.Once
	wg        sync.WaitGroup
}

func NewPool(queue *Queue, connect s3io.Connector, namer *Namer, oracle *Oracle, executor *Executor, opts PoolOptions, log logging.Logger) *Pool {
	if opts.OnFatal == nil {
		opts.OnFatal = func(err error) {
			os.Exit(1)
		}
	}
	return &Pool{
		queue:    queue,
		connect:  connect,
		namer:    namer,
		oracle:   oracle,
		executor: executor,
		opts:     opts,
		log:      log,
	}
}

// Start launches the workers. They run until the queue closes or a fatal
// failure brings the process down.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

// Wait blocks until all workers have returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) fatal(ctx context.Context, path string, err error) {
	p.log.Error(ctx, "unrecoverable upload failure, terminating", "path", path, "error", err)
	p.fatalOnce.Do(func() {
		p.opts.OnFatal(err)
	})
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	log := p.log.With("worker", id)
	sess := NewSession(p.connect, p.opts.Retries, log)

	// establish this worker's own connection up front
	if _, err := sess.Client(ctx); err != nil {
		p.fatal(ctx, "", err)
		return
	}

	for {
		path, ok := p.queue.Dequeue()
		if !ok {
			return
		}

		outcome, err := p.process(ctx, sess, path)
		if err != nil {
			p.fatal(ctx, path, err)
			return
		}

		switch outcome {
		case OutcomeUploaded:
			log.Debug(ctx, "processed", "path", path, "outcome", outcome.String())
		case OutcomeSkippedPresent:
			log.Debug(ctx, "already present", "path", path)
		case OutcomeSkippedMissing:
			log.Debug(ctx, "source missing", "path", path)
		}
	}
}

func (p *Pool) process(ctx context.Context, sess *Session, path string) (Outcome, error) {

	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return OutcomeSkippedMissing, nil
		}
		return 0, err
	}
	if !fi.Mode().IsRegular() {
		return OutcomeSkippedMissing, nil
	}

	snap := CaptureSnapshot(path, fi)
	key := p.namer.Key(path)

	ok, err := p.oracle.ExistsAndValid(ctx, sess, key, snap)
	if err != nil {
		return 0, err
	}
	if ok {
		return OutcomeSkippedPresent, nil
	}

	return p.executor.Upload(ctx, sess, key, snap)
}
