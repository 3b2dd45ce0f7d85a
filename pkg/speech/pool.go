package speech

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/parleylabs/parley/pkg/config"
)

var (
	defaultNumWorkers uint = 3
	defaultQueueSize  uint = 16
)

// job is one synthesis request in flight through the pool.
type job struct {
	ctx  context.Context
	cfg  *config.Runtime
	text string

	// result is buffered so a worker never blocks on a caller that gave up.
	result chan []byte
}

// PoolConfig is the configuration options for the synthesis pool.
type PoolConfig struct {
	// Renderer performs the actual synthesis.
	Renderer *Renderer

	// NumWorkers is the number of synthesis workers (defaults to 3).
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 16).
	// A full queue rejects new work instead of blocking the request path.
	QueueSize uint

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Pool runs speech synthesis on a bounded set of workers so audio latency
// never delays a text-only reply path, while callers that do want audio wait
// on their job's result channel.
type Pool struct {
	renderer *Renderer
	queue    chan job
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// NewPool creates a pool and starts its worker goroutines.
func NewPool(c *PoolConfig) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	p := &Pool{
		renderer: c.Renderer,
		queue:    make(chan job, c.QueueSize),
		logger:   c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Render submits text for synthesis and waits for the outcome. It returns nil
// when the queue is full (backpressure), when synthesis fails, or when ctx
// ends first — in every case the caller degrades to text-only.
func (p *Pool) Render(ctx context.Context, cfg *config.Runtime, text string) []byte {
	j := job{ctx: ctx, cfg: cfg, text: text, result: make(chan []byte, 1)}

	select {
	case p.queue <- j:
	default:
		p.logger.Warn("synthesis queue full, degrading to text-only")
		return nil
	}

	select {
	case data := <-j.result:
		return data
	case <-ctx.Done():
		return nil
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("synthesis worker started", zap.Uint("worker_id", id))

	for j := range p.queue {
		j.result <- p.renderer.Synthesize(j.ctx, j.cfg, j.text)
	}

	p.logger.Debug("synthesis worker stopped", zap.Uint("worker_id", id))
}
