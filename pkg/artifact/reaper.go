package artifact

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reaper periodically removes artifacts older than the retention window.
// It runs on its own timer, independent of request traffic.
type Reaper struct {
	driver    Driver
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewReaper creates a reaper over driver sweeping every interval and keeping
// artifacts for retention.
func NewReaper(driver Driver, interval, retention time.Duration, logger *zap.Logger) *Reaper {
	return &Reaper{
		driver:    driver,
		interval:  interval,
		retention: retention,
		logger:    logger,
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (r *Reaper) Start() {
	go r.run()
}

// Stop halts the sweep loop and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

func (r *Reaper) run() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stop:
			return
		}
	}
}

func (r *Reaper) sweep() {
	removed, err := r.driver.Reap(r.now().Add(-r.retention))
	if err != nil {
		r.logger.Error("artifact sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		r.logger.Info("reaped expired artifacts", zap.Int("removed", removed))
	}
}
