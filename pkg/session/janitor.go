package session

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSweepSpec is the cron schedule used when none is configured
const DefaultSweepSpec = "@every 1m"

// Janitor periodically evicts expired sessions from a Store
type Janitor struct {
	store  Store
	cron   *cron.Cron
	logger *zap.Logger
	now    func() time.Time

	onEvict func(int)
}

// NewJanitor schedules Sweep on the store using a cron spec ("@every 1m", "*/5 * * * *")
func NewJanitor(store Store, spec string, logger *zap.Logger) (*Janitor, error) {
	if store == nil {
		return nil, fmt.Errorf("a session store must be provided")
	}
	if spec == "" {
		spec = DefaultSweepSpec
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	j := &Janitor{
		store:  store,
		cron:   cron.New(),
		logger: logger.Named("session-janitor"),
		now:    time.Now,
	}

	if _, err := j.cron.AddFunc(spec, func() {
		if _, err := j.RunOnce(context.Background()); err != nil {
			j.logger.Warn("session sweep failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}

	return j, nil
}

// OnEvict registers a callback receiving the number of sessions each sweep removed
func (j *Janitor) OnEvict(fn func(int)) {
	j.onEvict = fn
}

// Start begins the sweep schedule
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// RunOnce sweeps immediately
func (j *Janitor) RunOnce(ctx context.Context) (int, error) {
	evicted, err := j.store.Sweep(ctx, j.now().UTC())
	if err != nil {
		return evicted, err
	}

	if evicted > 0 && j.onEvict != nil {
		j.onEvict(evicted)
	}
	if evicted > 0 {
		j.logger.Info("evicted expired call sessions", zap.Int("count", evicted))
	}
	return evicted, nil
}
