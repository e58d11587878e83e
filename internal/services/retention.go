package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Pruner deletes records older than a number of days.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}

// Retention periodically prunes old detections on a cron schedule.
type Retention struct {
	cron   *cron.Cron
	store  Pruner
	days   int
	log    *zap.Logger
	entry  cron.EntryID
	runTTL time.Duration
}

func NewRetention(store Pruner, days int, schedule string, log *zap.Logger) (*Retention, error) {
	r := &Retention{
		cron:   cron.New(),
		store:  store,
		days:   days,
		log:    log,
		runTTL: time.Minute,
	}
	id, err := r.cron.AddFunc(schedule, r.Run)
	if err != nil {
		return nil, fmt.Errorf("retention schedule %q: %w", schedule, err)
	}
	r.entry = id
	return r, nil
}

// Run prunes once.
func (r *Retention) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.runTTL)
	defer cancel()

	n, err := r.store.DeleteOlderThan(ctx, r.days)
	if err != nil {
		r.log.Error("retention run failed", zap.Error(err))
		return
	}
	r.log.Info("retention run", zap.Int("days", r.days), zap.Int64("deleted", n))
}

func (r *Retention) Start() {
	r.cron.Start()
}

// Next reports when the job will run next. It is zero until Start.
func (r *Retention) Next() time.Time {
	return r.cron.Entry(r.entry).Next
}

// Stop halts the scheduler and waits for a running prune to finish.
func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
}
