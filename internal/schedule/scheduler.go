package schedule

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Job is a named maintenance task run on a cron spec.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type CronScheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

func NewCronScheduler() *CronScheduler {
	return &CronScheduler{cron: cron.New()}
}

func (s *CronScheduler) AddJob(job Job, spec string) error {
	logger := logutil.GetLogger(context.Background()).
		With(zap.String("job", job.Name()), zap.String("spec", spec))
	if _, err := s.cron.AddFunc(spec, s.runner(job)); err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return err
	}
	logger.Info("job scheduled")
	return nil
}

func (s *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx = ctx
	s.cron.Start()
}

func (s *CronScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// runner serializes executions of one job; a tick that fires while the
// previous run is still going is dropped.
func (s *CronScheduler) runner(job Job) func() {
	var running atomic.Bool
	return func() {
		ctx := s.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		logger := logutil.GetLogger(ctx).With(zap.String("job", job.Name()))
		if !running.CompareAndSwap(false, true) {
			logger.Info("job skipped: still running")
			return
		}
		defer running.Store(false)

		start := time.Now()
		logger.Info("job started")
		if err := job.Run(ctx); err != nil {
			logger.Error("job finished", zap.Error(err), zap.Duration("duration", time.Since(start)))
			return
		}
		logger.Info("job finished", zap.Duration("duration", time.Since(start)))
	}
}
