package worker

import (
	"context"
	"errors"
	"time"

	"github.com/linkledger/internal/config"
	"github.com/linkledger/internal/logger"
	"github.com/linkledger/internal/metrics"

	"github.com/go-co-op/gocron/v2"
)

const (
	jobReconcile       = "reconcile_aggregates"
	jobPruneDeliveries = "prune_webhook_deliveries"

	defaultReconcileInterval = 5 * time.Minute
	defaultPruneInterval     = 24 * time.Hour
)

// Job 定时任务
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler 周期任务服务（对账、投递日志清理）
type Scheduler struct {
	name    string
	jobs    []Job
	metrics *metrics.JobMetrics
	sched   gocron.Scheduler
	ctx     context.Context
}

// NewScheduler 创建周期任务服务
func NewScheduler(jobMetrics *metrics.JobMetrics, jobs ...Job) *Scheduler {
	return &Scheduler{name: "scheduler", jobs: jobs, metrics: jobMetrics}
}

// LedgerJobs 根据配置构建账本维护任务
func LedgerJobs(c *Consumer, cfg config.WorkerConfig) []Job {
	if c == nil || c.Container == nil {
		return nil
	}
	reconcileEvery := defaultReconcileInterval
	if cfg.ReconcileIntervalSeconds > 0 {
		reconcileEvery = time.Duration(cfg.ReconcileIntervalSeconds) * time.Second
	}
	pruneEvery := defaultPruneInterval
	if cfg.PruneIntervalHours > 0 {
		pruneEvery = time.Duration(cfg.PruneIntervalHours) * time.Hour
	}

	var jobs []Job
	if c.ReconcileService != nil {
		jobs = append(jobs, Job{
			Name:     jobReconcile,
			Interval: reconcileEvery,
			Run: func(ctx context.Context) error {
				_, err := c.ReconcileService.Run(ctx)
				return err
			},
		})
	}
	if c.WebhookSender != nil {
		jobs = append(jobs, Job{
			Name:     jobPruneDeliveries,
			Interval: pruneEvery,
			Run: func(ctx context.Context) error {
				_, err := c.WebhookSender.PruneDeliveries(ctx, time.Now())
				return err
			},
		})
	}
	return jobs
}

// Name 服务名称
func (s *Scheduler) Name() string {
	if s == nil || s.name == "" {
		return "scheduler"
	}
	return s.name
}

// Start 注册任务并阻塞到 ctx 结束
func (s *Scheduler) Start(ctx context.Context) error {
	if s == nil {
		return errors.New("scheduler not initialized")
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	s.sched = sched
	s.ctx = ctx
	for _, job := range s.jobs {
		job := job
		if job.Run == nil || job.Interval <= 0 {
			continue
		}
		_, err := sched.NewJob(
			gocron.DurationJob(job.Interval),
			gocron.NewTask(func() { s.runJob(job) }),
			gocron.WithName(job.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return err
		}
		logger.Infow("scheduler_job_registered", "job", job.Name, "interval", job.Interval.String())
	}
	sched.Start()
	<-ctx.Done()
	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop(ctx context.Context) error {
	if s == nil || s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}

func (s *Scheduler) runJob(job Job) {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := time.Now()
	err := job.Run(ctx)
	elapsed := time.Since(startedAt)
	s.metrics.Observe(job.Name, elapsed, err)
	if err != nil {
		logger.Warnw("scheduler_job_failed", "job", job.Name, "elapsed_ms", elapsed.Milliseconds(), "error", err)
		return
	}
	logger.Debugw("scheduler_job_finished", "job", job.Name, "elapsed_ms", elapsed.Milliseconds())
}
