package app

import (
	"errors"
	"fmt"

	"github.com/linkledger/internal/config"
	"github.com/linkledger/internal/logger"
	"github.com/linkledger/internal/provider"
	"github.com/linkledger/internal/router"
	"github.com/linkledger/internal/worker"
)

// BuildRunner 按启动模式组装 HTTP 服务、定时任务与队列消费者
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	mode, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}

	container := provider.NewContainer(cfg)
	services, err := buildServices(cfg, mode, container)
	if err != nil {
		container.Close()
		return nil, err
	}

	runner := NewRunner(services...)
	runner.OnShutdown(container.Close)
	return runner, nil
}

func buildServices(cfg *config.Config, mode string, container *provider.Container) ([]Service, error) {
	var services []Service

	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
	}

	if mode == ModeAll || mode == ModeWorker {
		consumer := worker.NewConsumer(container)
		services = append(services, worker.NewScheduler(container.Metrics.Jobs, worker.LedgerJobs(consumer, cfg.Worker)...))

		// 未启用队列时回调在 API 进程内直接投递，无需消费者
		if container.QueueClient.Enabled() {
			workerService, err := worker.NewService(&cfg.Queue, consumer)
			if err != nil {
				return nil, fmt.Errorf("init queue worker: %w", err)
			}
			services = append(services, workerService)
		} else {
			logger.Infow("app_queue_worker_skipped", "reason", "queue disabled")
		}
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}
	return services, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
