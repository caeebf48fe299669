package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/linkledger/internal/config"
	"github.com/linkledger/internal/logger"

	"go.uber.org/zap"
)

// 启动模式：all 同时运行 API 与后台任务，api 仅对外接口，worker 仅后台任务
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// ParseMode 校验启动模式，空值视为 all
func ParseMode(mode string) (string, error) {
	switch normalized := strings.ToLower(strings.TrimSpace(mode)); normalized {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return normalized, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want all|api|worker)", mode)
	}
}

// normalizeOptions 补齐默认参数
func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 15 * time.Second
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}
