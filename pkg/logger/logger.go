// Package logger 提供基于zerolog的结构化日志
//
// 设计说明：
// 1. 全局唯一Logger，启动时Init一次（级别、格式来自配置）
// 2. 结构化字段（key-value）而非fmt拼接，便于日志检索
// 3. format=console时输出带颜色的开发格式，json用于生产采集
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init 初始化全局日志
// level: debug | info | warn | error
// format: console | json
func Init(level, format string) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = os.Stdout
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// L 返回全局Logger（命名组件可用 L().With().Str("component", ...)派生）
func L() *zerolog.Logger {
	return &log.Logger
}

// Info 信息日志入口
func Info() *zerolog.Event { return log.Info() }

// Warn 警告日志入口
func Warn() *zerolog.Event { return log.Warn() }

// Error 错误日志入口
func Error() *zerolog.Event { return log.Error() }

// Debug 调试日志入口
func Debug() *zerolog.Event { return log.Debug() }
