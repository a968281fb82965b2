package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger 创建日志：stderr 输出文本格式，配置了日志文件时同时以 JSON 格式写入文件
// 返回的 cleanup 用于关闭日志文件
func SetupLogger(cfg LogConfig) (*slog.Logger, func() error) {
	level := ParseLogLevel(cfg.Level)
	stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	if cfg.File == "" {
		return slog.New(stderrHandler), func() error { return nil }
	}

	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.Error("Failed to open log file, using stderr only", "file", cfg.File, "err", err)
		return slog.New(stderrHandler), func() error { return nil }
	}

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	logger := slog.New(slogmulti.Fanout(stderrHandler, fileHandler))
	return logger, file.Close
}

// NewLoggerWithWriters 测试用
func NewLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slogmulti.Fanout(
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}),
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
	))
}

func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
