// Package log 在 zap SugaredLogger 之上提供包级别的日志函数。
// Init 之前所有调用都写入 no-op logger，测试与命令行工具可以直接使用。
package log

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var sugar = zap.NewNop().Sugar()

// Init 按级别、格式（console 或 json）和可选的日志目录构建全局 logger。
// 无法识别的级别按 info 处理。
func Init(level, format, outputDir string) {
	atomicLevel := zap.NewAtomicLevelAt(zap.InfoLevel)
	_ = atomicLevel.UnmarshalText([]byte(level))

	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg.Encoding = "json"
	}
	cfg.Level = atomicLevel
	cfg.OutputPaths = []string{"stdout"}
	if outputDir != "" {
		_ = os.MkdirAll(outputDir, os.ModePerm)
		cfg.OutputPaths = append(cfg.OutputPaths, filepath.Join(outputDir, "app.log"))
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	sugar = logger.Sugar()
}

func Debugf(template string, args ...interface{}) { sugar.Debugf(template, args...) }

func Info(msg string) { sugar.Info(msg) }

func Infof(template string, args ...interface{}) { sugar.Infof(template, args...) }

// Infow 以键值对附加上下文，例如请求日志中的 method、path、latency。
func Infow(msg string, keysAndValues ...interface{}) { sugar.Infow(msg, keysAndValues...) }

func Warnf(template string, args ...interface{}) { sugar.Warnf(template, args...) }

// Error 把 err 作为 "error" 字段输出。
func Error(msg string, err error) { sugar.Errorw(msg, "error", err) }

func Errorf(template string, args ...interface{}) { sugar.Errorf(template, args...) }

func Errorw(msg string, keysAndValues ...interface{}) { sugar.Errorw(msg, keysAndValues...) }

// Fatal 输出 err 后以非零状态退出。
func Fatal(msg string, err error) { sugar.Fatalw(msg, "error", err) }

func Fatalf(template string, args ...interface{}) { sugar.Fatalf(template, args...) }

// Sync 刷新缓冲的日志，main 退出前调用。
func Sync() { _ = sugar.Sync() }
