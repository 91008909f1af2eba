// Package logger - zap logger construction with rotating file output.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how much is logged.
type Config struct {
	// Level is debug, info, warn or error. Unknown values select debug.
	Level string `json:"level" yaml:"level" mapstructure:"level"`
	// Dir holds the log files. Empty disables file output.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
	// File is the main log file name inside Dir.
	File string `json:"file" yaml:"file" mapstructure:"file"`
	// Console enables human-readable output on stdout.
	Console bool `json:"console" yaml:"console" mapstructure:"console"`
	// MaxSizeMB is the size at which a log file is rotated.
	MaxSizeMB int `json:"max_size_mb" yaml:"max_size_mb" mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files kept.
	MaxBackups int `json:"max_backups" yaml:"max_backups" mapstructure:"max_backups"`
	// MaxAgeDays is the number of days rotated files are kept.
	MaxAgeDays int `json:"max_age_days" yaml:"max_age_days" mapstructure:"max_age_days"`
}

// DefaultConfig logs info and above to the console and ./logs/yolonas.log.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Dir:        "./logs",
		File:       "yolonas.log",
		Console:    true,
		MaxSizeMB:  100,
		MaxBackups: 7,
		MaxAgeDays: 7,
	}
}

// ParseLevel maps a level name to a zap level, case-insensitively. Unknown
// names select debug.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "info":
		return zap.InfoLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.DebugLevel
	}
}

func formatEncodeTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("20060102_150405"))
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "trace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     formatEncodeTime,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// rotating returns a lumberjack-backed writer for path.
func rotating(cfg Config, path string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	})
}

// New builds a logger from cfg.
//
// The logger tees up to three cores: a JSON file at the configured level, a
// JSON error-only file, and a console core. The returned level can be changed
// at runtime.
//
// Arguments:
//   - cfg: The logging configuration.
//
// Returns:
//   - *zap.Logger: The logger. Call Sync before exit.
//   - zap.AtomicLevel: The adjustable level shared by the file and console cores.
//   - error: An error if the log directory cannot be created.
func New(cfg Config) (*zap.Logger, zap.AtomicLevel, error) {
	return build(cfg, os.Stdout)
}

func build(cfg Config, console io.Writer) (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	enc := encoderConfig()

	var cores []zapcore.Core
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, level, fmt.Errorf("create log dir: %w", err)
		}
		file := cfg.File
		if file == "" {
			file = "yolonas.log"
		}
		errorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= zapcore.ErrorLevel
		})
		cores = append(cores,
			zapcore.NewCore(zapcore.NewJSONEncoder(enc), rotating(cfg, filepath.Join(cfg.Dir, file)), level),
			zapcore.NewCore(zapcore.NewJSONEncoder(enc), rotating(cfg, filepath.Join(cfg.Dir, "error_"+file)), errorLevel),
		)
	}
	if cfg.Console {
		consoleEnc := enc
		consoleEnc.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), zapcore.AddSync(console), level))
	}
	if len(cores) == 0 {
		return zap.NewNop(), level, nil
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), level, nil
}
