package logger

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger receives the operations performed by the planner and executor
type Logger interface {
	Copy(source, destination string)
	Delete(path string)
	Mkdir(path string)
	Warn(operation, path string, err error)
	Error(operation, path string, err error)
	Debug(message string)
}

// SyncLogger writes structured operation logs through zap.
// Quiet suppresses per-file operations but never warnings or errors.
type SyncLogger struct {
	IsDryRun bool
	IsQuiet  bool
	RunID    string

	log *zap.Logger
}

// Options configures NewSyncLogger
type Options struct {
	DryRun bool
	Quiet  bool
	Debug  bool
	JSON   bool     // JSON lines instead of console output
	Output []string // zap output paths, stderr when empty
}

// NewSyncLogger builds a zap-backed SyncLogger tagged with a fresh run id
func NewSyncLogger(opts Options) (*SyncLogger, error) {
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	encoding := "console"
	if opts.JSON {
		encoding = "json"
	}

	output := opts.Output
	if len(output) == 0 {
		output = []string{"stderr"}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	runID := uuid.New().String()
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         encoding,
		EncoderConfig:    encoderCfg,
		OutputPaths:      output,
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    map[string]interface{}{"run_id": runID},
	}

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return &SyncLogger{
		IsDryRun: opts.DryRun,
		IsQuiet:  opts.Quiet,
		RunID:    runID,
		log:      log,
	}, nil
}

// NewWithZap wraps an existing zap logger
func NewWithZap(log *zap.Logger, dryRun, quiet bool) *SyncLogger {
	return &SyncLogger{IsDryRun: dryRun, IsQuiet: quiet, log: log}
}

func (l *SyncLogger) Copy(source, destination string) {
	l.operation("copy", zap.String("src", source), zap.String("dst", destination))
}

func (l *SyncLogger) Delete(path string) {
	l.operation("delete", zap.String("path", path))
}

func (l *SyncLogger) Mkdir(path string) {
	l.operation("mkdir", zap.String("path", path))
}

func (l *SyncLogger) Warn(operation, path string, err error) {
	l.log.Warn(operation+" failed",
		zap.String("path", path),
		zap.Error(err))
}

func (l *SyncLogger) Error(operation, path string, err error) {
	l.log.Error(operation+" failed",
		zap.String("path", path),
		zap.Error(err))
}

func (l *SyncLogger) Debug(message string) {
	l.log.Debug(message)
}

// Zap exposes the underlying logger for components that log structured events
func (l *SyncLogger) Zap() *zap.Logger {
	return l.log
}

// Sync flushes buffered entries
func (l *SyncLogger) Sync() error {
	return l.log.Sync()
}

func (l *SyncLogger) operation(op string, fields ...zap.Field) {
	if l.IsQuiet {
		return
	}
	if l.IsDryRun {
		l.log.Info("(dryrun) "+op, fields...)
		return
	}
	l.log.Info(op, fields...)
}

// NullLogger discards everything
type NullLogger struct{}

func (NullLogger) Copy(source, destination string)         {}
func (NullLogger) Delete(path string)                      {}
func (NullLogger) Mkdir(path string)                       {}
func (NullLogger) Warn(operation, path string, err error)  {}
func (NullLogger) Error(operation, path string, err error) {}
func (NullLogger) Debug(message string)                    {}
