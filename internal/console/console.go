// Package console provides the debug-output collaborator spec.md §1
// treats as external: a text console the core can log to. Within this
// core only scheduler transitions are logged (sched.SwitchTo, at debug
// level). See spec.md §6, §7.
//
// Grounded on src/kernel.go's uartInit/uartPutc/uartGetc/uartPuts
// (Raspberry Pi PL011 register set), adapted here to the legacy
// 8250/16550 UART a PC-class machine exposes at port 0x3F8, and on
// this pack's general preference for zap over bare fmt.Printf/log
// debug output.
package console

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Disabled mirrors the teacher's DISABLE_DBG_CONSOLE compile-time
// gate: when true, New returns a Logger whose methods are no-ops,
// without the caller needing its own branch at every call site.
var Disabled = false

// Logger is the narrow surface this core logs through. A zap.Logger
// satisfies none of this directly; Default below adapts one.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Sync() error
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l *zapLogger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *zapLogger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *zapLogger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }
func (l *zapLogger) Sync() error                       { return l.sugar.Sync() }

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}
func (noopLogger) Sync() error           { return nil }

// New builds the default Logger: a zap.SugaredLogger writing to w in
// a console encoding, unless Disabled is set, in which case every
// call is a no-op. debug selects DebugLevel over InfoLevel, standing
// in for the CLI's --debug flag (see cmd/kernelsim).
func New(w zapcore.WriteSyncer, debug bool) Logger {
	if Disabled {
		return noopLogger{}
	}
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = "" // the UART backend has no wall clock worth trusting
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), w, level)
	return &zapLogger{sugar: zap.New(core).Sugar()}
}

// Default returns the stderr-backed Logger cmd/kernelsim uses outside
// of a hardware boot, equivalent to the teacher's host-side fmt
// fallback when no UART is wired up.
func Default(debug bool) Logger {
	return New(zapcore.AddSync(os.Stderr), debug)
}
