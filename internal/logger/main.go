// Package logger configures the global zerolog logger of the service.
package logger

import (
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logDirPerm = 0o750

	auditBufferSize   = 1000
	auditPollInterval = 10 * time.Millisecond

	componentField = "component"
	componentAudit = "audit"
)

// auditLogger is nil until Init ran with a dedicated audit file.
var auditLogger *zerolog.Logger //nolint:gochecknoglobals

// LevelWriter implements a struct to split logs by info and error and up level.
// See func WriteLevel about the separation.
type LevelWriter struct {
	io.Writer
	ErrorWriter io.Writer
	InfoWriter  io.Writer
	TraceWriter io.Writer
	WarnWriter  io.Writer
}

// WriteLevel splits logging by level and links the pointer to the target output depending on the logger defined.
func (lw *LevelWriter) WriteLevel(l zerolog.Level, p []byte) (n int, err error) {
	var w io.Writer

	if l == zerolog.Disabled {
		return 0, nil
	}

	switch {
	case l == zerolog.TraceLevel:
		w = lw.TraceWriter
	case l == zerolog.WarnLevel:
		w = lw.WarnWriter
	case l > zerolog.WarnLevel: // error and fatal panic go to error
		w = lw.ErrorWriter
	default:
		w = lw.InfoWriter // debug and info go to info
	}

	return w.Write(p) //nolint:wrapcheck
}

// Init the zerolog logger.
// Depending on the config it enables all, some or no logger at all.
// Be sure to enable at least one logger for output.
func Init(cfg Log) error {
	var (
		logLevel, err = zerolog.ParseLevel(cfg.LogLevel)
		writers       []io.Writer
		stack         bool
	)

	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("loglevel %s is not supported", cfg.LogLevel))
	}

	if cfg.ServiceName == "" {
		return ErrServiceNameIsEmpty
	}

	if cfg.AppName == "" {
		return ErrAppNameIsEmpty
	}

	// use zerolog stack marshal func if trace level is set
	if logLevel == zerolog.TraceLevel {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack //nolint:reassign
		stack = true
	}

	zerolog.SetGlobalLevel(logLevel)

	ph := NewPrometheusHook(cfg.ServiceName)

	if cfg.Console.Enabled {
		writers = append(writers, NewConsoleWriter(cfg))
	}

	if cfg.File.Enabled {
		if fw := newRollingInfoErrorFile(cfg); fw != nil {
			writers = append(writers, fw)
		}
	}

	mw := zerolog.MultiLevelWriter(writers...)

	ctx := zerolog.New(mw).Hook(ph).With().Timestamp().Str("app", cfg.AppName)

	switch {
	case cfg.ReportCaller && stack:
		log.Logger = ctx.Stack().Logger()
	case cfg.ReportCaller:
		log.Logger = ctx.Caller().Logger()
	default:
		log.Logger = ctx.Logger()
	}

	auditLogger = nil

	if cfg.File.Enabled && cfg.File.AuditLog != "" {
		l := zerolog.New(newRollingAuditFile(cfg)).Hook(ph).With().
			Timestamp().
			Str("app", cfg.AppName).
			Str(componentField, componentAudit).
			Logger()
		auditLogger = &l
	}

	return nil
}

// Audit returns the logger of the authorization decision trail.
// Without a dedicated audit file it is the global logger tagged with component=audit.
func Audit() *zerolog.Logger {
	if auditLogger != nil {
		return auditLogger
	}

	l := log.Logger.With().Str(componentField, componentAudit).Logger()

	return &l
}

// newRollingInfoErrorFile uses LevelWriter and lumberjack to create file based log.
func newRollingInfoErrorFile(cfg Log) io.Writer {
	if err := os.MkdirAll(cfg.File.Path, logDirPerm); err != nil {
		log.Error().Err(err).Str("path", cfg.File.Path).Msg("can't create log directory")

		return nil
	}

	var lw LevelWriter

	lw.ErrorWriter = rolling(cfg.File.Path, cfg.File.ErrorLog, cfg.File.ErrorMaxSize, cfg.File.ErrorMaxAge,
		cfg.File.ErrorMaxBackups)
	lw.InfoWriter = rolling(cfg.File.Path, cfg.File.InfoLog, cfg.File.InfoMaxSize, cfg.File.InfoMaxAge,
		cfg.File.InfoMaxBackups)
	lw.TraceWriter = rolling(cfg.File.Path, cfg.File.TraceLog, cfg.File.TraceMaxSize, cfg.File.TraceMaxAge,
		cfg.File.TraceMaxBackups)
	lw.WarnWriter = rolling(cfg.File.Path, cfg.File.WarnLog, cfg.File.WarnMaxSize, cfg.File.WarnMaxAge,
		cfg.File.WarnMaxBackups)

	return &lw
}

// newRollingAuditFile writes through a diode so a slow disk drops audit lines instead of stalling requests.
func newRollingAuditFile(cfg Log) io.Writer {
	var w io.Writer = os.Stdout

	if err := os.MkdirAll(cfg.File.Path, logDirPerm); err != nil {
		log.Error().Err(err).Str("path", cfg.File.Path).Msg("can't create log directory")
	} else {
		w = rolling(cfg.File.Path, cfg.File.AuditLog, cfg.File.AuditMaxSize, cfg.File.AuditMaxAge,
			cfg.File.AuditMaxBackups)
	}

	return diode.NewWriter(w, auditBufferSize, auditPollInterval, func(missed int) {
		log.Warn().Int("missed", missed).Msg("audit log dropped messages")
	})
}

func rolling(dir, name string, maxSize, maxAge, maxBackups int) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path.Join(dir, name),
		MaxSize:    maxSize,
		MaxAge:     maxAge,
		MaxBackups: maxBackups,
		LocalTime:  false,
		Compress:   false,
	}
}

// NewConsoleWriter creates a zerolog ConsoleWriter.
func NewConsoleWriter(cfg Log) io.Writer {
	var lw LevelWriter

	lw.ErrorWriter = os.Stderr
	lw.InfoWriter = os.Stdout
	lw.TraceWriter = os.Stderr
	lw.WarnWriter = os.Stderr

	if cfg.Console.UseConsoleWriter {
		lw.ErrorWriter = consoleWriter(os.Stderr)
		lw.InfoWriter = consoleWriter(os.Stdout)
		lw.TraceWriter = consoleWriter(os.Stderr)
		lw.WarnWriter = consoleWriter(os.Stderr)
	}

	return &lw
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    false,
		TimeFormat: zerolog.TimeFieldFormat,
	}
}
