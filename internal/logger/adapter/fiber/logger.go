// Package fiber provides the zerolog access log middleware for the HTTP API.
package fiber

import (
	"bytes"
	"io"
	"net/url"
	"os"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/logger"
)

const redacted = "***"

// Config implements fiber middleware struct.
type Config struct {
	// Next defines a function to skip this middleware when returned true.
	//
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Config of the logger.
	Config logger.Log

	// CacheControlError max-age caching on chain errors.
	CacheControlError string

	// CheckAliveURI for disabling logging of check alive http calls.
	CheckAliveURI string

	// RedactQuery lists query parameters whose values never reach the access log.
	//
	// Optional. Default: password, token, code
	RedactQuery []string

	// RequestIDKey is the locals key the requestid middleware stores the id under.
	//
	// Optional. Default: requestid
	RequestIDKey string

	// Output replaces the configured writers. Used by tests.
	Output io.Writer
}

// ConfigDefault is the default config for fiber.
var ConfigDefault = Config{
	Next:              nil,
	CacheControlError: "max-age=0",
	RedactQuery:       []string{"password", "token", "code"},
	RequestIDKey:      "requestid",
}

func configDefault(config ...Config) Config {
	if len(config) < 1 {
		return ConfigDefault
	}

	cfg := config[0]

	if cfg.CacheControlError == "" {
		cfg.CacheControlError = ConfigDefault.CacheControlError
	}

	if cfg.RedactQuery == nil {
		cfg.RedactQuery = ConfigDefault.RedactQuery
	}

	if cfg.RequestIDKey == "" {
		cfg.RequestIDKey = ConfigDefault.RequestIDKey
	}

	return cfg
}

// New creates a new fiber access logging middleware using zerolog.
func New(config ...Config) fiber.Handler {
	var (
		writers    []io.Writer
		cfg        = configDefault(config...)
		once       sync.Once
		errHandler fiber.ErrorHandler
	)

	if cfg.Config.File.Enabled {
		if w := newRollingAccessFile(&cfg.Config); w != nil {
			writers = append(writers, w)
		}
	}

	// Console.Enabled is the master switch, EnableAccessLogToConsole opts the access log in.
	if cfg.Config.Console.Enabled && cfg.Config.EnableAccessLogToConsole {
		if cfg.Config.Console.UseConsoleWriter {
			writers = append(writers, zerolog.ConsoleWriter{
				Out:          os.Stdout,
				NoColor:      false,
				TimeFormat:   zerolog.TimeFieldFormat,
				PartsExclude: []string{"level"},
			})
		} else {
			writers = append(writers, os.Stdout)
		}
	}

	if cfg.Output != nil {
		writers = []io.Writer{cfg.Output}
	}

	accessLogger := zerolog.New(
		zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Logger().
		Level(zerolog.NoLevel)

	return func(ctx *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(ctx) {
			return ctx.Next()
		}

		once.Do(func() {
			errHandler = ctx.App().ErrorHandler
		})

		start := time.Now()

		// the error is rendered here so the logged status is the one sent to the client
		chainErr := ctx.Next()
		if chainErr != nil {
			if errH := errHandler(ctx, chainErr); errH != nil {
				_ = ctx.SendStatus(fiber.StatusInternalServerError) //nolint:errcheck // ok here
				ctx.Response().Header.Set(fiber.HeaderCacheControl, cfg.CacheControlError)
			}
		}

		elapsed := time.Since(start).Seconds()
		ctx.Response().Header.Set("X-Performance", strconv.FormatFloat(elapsed, 'f', 6, 64))

		if cfg.Config.DisableCheckAlive && bytes.Equal(ctx.Request().URI().Path(), []byte(cfg.CheckAliveURI)) {
			return nil
		}

		// fasthttp normalizes duplicate slashes, ctx.Path keeps the requested form.
		p := ctx.Path()
		if qs := ctx.Request().URI().QueryString(); len(qs) > 0 {
			p = p + "?" + redactQuery(string(qs), cfg.RedactQuery)
		}

		event := accessLogger.Log().Str("IP", ctx.IP()).
			Int("status", ctx.Response().StatusCode()).
			Float64("X-Performance", elapsed).
			Str("URI", p).
			Str("method", ctx.Method()).
			Bytes("host", ctx.Request().Host()).
			Str(fiber.HeaderXForwardedFor, ctx.Get(fiber.HeaderXForwardedFor)).
			Str(fiber.HeaderUserAgent, ctx.Get(fiber.HeaderUserAgent)).
			Str(fiber.HeaderOrigin, ctx.Get(fiber.HeaderOrigin)).
			Str(fiber.HeaderReferer, ctx.Get(fiber.HeaderReferer))

		if id, ok := ctx.Locals(cfg.RequestIDKey).(string); ok && id != "" {
			event.Str("requestId", id)
		}

		if chainErr != nil {
			event.Err(chainErr)
		}

		event.Send()

		return nil
	}
}

// redactQuery masks sensitive parameter values. The original encoding is kept when nothing matched.
func redactQuery(raw string, keys []string) string {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return redacted
	}

	changed := false

	for _, k := range keys {
		if _, ok := values[k]; ok {
			values.Set(k, redacted)
			changed = true
		}
	}

	if !changed {
		return raw
	}

	return values.Encode()
}

// newRollingAccessFile uses lumberjack to create file based access log.
func newRollingAccessFile(cfg *logger.Log) io.Writer {
	if cfg.File.Path != "" {
		if err := os.MkdirAll(cfg.File.Path, 0o750); err != nil {
			log.Error().Err(err).Str("path", cfg.File.Path).Msg("can't create log directory")

			return nil
		}
	}

	return &lumberjack.Logger{
		Filename:   path.Join(cfg.File.Path, cfg.File.AccessLog),
		MaxSize:    cfg.File.AccessMaxSize,
		MaxAge:     cfg.File.AccessMaxAge,
		MaxBackups: cfg.File.AccessMaxBackups,
		LocalTime:  false,
		Compress:   false,
	}
}
