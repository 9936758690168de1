package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/out"
)

type Options struct {
	Level    string
	Timezone string
	// Pretty включает человекочитаемый вывод для локальной разработки
	Pretty bool
	Writer io.Writer
}

type ZerologLogger struct {
	logger        zerolog.Logger
	defaultFields out.LogFields
	module        string
}

func NewZerologLogger(opts Options) *ZerologLogger {
	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil || opts.Timezone == "" {
		loc = time.UTC
	}

	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}
	if opts.Pretty {
		writer = zerolog.ConsoleWriter{
			Out:          writer,
			TimeFormat:   "2006-01-02 15:04:05.000",
			TimeLocation: loc,
		}
	}

	zl := zerolog.New(writer).
		Level(toZerologLevel(out.ParseLogLevel(opts.Level))).
		With().
		Timestamp().
		Logger()

	return &ZerologLogger{
		logger:        zl,
		defaultFields: make(out.LogFields),
		module:        "unknown",
	}
}

func toZerologLevel(level out.LogLevel) zerolog.Level {
	switch level {
	case out.LogLevelDebug:
		return zerolog.DebugLevel
	case out.LogLevelWarn:
		return zerolog.WarnLevel
	case out.LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *ZerologLogger) WithFields(fields out.LogFields) out.LoggerPort {
	newLogger := &ZerologLogger{
		logger:        l.logger,
		defaultFields: make(out.LogFields, len(l.defaultFields)+len(fields)),
		module:        l.module,
	}

	// Копируем существующие поля
	for k, v := range l.defaultFields {
		newLogger.defaultFields[k] = v
	}

	// Добавляем новые поля
	for k, v := range fields {
		newLogger.defaultFields[k] = v
	}

	return newLogger
}

func (l *ZerologLogger) WithModule(module string) out.LoggerPort {
	return &ZerologLogger{
		logger:        l.logger,
		defaultFields: l.defaultFields,
		module:        module,
	}
}

func (l *ZerologLogger) Debug(event string, fields out.LogFields) {
	l.log(zerolog.DebugLevel, event, fields)
}

func (l *ZerologLogger) Info(event string, fields out.LogFields) {
	l.log(zerolog.InfoLevel, event, fields)
}

func (l *ZerologLogger) Warn(event string, fields out.LogFields) {
	l.log(zerolog.WarnLevel, event, fields)
}

func (l *ZerologLogger) Error(event string, fields out.LogFields) {
	l.log(zerolog.ErrorLevel, event, fields)
}

func (l *ZerologLogger) log(level zerolog.Level, event string, fields out.LogFields) {
	e := l.logger.WithLevel(level)
	if !e.Enabled() {
		return
	}

	// Объединяем поля
	merged := make(map[string]interface{}, len(l.defaultFields)+len(fields))
	for k, v := range l.defaultFields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	e.Str("module", l.module).
		Fields(merged).
		Msg(event)
}
