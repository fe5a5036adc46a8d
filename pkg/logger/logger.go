package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		output = file
	}
	return NewWithWriter(output, level, cfg.Format, cfg.TimeFormat), nil
}

// NewWithWriter builds a logger on an arbitrary writer.
func NewWithWriter(w io.Writer, level zerolog.Level, format, timeFormat string) *Logger {
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = timeFormat
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
	}
	zl := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		CallerWithSkipFrameCount(4).
		Logger()
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger carrying fields on every entry.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.AddToContext(ctx)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.emit(l.zl.Info(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.emit(l.zl.Error(), msg, fields)
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.emit(l.zl.Debug(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.emit(l.zl.Warn(), msg, fields)
}

func (l *Logger) emit(event *zerolog.Event, msg string, fields []Field) {
	if event == nil {
		return
	}
	for _, field := range fields {
		field.AddTo(event)
	}
	event.Msg(msg)
}

// Field types for structured logging.
type Field interface {
	AddTo(event *zerolog.Event)
	AddToContext(ctx zerolog.Context) zerolog.Context
}

type StringField struct {
	Key   string
	Value string
}

func (f StringField) AddTo(event *zerolog.Event) { event.Str(f.Key, f.Value) }
func (f StringField) AddToContext(c zerolog.Context) zerolog.Context {
	return c.Str(f.Key, f.Value)
}

type IntField struct {
	Key   string
	Value int
}

func (f IntField) AddTo(event *zerolog.Event) { event.Int(f.Key, f.Value) }
func (f IntField) AddToContext(c zerolog.Context) zerolog.Context {
	return c.Int(f.Key, f.Value)
}

type Int64Field struct {
	Key   string
	Value int64
}

func (f Int64Field) AddTo(event *zerolog.Event) { event.Int64(f.Key, f.Value) }
func (f Int64Field) AddToContext(c zerolog.Context) zerolog.Context {
	return c.Int64(f.Key, f.Value)
}

type FloatField struct {
	Key   string
	Value float64
}

func (f FloatField) AddTo(event *zerolog.Event) { event.Float64(f.Key, f.Value) }
func (f FloatField) AddToContext(c zerolog.Context) zerolog.Context {
	return c.Float64(f.Key, f.Value)
}

type ErrorField struct {
	Value error
}

func (f ErrorField) AddTo(event *zerolog.Event) { event.Err(f.Value) }
func (f ErrorField) AddToContext(c zerolog.Context) zerolog.Context {
	return c.Err(f.Value)
}

type AnyField struct {
	Key   string
	Value interface{}
}

func (f AnyField) AddTo(event *zerolog.Event) { event.Interface(f.Key, f.Value) }
func (f AnyField) AddToContext(c zerolog.Context) zerolog.Context {
	return c.Interface(f.Key, f.Value)
}

type BoolField struct {
	Key   string
	Value bool
}

func (f BoolField) AddTo(event *zerolog.Event) { event.Bool(f.Key, f.Value) }
func (f BoolField) AddToContext(c zerolog.Context) zerolog.Context {
	return c.Bool(f.Key, f.Value)
}

// --- Field constructors ---

func String(key, value string) Field { return StringField{Key: key, Value: value} }

func Int(key string, value int) Field { return IntField{Key: key, Value: value} }

func Int64(key string, value int64) Field { return Int64Field{Key: key, Value: value} }

func Float64(key string, value float64) Field { return FloatField{Key: key, Value: value} }

func Error(err error) Field { return ErrorField{Value: err} }

func Any(key string, value interface{}) Field { return AnyField{Key: key, Value: value} }

func Bool(key string, value bool) Field { return BoolField{Key: key, Value: value} }

// Duration logs milliseconds.
func Duration(key string, value time.Duration) Field {
	return Int64Field{Key: key, Value: value.Milliseconds()}
}

func Strings(key string, value []string) Field {
	return String(key, strings.Join(value, ","))
}
