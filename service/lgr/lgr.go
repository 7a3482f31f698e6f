package lgr

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mdobak/go-xerrors"
	"github.com/natefinch/lumberjack"
)

// Logger is the process wide structured logger.
var Logger = New(os.Stdout, slog.LevelInfo)

type stackFrame struct {
	Func   string `json:"func"`
	Source string `json:"source"`
	Line   int    `json:"line"`
}

// New builds a JSON logger that expands error attributes with their stack trace.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	}))
}

// WithStack attaches the caller's stack trace to err unless the chain already
// carries one. Errors logged through Logger then render a "trace" group.
func WithStack(err error) error {
	if err == nil || len(xerrors.StackTrace(err)) > 0 {
		return err
	}
	return xerrors.WithStackTrace(err, 1)
}

// NewConsole builds a coloured human readable logger for terminals.
func NewConsole(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	}))
}

// Init replaces Logger. The "text" format logs to stderr in colour; anything
// else logs JSON to stdout. When logFile is set, JSON records also go to a
// rolling file.
func Init(level, format, logFile string) {
	lvl := ParseLevel(level)

	if format == "text" {
		Logger = NewConsole(os.Stderr, lvl)
		if logFile != "" {
			file := New(NewRollingFile(logFile, 50), lvl)
			Logger = slog.New(fanout{Logger.Handler(), file.Handler()})
		}
		return
	}

	var w io.Writer = os.Stdout
	if logFile != "" {
		w = io.MultiWriter(os.Stdout, NewRollingFile(logFile, 50))
	}
	Logger = New(w, lvl)
}

// NewRollingFile returns a size-capped, compressed rolling file writer.
func NewRollingFile(filename string, maxSizeMB int) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB, // MB
		MaxBackups: 5,
		MaxAge:     7,    // days
		Compress:   true, // compress old logs
	}
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindAny {
		return a
	}

	if err, ok := a.Value.Any().(error); ok {
		a.Value = fmtErr(err)
	}

	return a
}

func fmtErr(err error) slog.Value {
	groupValues := []slog.Attr{
		slog.String("msg", err.Error()),
	}

	frames := marshalStack(err)
	if frames != nil {
		groupValues = append(groupValues, slog.Any("trace", frames))
	}

	return slog.GroupValue(groupValues...)
}

func marshalStack(err error) []stackFrame {
	trace := xerrors.StackTrace(err)
	if len(trace) == 0 {
		return nil
	}

	frames := trace.Frames()
	s := make([]stackFrame, len(frames))
	for i, v := range frames {
		s[i] = stackFrame{
			Source: filepath.Join(filepath.Base(filepath.Dir(v.File)), filepath.Base(v.File)),
			Func:   filepath.Base(v.Function),
			Line:   v.Line,
		}
	}

	return s
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
