// Package logging is the process-wide slog setup: a rotated file, an
// in-memory tail for the debug panel and crash dumps, and batched summaries
// for per-snapshot events.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Component names used as the "component" attribute on every record.
const (
	CompTransport = "transport"
	CompSnapshot  = "snapshot"
	CompSession   = "session"
	CompCompanion = "companion"
	CompRelay     = "relay"
	CompUI        = "ui"
	CompConfig    = "config"
)

// LogFileName is the rotated log file written inside Config.LogDir.
const LogFileName = "debug.log"

// Config mirrors the [logs] table of config.toml. Zero values pick the
// defaults applied by Init.
type Config struct {
	LogDir string
	Level  string // debug, info, warn or error
	Format string // json or text

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// RecentLines bounds the in-memory tail.
	RecentLines int

	AggregateIntervalSecs int

	// Debug enables logging even when LogDir is empty (a temp dir is used).
	Debug bool
}

func (c Config) withDefaults() Config {
	fill := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&c.MaxSizeMB, 10)
	fill(&c.MaxBackups, 5)
	fill(&c.MaxAgeDays, 10)
	fill(&c.RecentLines, 500)
	fill(&c.AggregateIntervalSecs, 30)
	return c
}

// sink is everything Init builds. It is replaced wholesale.
type sink struct {
	logger *slog.Logger
	ring   *RingBuffer
	agg    *Aggregator
	file   io.Closer
}

var (
	mu      sync.RWMutex
	current *sink
	discard = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// Init installs the global logger. Without Debug and LogDir nothing is kept.
func Init(cfg Config) {
	cfg = cfg.withDefaults()

	var s *sink
	if !cfg.Debug && cfg.LogDir == "" {
		s = &sink{logger: discard, agg: NewAggregator(nil, cfg.AggregateIntervalSecs)}
	} else {
		dir := cfg.LogDir
		if dir == "" {
			dir = os.TempDir()
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(dir, LogFileName),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		ring := NewRingBuffer(cfg.RecentLines)
		logger := slog.New(newHandler(io.MultiWriter(file, ring), cfg))
		s = &sink{
			logger: logger,
			ring:   ring,
			agg:    NewAggregator(logger, cfg.AggregateIntervalSecs),
			file:   file,
		}
		s.agg.Start()
	}

	mu.Lock()
	prev := current
	current = s
	mu.Unlock()
	prev.close()
}

func newHandler(w io.Writer, cfg Config) slog.Handler {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func active() *sink {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Logger returns the global logger, or a discarding one before Init.
func Logger() *slog.Logger {
	if s := active(); s != nil {
		return s.logger
	}
	return discard
}

// ForComponent returns a logger tagged with component. It looks up the
// global handler on every record, so package-level loggers declared before
// Init write to the configured sink.
func ForComponent(name string) *slog.Logger {
	return slog.New(componentHandler{component: slog.String("component", name)})
}

type componentHandler struct {
	component slog.Attr
	attrs     []slog.Attr
	groups    []string
}

func (h componentHandler) resolve() slog.Handler {
	out := Logger().Handler().WithAttrs([]slog.Attr{h.component})
	if len(h.attrs) > 0 {
		out = out.WithAttrs(h.attrs)
	}
	for _, g := range h.groups {
		out = out.WithGroup(g)
	}
	return out
}

func (h componentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return Logger().Handler().Enabled(ctx, level)
}

func (h componentHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.resolve().Handle(ctx, r)
}

func (h componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return h
}

func (h componentHandler) WithGroup(name string) slog.Handler {
	h.groups = append(append([]string(nil), h.groups...), name)
	return h
}

// Aggregate counts a high-frequency event into the next event_summary.
func Aggregate(component, event string, fields ...slog.Attr) {
	if s := active(); s != nil && s.agg != nil {
		s.agg.Record(component, event, fields...)
	}
}

// RecentLines returns up to n retained lines, oldest first.
func RecentLines(n int) []string {
	if s := active(); s != nil && s.ring != nil {
		return s.ring.Tail(n)
	}
	return nil
}

// DumpRingBuffer writes the retained lines to path. It is a no-op when
// nothing is retained.
func DumpRingBuffer(path string) error {
	if s := active(); s != nil && s.ring != nil {
		return s.ring.DumpToFile(path)
	}
	return nil
}

// Shutdown flushes pending summaries and closes the log file.
func Shutdown() {
	mu.Lock()
	prev := current
	current = nil
	mu.Unlock()
	prev.close()
}

func (s *sink) close() {
	if s == nil {
		return
	}
	if s.agg != nil {
		s.agg.Stop()
	}
	if s.file != nil {
		_ = s.file.Close()
	}
}
