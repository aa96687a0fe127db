package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// orderedTextHandler is a slog handler that pins field order:
// time level trace_id msg [other fields...]
type orderedTextHandler struct {
	w       io.Writer
	level   slog.Leveler
	localTZ *time.Location
	attrs   []slog.Attr
}

func newOrderedTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return &orderedTextHandler{
		w:       w,
		level:   level,
		localTZ: localTimezone(),
	}
}

// localTimezone prefers the TZ environment variable, then the system zone.
func localTimezone() *time.Location {
	if tz := os.Getenv("TZ"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	return time.Local
}

func (h *orderedTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *orderedTextHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)

	buf = append(buf, "time="...)
	buf = r.Time.In(h.localTZ).AppendFormat(buf, time.RFC3339)
	buf = append(buf, " level="...)
	buf = append(buf, r.Level.String()...)

	traceID := "-"
	other := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	collect := func(a slog.Attr) bool {
		if a.Key == "trace_id" && a.Value.Kind() == slog.KindString {
			traceID = a.Value.String()
			return true
		}
		other = append(other, a)
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	buf = append(buf, " trace_id="...)
	buf = append(buf, traceID...)
	buf = append(buf, " msg="...)
	buf = strconv.AppendQuote(buf, r.Message)

	for _, a := range other {
		buf = append(buf, ' ')
		buf = append(buf, a.Key...)
		buf = append(buf, '=')
		buf = appendValue(buf, a.Value)
	}
	buf = append(buf, '\n')

	_, err := h.w.Write(buf)
	return err
}

func (h *orderedTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &orderedTextHandler{w: h.w, level: h.level, localTZ: h.localTZ, attrs: merged}
}

func (h *orderedTextHandler) WithGroup(_ string) slog.Handler {
	// groups are flattened
	return h
}

func appendValue(buf []byte, v slog.Value) []byte {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return strconv.AppendQuote(buf, v.String())
	case slog.KindInt64:
		return strconv.AppendInt(buf, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(buf, v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.AppendFloat(buf, v.Float64(), 'g', -1, 64)
	case slog.KindBool:
		return strconv.AppendBool(buf, v.Bool())
	case slog.KindDuration:
		return append(buf, v.Duration().String()...)
	case slog.KindTime:
		return append(buf, v.Time().Format(time.RFC3339)...)
	default:
		if err, ok := v.Any().(error); ok {
			return strconv.AppendQuote(buf, err.Error())
		}
		return strconv.AppendQuote(buf, fmt.Sprintf("%+v", v.Any()))
	}
}

// NewLogger builds the run logger. An empty path logs to stderr; otherwise
// the log file is created (appended) and the returned closer owns it.
func NewLogger(path string) (*slog.Logger, io.Closer, error) {
	if path == "" {
		return slog.New(newOrderedTextHandler(os.Stderr, slog.LevelInfo)), nil, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return slog.New(newOrderedTextHandler(f, slog.LevelInfo)), f, nil
}
