package logging

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Poster is the part of *fluent.Fluent the handler uses.
type Poster interface {
	Post(tag string, message interface{}) error
}

// FluentHandler posts each record as a flat map tagged with its lowercase level.
// Group names become dotted key prefixes.
type FluentHandler struct {
	poster Poster
	level  slog.Leveler
	attrs  []slog.Attr
	group  string
}

func NewFluentHandler(p Poster, level slog.Leveler) *FluentHandler {
	return &FluentHandler{poster: p, level: level}
}

func (h *FluentHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *FluentHandler) Handle(_ context.Context, r slog.Record) error {
	data := make(map[string]interface{}, len(h.attrs)+r.NumAttrs()+3)
	for _, a := range h.attrs {
		flatten(data, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(data, h.group, a)
		return true
	})
	data["level"] = r.Level.String()
	data["message"] = r.Message
	data["timestamp"] = r.Time.UTC().Format(time.RFC3339Nano)
	return h.poster.Post(strings.ToLower(r.Level.String()), data)
}

func (h *FluentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *FluentHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = join(h.group, name)
	return &next
}

func flatten(data map[string]interface{}, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, ga := range v.Group() {
			flatten(data, join(prefix, a.Key), ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	key := join(prefix, a.Key)
	switch v.Kind() {
	case slog.KindString:
		data[key] = v.String()
	case slog.KindInt64:
		data[key] = v.Int64()
	case slog.KindUint64:
		data[key] = v.Uint64()
	case slog.KindFloat64:
		data[key] = v.Float64()
	case slog.KindBool:
		data[key] = v.Bool()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			data[key] = err.Error()
			return
		}
		data[key] = v.String()
	default:
		data[key] = v.String()
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	return prefix + "." + key
}
