package audit

import (
	"context"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/port"
)

// Tee fans every audit event out to multiple sinks.
type Tee struct {
	sinks []port.AuditLog
}

// NewTee combines the supplied sinks; nil entries are ignored.
func NewTee(sinks ...port.AuditLog) *Tee {
	kept := make([]port.AuditLog, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	return &Tee{sinks: kept}
}

// Record forwards the event to every sink.
func (t *Tee) Record(ctx context.Context, event string, fields map[string]any) {
	for _, sink := range t.sinks {
		sink.Record(ctx, event, fields)
	}
}

// Close closes every sink, returning the first error encountered.
func (t *Tee) Close() error {
	var first error
	for _, sink := range t.sinks {
		if err := sink.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
