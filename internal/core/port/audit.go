package port

import "context"

// AuditLog records security-relevant events append-only. Implementations must
// never fail the triggering request: delivery problems are logged and dropped.
type AuditLog interface {
	Record(ctx context.Context, event string, fields map[string]any)
	Close() error
}
