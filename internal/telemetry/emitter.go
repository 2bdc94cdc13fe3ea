package telemetry

import (
	"context"

	"order-crm-sync/internal/telemetry/domain"
)

// EventEmitter emits sync audit events (e.g. to Kafka). Best-effort; callers
// log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.SyncEvent) error
}
