package audit

import (
	"context"
	"log/slog"

	"cargotrack/pkg/platform/attrs"
)

// Emitter accepts audit events.
type Emitter interface {
	Emit(ctx context.Context, base Event) error
}

// LogAudit logs action to the structured logger and emits it to publisher.
// Subject, session and user are taken from the attribute list.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher Emitter, action Action, attrList ...any) {
	args := append(attrList, "event", string(action), "log_type", "audit")

	if logger != nil {
		logger.InfoContext(ctx, string(action), args...)
	}

	if publisher == nil {
		return
	}

	event := Event{
		Action:    action,
		Subject:   extractSubject(attrList),
		SessionID: attrs.ExtractString(attrList, "session_id"),
		User:      attrs.ExtractString(attrList, "user"),
		Detail:    attrs.ExtractString(attrList, "detail"),
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.DebugContext(ctx, "audit event not queued", "event", string(action), "error", err)
	}
}

func extractSubject(attrList []any) string {
	for _, key := range []string{"item_id", "container_id", "snapshot"} {
		if val := attrs.ExtractString(attrList, key); val != "" {
			return val
		}
	}
	return ""
}
