package core

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/leadcrm/internal/logging"
)

// AuditAction names a data-changing operation.
type AuditAction string

const (
	ActionLeadCreate     AuditAction = "lead_create"
	ActionLeadUpdate     AuditAction = "lead_update"
	ActionLeadAssign     AuditAction = "lead_assign"
	ActionLeadDelete     AuditAction = "lead_delete"
	ActionLeadImport     AuditAction = "lead_import"
	ActionUserCreate     AuditAction = "user_create"
	ActionUserUpdate     AuditAction = "user_update"
	ActionUserDelete     AuditAction = "user_delete"
	ActionTeamCreate     AuditAction = "team_create"
	ActionTeamDelete     AuditAction = "team_delete"
	ActionLocationCreate AuditAction = "location_create"
	ActionLocationDelete AuditAction = "location_delete"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionLeadImport, ActionLeadDelete, ActionUserDelete, ActionTeamDelete, ActionLocationDelete:
		return SeverityHigh
	case ActionLeadUpdate, ActionLeadAssign, ActionUserUpdate:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// logAudit writes one audit entry to the structured log. Entries carry the
// request id and the client address recorded by the web layer.
func logAudit(ctx context.Context, action AuditAction, attrs ...any) {
	meta := RequestMetaFromContext(ctx)
	args := append([]any{
		slog.String("action", string(action)),
		slog.String("severity", string(determineSeverity(action))),
		slog.String("ip", meta.IPAddress),
		slog.String("user_agent", meta.UserAgent),
	}, attrs...)
	logging.FromContext(ctx).Info("audit", args...)
}
