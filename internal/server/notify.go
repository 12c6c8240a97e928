package server

import (
	"context"
	"log/slog"

	"docrev/internal/models"
	"docrev/internal/store"
)

// Auditor records one performed action.
type Auditor interface {
	Record(ctx context.Context, actorID, action string, payload map[string]any) error
}

type storeAuditor struct {
	store  *store.Store
	logger *slog.Logger
}

// NewStoreAuditor returns an Auditor writing audit log rows.
func NewStoreAuditor(st *store.Store, logger *slog.Logger) Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &storeAuditor{store: st, logger: logger}
}

// notificationRecipients merges the responsible user with the admin
// fan-out list, one entry per user.
func notificationRecipients(responsibleID string, adminIDs []string) []string {
	recipients := []string{}
	if responsibleID != "" {
		recipients = append(recipients, responsibleID)
	}
	for _, adminID := range adminIDs {
		if adminID == responsibleID {
			continue
		}
		recipients = append(recipients, adminID)
	}
	return recipients
}

func (a *storeAuditor) Record(ctx context.Context, actorID, action string, payload map[string]any) error {
	err := a.store.InsertAuditEntry(ctx, &models.AuditEntry{
		ActorID: actorID,
		Action:  action,
		Payload: payload,
	})
	if err != nil {
		// Audit failures never mask the action they describe.
		a.logger.Error("record audit entry", "action", action, "error", err)
	}
	return err
}
