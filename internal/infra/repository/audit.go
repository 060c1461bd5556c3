package repository

import (
	"context"
	"encoding/json"

	"boxoffice/internal/infra"
	"boxoffice/internal/infra/db"
	"boxoffice/internal/usecase/shared"

	"github.com/google/uuid"
)

type AuditLog struct {
	db db.DBTX
}

func NewAuditLog(dbtx db.DBTX) *AuditLog {
	return &AuditLog{db: dbtx}
}

const insertAuditSQL = `
INSERT INTO audit_log (id, entity_type, entity_id, action, actor_id, actor_label, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func (a *AuditLog) Append(ctx context.Context, entry shared.AuditEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return infra.WrapRepoErr(infra.KindDBFailure, "failed to encode audit payload", err)
	}
	var actorID *uuid.UUID
	if entry.Actor.ID != uuid.Nil {
		actorID = &entry.Actor.ID
	}
	_, err = a.db.Exec(ctx, insertAuditSQL,
		uuid.New(), entry.EntityType, entry.EntityID, entry.Action,
		actorID, entry.Actor.Label, payload, entry.At,
	)
	if err != nil {
		return wrapPgErr("failed to insert audit entry", err)
	}
	return nil
}
