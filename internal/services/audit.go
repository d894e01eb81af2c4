package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ahmetk3436/powerboard/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type actorKey struct{}

// WithActor tags ctx with the operator that triggered an action.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the operator recorded by WithActor, or "anonymous".
func ActorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return "anonymous"
}

// AuditRecorder persists a record of every dispatched action.
type AuditRecorder interface {
	Record(ctx context.Context, action, target string, success bool, details map[string]interface{})
}

type Auditor struct {
	db *gorm.DB
}

func NewAuditor(db *gorm.DB) *Auditor {
	return &Auditor{db: db}
}

// Record writes one audit row. Failures are logged and never block the
// action that is being audited.
func (a *Auditor) Record(ctx context.Context, action, target string, success bool, details map[string]interface{}) {
	if a == nil || a.db == nil {
		return
	}
	var detailsJSON datatypes.JSON
	if details != nil {
		b, err := json.Marshal(details)
		if err == nil {
			detailsJSON = datatypes.JSON(b)
		}
	}

	entry := models.AuditLog{
		Actor:   ActorFrom(ctx),
		Action:  action,
		Target:  target,
		Success: success,
		Details: detailsJSON,
	}

	if err := a.db.WithContext(ctx).Create(&entry).Error; err != nil {
		slog.Error("Failed to record audit log", "action", action, "target", target, "error", err)
	}
}
