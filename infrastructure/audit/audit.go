package audit

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/uptrace/bun"

	"packdash/models"
)

// SystemActor is recorded when no user is attached to a change.
const SystemActor = "system"

// Service writes audit records inside the caller transaction.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) Write(ctx context.Context, tx bun.Tx, actor, action, entityType, entityID string, before, after any) error {
	beforeJSON, err := marshal(before)
	if err != nil {
		return err
	}
	afterJSON, err := marshal(after)
	if err != nil {
		return err
	}
	if strings.TrimSpace(actor) == "" {
		actor = SystemActor
	}
	log := &models.AuditLog{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		BeforeJSON: beforeJSON,
		AfterJSON:  afterJSON,
	}
	_, err = tx.NewInsert().Model(log).Exec(ctx)
	return err
}

// List returns the audit trail of one entity, oldest first.
func (s *Service) List(ctx context.Context, tx bun.Tx, entityType, entityID string) ([]models.AuditLog, error) {
	logs := make([]models.AuditLog, 0)
	err := tx.NewSelect().
		Model(&logs).
		Where("entity_type = ?", entityType).
		Where("entity_id = ?", entityID).
		OrderExpr("id ASC").
		Scan(ctx)
	return logs, err
}

func marshal(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
