package models

import (
	"time"

	"github.com/uptrace/bun"
)

// UploadRun records one processed spreadsheet upload.
type UploadRun struct {
	bun.BaseModel `bun:"table:upload_runs,alias:ur"`

	ID             string    `bun:"id,pk"`
	Filename       string    `bun:"filename,notnull"`
	TotalReceived  int       `bun:"total_received,notnull"`
	InsertedCount  int       `bun:"inserted_count,notnull"`
	DuplicateCount int       `bun:"duplicate_count,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull"`
}

// ExportRun records a generated export file.
type ExportRun struct {
	bun.BaseModel `bun:"table:export_runs,alias:er"`

	ID           int64     `bun:"id,pk,autoincrement"`
	ExportType   string    `bun:"export_type,notnull"`
	Format       string    `bun:"format,notnull"`
	Filename     string    `bun:"filename,notnull"`
	TotalRecords int       `bun:"total_records,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull"`
}

// AuditLog captures immutable change history for key operations.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID         int64     `bun:"id,pk,autoincrement"`
	Actor      string    `bun:"actor,notnull"`
	Action     string    `bun:"action,notnull"`
	EntityType string    `bun:"entity_type,notnull"`
	EntityID   string    `bun:"entity_id,notnull"`
	BeforeJSON string    `bun:"before_json"`
	AfterJSON  string    `bun:"after_json"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull"`
}
