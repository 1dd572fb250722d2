package models

import (
	"github.com/case-conductor/backend/internal/audit"
	"github.com/google/uuid"
)

// Record is embedded by every persisted entity: identity plus audit columns.
type Record struct {
	ID uuid.UUID `json:"id"`
	audit.Fields
}

func (r *Record) Key() uuid.UUID             { return r.ID }
func (r *Record) SetKey(id uuid.UUID)        { r.ID = id }
func (r *Record) AuditFields() *audit.Fields { return &r.Fields }
