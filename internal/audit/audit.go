// Package audit implements creation, modification and soft-deletion
// tracking shared by every persisted record.
//
// The Policy is applied by the storage accessor in internal/repositories;
// records only embed Fields and never stamp themselves.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Audit column names, identical for every table.
const (
	ColCreatedBy  = "created_by"
	ColModifiedBy = "modified_by"
	ColDeletedBy  = "deleted_by"
	ColCreatedOn  = "created_on"
	ColModifiedOn = "modified_on"
	ColDeletedOn  = "deleted_on"
)

// Columns lists the audit columns in storage order.
var Columns = []string{
	ColCreatedBy, ColModifiedBy, ColDeletedBy,
	ColCreatedOn, ColModifiedOn, ColDeletedOn,
}

// IsColumn reports whether name is one of the audit columns.
func IsColumn(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Actor identifies who performed an operation. Nil means no actor.
type Actor = *uuid.UUID

// By is a convenience for passing a concrete user id as an Actor.
func By(id uuid.UUID) Actor {
	return &id
}

// Fields are the audit columns embedded in every record.
type Fields struct {
	CreatedBy  *uuid.UUID `json:"createdBy,omitempty"`
	ModifiedBy *uuid.UUID `json:"modifiedBy,omitempty"`
	DeletedBy  *uuid.UUID `json:"deletedBy,omitempty"`
	CreatedOn  time.Time  `json:"createdOn"`
	ModifiedOn time.Time  `json:"modifiedOn"`
	DeletedOn  *time.Time `json:"deletedOn,omitempty"`
}

// IsDeleted reports whether the record has been soft deleted.
func (f *Fields) IsDeleted() bool { return f.DeletedOn != nil }

// Targets returns scan destinations in Columns order.
func (f *Fields) Targets() []any {
	return []any{&f.CreatedBy, &f.ModifiedBy, &f.DeletedBy, &f.CreatedOn, &f.ModifiedOn, &f.DeletedOn}
}

// Values returns column values in Columns order.
func (f *Fields) Values() []any {
	return []any{f.CreatedBy, f.ModifiedBy, f.DeletedBy, f.CreatedOn, f.ModifiedOn, f.DeletedOn}
}

// Clock returns the current time.
type Clock func() time.Time

// UTCNow is the default clock. Timestamps are truncated to microseconds so
// that values survive a round trip through postgres unchanged.
func UTCNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Policy stamps audit fields for single-record and bulk operations.
type Policy struct {
	now Clock
}

// NewPolicy returns a policy using clock, or UTCNow when clock is nil.
func NewPolicy(clock Clock) *Policy {
	if clock == nil {
		clock = UTCNow
	}
	return &Policy{now: clock}
}

// Now returns the policy clock's current time.
func (p *Policy) Now() time.Time { return p.now() }

// Create stamps a record built through an explicit create call. Both
// creator and modifier are set to actor even when actor is nil.
func (p *Policy) Create(f *Fields, actor Actor) {
	now := p.now()
	f.CreatedBy = copyActor(actor)
	f.ModifiedBy = copyActor(actor)
	f.CreatedOn = now
	f.ModifiedOn = now
}

// Save stamps a record about to be written by a save call. The creator is
// only ever set on the first save, so a first save without an actor leaves
// it nil for good.
func (p *Policy) Save(f *Fields, isNew bool, actor Actor) {
	now := p.now()
	if isNew {
		f.CreatedOn = now
		if actor != nil {
			f.CreatedBy = copyActor(actor)
		}
	}
	if !isNew || actor != nil {
		f.ModifiedBy = copyActor(actor)
	}
	f.ModifiedOn = now
}

// Delete stamps deletion metadata. Modification metadata is left alone.
func (p *Policy) Delete(f *Fields, actor Actor) {
	now := p.now()
	f.DeletedBy = copyActor(actor)
	f.DeletedOn = &now
}

// BulkUpdate returns the assignments for a bulk update: set plus the
// forced modifier and modification time. set is not modified.
func (p *Policy) BulkUpdate(set map[string]any, actor Actor) map[string]any {
	out := make(map[string]any, len(set)+2)
	for k, v := range set {
		out[k] = v
	}
	out[ColModifiedBy] = copyActor(actor)
	out[ColModifiedOn] = p.now()
	return out
}

// BulkDelete returns the assignments for a bulk soft delete.
func (p *Policy) BulkDelete(actor Actor) map[string]any {
	return map[string]any{
		ColDeletedBy: copyActor(actor),
		ColDeletedOn: p.now(),
	}
}

func copyActor(a Actor) *uuid.UUID {
	if a == nil {
		return nil
	}
	id := *a
	return &id
}
