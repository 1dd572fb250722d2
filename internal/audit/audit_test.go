package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock returns t0, t0+1s, t0+2s, ... on successive calls.
func stepClock(t0 time.Time) Clock {
	n := 0
	return func() time.Time {
		t := t0.Add(time.Duration(n) * time.Second)
		n++
		return t
	}
}

var t0 = time.Date(2011, 6, 1, 12, 0, 0, 0, time.UTC)

func TestCreate_SetsCreatorAndModifier(t *testing.T) {
	p := NewPolicy(stepClock(t0))
	u := uuid.New()

	var f Fields
	p.Create(&f, By(u))

	require.NotNil(t, f.CreatedBy)
	require.NotNil(t, f.ModifiedBy)
	assert.Equal(t, u, *f.CreatedBy)
	assert.Equal(t, u, *f.ModifiedBy)
	assert.Equal(t, t0, f.CreatedOn)
	assert.Equal(t, t0, f.ModifiedOn)
	assert.False(t, f.IsDeleted())
}

func TestCreate_NoActorClearsBoth(t *testing.T) {
	p := NewPolicy(stepClock(t0))
	stale := uuid.New()
	f := Fields{CreatedBy: &stale, ModifiedBy: &stale}

	p.Create(&f, nil)

	assert.Nil(t, f.CreatedBy)
	assert.Nil(t, f.ModifiedBy)
}

func TestSave(t *testing.T) {
	u := uuid.New()

	tests := []struct {
		name         string
		isNew        bool
		actor        Actor
		wantCreated  bool
		wantModified bool
	}{
		{"new with actor", true, By(u), true, true},
		{"new without actor", true, nil, false, false},
		{"existing with actor", false, By(u), false, true},
		{"existing without actor", false, nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPolicy(stepClock(t0))
			var f Fields
			p.Save(&f, tt.isNew, tt.actor)

			if tt.wantCreated {
				require.NotNil(t, f.CreatedBy)
				assert.Equal(t, u, *f.CreatedBy)
			} else {
				assert.Nil(t, f.CreatedBy)
			}
			if tt.wantModified {
				require.NotNil(t, f.ModifiedBy)
				assert.Equal(t, u, *f.ModifiedBy)
			} else {
				assert.Nil(t, f.ModifiedBy)
			}
			assert.Equal(t, t0, f.ModifiedOn)
			if tt.isNew {
				assert.Equal(t, t0, f.CreatedOn)
			} else {
				assert.True(t, f.CreatedOn.IsZero())
			}
		})
	}
}

func TestSave_ExistingWithoutActorClearsModifier(t *testing.T) {
	p := NewPolicy(stepClock(t0))
	prev := uuid.New()
	f := Fields{ModifiedBy: &prev}

	p.Save(&f, false, nil)

	assert.Nil(t, f.ModifiedBy)
}

func TestSave_NeverBackfillsCreator(t *testing.T) {
	p := NewPolicy(stepClock(t0))
	var f Fields

	p.Save(&f, true, nil)
	created := f.CreatedOn
	p.Save(&f, false, By(uuid.New()))

	assert.Nil(t, f.CreatedBy)
	assert.Equal(t, created, f.CreatedOn)
	assert.NotNil(t, f.ModifiedBy)
}

func TestDelete_LeavesModificationAlone(t *testing.T) {
	p := NewPolicy(stepClock(t0))
	creator, deleter := uuid.New(), uuid.New()
	var f Fields
	p.Create(&f, By(creator))

	p.Delete(&f, By(deleter))

	require.True(t, f.IsDeleted())
	assert.Equal(t, t0.Add(time.Second), *f.DeletedOn)
	assert.Equal(t, deleter, *f.DeletedBy)
	assert.Equal(t, creator, *f.ModifiedBy)
	assert.Equal(t, t0, f.ModifiedOn)
}

func TestBulkUpdate_ForcesModification(t *testing.T) {
	p := NewPolicy(stepClock(t0))
	u := uuid.New()
	set := map[string]any{"name": "x", ColModifiedBy: "ignored"}

	out := p.BulkUpdate(set, By(u))

	assert.Equal(t, "x", out["name"])
	assert.Equal(t, &u, out[ColModifiedBy])
	assert.Equal(t, t0, out[ColModifiedOn])
	assert.Equal(t, "ignored", set[ColModifiedBy], "input map must not be mutated")
}

func TestBulkDelete(t *testing.T) {
	p := NewPolicy(stepClock(t0))

	out := p.BulkDelete(nil)

	assert.Len(t, out, 2)
	assert.Nil(t, out[ColDeletedBy])
	assert.Equal(t, t0, out[ColDeletedOn])
}

func TestActorIsCopied(t *testing.T) {
	p := NewPolicy(stepClock(t0))
	u := uuid.New()
	a := By(u)
	var f Fields
	p.Create(&f, a)

	*a = uuid.New()

	assert.Equal(t, u, *f.CreatedBy)
}

func TestIsColumn(t *testing.T) {
	assert.True(t, IsColumn(ColDeletedOn))
	assert.False(t, IsColumn("name"))
}

func TestUTCNow(t *testing.T) {
	now := UTCNow()
	assert.Equal(t, time.UTC, now.Location())
	assert.Zero(t, now.Nanosecond()%1000)
}
