package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/case-conductor/backend/internal/audit"
	"github.com/case-conductor/backend/internal/db"
	"github.com/case-conductor/backend/internal/metrics"
	"github.com/google/uuid"
)

var (
	ErrUnsaved       = errors.New("record has no identity")
	ErrAuditColumn   = errors.New("audit columns cannot be assigned directly")
	ErrUnknownColumn = errors.New("unknown column")
)

// Entity is implemented by the pointer type of every audited record.
// Columns, Values and Targets cover the domain columns only, in the same
// order; id and the audit columns are handled by Table.
type Entity[T any] interface {
	*T
	Key() uuid.UUID
	SetKey(id uuid.UUID)
	AuditFields() *audit.Fields
	TableName() string
	Columns() []string
	Values() []any
	Targets() []any
}

// Table is the audited accessor for one table. Every write goes through
// the audit policy; reads go through one of the two views.
type Table[T any, P Entity[T]] struct {
	q       db.Querier
	policy  *audit.Policy
	metrics *metrics.Metrics
	name    string
	columns []string
	known   map[string]bool
}

func NewTable[T any, P Entity[T]](q db.Querier, policy *audit.Policy, m *metrics.Metrics) *Table[T, P] {
	var zero P = new(T)
	t := &Table[T, P]{
		q:       q,
		policy:  policy,
		metrics: m,
		name:    zero.TableName(),
		columns: zero.Columns(),
		known:   map[string]bool{"id": true},
	}
	for _, c := range t.columns {
		t.known[c] = true
	}
	for _, c := range audit.Columns {
		t.known[c] = true
	}
	return t
}

// With returns a copy of the table bound to q, typically a transaction
// owned by the caller.
func (t *Table[T, P]) With(q db.Querier) *Table[T, P] {
	c := *t
	c.q = q
	return &c
}

func (t *Table[T, P]) Name() string { return t.name }

// Everything is the unrestricted view, deleted records included.
func (t *Table[T, P]) Everything() *Query[T, P] {
	return &Query[T, P]{t: t}
}

// NotDeleted is the default view; soft-deleted records are invisible.
func (t *Table[T, P]) NotDeleted() *Query[T, P] {
	return &Query[T, P]{t: t, conds: []string{audit.ColDeletedOn + " IS NULL"}}
}

// Create assigns an id when e has none, stamps creator and modifier with
// actor and inserts the record.
func (t *Table[T, P]) Create(ctx context.Context, e P, actor audit.Actor) error {
	if e.Key() == uuid.Nil {
		e.SetKey(uuid.New())
	}
	t.policy.Create(e.AuditFields(), actor)
	if err := t.insert(ctx, e); err != nil {
		return err
	}
	t.count("create")
	return nil
}

// Save inserts a record without identity or updates an existing one.
// Updates write domain columns and modification metadata only.
func (t *Table[T, P]) Save(ctx context.Context, e P, actor audit.Actor) error {
	isNew := e.Key() == uuid.Nil
	t.policy.Save(e.AuditFields(), isNew, actor)

	if isNew {
		e.SetKey(uuid.New())
		if err := t.insert(ctx, e); err != nil {
			return err
		}
		t.count("save")
		return nil
	}

	f := e.AuditFields()
	sets := make([]string, 0, len(t.columns)+2)
	args := make([]any, 0, len(t.columns)+3)
	for i, c := range t.columns {
		sets = append(sets, fmt.Sprintf("%s = $%d", c, i+1))
	}
	args = append(args, e.Values()...)
	sets = append(sets,
		fmt.Sprintf("%s = $%d", audit.ColModifiedBy, len(args)+1),
		fmt.Sprintf("%s = $%d", audit.ColModifiedOn, len(args)+2),
	)
	args = append(args, f.ModifiedBy, f.ModifiedOn, e.Key())

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", t.name, strings.Join(sets, ", "), len(args))
	n, err := t.q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("save %s: %w", t.name, err)
	}
	if n == 0 {
		return db.ErrNoRows
	}
	t.count("save")
	return nil
}

// Delete soft-deletes e, persisting only the deletion columns.
func (t *Table[T, P]) Delete(ctx context.Context, e P, actor audit.Actor) error {
	if e.Key() == uuid.Nil {
		return ErrUnsaved
	}
	f := e.AuditFields()
	t.policy.Delete(f, actor)

	sql := fmt.Sprintf("UPDATE %s SET %s = $1, %s = $2 WHERE id = $3", t.name, audit.ColDeletedBy, audit.ColDeletedOn)
	n, err := t.q.Exec(ctx, sql, f.DeletedBy, *f.DeletedOn, e.Key())
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}
	if n == 0 {
		return db.ErrNoRows
	}
	t.count("delete")
	return nil
}

func (t *Table[T, P]) insert(ctx context.Context, e P) error {
	cols := t.allColumns()
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	args := make([]any, 0, len(cols))
	args = append(args, e.Key())
	args = append(args, e.Values()...)
	args = append(args, e.AuditFields().Values()...)

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := t.q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	return nil
}

func (t *Table[T, P]) allColumns() []string {
	cols := make([]string, 0, 1+len(t.columns)+len(audit.Columns))
	cols = append(cols, "id")
	cols = append(cols, t.columns...)
	cols = append(cols, audit.Columns...)
	return cols
}

func (t *Table[T, P]) scan(row db.Row) (P, error) {
	var e P = new(T)
	var id uuid.UUID
	dest := make([]any, 0, 1+len(t.columns)+len(audit.Columns))
	dest = append(dest, &id)
	dest = append(dest, e.Targets()...)
	dest = append(dest, e.AuditFields().Targets()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	e.SetKey(id)
	return e, nil
}

func (t *Table[T, P]) count(op string) {
	if t.metrics != nil {
		t.metrics.AuditOperations.WithLabelValues(t.name, op).Inc()
	}
}

func (t *Table[T, P]) affected(op string, n int64) {
	if t.metrics != nil {
		t.metrics.AffectedRows.WithLabelValues(t.name, op).Add(float64(n))
	}
}
