package repositories

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/case-conductor/backend/internal/audit"
	"github.com/google/uuid"
)

// Query is an immutable filtered view over a Table. Builder methods return
// a new Query; terminals run exactly one statement.
type Query[T any, P Entity[T]] struct {
	t      *Table[T, P]
	conds  []string
	args   []any
	order  []string
	limit  int
	offset int
	err    error
}

func (q *Query[T, P]) clone() *Query[T, P] {
	c := *q
	c.conds = append([]string(nil), q.conds...)
	c.args = append([]any(nil), q.args...)
	c.order = append([]string(nil), q.order...)
	return &c
}

// Where adds an equality condition. An untyped nil value matches NULL.
func (q *Query[T, P]) Where(column string, value any) *Query[T, P] {
	c := q.clone()
	if !c.t.known[column] {
		c.err = fmt.Errorf("%w %q on %s", ErrUnknownColumn, column, c.t.name)
		return c
	}
	if value == nil {
		c.conds = append(c.conds, column+" IS NULL")
		return c
	}
	c.conds = append(c.conds, column+" = ?")
	c.args = append(c.args, value)
	return c
}

// WhereIn adds a membership condition. An empty set matches nothing.
func (q *Query[T, P]) WhereIn(column string, values []uuid.UUID) *Query[T, P] {
	c := q.clone()
	if !c.t.known[column] {
		c.err = fmt.Errorf("%w %q on %s", ErrUnknownColumn, column, c.t.name)
		return c
	}
	if len(values) == 0 {
		c.conds = append(c.conds, "1 = 0")
		return c
	}
	marks := make([]string, len(values))
	for i, v := range values {
		marks[i] = "?"
		c.args = append(c.args, v)
	}
	c.conds = append(c.conds, fmt.Sprintf("%s IN (%s)", column, strings.Join(marks, ", ")))
	return c
}

// Filter adds a raw condition using ? placeholders.
func (q *Query[T, P]) Filter(expr string, args ...any) *Query[T, P] {
	c := q.clone()
	if strings.Count(expr, "?") != len(args) {
		c.err = fmt.Errorf("filter %q: expected %d args, got %d", expr, strings.Count(expr, "?"), len(args))
		return c
	}
	c.conds = append(c.conds, "("+expr+")")
	c.args = append(c.args, args...)
	return c
}

// OrderBy sorts by column, descending when desc is set. Calls accumulate.
func (q *Query[T, P]) OrderBy(column string, desc bool) *Query[T, P] {
	c := q.clone()
	if !c.t.known[column] {
		c.err = fmt.Errorf("%w %q on %s", ErrUnknownColumn, column, c.t.name)
		return c
	}
	if desc {
		column += " DESC"
	}
	c.order = append(c.order, column)
	return c
}

func (q *Query[T, P]) Limit(n int) *Query[T, P] {
	c := q.clone()
	c.limit = n
	return c
}

func (q *Query[T, P]) Offset(n int) *Query[T, P] {
	c := q.clone()
	c.offset = n
	return c
}

// where renders the WHERE clause numbering placeholders from start+1.
func (q *Query[T, P]) where(start int) string {
	if len(q.conds) == 0 {
		return ""
	}
	n := start
	var b strings.Builder
	b.WriteString(" WHERE ")
	for i, cond := range q.conds {
		if i > 0 {
			b.WriteString(" AND ")
		}
		for _, r := range cond {
			if r == '?' {
				n++
				fmt.Fprintf(&b, "$%d", n)
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Get returns the record with id visible through this view.
func (q *Query[T, P]) Get(ctx context.Context, id uuid.UUID) (P, error) {
	return q.Where("id", id).First(ctx)
}

// First returns the first matching record or db.ErrNoRows.
func (q *Query[T, P]) First(ctx context.Context) (P, error) {
	if q.err != nil {
		return nil, q.err
	}
	sql, args := q.Limit(1).selectSQL()
	return q.t.scan(q.t.q.QueryRow(ctx, sql, args...))
}

func (q *Query[T, P]) selectSQL() (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(q.t.allColumns(), ", "), q.t.name)
	b.WriteString(q.where(0))
	args := append([]any(nil), q.args...)

	order := q.order
	if len(order) == 0 {
		order = []string{audit.ColCreatedOn, "id"}
	}
	b.WriteString(" ORDER BY " + strings.Join(order, ", "))

	if q.limit > 0 {
		args = append(args, q.limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if q.offset > 0 {
		if q.limit <= 0 {
			// sqlite requires a LIMIT before OFFSET
			args = append(args, int64(math.MaxInt64))
			fmt.Fprintf(&b, " LIMIT $%d", len(args))
		}
		args = append(args, q.offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}
	return b.String(), args
}

func (q *Query[T, P]) List(ctx context.Context) ([]P, error) {
	if q.err != nil {
		return nil, q.err
	}
	sql, args := q.selectSQL()
	rows, err := q.t.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", q.t.name, err)
	}
	defer rows.Close()

	var out []P
	for rows.Next() {
		e, err := q.t.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count ignores ordering, limit and offset.
func (q *Query[T, P]) Count(ctx context.Context) (int, error) {
	if q.err != nil {
		return 0, q.err
	}
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", q.t.name, q.where(0))
	var n int
	if err := q.t.q.QueryRow(ctx, sql, q.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.t.name, err)
	}
	return n, nil
}

// Update applies set to every matching record in one statement, forcing
// the modifier to actor and the modification time to now. It returns the
// number of affected rows.
func (q *Query[T, P]) Update(ctx context.Context, set map[string]any, actor audit.Actor) (int64, error) {
	if err := q.bulkCheck(); err != nil {
		return 0, err
	}
	for col := range set {
		if audit.IsColumn(col) {
			return 0, fmt.Errorf("%w: %s", ErrAuditColumn, col)
		}
		if col == "id" || !q.t.known[col] {
			return 0, fmt.Errorf("%w %q on %s", ErrUnknownColumn, col, q.t.name)
		}
	}
	n, err := q.bulk(ctx, q.t.policy.BulkUpdate(set, actor))
	if err != nil {
		return 0, fmt.Errorf("bulk update %s: %w", q.t.name, err)
	}
	q.t.count("bulk_update")
	q.t.affected("bulk_update", n)
	return n, nil
}

// Delete soft-deletes every matching record in one statement without
// touching modification metadata.
func (q *Query[T, P]) Delete(ctx context.Context, actor audit.Actor) (int64, error) {
	if err := q.bulkCheck(); err != nil {
		return 0, err
	}
	n, err := q.bulk(ctx, q.t.policy.BulkDelete(actor))
	if err != nil {
		return 0, fmt.Errorf("bulk delete %s: %w", q.t.name, err)
	}
	q.t.count("bulk_delete")
	q.t.affected("bulk_delete", n)
	return n, nil
}

var errBulkWindow = errors.New("bulk operations do not support limit or offset")

func (q *Query[T, P]) bulkCheck() error {
	if q.err != nil {
		return q.err
	}
	if q.limit > 0 || q.offset > 0 {
		return errBulkWindow
	}
	return nil
}

func (q *Query[T, P]) bulk(ctx context.Context, assignments map[string]any) (int64, error) {
	cols := make([]string, 0, len(assignments))
	for c := range assignments {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(q.args))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
		args = append(args, assignments[c])
	}
	args = append(args, q.args...)

	sql := fmt.Sprintf("UPDATE %s SET %s%s", q.t.name, strings.Join(sets, ", "), q.where(len(cols)))
	return q.t.q.Exec(ctx, sql, args...)
}
