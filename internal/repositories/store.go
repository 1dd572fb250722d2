package repositories

import (
	"context"

	"github.com/case-conductor/backend/internal/audit"
	"github.com/case-conductor/backend/internal/db"
	"github.com/case-conductor/backend/internal/metrics"
	"github.com/case-conductor/backend/internal/models"
)

type (
	CycleTable      = Table[models.TestCycle, *models.TestCycle]
	RunTable        = Table[models.TestRun, *models.TestRun]
	IncludedTable   = Table[models.IncludedTestCase, *models.IncludedTestCase]
	AssignmentTable = Table[models.TestCaseAssignment, *models.TestCaseAssignment]
	ResultTable     = Table[models.TestResult, *models.TestResult]
)

// Store groups the test execution tables over one connection.
type Store struct {
	conn   db.Conn
	Policy *audit.Policy

	Cycles      *CycleTable
	Runs        *RunTable
	Included    *IncludedTable
	Assignments *AssignmentTable
	Results     *ResultTable
}

func NewStore(conn db.Conn, policy *audit.Policy, m *metrics.Metrics) *Store {
	return &Store{
		conn:        conn,
		Policy:      policy,
		Cycles:      NewTable[models.TestCycle](conn, policy, m),
		Runs:        NewTable[models.TestRun](conn, policy, m),
		Included:    NewTable[models.IncludedTestCase](conn, policy, m),
		Assignments: NewTable[models.TestCaseAssignment](conn, policy, m),
		Results:     NewTable[models.TestResult](conn, policy, m),
	}
}

func (s *Store) with(q db.Querier) *Store {
	return &Store{
		conn:        s.conn,
		Policy:      s.Policy,
		Cycles:      s.Cycles.With(q),
		Runs:        s.Runs.With(q),
		Included:    s.Included.With(q),
		Assignments: s.Assignments.With(q),
		Results:     s.Results.With(q),
	}
}

// InTx runs fn with a store whose tables are bound to one transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	return db.InTx(ctx, s.conn, func(q db.Querier) error {
		return fn(s.with(q))
	})
}

// Ping checks the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}
