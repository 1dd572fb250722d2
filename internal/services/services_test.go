package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/case-conductor/backend/internal/audit"
	"github.com/case-conductor/backend/internal/db"
	"github.com/case-conductor/backend/internal/events"
	"github.com/case-conductor/backend/internal/metrics"
	"github.com/case-conductor/backend/internal/models"
	"github.com/case-conductor/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, stream string, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if stream == events.StreamTestExecution {
		p.events = append(p.events, e)
	}
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// manualClock advances only when told to.
type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type env struct {
	store     *repositories.Store
	clock     *manualClock
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	cycles    *CycleService
	runs      *RunService
	results   *ResultService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(conn.Close)
	require.NoError(t, db.RunMigrations(ctx, conn, zap.NewNop()))

	clock := &manualClock{t: time.Date(2011, 6, 1, 9, 0, 0, 0, time.UTC)}
	m := metrics.NewNop()
	store := repositories.NewStore(conn, audit.NewPolicy(clock.now), m)
	pub := &recordingPublisher{}
	log := zap.NewNop()
	return &env{
		store:     store,
		clock:     clock,
		publisher: pub,
		metrics:   m,
		cycles:    NewCycleService(store, pub, m, log),
		runs:      NewRunService(store, pub, m, log),
		results:   NewResultService(store, pub, m, log),
	}
}

func ptr[T any](v T) *T { return &v }

// seed creates an active cycle with one active run holding one included case.
func (e *env) seed(t *testing.T, actor audit.Actor) (*models.TestCycle, *models.TestRun, *models.IncludedTestCase) {
	t.Helper()
	ctx := context.Background()
	product := uuid.New()

	cycle, err := e.cycles.Create(ctx, CycleInput{ProductID: &product, Name: ptr("Release 1.0")}, actor)
	require.NoError(t, err)
	cycle, err = e.cycles.Activate(ctx, cycle.ID, actor)
	require.NoError(t, err)

	run, err := e.runs.Create(ctx, RunInput{TestCycleID: &cycle.ID, Name: ptr("Smoke")}, actor)
	require.NoError(t, err)
	run, err = e.runs.Activate(ctx, run.ID, actor)
	require.NoError(t, err)

	inc, err := e.runs.AddCase(ctx, run.ID, IncludeInput{TestCaseVersionID: uuid.New(), Priority: 1}, actor)
	require.NoError(t, err)
	return cycle, run, inc
}

// resultFor returns the single result created for an assignment.
func (e *env) resultFor(t *testing.T, a *models.TestCaseAssignment) *models.TestResult {
	t.Helper()
	page, err := e.results.List(context.Background(), ResultFilter{AssignmentID: &a.ID}, ListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	return page.Items[0]
}
