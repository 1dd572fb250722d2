package remote_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/case-conductor/backend/internal/audit"
	"github.com/case-conductor/backend/internal/auth"
	"github.com/case-conductor/backend/internal/config"
	"github.com/case-conductor/backend/internal/db"
	api "github.com/case-conductor/backend/internal/http"
	"github.com/case-conductor/backend/internal/http/handlers"
	"github.com/case-conductor/backend/internal/metrics"
	"github.com/case-conductor/backend/internal/models"
	"github.com/case-conductor/backend/internal/rbac"
	"github.com/case-conductor/backend/internal/remote"
	"github.com/case-conductor/backend/internal/repositories"
	"github.com/case-conductor/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "remote-test-secret"

// startAPI serves the real REST API over an in-memory store.
func startAPI(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	log := zap.NewNop()

	conn, err := db.OpenSQLite(ctx, ":memory:", log)
	require.NoError(t, err)
	t.Cleanup(conn.Close)
	require.NoError(t, db.RunMigrations(ctx, conn, log))

	m := metrics.NewNop()
	store := repositories.NewStore(conn, audit.NewPolicy(nil), m)
	hub := handlers.NewWSHub(secret, nil, log)
	cycles := services.NewCycleService(store, hub, m, log)
	runs := services.NewRunService(store, hub, m, log)
	results := services.NewResultService(store, hub, m, log)

	app := fiber.New()
	api.SetupRouter(app, &config.Config{JWTSecret: secret, CORSAllowOrigins: "*"}, log, nil, m, nil, api.Handlers{
		Health:    handlers.NewHealthHandler(store, log),
		Meta:      handlers.NewMetaHandler(),
		Cycles:    handlers.NewCycleHandler(cycles, runs, log),
		Runs:      handlers.NewRunHandler(runs, log),
		Execution: handlers.NewExecutionHandler(results, log),
	})

	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)
	return srv.URL + "/api/v1"
}

func token(t *testing.T, id uuid.UUID, role string) string {
	t.Helper()
	tok, err := auth.GenerateJWT(secret, id, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestRemote_TestExecution(t *testing.T) {
	ctx := context.Background()
	base := startAPI(t)
	managerID, testerID := uuid.New(), uuid.New()
	manager := remote.NewClient(base, token(t, managerID, rbac.RoleManager), 5*time.Second, zap.NewNop())
	tester := manager.WithToken(token(t, testerID, rbac.RoleTester))

	product := uuid.New()
	start := time.Date(2011, 6, 1, 0, 0, 0, 0, time.UTC)
	cycle := &remote.TestCycle{ProductID: &product, Name: "Release 3.0", StartDate: &start}
	require.NoError(t, remote.Create(ctx, manager, cycle))
	require.NotEqual(t, uuid.Nil, cycle.ID)
	assert.Equal(t, models.StatusDraft, cycle.Status)
	assert.Equal(t, &managerID, cycle.CreatedBy)
	require.NotNil(t, cycle.StartDate)
	assert.True(t, start.Equal(*cycle.StartDate))

	cycle.Description = "regression"
	require.NoError(t, remote.Update(ctx, cycle))
	fetched, err := manager.TestCycle(ctx, cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, "regression", fetched.Description)

	require.NoError(t, cycle.Activate(ctx))
	assert.Equal(t, models.StatusActive, cycle.Status)

	run := &remote.TestRun{TestCycleID: cycle.ID, Name: "Smoke"}
	require.NoError(t, remote.Create(ctx, manager, run))
	assert.Equal(t, &product, run.ProductID)
	require.NoError(t, run.Activate(ctx))

	parent, err := run.TestCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, cycle.ID, parent.ID)

	inc, err := run.AddCase(ctx, uuid.New(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, run.ID, inc.TestRunID)

	included, err := run.IncludedTestCases().List(ctx)
	require.NoError(t, err)
	require.Len(t, included, 1)
	assert.Equal(t, inc.ID, included[0].ID)

	assignment, err := inc.Assign(ctx, testerID)
	require.NoError(t, err)
	assert.Equal(t, testerID, assignment.TesterID)
	assert.Same(t, manager, assignment.Client())

	results, err := assignment.Results().List(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	result, err := tester.TestResult(ctx, results[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResultPending, result.Status)

	require.NoError(t, result.Start(ctx))
	assert.Equal(t, models.ResultStarted, result.Status)
	assert.NotNil(t, result.StartedOn)

	err = result.Start(ctx)
	var httpErr *remote.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusConflict, httpErr.Status)

	require.NoError(t, result.FinishInvalidate(ctx, "environment down"))
	assert.Equal(t, models.ResultInvalidated, result.Status)
	require.NotNil(t, result.Comment)
	assert.Equal(t, "environment down", *result.Comment)

	// Reviews need the approve permission.
	err = result.Reject(ctx, "nope")
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.Status)

	reviewed, err := manager.TestResult(ctx, result.ID)
	require.NoError(t, err)
	require.NoError(t, reviewed.Reject(ctx, "retest"))
	assert.Equal(t, models.ApprovalRejected, reviewed.Approval)

	clone, err := cycle.Clone(ctx, true)
	require.NoError(t, err)
	assert.NotEqual(t, cycle.ID, clone.ID)
	assert.Equal(t, models.StatusDraft, clone.Status)

	runs, err := clone.TestRuns().List(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	page, err := manager.TestCycles().Page(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Items, 1)

	err = run.AddSuite(ctx, uuid.New())
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
}

func TestRemote_Unauthenticated(t *testing.T) {
	base := startAPI(t)
	c := remote.NewClient(base, "", 0, zap.NewNop())
	_, err := c.TestRuns().List(context.Background())
	var httpErr *remote.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
	assert.Equal(t, "missing authorization header", httpErr.Message)
}
