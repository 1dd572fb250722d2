package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/case-conductor/backend/internal/auth"
	"github.com/case-conductor/backend/internal/config"
	"github.com/case-conductor/backend/internal/rbac"
	"github.com/case-conductor/backend/internal/remote"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const usage = `usage: ccctl <command> [flags]

commands:
  token -user ID -role ROLE        issue an access token
  cycles [-product ID] [-deleted]  list test cycles
  runs -cycle ID                   list the runs of a cycle
  cases -run ID                    list the cases included in a run
  assign -case ID -tester ID       assign an included case
  results -run ID | -assignment ID list results
  start|pass|approve ID            move a result
  fail ID -step N -actual TEXT
  invalidate|reject ID -comment TEXT
  approve-cycle|approve-run ID     approve every finished result
  clone ID [-assignments]          clone a cycle

The API is REMOTE_BASE_URL; the token is read from CC_TOKEN.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	log, _ := zap.NewDevelopment()
	defer log.Sync()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RemoteTimeout+5*time.Second)
	defer cancel()

	client := remote.NewClient(cfg.RemoteBaseURL, os.Getenv("CC_TOKEN"), cfg.RemoteTimeout, log)
	if err := run(ctx, cfg, client, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, c *remote.Client, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	out := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer out.Flush()

	switch cmd {
	case "token":
		user := fs.String("user", "", "user id")
		role := fs.String("role", rbac.RoleTester, "tester, manager or admin")
		_ = fs.Parse(args)
		id, err := uuid.Parse(*user)
		if err != nil {
			return fmt.Errorf("invalid -user: %w", err)
		}
		if !rbac.IsValidRole(*role) {
			return fmt.Errorf("unknown role %q", *role)
		}
		tok, err := auth.GenerateJWT(cfg.JWTSecret, id, *role, cfg.JWTExpiration)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, tok)
		return nil

	case "cycles":
		product := fs.String("product", "", "product id")
		deleted := fs.Bool("deleted", false, "include deleted cycles")
		_ = fs.Parse(args)
		list := c.TestCycles()
		if *product != "" {
			list = list.Filter("productId", *product)
		}
		if *deleted {
			list = list.IncludeDeleted()
		}
		cycles, err := list.List(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "ID\tNAME\tSTATUS")
		for _, cy := range cycles {
			fmt.Fprintf(out, "%s\t%s\t%s\n", cy.ID, cy.Name, cy.Status)
		}
		return nil

	case "runs":
		cycleID := fs.String("cycle", "", "cycle id")
		_ = fs.Parse(args)
		cycle, err := c.TestCycle(ctx, mustID(*cycleID))
		if err != nil {
			return err
		}
		runs, err := cycle.TestRuns().List(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "ID\tNAME\tSTATUS")
		for _, r := range runs {
			fmt.Fprintf(out, "%s\t%s\t%s\n", r.ID, r.Name, r.Status)
		}
		return nil

	case "cases":
		runID := fs.String("run", "", "run id")
		_ = fs.Parse(args)
		cases, err := c.IncludedTestCases().Filter("testRunId", mustID(*runID).String()).List(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "ID\tVERSION\tPRIORITY\tORDER")
		for _, inc := range cases {
			fmt.Fprintf(out, "%s\t%s\t%d\t%d\n", inc.ID, inc.TestCaseVersionID, inc.Priority, inc.RunOrder)
		}
		return nil

	case "assign":
		caseID := fs.String("case", "", "included test case id")
		tester := fs.String("tester", "", "tester id")
		_ = fs.Parse(args)
		inc, err := c.IncludedTestCase(ctx, mustID(*caseID))
		if err != nil {
			return err
		}
		a, err := inc.Assign(ctx, mustID(*tester))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, a.ID)
		return nil

	case "results":
		runID := fs.String("run", "", "run id")
		assignmentID := fs.String("assignment", "", "assignment id")
		_ = fs.Parse(args)
		list := c.TestResults()
		if *runID != "" {
			list = list.Filter("testRunId", mustID(*runID).String())
		}
		if *assignmentID != "" {
			list = list.Filter("assignmentId", mustID(*assignmentID).String())
		}
		results, err := list.List(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "ID\tTESTER\tSTATUS\tAPPROVAL")
		for _, r := range results {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", r.ID, r.TesterID, r.Status, r.Approval)
		}
		return nil

	case "start", "pass", "approve", "fail", "invalidate", "reject":
		step := fs.Int("step", 0, "failed step number")
		actual := fs.String("actual", "", "actual result")
		comment := fs.String("comment", "", "comment")
		_ = fs.Parse(args[min(1, len(args)):])
		if len(args) == 0 {
			return fmt.Errorf("%s needs a result id", cmd)
		}
		r, err := c.TestResult(ctx, mustID(args[0]))
		if err != nil {
			return err
		}
		switch cmd {
		case "start":
			err = r.Start(ctx)
		case "pass":
			err = r.FinishSucceed(ctx)
		case "approve":
			err = r.Approve(ctx)
		case "fail":
			err = r.FinishFail(ctx, *step, *actual)
		case "invalidate":
			err = r.FinishInvalidate(ctx, *comment)
		case "reject":
			err = r.Reject(ctx, *comment)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", r.ID, r.Status, r.Approval)
		return nil

	case "approve-cycle", "approve-run":
		if len(args) == 0 {
			return fmt.Errorf("%s needs an id", cmd)
		}
		if cmd == "approve-cycle" {
			cycle, err := c.TestCycle(ctx, mustID(args[0]))
			if err != nil {
				return err
			}
			return cycle.ApproveAllResults(ctx)
		}
		r, err := c.TestRun(ctx, mustID(args[0]))
		if err != nil {
			return err
		}
		return r.ApproveAllResults(ctx)

	case "clone":
		assignments := fs.Bool("assignments", false, "copy assignments")
		_ = fs.Parse(args[min(1, len(args)):])
		if len(args) == 0 {
			return fmt.Errorf("clone needs a cycle id")
		}
		cycle, err := c.TestCycle(ctx, mustID(args[0]))
		if err != nil {
			return err
		}
		clone, err := cycle.Clone(ctx, *assignments)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, clone.ID)
		return nil
	}

	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

func mustID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid id %q\n", s)
		os.Exit(2)
	}
	return id
}
