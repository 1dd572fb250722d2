package models

import (
	"time"

	"github.com/google/uuid"
)

type TestRun struct {
	Record
	ProductID                *uuid.UUID `json:"productId,omitempty"`
	TestCycleID              uuid.UUID  `json:"testCycleId"`
	Name                     string     `json:"name"`
	Description              string     `json:"description"`
	Status                   Status     `json:"testRunStatusId"`
	SelfAssignAllowed        bool       `json:"selfAssignAllowed"`
	SelfAssignLimit          int        `json:"selfAssignLimit"`
	SelfAssignPerEnvironment bool       `json:"selfAssignPerEnvironment"`
	UseLatestVersions        bool       `json:"useLatestVersions"`
	AutoAssignToTeam         bool       `json:"autoAssignToTeam"`
	StartDate                *time.Time `json:"startDate,omitempty"`
	EndDate                  *time.Time `json:"endDate,omitempty"`
}

var testRunColumns = []string{
	"product_id", "test_cycle_id", "name", "description", "status",
	"self_assign_allowed", "self_assign_limit", "self_assign_per_environment",
	"use_latest_versions", "auto_assign_to_team", "start_date", "end_date",
}

func (r *TestRun) TableName() string { return "test_runs" }
func (r *TestRun) Columns() []string { return testRunColumns }

func (r *TestRun) Values() []any {
	return []any{
		r.ProductID, r.TestCycleID, r.Name, r.Description, r.Status,
		r.SelfAssignAllowed, r.SelfAssignLimit, r.SelfAssignPerEnvironment,
		r.UseLatestVersions, r.AutoAssignToTeam, r.StartDate, r.EndDate,
	}
}

func (r *TestRun) Targets() []any {
	return []any{
		&r.ProductID, &r.TestCycleID, &r.Name, &r.Description, &r.Status,
		&r.SelfAssignAllowed, &r.SelfAssignLimit, &r.SelfAssignPerEnvironment,
		&r.UseLatestVersions, &r.AutoAssignToTeam, &r.StartDate, &r.EndDate,
	}
}
