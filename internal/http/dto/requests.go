package dto

// Request bodies use the camelCase wire keys of the remote resource layer.
// Ids are strings and dates are "2006-01-02" or RFC 3339; handlers parse
// them so malformed values surface as 400s.

type CycleRequest struct {
	ProductID   *string `json:"productId,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	StartDate   *string `json:"startDate,omitempty"`
	EndDate     *string `json:"endDate,omitempty"`
}

type RunRequest struct {
	TestCycleID              *string `json:"testCycleId,omitempty"`
	ProductID                *string `json:"productId,omitempty"`
	Name                     *string `json:"name,omitempty"`
	Description              *string `json:"description,omitempty"`
	SelfAssignAllowed        *bool   `json:"selfAssignAllowed,omitempty"`
	SelfAssignLimit          *int    `json:"selfAssignLimit,omitempty"`
	SelfAssignPerEnvironment *bool   `json:"selfAssignPerEnvironment,omitempty"`
	UseLatestVersions        *bool   `json:"useLatestVersions,omitempty"`
	AutoAssignToTeam         *bool   `json:"autoAssignToTeam,omitempty"`
	StartDate                *string `json:"startDate,omitempty"`
	EndDate                  *string `json:"endDate,omitempty"`
}

type CloneRequest struct {
	CloneAssignments bool `json:"cloneAssignments"`
}

type AddCaseRequest struct {
	TestCaseVersionID string  `json:"testCaseVersionId"`
	TestCaseID        *string `json:"testCaseId,omitempty"`
	TestSuiteID       *string `json:"testSuiteId,omitempty"`
	PriorityID        int     `json:"priorityId"`
	RunOrder          int     `json:"runOrder"`
}

type AssignRequest struct {
	TesterID string `json:"testerId"`
}

type CommentRequest struct {
	Comment string `json:"comment"`
}

type FinishFailRequest struct {
	FailedStepNumber int    `json:"failedStepNumber"`
	ActualResult     string `json:"actualResult"`
}
