package models

import (
	"time"

	"github.com/google/uuid"
)

type TestCycle struct {
	Record
	ProductID   *uuid.UUID `json:"productId,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      Status     `json:"testCycleStatusId"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
}

var testCycleColumns = []string{"product_id", "name", "description", "status", "start_date", "end_date"}

func (c *TestCycle) TableName() string { return "test_cycles" }
func (c *TestCycle) Columns() []string { return testCycleColumns }

func (c *TestCycle) Values() []any {
	return []any{c.ProductID, c.Name, c.Description, c.Status, c.StartDate, c.EndDate}
}

func (c *TestCycle) Targets() []any {
	return []any{&c.ProductID, &c.Name, &c.Description, &c.Status, &c.StartDate, &c.EndDate}
}
