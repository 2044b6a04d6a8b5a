package order

import "github.com/google/uuid"

// QueryOrdersModel filters order listings.
type QueryOrdersModel struct {
	Ids         []uuid.UUID
	EmployeeIds []int64
	Statuses    []Status
	Limit       int
	Offset      int
}
