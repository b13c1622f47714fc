package types

import (
	"time"

	"github.com/google/uuid"
)

// OpenCutInput is an inclusive settlement period.
type OpenCutInput struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
}

type AttachOrderInput struct {
	CutID   uuid.UUID
	OrderID uuid.UUID
}
