package jobs

import (
	"context"

	"github.com/HuuVinh0901/shoe-store-backend/internal/services"
)

// Job is a named unit of background work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// OverdueOrderCanceler is the part of the order service the sweep job drives.
type OverdueOrderCanceler interface {
	CancelOverdueOrders(ctx context.Context) (services.SweepResult, error)
}

// OverdueOrderJob cancels orders whose deferred payment never arrived.
type OverdueOrderJob struct {
	orders OverdueOrderCanceler
}

// NewOverdueOrderJob creates the sweep job.
func NewOverdueOrderJob(orders OverdueOrderCanceler) *OverdueOrderJob {
	return &OverdueOrderJob{orders: orders}
}

func (j *OverdueOrderJob) Name() string {
	return "cancel-overdue-orders"
}

// Run performs one sweep. Per-order failures are counted by the sweep, not returned.
func (j *OverdueOrderJob) Run(ctx context.Context) error {
	_, err := j.orders.CancelOverdueOrders(ctx)
	return err
}
