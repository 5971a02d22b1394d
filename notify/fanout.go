package notify

import (
	"context"
	"errors"

	"github.com/mmdatafocus/disaster_backend/models"
	"github.com/mmdatafocus/disaster_backend/workflow"
)

// Fanout delivers a new-report broadcast through every channel and joins their errors.
type Fanout []workflow.Broadcaster

func (f Fanout) Broadcast(ctx context.Context, recipients []string, report *models.Report) error {
	var errs []error
	for _, b := range f {
		if b == nil {
			continue
		}
		if err := b.Broadcast(ctx, recipients, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
