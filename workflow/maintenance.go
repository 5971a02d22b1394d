package workflow

import (
	"context"
	"time"

	"github.com/mmdatafocus/disaster_backend/config"
	"github.com/mmdatafocus/disaster_backend/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Maintenance purges SENT report events and stale idempotency keys on a cron schedule.
type Maintenance struct {
	DB        *gorm.DB
	Logger    *logrus.Logger
	Retention time.Duration
	Schedule  string

	cron *cron.Cron
}

func NewMaintenance(db *gorm.DB, logger *logrus.Logger) *Maintenance {
	return &Maintenance{
		DB:        db,
		Logger:    logger,
		Retention: config.OutboxRetention(),
		Schedule:  config.MaintenanceSchedule(),
	}
}

func (m *Maintenance) Start() error {
	m.cron = cron.New()
	if _, err := m.cron.AddFunc(m.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		m.RunOnce(ctx)
	}); err != nil {
		return err
	}
	m.cron.Start()
	return nil
}

// Stop waits for a running job to finish or ctx to end.
func (m *Maintenance) Stop(ctx context.Context) {
	if m.cron == nil {
		return
	}
	select {
	case <-m.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (m *Maintenance) RunOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-m.Retention)

	events, err := models.PurgeSentReportEvents(ctx, m.DB, cutoff)
	if err != nil {
		config.LogError(m.Logger, "workflow", "Maintenance.RunOnce", "purge report events", nil, err)
	}
	keys, err := PurgeIdempotencyKeys(ctx, m.DB, cutoff)
	if err != nil {
		config.LogError(m.Logger, "workflow", "Maintenance.RunOnce", "purge idempotency keys", nil, err)
	}
	if m.Logger != nil {
		m.Logger.WithFields(logrus.Fields{
			"field":            "Maintenance",
			"events_purged":    events,
			"idempotency_keys": keys,
			"cutoff":           cutoff.Format(time.RFC3339),
		}).Info("maintenance run finished")
	}
}
