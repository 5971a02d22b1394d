package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmdatafocus/disaster_backend/config"
	"gorm.io/gorm"
)

// ReportEvent is an outbox row written in the same transaction as the report change.
// OutboxDispatcher publishes it to Pub/Sub after commit.
type ReportEvent struct {
	ID               int          `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	ReportId         int          `gorm:"not null;index" json:"report_id"`
	EventType        string       `gorm:"size:50;not null" json:"event_type"`
	FromStatus       ReportStatus `gorm:"size:20" json:"from_status"`
	ToStatus         ReportStatus `gorm:"size:20;not null" json:"to_status"`
	ActorId          int          `json:"actor_id"`
	Payload          []byte       `gorm:"type:blob" json:"payload"`
	OccurredAt       time.Time    `gorm:"not null" json:"occurred_at"`
	PublishStatus    string       `gorm:"size:20;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time   `gorm:"index" json:"published_at"`
	PubSubMessageId  *string      `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int          `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time   `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time   `gorm:"index" json:"locked_at"`
	LockedBy         *string      `gorm:"size:100" json:"locked_by"`
	LastPublishError *string      `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string       `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func ConvertToReportEventMessage(ev ReportEvent) config.ReportEventMessage {
	return config.ReportEventMessage{
		EventId:       ev.ID,
		ReportId:      ev.ReportId,
		EventType:     ev.EventType,
		FromStatus:    string(ev.FromStatus),
		ToStatus:      string(ev.ToStatus),
		ActorId:       ev.ActorId,
		OccurredAt:    ev.OccurredAt,
		Payload:       ev.Payload,
		CorrelationId: ev.CorrelationId,
	}
}

func writeReportEvent(ctx context.Context, tx *gorm.DB, eventType string, from ReportStatus, report *Report, actorId int, at time.Time) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	ev := ReportEvent{
		ReportId:      report.ID,
		EventType:     eventType,
		FromStatus:    from,
		ToStatus:      report.Status,
		ActorId:       actorId,
		Payload:       payload,
		OccurredAt:    at,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&ev).Error
}

// ResetReportEvents puts DEAD or FAILED events back in the dispatch queue.
// It returns how many rows were reset.
func ResetReportEvents(ctx context.Context, db *gorm.DB, ids []int) (int64, error) {
	q := db.WithContext(ctx).
		Model(&ReportEvent{}).
		Where("publish_status IN ?", []string{OutboxPublishStatusDead, OutboxPublishStatusFailed})
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	res := q.Updates(map[string]interface{}{
		"publish_status":     OutboxPublishStatusPending,
		"publish_attempts":   0,
		"next_attempt_at":    nil,
		"locked_at":          nil,
		"locked_by":          nil,
		"last_publish_error": nil,
	})
	return res.RowsAffected, res.Error
}

// PurgeSentReportEvents deletes SENT events published before cutoff.
func PurgeSentReportEvents(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("publish_status = ? AND published_at < ?", OutboxPublishStatusSent, cutoff).
		Delete(&ReportEvent{})
	return res.RowsAffected, res.Error
}
