package models

// Outbox publish statuses for ReportEvent.PublishStatus.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

const (
	ReportEventCreated       = "report.created"
	ReportEventStatusChanged = "report.status_changed"
)
