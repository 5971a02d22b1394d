package models

import "time"

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

// IdempotencyKey makes client retries of a submission replay the first outcome.
// Unique constraint: (user_id, scope, idem_key).
type IdempotencyKey struct {
	ID        int               `gorm:"primary_key" json:"id"`
	UserId    int               `gorm:"not null;index:uniq_idem,unique" json:"user_id"`
	Scope     string            `gorm:"size:100;not null;index:uniq_idem,unique" json:"scope"`
	IdemKey   string            `gorm:"size:255;not null;index:uniq_idem,unique" json:"idem_key"`
	Status    IdempotencyStatus `gorm:"size:20;not null;index" json:"status"`
	Outcome   string            `gorm:"size:20" json:"outcome"`
	Category  string            `gorm:"size:50" json:"category"`
	Severity  string            `gorm:"size:20" json:"severity"`
	ReportId  *int              `json:"report_id"`
	LastError *string           `gorm:"type:text" json:"last_error"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime;index" json:"updated_at"`
}
