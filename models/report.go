package models

import (
	"time"
)

// Report is one citizen disaster observation.
// Category and Severity are fixed at creation; Status moves only through ReportStore.CompareAndSetStatus.
type Report struct {
	ID               int              `gorm:"primary_key" json:"id"`
	Category         DisasterCategory `gorm:"size:50;not null;index:idx_report_dedup,priority:1" json:"classify"`
	Severity         Severity         `gorm:"size:20;not null;index:idx_report_dedup,priority:2" json:"severity"`
	Note             string           `gorm:"type:text" json:"note"`
	Location         string           `gorm:"size:500" json:"location"`
	ImageUrl         string           `gorm:"size:1024" json:"image_url"`
	ThumbnailUrl     string           `gorm:"size:1024" json:"thumbnail_url"`
	ReportedBy       int              `gorm:"not null;index" json:"reported_by"`
	Status           ReportStatus     `gorm:"type:enum('pending','verified','false','responding','resolved');not null;default:pending;index" json:"status"`
	VerifiedBy       *int             `gorm:"index" json:"verified_by"`
	VerificationNote *string          `gorm:"type:text" json:"verification_note"`
	CreatedAt        time.Time        `gorm:"not null;index:idx_report_dedup,priority:3" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"not null" json:"updated_at"`
}

type ReportFilter struct {
	Status     ReportStatus
	Category   DisasterCategory
	ReportedBy int
	From       *time.Time
	To         *time.Time
}

// ReportHistory is the audit trail of status transitions.
type ReportHistory struct {
	ID         int          `gorm:"primary_key" json:"id"`
	ReportId   int          `gorm:"not null;index" json:"report_id"`
	FromStatus ReportStatus `gorm:"size:20;not null" json:"from_status"`
	ToStatus   ReportStatus `gorm:"size:20;not null" json:"to_status"`
	ActorId    int          `gorm:"not null;index" json:"actor_id"`
	Note       *string      `gorm:"type:text" json:"note"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

func (ReportHistory) TableName() string {
	return "report_histories"
}
