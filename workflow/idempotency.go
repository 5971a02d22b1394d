package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/disaster_backend/models"
	"gorm.io/gorm"
)

var ErrIdempotencyInProgress = errors.New("idempotency in progress")

const (
	submissionScope      = "report.submit"
	staleIdempotencyTime = 5 * time.Minute
)

// SubmissionRecord is what a repeated Idempotency-Key replays.
type SubmissionRecord struct {
	Outcome  Outcome
	Category string
	Severity string
	ReportId *int
}

type SubmissionLedger interface {
	// Begin returns the stored record when the key already succeeded, nil when the caller should proceed.
	Begin(ctx context.Context, userId int, key string) (*SubmissionRecord, error)
	Succeed(ctx context.Context, userId int, key string, record SubmissionRecord) error
	Fail(ctx context.Context, userId int, key string, cause error) error
}

// GormSubmissionLedger stores keys in the idempotency_keys table.
type GormSubmissionLedger struct {
	DB *gorm.DB
}

func NewGormSubmissionLedger(db *gorm.DB) *GormSubmissionLedger {
	return &GormSubmissionLedger{DB: db}
}

func (l *GormSubmissionLedger) where(ctx context.Context, userId int, key string) *gorm.DB {
	return l.DB.WithContext(ctx).Model(&models.IdempotencyKey{}).
		Where("user_id = ? AND scope = ? AND idem_key = ?", userId, submissionScope, key)
}

// Begin inserts STARTED. A duplicate key means an earlier attempt exists; its status decides the result.
func (l *GormSubmissionLedger) Begin(ctx context.Context, userId int, key string) (*SubmissionRecord, error) {
	row := models.IdempotencyKey{
		UserId:  userId,
		Scope:   submissionScope,
		IdemKey: key,
		Status:  models.IdempotencyStatusStarted,
	}
	err := l.DB.WithContext(ctx).Create(&row).Error
	if err == nil {
		return nil, nil
	}
	if !models.IsDuplicateKeyErr(err) {
		return nil, err
	}

	var existing models.IdempotencyKey
	if err := l.where(ctx, userId, key).First(&existing).Error; err != nil {
		return nil, err
	}

	switch existing.Status {
	case models.IdempotencyStatusSucceeded:
		return &SubmissionRecord{
			Outcome:  Outcome(existing.Outcome),
			Category: existing.Category,
			Severity: existing.Severity,
			ReportId: existing.ReportId,
		}, nil
	case models.IdempotencyStatusStarted:
		if time.Since(existing.UpdatedAt) < staleIdempotencyTime {
			return nil, ErrIdempotencyInProgress
		}
	}
	// FAILED or stale STARTED: take the key over.
	return nil, l.where(ctx, userId, key).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error
}

func (l *GormSubmissionLedger) Succeed(ctx context.Context, userId int, key string, record SubmissionRecord) error {
	return l.where(ctx, userId, key).Updates(map[string]interface{}{
		"status":     models.IdempotencyStatusSucceeded,
		"outcome":    string(record.Outcome),
		"category":   record.Category,
		"severity":   record.Severity,
		"report_id":  record.ReportId,
		"last_error": nil,
	}).Error
}

func (l *GormSubmissionLedger) Fail(ctx context.Context, userId int, key string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return l.where(ctx, userId, key).Updates(map[string]interface{}{
		"status":     models.IdempotencyStatusFailed,
		"last_error": &msg,
	}).Error
}

// PurgeIdempotencyKeys removes keys last touched before cutoff.
func PurgeIdempotencyKeys(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("scope = ? AND updated_at < ?", submissionScope, cutoff).
		Delete(&models.IdempotencyKey{})
	return res.RowsAffected, res.Error
}
