package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/disaster_backend/utils"
	"gorm.io/gorm"
)

// ErrStatusMismatch means the report exists but is no longer in the expected status.
var ErrStatusMismatch = errors.New("report status changed")

// ReportStore is the gorm-backed source of truth for reports.
type ReportStore struct {
	DB *gorm.DB
	// EventsEnabled writes a ReportEvent outbox row alongside every create and transition.
	EventsEnabled bool
}

func NewReportStore(db *gorm.DB, eventsEnabled bool) *ReportStore {
	return &ReportStore{DB: db, EventsEnabled: eventsEnabled}
}

// StatusChange is a compare-and-set request on a report's status.
type StatusChange struct {
	ReportId int
	Expected ReportStatus
	Next     ReportStatus
	ActorId  int
	// Verifier and Note are written only when non-nil.
	Verifier *int
	Note     *string
	At       time.Time
}

// FindRecent returns the newest report with the same category and severity created within [since, until],
// skipping excludeStatus. It returns (nil, nil) when nothing matches.
func (s *ReportStore) FindRecent(ctx context.Context, category DisasterCategory, severity Severity, since, until time.Time, excludeStatus ReportStatus) (*Report, error) {
	var reports []Report
	err := s.DB.WithContext(ctx).
		Where("category = ? AND severity = ? AND status <> ? AND created_at >= ? AND created_at <= ?", category, severity, excludeStatus, since, until).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, nil
	}
	return &reports[0], nil
}

func (s *ReportStore) Create(ctx context.Context, report *Report) (*Report, error) {
	if report.Status == "" {
		report.Status = ReportStatusPending
	}
	if !report.Status.IsValid() {
		return nil, errors.New("invalid report status")
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	report.UpdatedAt = report.CreatedAt

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(report).Error; err != nil {
			return err
		}
		if s.EventsEnabled {
			return writeReportEvent(ctx, tx, ReportEventCreated, "", report, report.ReportedBy, report.CreatedAt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *ReportStore) GetById(ctx context.Context, id int) (*Report, error) {
	var report Report
	if err := s.DB.WithContext(ctx).First(&report, id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &report, nil
}

// CompareAndSetStatus moves a report from change.Expected to change.Next atomically.
// It fails with utils.ErrorRecordNotFound or ErrStatusMismatch and never writes in those cases.
func (s *ReportStore) CompareAndSetStatus(ctx context.Context, change StatusChange) (*Report, error) {
	if !change.Next.IsValid() {
		return nil, errors.New("invalid report status")
	}
	at := change.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var updated Report
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]interface{}{
			"status":     change.Next,
			"updated_at": at,
		}
		if change.Verifier != nil {
			fields["verified_by"] = *change.Verifier
		}
		if change.Note != nil {
			fields["verification_note"] = *change.Note
		}

		res := tx.Model(&Report{}).
			Where("id = ? AND status = ?", change.ReportId, change.Expected).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&Report{}).Where("id = ?", change.ReportId).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return utils.ErrorRecordNotFound
			}
			return ErrStatusMismatch
		}

		if err := tx.First(&updated, change.ReportId).Error; err != nil {
			return err
		}

		history := ReportHistory{
			ReportId:   change.ReportId,
			FromStatus: change.Expected,
			ToStatus:   change.Next,
			ActorId:    change.ActorId,
			Note:       change.Note,
			CreatedAt:  at,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		if s.EventsEnabled {
			return writeReportEvent(ctx, tx, ReportEventStatusChanged, change.Expected, &updated, change.ActorId, at)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// List returns reports newest first.
func (s *ReportStore) List(ctx context.Context, filter ReportFilter, paging Paging) ([]*Report, PageInfo, error) {
	paging = paging.normalize()
	q := s.DB.WithContext(ctx).Model(&Report{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.ReportedBy > 0 {
		q = q.Where("reported_by = ?", filter.ReportedBy)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, PageInfo{}, err
	}

	var results []*Report
	if err := q.Order("created_at DESC, id DESC").
		Offset(paging.Offset()).
		Limit(paging.Limit).
		Find(&results).Error; err != nil {
		return nil, PageInfo{}, err
	}

	info := PageInfo{
		Page:    paging.Page,
		Limit:   paging.Limit,
		Total:   total,
		HasNext: int64(paging.Offset()+len(results)) < total,
	}
	return results, info, nil
}

func (s *ReportStore) History(ctx context.Context, reportId int) ([]*ReportHistory, error) {
	var exists int64
	if err := s.DB.WithContext(ctx).Model(&Report{}).Where("id = ?", reportId).Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, utils.ErrorRecordNotFound
	}

	var results []*ReportHistory
	err := s.DB.WithContext(ctx).
		Where("report_id = ?", reportId).
		Order("created_at ASC, id ASC").
		Find(&results).Error
	return results, err
}
