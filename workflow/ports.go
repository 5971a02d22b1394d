package workflow

import (
	"context"
	"time"

	"github.com/mmdatafocus/disaster_backend/classifier"
	"github.com/mmdatafocus/disaster_backend/models"
)

// ReportStore is the persistence contract the workflow depends on. *models.ReportStore satisfies it.
type ReportStore interface {
	RecentReportFinder
	Create(ctx context.Context, report *models.Report) (*models.Report, error)
	GetById(ctx context.Context, id int) (*models.Report, error)
	CompareAndSetStatus(ctx context.Context, change models.StatusChange) (*models.Report, error)
}

type RecentReportFinder interface {
	FindRecent(ctx context.Context, category models.DisasterCategory, severity models.Severity, since, until time.Time, excludeStatus models.ReportStatus) (*models.Report, error)
}

type UserDirectory interface {
	GetById(ctx context.Context, id int) (*models.User, error)
	FindUsersByRole(ctx context.Context, role models.UserRole) ([]*models.User, error)
}

// Notifier tells a submitter that their report changed status.
type Notifier interface {
	Notify(ctx context.Context, contact string, displayName string, report *models.Report) error
}

// Broadcaster announces a newly created report to organization users.
type Broadcaster interface {
	Broadcast(ctx context.Context, recipients []string, report *models.Report) error
}

type Classifier interface {
	Classify(ctx context.Context, fileName string, image []byte) (classifier.Prediction, error)
}

type ImageStore interface {
	Put(ctx context.Context, objectKey string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, objectKey string) error
}
