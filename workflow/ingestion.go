package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/disaster_backend/models"
	"github.com/mmdatafocus/disaster_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	MaxImageBytes   = 10 << 20
	dedupLockTTL    = 15 * time.Second
	imageKeyPrefix  = "disaster-reports"
	thumbnailPrefix = "disaster-reports/thumbnails"
)

type Outcome string

const (
	OutcomeCreated    Outcome = "created"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeNoDisaster Outcome = "no_disaster"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// Submission is one citizen upload.
type Submission struct {
	UserId         int
	FileName       string
	Image          []byte
	Note           string
	Location       string
	IdempotencyKey string
}

type SubmissionResult struct {
	Outcome  Outcome
	Category string
	Severity string
	// Report is set only for OutcomeCreated.
	Report   *models.Report
	Replayed bool
}

// Ingestion turns submissions into pending reports.
// Locker and Ledger are optional; without Locker two simultaneous submissions for the same
// incident may both be stored.
type Ingestion struct {
	Classifier  Classifier
	Detector    *DuplicateDetector
	Store       ReportStore
	Images      ImageStore
	Users       UserDirectory
	Broadcaster Broadcaster
	Tasks       TaskRunner
	Locker      Locker
	Ledger      SubmissionLedger
	Logger      *logrus.Logger
	Now         func() time.Time
}

func (in *Ingestion) now() time.Time {
	if in.Now == nil {
		return time.Now().UTC()
	}
	return in.Now()
}

// Submit runs validate, classify, filter, dedup, upload, create and broadcast, in that order.
// Duplicates and non-disasters are successful outcomes, not errors.
func (in *Ingestion) Submit(ctx context.Context, sub Submission) (_ *SubmissionResult, err error) {
	ctx, span := tracer.Start(ctx, "workflow.Submit")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	contentType, err := validateSubmission(sub)
	if err != nil {
		return nil, err
	}

	useLedger := in.Ledger != nil && sub.IdempotencyKey != ""
	if useLedger {
		record, err := in.Ledger.Begin(ctx, sub.UserId, sub.IdempotencyKey)
		if errors.Is(err, ErrIdempotencyInProgress) {
			return nil, newError(ErrConflict, "Submit", "a submission with this idempotency key is in progress", nil)
		}
		if err != nil {
			return nil, newError(ErrTransient, "Submit", "idempotency lookup failed", err)
		}
		if record != nil {
			return in.replay(ctx, *record)
		}
	}

	result, err := in.submit(ctx, sub, contentType)
	span.SetAttributes(attribute.String("submission.outcome", string(outcomeOf(result))))

	if useLedger {
		if err != nil {
			if lerr := in.Ledger.Fail(ctx, sub.UserId, sub.IdempotencyKey, err); lerr != nil {
				in.logWarn(ctx, "idempotency fail mark failed", lerr)
			}
		} else {
			record := SubmissionRecord{Outcome: result.Outcome, Category: result.Category, Severity: result.Severity}
			if result.Report != nil {
				id := result.Report.ID
				record.ReportId = &id
			}
			if lerr := in.Ledger.Succeed(ctx, sub.UserId, sub.IdempotencyKey, record); lerr != nil {
				in.logWarn(ctx, "idempotency success mark failed", lerr)
			}
		}
	}
	return result, err
}

func (in *Ingestion) submit(ctx context.Context, sub Submission, contentType string) (*SubmissionResult, error) {
	pred, err := in.Classifier.Classify(ctx, sub.FileName, sub.Image)
	if err != nil {
		return nil, newError(ErrTransient, "Submit", "classification failed", err)
	}

	category := models.DisasterCategory(pred.Disaster)
	severity := models.Severity(pred.Severity)
	if !category.IsDisaster() || severity == models.SeverityNoDamage {
		return &SubmissionResult{Outcome: OutcomeNoDisaster, Category: pred.Disaster, Severity: pred.Severity}, nil
	}
	if !severity.IsDamage() {
		return nil, newError(ErrTransient, "Submit", fmt.Sprintf("unexpected severity label %q", pred.Severity), nil)
	}

	now := in.now()
	candidate := Candidate{Category: category, Severity: severity, Location: sub.Location, Now: now}
	duplicate, err := in.Detector.IsDuplicate(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return in.duplicate(category, severity), nil
	}

	objects, err := in.upload(ctx, category, sub.Image, contentType)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		Category:     category,
		Severity:     severity,
		Note:         sub.Note,
		Location:     sub.Location,
		ImageUrl:     objects.imageURL,
		ThumbnailUrl: objects.thumbnailURL,
		ReportedBy:   sub.UserId,
		Status:       models.ReportStatusPending,
		CreatedAt:    now,
	}

	created, isDuplicate, err := in.create(ctx, candidate, report)
	if err != nil || isDuplicate {
		in.cleanup(ctx, objects)
	}
	if err != nil {
		return nil, err
	}
	if isDuplicate {
		return in.duplicate(category, severity), nil
	}

	in.broadcast(ctx, created)
	return &SubmissionResult{
		Outcome:  OutcomeCreated,
		Category: string(category),
		Severity: string(severity),
		Report:   created,
	}, nil
}

// create inserts the report, re-checking for duplicates under the dedup lock when one is configured.
func (in *Ingestion) create(ctx context.Context, candidate Candidate, report *models.Report) (*models.Report, bool, error) {
	if in.Locker != nil {
		release, err := in.Locker.Obtain(ctx, dedupLockKey(candidate.Category, candidate.Severity), dedupLockTTL)
		if err != nil {
			in.logWarn(ctx, "dedup lock unavailable, creating without it", err)
		} else {
			defer func() {
				if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
					in.logWarn(ctx, "dedup lock release failed", rerr)
				}
			}()
			duplicate, err := in.Detector.IsDuplicate(ctx, candidate)
			if err != nil {
				return nil, false, err
			}
			if duplicate {
				return nil, true, nil
			}
		}
	}

	created, err := in.Store.Create(ctx, report)
	if err != nil {
		return nil, false, newError(ErrTransient, "Submit", "report insert failed", err)
	}
	return created, false, nil
}

func (in *Ingestion) duplicate(category models.DisasterCategory, severity models.Severity) *SubmissionResult {
	return &SubmissionResult{Outcome: OutcomeDuplicate, Category: string(category), Severity: string(severity)}
}

type uploadedObjects struct {
	imageKey     string
	imageURL     string
	thumbnailKey string
	thumbnailURL string
}

func (in *Ingestion) upload(ctx context.Context, category models.DisasterCategory, image []byte, contentType string) (uploadedObjects, error) {
	id := uuid.NewString()
	objects := uploadedObjects{
		imageKey: path.Join(imageKeyPrefix, string(category), id+allowedImageTypes[contentType]),
	}
	url, err := in.Images.Put(ctx, objects.imageKey, image, contentType)
	if err != nil {
		return uploadedObjects{}, newError(ErrTransient, "Submit", "image upload failed", err)
	}
	objects.imageURL = url

	thumb, err := utils.GenerateThumbnail(image)
	if err != nil {
		in.logWarn(ctx, "thumbnail generation failed", err)
		return objects, nil
	}
	thumbKey := path.Join(thumbnailPrefix, id+".jpg")
	thumbURL, err := in.Images.Put(ctx, thumbKey, thumb, "image/jpeg")
	if err != nil {
		in.logWarn(ctx, "thumbnail upload failed", err)
		return objects, nil
	}
	objects.thumbnailKey = thumbKey
	objects.thumbnailURL = thumbURL
	return objects, nil
}

func (in *Ingestion) cleanup(ctx context.Context, objects uploadedObjects) {
	for _, key := range []string{objects.imageKey, objects.thumbnailKey} {
		if key == "" {
			continue
		}
		if err := in.Images.Delete(context.WithoutCancel(ctx), key); err != nil {
			in.logWarn(ctx, "orphan image delete failed: "+key, err)
		}
	}
}

// broadcast tells every organization user about the new report without blocking the submission.
func (in *Ingestion) broadcast(ctx context.Context, report *models.Report) {
	if in.Broadcaster == nil || in.Tasks == nil {
		return
	}
	snapshot := *report
	in.Tasks.Go(ctx, "broadcast-new-report", func(ctx context.Context) error {
		users, err := in.Users.FindUsersByRole(ctx, models.UserRoleOrganization)
		if err != nil {
			return fmt.Errorf("load organization users: %w", err)
		}
		recipients := make([]string, 0, len(users))
		for _, u := range users {
			if u.Email != "" {
				recipients = append(recipients, u.Email)
			}
		}
		return in.Broadcaster.Broadcast(ctx, recipients, &snapshot)
	})
}

func (in *Ingestion) replay(ctx context.Context, record SubmissionRecord) (*SubmissionResult, error) {
	result := &SubmissionResult{
		Outcome:  record.Outcome,
		Category: record.Category,
		Severity: record.Severity,
		Replayed: true,
	}
	if record.ReportId != nil {
		report, err := in.Store.GetById(ctx, *record.ReportId)
		if err != nil {
			return nil, newError(ErrTransient, "Submit", "replayed report lookup failed", err)
		}
		result.Report = report
	}
	return result, nil
}

func (in *Ingestion) logWarn(ctx context.Context, msg string, err error) {
	if in.Logger == nil {
		return
	}
	in.Logger.WithFields(logrus.Fields{
		"field":          "Ingestion",
		"correlation_id": correlationId(ctx),
	}).Warn(msg + ": " + err.Error())
}

func validateSubmission(sub Submission) (string, error) {
	if len(sub.Image) == 0 {
		return "", newError(ErrValidation, "Submit", "No file uploaded", nil)
	}
	if len(sub.Image) > MaxImageBytes {
		return "", newError(ErrValidation, "Submit", fmt.Sprintf("image exceeds %d MiB", MaxImageBytes>>20), nil)
	}
	contentType := http.DetectContentType(sub.Image)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if _, ok := allowedImageTypes[contentType]; !ok {
		return "", newError(ErrValidation, "Submit", "only jpeg or png images are accepted", nil)
	}
	return contentType, nil
}

func outcomeOf(result *SubmissionResult) Outcome {
	if result == nil {
		return ""
	}
	return result.Outcome
}
