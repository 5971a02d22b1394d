package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/disaster_backend/models"
	"github.com/mmdatafocus/disaster_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/mmdatafocus/disaster_backend/workflow")

// Actor is the authenticated caller of a transition.
type Actor struct {
	ID   int
	Name string
	Role models.UserRole
}

type transitionRule struct {
	from models.ReportStatus
	// recordsVerification sets verifier and note; later edges leave them untouched.
	recordsVerification bool
}

// transitionRules is keyed by target status. A target has exactly one source.
var transitionRules = map[models.ReportStatus]transitionRule{
	models.ReportStatusVerified:   {from: models.ReportStatusPending, recordsVerification: true},
	models.ReportStatusFalse:      {from: models.ReportStatusPending, recordsVerification: true},
	models.ReportStatusResponding: {from: models.ReportStatusVerified},
	models.ReportStatusResolved:   {from: models.ReportStatusResponding},
}

// SourceStatus returns the only status from which target can be reached.
func SourceStatus(target models.ReportStatus) (models.ReportStatus, bool) {
	rule, ok := transitionRules[target]
	return rule.from, ok
}

// Engine applies verification transitions and notifies the submitter after each one.
type Engine struct {
	Store    ReportStore
	Users    UserDirectory
	Notifier Notifier
	Tasks    TaskRunner
	Logger   *logrus.Logger
	Now      func() time.Time
}

func NewEngine(store ReportStore, users UserDirectory, notifier Notifier, tasks TaskRunner, logger *logrus.Logger) *Engine {
	return &Engine{
		Store:    store,
		Users:    users,
		Notifier: notifier,
		Tasks:    tasks,
		Logger:   logger,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Transition moves report reportId to target on behalf of actor.
// Checks run in order: known target, actor role, report exists, source status.
// Nothing is written and nobody is notified when any check fails.
func (e *Engine) Transition(ctx context.Context, reportId int, target models.ReportStatus, actor Actor, note *string) (_ *models.Report, err error) {
	ctx, span := tracer.Start(ctx, "workflow.Transition")
	span.SetAttributes(
		attribute.Int("report.id", reportId),
		attribute.String("report.target_status", string(target)),
		attribute.String("actor.role", string(actor.Role)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if !target.IsValid() {
		return nil, newError(ErrValidation, "Transition", fmt.Sprintf("unknown status %q", target), nil)
	}
	rule, ok := transitionRules[target]
	if !ok {
		return nil, newError(ErrInvalidTransition, "Transition", fmt.Sprintf("no transition leads to %s", target), nil)
	}
	if !actor.Role.CanTransitionReports() {
		return nil, newError(ErrForbidden, "Transition", "only organization accounts can update report status", nil)
	}

	current, err := e.Store.GetById(ctx, reportId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, newError(ErrNotFound, "Transition", "report not found", nil)
		}
		return nil, newError(ErrTransient, "Transition", "report lookup failed", err)
	}
	if current.Status != rule.from {
		return nil, invalidTransition(current.Status, target)
	}

	change := models.StatusChange{
		ReportId: reportId,
		Expected: rule.from,
		Next:     target,
		ActorId:  actor.ID,
		At:       e.now(),
	}
	if rule.recordsVerification {
		verifier := actor.ID
		change.Verifier = &verifier
		noteText := ""
		if note != nil {
			noteText = *note
		}
		change.Note = &noteText
	}

	updated, err := e.Store.CompareAndSetStatus(ctx, change)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrStatusMismatch):
			// lost a race with another transition on the same report
			return nil, invalidTransition(rule.from, target)
		case errors.Is(err, utils.ErrorRecordNotFound):
			return nil, newError(ErrNotFound, "Transition", "report not found", nil)
		default:
			return nil, newError(ErrTransient, "Transition", "report update failed", err)
		}
	}

	if e.Logger != nil {
		e.Logger.WithFields(logrus.Fields{
			"field":          "ReportWorkflow",
			"report_id":      updated.ID,
			"from":           rule.from,
			"to":             target,
			"actor_id":       actor.ID,
			"correlation_id": correlationId(ctx),
		}).Info("report status changed")
	}

	e.notifySubmitter(ctx, updated)
	return updated, nil
}

func invalidTransition(current, target models.ReportStatus) *Error {
	return newError(ErrInvalidTransition, "Transition",
		fmt.Sprintf("cannot move report from %s to %s", current, target), nil)
}

// notifySubmitter schedules exactly one Notify call for a committed transition.
func (e *Engine) notifySubmitter(ctx context.Context, report *models.Report) {
	if e.Notifier == nil || e.Tasks == nil {
		return
	}
	snapshot := *report
	e.Tasks.Go(ctx, "notify-submitter", func(ctx context.Context) error {
		submitter, err := e.Users.GetById(ctx, snapshot.ReportedBy)
		if err != nil {
			return fmt.Errorf("load submitter %d of report %d: %w", snapshot.ReportedBy, snapshot.ID, err)
		}
		if err := e.Notifier.Notify(ctx, submitter.Email, submitter.Name, &snapshot); err != nil {
			return fmt.Errorf("notify submitter of report %d: %w", snapshot.ID, err)
		}
		return nil
	})
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now()
}
