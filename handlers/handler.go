package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/disaster_backend/directives"
	"github.com/mmdatafocus/disaster_backend/models"
	"github.com/mmdatafocus/disaster_backend/summarizer"
	"github.com/mmdatafocus/disaster_backend/workflow"
	"github.com/sirupsen/logrus"
)

type UserService interface {
	Create(ctx context.Context, input *models.NewUser) (*models.User, error)
	Authenticate(ctx context.Context, email string, password string) (*models.User, error)
	GetById(ctx context.Context, id int) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Delete(ctx context.Context, id int) (*models.User, error)
}

type ReportReader interface {
	GetById(ctx context.Context, id int) (*models.Report, error)
	List(ctx context.Context, filter models.ReportFilter, paging models.Paging) ([]*models.Report, models.PageInfo, error)
	History(ctx context.Context, reportId int) ([]*models.ReportHistory, error)
}

type Transitioner interface {
	Transition(ctx context.Context, reportId int, target models.ReportStatus, actor workflow.Actor, note *string) (*models.Report, error)
}

type Submitter interface {
	Submit(ctx context.Context, sub workflow.Submission) (*workflow.SubmissionResult, error)
}

type ContactService interface {
	Create(ctx context.Context, input *models.NewContact, registrationFile string) (*models.Contact, error)
	List(ctx context.Context) ([]*models.Contact, error)
}

type ContactMailer interface {
	SendContactSubmission(ctx context.Context, contact *models.Contact) error
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (summarizer.Result, error)
}

type OutboxReplayer interface {
	Replay(ctx context.Context, ids []int) (int64, error)
}

// Handler holds the collaborators of the REST API. Optional ones (Outbox, Sockets) disable
// their routes when nil.
type Handler struct {
	Users      UserService
	Reports    ReportReader
	Engine     Transitioner
	Ingestion  Submitter
	Contacts   ContactService
	Files      workflow.ImageStore
	Mailer     ContactMailer
	Summarizer Summarizer
	Outbox     OutboxReplayer
	Sockets    http.HandlerFunc
	Tasks      workflow.TaskRunner
	Logger     *logrus.Logger

	validate *validator.Validate
}

func (h *Handler) validator() *validator.Validate {
	if h.validate == nil {
		h.validate = validator.New()
	}
	return h.validate
}

// RegisterRoutes mounts every endpoint on r. Auth middleware must already be installed.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	admin := directives.RequireRole(models.UserRoleAdmin)
	staff := directives.RequireRole(models.UserRoleOrganization, models.UserRoleAdmin)

	auth := r.Group("/api/auth")
	auth.POST("/signup", h.signup)
	auth.POST("/login", h.login)
	auth.GET("/me", directives.RequireAuth(), h.me)
	auth.GET("/all-users", admin, h.allUsers)
	auth.POST("/add-user", admin, h.addUser)
	auth.DELETE("/remove-user/:id", admin, h.removeUser)

	r.POST("/api/severity/predict", directives.RequireAuth(), h.predict)

	reports := r.Group("/api/reports", directives.RequireAuth())
	reports.GET("", h.listReports)
	reports.GET("/export", staff, h.exportReports)
	reports.GET("/:id", h.getReport)
	reports.GET("/:id/history", h.reportHistory)
	reports.PATCH("/:id/status", h.transitionReport)

	r.POST("/api/contact", h.submitContact)
	r.GET("/api/contact", admin, h.listContacts)

	r.POST("/api/ai/summarize-translate", h.summarizeTranslate)

	if h.Sockets != nil {
		r.GET("/ws/reports", staff, gin.WrapF(h.Sockets))
	}
	if h.Outbox != nil {
		r.POST("/internal/ops/outbox/replay", admin, h.replayOutbox)
	}
}
