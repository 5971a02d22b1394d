package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/disaster_backend/middlewares"
	"github.com/mmdatafocus/disaster_backend/models"
	"github.com/mmdatafocus/disaster_backend/utils"
	"github.com/mmdatafocus/disaster_backend/workflow"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	createdInfo   = "Your report has been submitted and is under verification by authorities."
	duplicateInfo = "A similar disaster was recently reported in this area. Authorities are already reviewing it."
	noDisasterMsg = "No disaster detected, image not uploaded."
)

// reportView is a report with its submitter's display name.
type reportView struct {
	*models.Report
	ReporterName string `json:"reporter_name"`
}

type listReportsQuery struct {
	models.Paging
	Status   string `form:"status"`
	Category string `form:"category"`
	From     string `form:"from"`
	To       string `form:"to"`
}

type statusRequest struct {
	Status string  `json:"status"`
	Note   *string `json:"note"`
}

func (h *Handler) predict(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, workflow.MaxImageBytes+(1<<20))
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			badRequest(c, "image exceeds 10 MiB")
			return
		}
		badRequest(c, "No file uploaded")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, workflow.MaxImageBytes+1))
	if err != nil {
		badRequest(c, "could not read uploaded file")
		return
	}

	userId, _ := utils.GetUserIdFromContext(c.Request.Context())
	result, err := h.Ingestion.Submit(c.Request.Context(), workflow.Submission{
		UserId:         userId,
		FileName:       header.Filename,
		Image:          image,
		Note:           strings.TrimSpace(c.PostForm("note")),
		Location:       strings.TrimSpace(c.PostForm("location")),
		IdempotencyKey: strings.TrimSpace(c.GetHeader(IdempotencyHeader)),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if result.Replayed {
		c.Header("Idempotent-Replayed", "true")
	}

	switch result.Outcome {
	case workflow.OutcomeNoDisaster:
		c.JSON(http.StatusOK, gin.H{
			"message":  "NO DISASTER DETECTED",
			"severity": "NO SEVERITY DETECTED",
			"saved":    false,
			"reason":   noDisasterMsg,
			"data": gin.H{
				"predicted_disaster": result.Category,
				"predicted_severity": result.Severity,
			},
		})
	case workflow.OutcomeDuplicate:
		c.JSON(http.StatusOK, gin.H{
			"message":  "Duplicate Report",
			"severity": result.Severity,
			"saved":    false,
			"info":     duplicateInfo,
		})
	default:
		body := gin.H{
			"message":  result.Category,
			"severity": result.Severity,
			"saved":    true,
			"status":   models.ReportStatusPending,
			"info":     createdInfo,
		}
		if result.Report != nil {
			body["reportId"] = result.Report.ID
			body["status"] = result.Report.Status
		}
		c.JSON(http.StatusOK, body)
	}
}

func (h *Handler) listReports(c *gin.Context) {
	var q listReportsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query")
		return
	}
	filter, ok := reportFilter(c, q)
	if !ok {
		return
	}
	actor := actorFrom(c)
	if !actor.Role.CanTransitionReports() && !actor.Role.IsAdmin() {
		filter.ReportedBy = actor.ID
	}

	reports, info, err := h.Reports.List(c.Request.Context(), filter, q.Paging)
	if err != nil {
		respondError(c, err)
		return
	}
	views := h.withReporters(c, reports)
	c.JSON(http.StatusOK, gin.H{"reports": views, "page_info": info})
}

func reportFilter(c *gin.Context, q listReportsQuery) (models.ReportFilter, bool) {
	var filter models.ReportFilter
	if q.Status != "" {
		status, err := models.ParseReportStatus(q.Status)
		if err != nil {
			badRequest(c, "unknown status")
			return filter, false
		}
		filter.Status = status
	}
	if q.Category != "" {
		category := models.DisasterCategory(strings.ToLower(q.Category))
		if !category.IsDisaster() {
			badRequest(c, "unknown category")
			return filter, false
		}
		filter.Category = category
	}
	for _, bound := range []struct {
		raw  string
		dest **time.Time
	}{{q.From, &filter.From}, {q.To, &filter.To}} {
		if bound.raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, bound.raw)
		if err != nil {
			badRequest(c, "from/to must be RFC3339 timestamps")
			return filter, false
		}
		*bound.dest = &t
	}
	return filter, true
}

// withReporters resolves submitter names through the request's dataloader in one batch.
func (h *Handler) withReporters(c *gin.Context, reports []*models.Report) []reportView {
	views := make([]reportView, len(reports))
	ids := make([]int, len(reports))
	for i, r := range reports {
		views[i].Report = r
		ids[i] = r.ReportedBy
	}
	if len(reports) == 0 || middlewares.For(c.Request.Context()) == nil {
		return views
	}
	users, errs := middlewares.GetUsers(c.Request.Context(), ids)
	for i := range views {
		if i < len(errs) && errs[i] != nil {
			continue
		}
		if i < len(users) && users[i] != nil {
			views[i].ReporterName = users[i].Name
		}
	}
	return views
}

// loadVisibleReport hides other people's reports from citizens.
func (h *Handler) loadVisibleReport(c *gin.Context) (*models.Report, bool) {
	id, ok := pathId(c)
	if !ok {
		return nil, false
	}
	report, err := h.Reports.GetById(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	actor := actorFrom(c)
	if !actor.Role.CanTransitionReports() && !actor.Role.IsAdmin() && report.ReportedBy != actor.ID {
		respondError(c, utils.ErrorRecordNotFound)
		return nil, false
	}
	return report, true
}

func (h *Handler) getReport(c *gin.Context) {
	report, ok := h.loadVisibleReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.withReporters(c, []*models.Report{report})[0])
}

func (h *Handler) reportHistory(c *gin.Context) {
	report, ok := h.loadVisibleReport(c)
	if !ok {
		return
	}
	history, err := h.Reports.History(c.Request.Context(), report.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report_id": report.ID, "history": history})
}

func (h *Handler) transitionReport(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	target := models.ReportStatus(strings.ToLower(strings.TrimSpace(req.Status)))

	report, err := h.Engine.Transition(c.Request.Context(), id, target, actorFrom(c), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Report status updated", "report": report})
}
