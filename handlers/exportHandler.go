package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/disaster_backend/models"
	"github.com/mmdatafocus/disaster_backend/utils"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheet   = "Reports"
	maxExportRows = 10000
)

var exportHeadings = []string{
	"ID", "Category", "Severity", "Status", "Location", "Note", "Reported By",
	"Verified By", "Verification Note", "Image URL", "Created At", "Updated At",
}

func reportCellValues(r *models.Report) []interface{} {
	verifiedBy := ""
	if r.VerifiedBy != nil {
		verifiedBy = fmt.Sprint(*r.VerifiedBy)
	}
	return []interface{}{
		r.ID,
		string(r.Category),
		string(r.Severity),
		string(r.Status),
		r.Location,
		r.Note,
		r.ReportedBy,
		verifiedBy,
		utils.DereferencePtr(r.VerificationNote, ""),
		r.ImageUrl,
		r.CreatedAt.UTC().Format(time.RFC3339),
		r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// exportReports streams the filtered report list as an xlsx workbook.
func (h *Handler) exportReports(c *gin.Context) {
	var q listReportsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query")
		return
	}
	filter, ok := reportFilter(c, q)
	if !ok {
		return
	}

	var rows []*models.Report
	paging := models.Paging{Page: 1, Limit: models.MaxPageSize}
	for len(rows) < maxExportRows {
		page, info, err := h.Reports.List(c.Request.Context(), filter, paging)
		if err != nil {
			respondError(c, err)
			return
		}
		rows = append(rows, page...)
		if !info.HasNext {
			break
		}
		paging.Page++
	}
	if len(rows) > maxExportRows {
		rows = rows[:maxExportRows]
	}

	f, err := buildReportWorkbook(rows)
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("disaster-reports-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

func buildReportWorkbook(rows []*models.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	for i, heading := range exportHeadings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, heading); err != nil {
			return nil, err
		}
	}
	for rowNo, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, rowNo+2)
		if err != nil {
			return nil, err
		}
		values := reportCellValues(r)
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, err
		}
	}
	return f, nil
}
