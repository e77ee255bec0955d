package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
	"github.com/nexus-edu/nexus-enroll-api/internal/service"
	appErrors "github.com/nexus-edu/nexus-enroll-api/pkg/errors"
	"github.com/nexus-edu/nexus-enroll-api/pkg/export"
	"github.com/nexus-edu/nexus-enroll-api/pkg/response"
	"github.com/nexus-edu/nexus-enroll-api/pkg/storage"
)

type reportService interface {
	EnrollmentStats(ctx context.Context, department string) (*models.EnrollmentStatsReport, error)
	FacultyWorkload(ctx context.Context, instructorID string) (*models.FacultyWorkload, error)
	AllFacultyWorkloads(ctx context.Context) ([]models.FacultyWorkload, error)
	CoursePopularity(ctx context.Context, limit int) ([]models.CoursePopularity, error)
	HighUtilization(ctx context.Context, threshold float64) (*models.HighUtilizationReport, error)
}

// ReportHandler exposes the administrative report endpoints. Reports are
// returned as JSON by default, downloaded inline via ?format=csv|pdf, or
// archived with a signed download link via ?format=csv&link=true.
type ReportHandler struct {
	reports reportService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	store   *storage.ExportStore
	signer  *storage.LinkSigner
	logger  *zap.Logger
}

// NewReportHandler constructs ReportHandler. Store and signer may be nil,
// which disables export links.
func NewReportHandler(reports reportService, store *storage.ExportStore, signer *storage.LinkSigner, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{
		reports: reports,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		store:   store,
		signer:  signer,
		logger:  logger,
	}
}

// EnrollmentStats godoc
// @Summary Seat utilization per course
// @Tags reports
// @Produce json
// @Param department query string false "Department filter"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/enrollment-stats [get]
func (h *ReportHandler) EnrollmentStats(c *gin.Context) {
	report, err := h.reports.EnrollmentStats(c.Request.Context(), c.Query("department"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if format := c.Query("format"); format != "" && format != "json" {
		h.download(c, format, "enrollment-stats", "Enrollment Statistics", service.EnrollmentStatsDataset(report))
		return
	}
	response.OK(c, report)
}

// FacultyWorkload godoc
// @Summary Head count per course for one instructor
// @Tags reports
// @Produce json
// @Param facultyId path string true "Faculty ID"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/faculty-workload/{facultyId} [get]
func (h *ReportHandler) FacultyWorkload(c *gin.Context) {
	workload, err := h.reports.FacultyWorkload(c.Request.Context(), c.Param("facultyId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if format := c.Query("format"); format != "" && format != "json" {
		h.download(c, format, "faculty-workload", "Faculty Workload", service.FacultyWorkloadDataset(workload))
		return
	}
	response.OK(c, workload)
}

// AllFacultyWorkloads godoc
// @Summary Head count per course for every instructor
// @Tags reports
// @Produce json
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/faculty-workload [get]
func (h *ReportHandler) AllFacultyWorkloads(c *gin.Context) {
	workloads, err := h.reports.AllFacultyWorkloads(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if format := c.Query("format"); format != "" && format != "json" {
		h.download(c, format, "faculty-workload", "Faculty Workload", service.AllFacultyWorkloadsDataset(workloads))
		return
	}
	response.OK(c, workloads)
}

// CoursePopularity godoc
// @Summary Courses ranked by utilization and waitlist demand
// @Tags reports
// @Produce json
// @Param limit query int false "Maximum entries"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/course-popularity [get]
func (h *ReportHandler) CoursePopularity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	ranking, err := h.reports.CoursePopularity(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	if format := c.Query("format"); format != "" && format != "json" {
		h.download(c, format, "course-popularity", "Course Popularity", service.CoursePopularityDataset(ranking))
		return
	}
	response.OK(c, ranking)
}

// HighUtilization godoc
// @Summary Courses at or above a utilization threshold
// @Tags reports
// @Produce json
// @Param threshold query number false "Utilization percentage cutoff"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/high-utilization [get]
func (h *ReportHandler) HighUtilization(c *gin.Context) {
	threshold, _ := strconv.ParseFloat(c.Query("threshold"), 64)
	report, err := h.reports.HighUtilization(c.Request.Context(), threshold)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// Download godoc
// @Summary Fetch an archived export by signed token
// @Tags reports
// @Param token path string true "Signed download token"
// @Success 200
// @Router /reports/exports/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	if h.store == nil || h.signer == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export archive disabled"))
		return
	}
	name, err := h.signer.Verify(c.Param("token"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link"))
		return
	}
	file, err := h.store.Open(name)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export no longer available"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	c.DataFromReader(http.StatusOK, info.Size(), exportContentType(name), file, nil)
}

func (h *ReportHandler) download(c *gin.Context, format, filename, title string, data export.Dataset) {
	var (
		body        []byte
		err         error
		contentType string
	)
	switch format {
	case "csv":
		body, err = h.csv.Render(data)
		contentType = "text/csv"
	case "pdf":
		body, err = h.pdf.Render(data, title)
		contentType = "application/pdf"
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format: %s", format)))
		return
	}
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render "+format))
		return
	}

	if c.Query("link") == "true" {
		h.archive(c, filename, format, body)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", filename, format))
	c.Data(http.StatusOK, contentType, body)
}

// archive stores the rendered export and answers with a signed link
// instead of the file body.
func (h *ReportHandler) archive(c *gin.Context, filename, format string, body []byte) {
	if h.store == nil || h.signer == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "export links are disabled"))
		return
	}
	name := fmt.Sprintf("%s-%s.%s", filename, time.Now().UTC().Format("20060102-150405"), format)
	if _, err := h.store.Save(name, body); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive export"))
		return
	}
	token, expiresAt, err := h.signer.Sign(name)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link"))
		return
	}
	prefix := c.FullPath()
	if i := strings.LastIndex(prefix, "/reports/"); i >= 0 {
		prefix = prefix[:i]
	}
	response.OK(c, gin.H{
		"file":         name,
		"download_url": prefix + "/reports/exports/" + token,
		"expires_at":   expiresAt.UTC(),
	})
}

func exportContentType(name string) string {
	if strings.HasSuffix(name, ".pdf") {
		return "application/pdf"
	}
	return "text/csv"
}
