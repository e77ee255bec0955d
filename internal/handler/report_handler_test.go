package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
	"github.com/nexus-edu/nexus-enroll-api/pkg/response"
	"github.com/nexus-edu/nexus-enroll-api/pkg/storage"
)

type reportServiceMock struct {
	stats *models.EnrollmentStatsReport
}

func (m *reportServiceMock) EnrollmentStats(ctx context.Context, department string) (*models.EnrollmentStatsReport, error) {
	return m.stats, nil
}

func (m *reportServiceMock) FacultyWorkload(ctx context.Context, instructorID string) (*models.FacultyWorkload, error) {
	return &models.FacultyWorkload{InstructorID: instructorID}, nil
}

func (m *reportServiceMock) AllFacultyWorkloads(ctx context.Context) ([]models.FacultyWorkload, error) {
	return []models.FacultyWorkload{}, nil
}

func (m *reportServiceMock) CoursePopularity(ctx context.Context, limit int) ([]models.CoursePopularity, error) {
	return []models.CoursePopularity{}, nil
}

func (m *reportServiceMock) HighUtilization(ctx context.Context, threshold float64) (*models.HighUtilizationReport, error) {
	return &models.HighUtilizationReport{Threshold: threshold}, nil
}

func sampleStats() *models.EnrollmentStatsReport {
	return &models.EnrollmentStatsReport{
		TotalCourses: 1,
		Courses: []models.CourseEnrollmentStat{
			{CourseCode: "CS101", CourseName: "Intro", Department: "CS", Capacity: 30, Enrolled: 27, UtilizationPercent: 90, Instructor: "Dr. Smith"},
		},
		Summary: models.EnrollmentStatsSummary{TotalCapacity: 30, TotalEnrolled: 27, AverageUtilization: 90},
	}
}

func newReportRouter(h *ReportHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/api/v1/reports/enrollment-stats", h.EnrollmentStats)
	engine.GET("/api/v1/reports/exports/:token", h.Download)
	return engine
}

func TestReportHandlerStatsJSON(t *testing.T) {
	h := NewReportHandler(&reportServiceMock{stats: sampleStats()}, nil, nil, nil)
	engine := newReportRouter(h)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/reports/enrollment-stats", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data)
}

func TestReportHandlerStatsCSVInline(t *testing.T) {
	h := NewReportHandler(&reportServiceMock{stats: sampleStats()}, nil, nil, nil)
	engine := newReportRouter(h)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/reports/enrollment-stats?format=csv", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "enrollment-stats.csv")
	assert.Contains(t, w.Body.String(), "CS101")
}

func TestReportHandlerUnsupportedFormat(t *testing.T) {
	h := NewReportHandler(&reportServiceMock{stats: sampleStats()}, nil, nil, nil)
	engine := newReportRouter(h)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/reports/enrollment-stats?format=xml", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerExportLinkRoundTrip(t *testing.T) {
	store, err := storage.NewExportStore(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewLinkSigner("test-secret", time.Hour)
	h := NewReportHandler(&reportServiceMock{stats: sampleStats()}, store, signer, nil)
	engine := newReportRouter(h)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/reports/enrollment-stats?format=csv&link=true", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	downloadURL, _ := data["download_url"].(string)
	require.True(t, strings.HasPrefix(downloadURL, "/api/v1/reports/exports/"), downloadURL)

	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest(http.MethodGet, downloadURL, nil)
	engine.ServeHTTP(w2, req2)

	require.Equal(t, http.StatusOK, w2.Code)
	assert.Contains(t, w2.Body.String(), "CS101")
}

func TestReportHandlerExportLinkDisabled(t *testing.T) {
	h := NewReportHandler(&reportServiceMock{stats: sampleStats()}, nil, nil, nil)
	engine := newReportRouter(h)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/reports/enrollment-stats?format=csv&link=true", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerDownloadInvalidToken(t *testing.T) {
	store, err := storage.NewExportStore(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewLinkSigner("test-secret", time.Hour)
	h := NewReportHandler(&reportServiceMock{stats: sampleStats()}, store, signer, nil)
	engine := newReportRouter(h)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/reports/exports/not-a-token", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
