package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
	"github.com/nexus-edu/nexus-enroll-api/internal/service"
	appErrors "github.com/nexus-edu/nexus-enroll-api/pkg/errors"
	"github.com/nexus-edu/nexus-enroll-api/pkg/response"
)

type enrollmentServiceMock struct {
	enrollResp *models.Enrollment
	enrollErr  error
	dropErr    error
	forceResp  *models.Enrollment
	forceErr   error
	lastReq    service.EnrollRequest
	lastDropID string
}

func (m *enrollmentServiceMock) Enroll(ctx context.Context, req service.EnrollRequest) (*models.Enrollment, error) {
	m.lastReq = req
	return m.enrollResp, m.enrollErr
}

func (m *enrollmentServiceMock) Drop(ctx context.Context, enrollmentID string) error {
	m.lastDropID = enrollmentID
	return m.dropErr
}

func (m *enrollmentServiceMock) ForceEnroll(ctx context.Context, req service.EnrollRequest) (*models.Enrollment, error) {
	m.lastReq = req
	return m.forceResp, m.forceErr
}

func (m *enrollmentServiceMock) Schedule(ctx context.Context, studentID, semester string) (*models.StudentSchedule, error) {
	return &models.StudentSchedule{StudentID: studentID, Semester: semester, Courses: []models.Course{}}, nil
}

func (m *enrollmentServiceMock) History(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	return []models.Enrollment{}, nil
}

func enrollBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(service.EnrollRequest{StudentID: "stu-1", CourseID: "cs101", Semester: "2026F"})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestEnrollmentHandlerEnrollSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{enrollResp: &models.Enrollment{ID: "enr-1"}}
	h := NewEnrollmentHandler(mockSvc, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/enroll", enrollBody(t))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Enroll(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "enr-1", data["enrollment_id"])
	assert.Equal(t, "cs101", mockSvc.lastReq.CourseID)
}

func TestEnrollmentHandlerEnrollCourseNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEnrollmentHandler(&enrollmentServiceMock{enrollErr: appErrors.ErrCourseNotFound}, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/enroll", enrollBody(t))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Enroll(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEnrollmentHandlerEnrollConflictsMapTo400(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conflicts := []*appErrors.Error{
		appErrors.ErrAlreadyEnrolled,
		appErrors.ErrCourseFull,
		appErrors.ErrPrerequisiteNotMet,
		appErrors.ErrScheduleConflict,
	}
	for _, conflict := range conflicts {
		t.Run(conflict.Code, func(t *testing.T) {
			h := NewEnrollmentHandler(&enrollmentServiceMock{enrollErr: conflict}, nil, nil)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			req, _ := http.NewRequest(http.MethodPost, "/enroll", enrollBody(t))
			req.Header.Set("Content-Type", "application/json")
			c.Request = req

			h.Enroll(c)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var envelope response.Envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
			require.NotNil(t, envelope.Error)
			assert.Equal(t, conflict.Code, envelope.Error.Code)
		})
	}
}

func TestEnrollmentHandlerEnrollMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEnrollmentHandler(&enrollmentServiceMock{}, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/enroll", bytes.NewBufferString(`{"student_id":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Enroll(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerDropSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(mockSvc, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/enroll/enr-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "enrollmentId", Value: "enr-1"}}

	h.Drop(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "enr-1", mockSvc.lastDropID)
}

func TestEnrollmentHandlerDropNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEnrollmentHandler(&enrollmentServiceMock{dropErr: appErrors.ErrEnrollmentNotFound}, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/enroll/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "enrollmentId", Value: "missing"}}

	h.Drop(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEnrollmentHandlerOverrideSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{forceResp: &models.Enrollment{ID: "enr-2"}}
	h := NewEnrollmentHandler(mockSvc, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/enrollments/override", enrollBody(t))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Override(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "enr-2", data["enrollment_id"])
}

func TestEnrollmentHandlerOverrideStudentNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEnrollmentHandler(&enrollmentServiceMock{forceErr: appErrors.ErrStudentNotFound}, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/enrollments/override", enrollBody(t))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Override(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
