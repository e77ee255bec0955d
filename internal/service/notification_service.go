package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
	appErrors "github.com/nexus-edu/nexus-enroll-api/pkg/errors"
)

type notificationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	Create(ctx context.Context, notification *models.Notification) error
	MarkRead(ctx context.Context, id string) error
}

type waitlistReader interface {
	ListWaitlistedByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error)
}

type userLister interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
}

// NotificationService delivers inbox messages. The enrollment and grade
// flows reach it asynchronously through the dispatch queue, so a slow or
// failing delivery never holds up the request that triggered it.
type NotificationService struct {
	repo     notificationRepository
	waitlist waitlistReader
	courses  courseReader
	users    userLister
	logger   *zap.Logger
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(repo notificationRepository, waitlist waitlistReader, courses courseReader, users userLister, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, waitlist: waitlist, courses: courses, users: users, logger: logger}
}

// Notify creates a single notification for a user.
func (s *NotificationService) Notify(ctx context.Context, userID, message string, notificationType models.NotificationType) (*models.Notification, error) {
	notification := &models.Notification{
		UserID:  userID,
		Message: message,
		Type:    notificationType,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notification")
	}
	return notification, nil
}

// ListByUser returns a user's notifications, optionally unread only.
func (s *NotificationService) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	notifications, err := s.repo.ListByUser(ctx, userID, unreadOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	return notifications, nil
}

// MarkRead flags a notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// Broadcast sends a system message to every user with the given role, or
// to all users when the role is empty. Returns the delivery count.
func (s *NotificationService) Broadcast(ctx context.Context, message string, role models.UserRole) (int, error) {
	users, err := s.users.List(ctx, models.UserFilter{Role: role})
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	delivered := 0
	for _, user := range users {
		notification := &models.Notification{UserID: user.ID, Message: message, Type: models.NotificationTypeSystem}
		if err := s.repo.Create(ctx, notification); err != nil {
			s.logger.Error("broadcast delivery failed", zap.String("user_id", user.ID), zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered, nil
}

// NotifyCourseAvailable fans a seat-opened message out to every student
// waitlisted on the course.
func (s *NotificationService) NotifyCourseAvailable(ctx context.Context, courseID string) error {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Course deleted between the drop and the dispatch; skip.
			return nil
		}
		return fmt.Errorf("load course %s: %w", courseID, err)
	}

	waitlisted, err := s.waitlist.ListWaitlistedByCourse(ctx, courseID)
	if err != nil {
		return fmt.Errorf("list waitlisted for course %s: %w", courseID, err)
	}

	message := fmt.Sprintf("A spot has opened up in %s (%s). You can now enroll!", course.Name, course.CourseCode)
	for _, enrollment := range waitlisted {
		notification := &models.Notification{
			UserID:  enrollment.StudentID,
			Message: message,
			Type:    models.NotificationTypeEnrollment,
		}
		if err := s.repo.Create(ctx, notification); err != nil {
			s.logger.Error("seat-opened delivery failed",
				zap.String("student_id", enrollment.StudentID),
				zap.String("course_id", courseID),
				zap.Error(err))
		}
	}

	s.logger.Info("seat-opened notifications dispatched",
		zap.String("course_id", courseID), zap.Int("recipients", len(waitlisted)))
	return nil
}

// NotifyGradeSubmitted tells a student a grade of theirs was finalized.
func (s *NotificationService) NotifyGradeSubmitted(ctx context.Context, studentID, courseID string) error {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("load course %s: %w", courseID, err)
	}

	message := fmt.Sprintf("Your grade for %s (%s) has been submitted.", course.Name, course.CourseCode)
	if _, err := s.Notify(ctx, studentID, message, models.NotificationTypeGrade); err != nil {
		return err
	}
	return nil
}
