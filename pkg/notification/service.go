// Package notification stores in-app notifications, pushes unread counts to live
// subscribers and forwards notifications by e-mail when an alerter is configured.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/alert"
	"github.com/ync-lab/intranet/pkg/logutils"
	"github.com/ync-lab/intranet/pkg/workflow"
)

const (
	// RecentLimit is the number of notifications shown in the bell
	RecentLimit = 20
	// ReadRetention is how long read notifications are kept
	ReadRetention = 7 * 24 * time.Hour
)

// Link targets of the intranet pages
const (
	LinkApprovalPending = "/approval-pending.html"
	LinkMyDocuments     = "/my-documents.html"
	LinkSchedule        = "/schedule.html"
)

// defaultLink is the page a notification of the type opens when no link is given
func defaultLink(t model.NotificationType) string {
	switch t {
	case model.NotificationTypeApprovalRequest:
		return LinkApprovalPending
	case model.NotificationTypeApprovalApproved, model.NotificationTypeApprovalRejected:
		return LinkMyDocuments
	case model.NotificationTypeLeaveApproved, model.NotificationTypeLeaveRejected,
		model.NotificationTypeScheduleReminder:
		return LinkSchedule
	default:
		return ""
	}
}

// Store persists notifications
type Store interface {
	Create(ctx context.Context, n *model.Notification) error
	Get(ctx context.Context, id uint) (*model.Notification, error)
	Recent(ctx context.Context, memberID uint, limit int) ([]*model.Notification, error)
	UnreadCount(ctx context.Context, memberID uint) (int64, error)
	MarkRead(ctx context.Context, id uint, at time.Time) error
	MarkAllRead(ctx context.Context, memberID uint, at time.Time) (int64, error)
	Delete(ctx context.Context, id uint) error
	// PurgeRead deletes read notifications read before the given time
	PurgeRead(ctx context.Context, before time.Time) (int64, error)
	GetMember(ctx context.Context, id uint) (*model.Member, error)
}

type Service struct {
	store   Store
	alerter alert.AlertInterface
	hub     *Hub
	now     func() time.Time
}

// NewService returns a notification service. A nil alerter disables e-mail delivery.
func NewService(store Store, alerter alert.AlertInterface) *Service {
	return &Service{
		store:   store,
		alerter: alerter,
		hub:     NewHub(),
		now:     time.Now,
	}
}

// Hub returns the unread count broadcaster
func (s *Service) Hub() *Hub {
	return s.hub
}

// CreateInput describes a notification to create
type CreateInput struct {
	MemberID uint
	Type     model.NotificationType
	Title    string
	Content  string
	LinkURL  string
}

// Create stores an unread notification and informs subscribers of the receiver
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Notification, error) {
	if in.MemberID == 0 || strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("receiver and title are required: %w", workflow.ErrInvalidInput)
	}
	if in.Type == "" {
		in.Type = model.NotificationTypeAnnouncement
	}
	if in.LinkURL == "" {
		in.LinkURL = defaultLink(in.Type)
	}
	n := &model.Notification{
		MemberID: in.MemberID,
		Type:     in.Type,
		Title:    in.Title,
		Content:  in.Content,
		LinkURL:  in.LinkURL,
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	s.publishUnread(ctx, n.MemberID)
	s.forward(ctx, n)
	return n, nil
}

// Recent returns the latest notifications of the member, newest first
func (s *Service) Recent(ctx context.Context, memberID uint) ([]*model.Notification, error) {
	return s.store.Recent(ctx, memberID, RecentLimit)
}

func (s *Service) UnreadCount(ctx context.Context, memberID uint) (int64, error) {
	return s.store.UnreadCount(ctx, memberID)
}

func (s *Service) owned(ctx context.Context, id, memberID uint) (*model.Notification, error) {
	n, err := s.store.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("notification %d: %w", id, workflow.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get notification %d: %w", id, err)
	}
	if n.MemberID != memberID {
		return nil, fmt.Errorf("notification %d belongs to another member: %w", id, workflow.ErrForbidden)
	}
	return n, nil
}

// MarkRead marks a notification of the member as read
func (s *Service) MarkRead(ctx context.Context, id, memberID uint) error {
	n, err := s.owned(ctx, id, memberID)
	if err != nil {
		return err
	}
	if n.IsRead {
		return nil
	}
	if err := s.store.MarkRead(ctx, id, s.now()); err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	s.publishUnread(ctx, memberID)
	return nil
}

// MarkAllRead marks every unread notification of the member as read
func (s *Service) MarkAllRead(ctx context.Context, memberID uint) (int64, error) {
	updated, err := s.store.MarkAllRead(ctx, memberID, s.now())
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	if updated > 0 {
		s.publishUnread(ctx, memberID)
	}
	return updated, nil
}

// Delete removes a notification of the member
func (s *Service) Delete(ctx context.Context, id, memberID uint) error {
	n, err := s.owned(ctx, id, memberID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete notification %d: %w", id, err)
	}
	if !n.IsRead {
		s.publishUnread(ctx, memberID)
	}
	return nil
}

// PurgeRead deletes notifications read more than ReadRetention ago
func (s *Service) PurgeRead(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = ReadRetention
	}
	deleted, err := s.store.PurgeRead(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("purge read notifications: %w", err)
	}
	logutils.Log.WithFields(logutils.Fields{"deleted": deleted}).Info("read notifications purged")
	return deleted, nil
}

func (s *Service) publishUnread(ctx context.Context, memberID uint) {
	if !s.hub.HasSubscribers(memberID) {
		return
	}
	count, err := s.store.UnreadCount(ctx, memberID)
	if err != nil {
		logutils.Log.WithError(err).WithField("memberID", memberID).Warn("count unread notifications")
		return
	}
	s.hub.Publish(memberID, count)
}

// forward sends the notification by e-mail in the background
func (s *Service) forward(ctx context.Context, n *model.Notification) {
	if s.alerter == nil {
		return
	}
	member, err := s.store.GetMember(ctx, n.MemberID)
	if err != nil {
		logutils.Log.WithError(err).WithField("memberID", n.MemberID).Warn("notification receiver not found")
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := s.alerter.NotificationAlert(ctx, member, n); err != nil {
			logutils.Log.WithError(err).WithField("notificationID", n.ID).Error("forward notification")
		}
	}()
}
