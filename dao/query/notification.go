package query

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/notification"
)

var _ notification.Store = (*NotificationStore)(nil)

type NotificationStore struct {
	db *gorm.DB
}

func NewNotificationStore(db *gorm.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) Create(ctx context.Context, n *model.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *NotificationStore) Get(ctx context.Context, id uint) (*model.Notification, error) {
	n := &model.Notification{}
	if err := s.db.WithContext(ctx).First(n, id).Error; err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NotificationStore) Recent(ctx context.Context, memberID uint, limit int) ([]*model.Notification, error) {
	var rows []*model.Notification
	err := s.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *NotificationStore) UnreadCount(ctx context.Context, memberID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("member_id = ? AND is_read = ?", memberID, false).
		Count(&count).Error
	return count, err
}

func (s *NotificationStore) MarkRead(ctx context.Context, id uint, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_read": true, "read_at": at}).Error
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, memberID uint, at time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("member_id = ? AND is_read = ?", memberID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return result.RowsAffected, result.Error
}

func (s *NotificationStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&model.Notification{}, id).Error
}

// PurgeRead removes the rows permanently
func (s *NotificationStore) PurgeRead(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Unscoped().
		Where("is_read = ? AND read_at < ?", true, before).
		Delete(&model.Notification{})
	return result.RowsAffected, result.Error
}

func (s *NotificationStore) GetMember(ctx context.Context, id uint) (*model.Member, error) {
	return getMember(ctx, s.db, id)
}
