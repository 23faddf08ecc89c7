package query

import (
	"context"

	"gorm.io/gorm"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/attachment"
)

var _ attachment.Store = (*AttachmentStore)(nil)

type AttachmentStore struct {
	db *gorm.DB
}

func NewAttachmentStore(db *gorm.DB) *AttachmentStore {
	return &AttachmentStore{db: db}
}

func (s *AttachmentStore) Create(ctx context.Context, a *model.Attachment) error {
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *AttachmentStore) Get(ctx context.Context, id uint) (*model.Attachment, error) {
	a := &model.Attachment{}
	if err := s.db.WithContext(ctx).First(a, id).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AttachmentStore) ListByDocument(ctx context.Context, documentID uint) ([]*model.Attachment, error) {
	var rows []*model.Attachment
	if err := s.db.WithContext(ctx).Where("document_id = ?", documentID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *AttachmentStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&model.Attachment{}, id).Error
}
