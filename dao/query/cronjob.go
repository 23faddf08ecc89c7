package query

import (
	"context"

	"gorm.io/gorm"

	"github.com/ync-lab/intranet/dao/model"
)

// CronJobRecordStore writes the outcome of scheduled jobs
type CronJobRecordStore struct {
	db *gorm.DB
}

func NewCronJobRecordStore(db *gorm.DB) *CronJobRecordStore {
	return &CronJobRecordStore{db: db}
}

func (s *CronJobRecordStore) CreateRecord(ctx context.Context, rec *model.CronJobRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}
