package cronjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/ync-lab/intranet/dao/model"
)

const (
	defaultRecordPageSize = 50
	maxRecordPageSize     = 500
)

var ErrNoSelection = errors.New("no records selected")

// RecordQuery filters execution records; zero fields are ignored. Page starts at 1.
type RecordQuery struct {
	Names    []string
	Status   model.CronJobRecordStatus
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

func (q *RecordQuery) filter(db *gorm.DB) *gorm.DB {
	if len(q.Names) > 0 {
		db = db.Where("name IN ?", q.Names)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.From != nil {
		db = db.Where("execute_time >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("execute_time <= ?", *q.To)
	}
	return db
}

func (q *RecordQuery) window() (offset, limit int) {
	limit = q.PageSize
	if limit <= 0 {
		limit = defaultRecordPageSize
	}
	limit = min(limit, maxRecordPageSize)
	page := max(q.Page, 1)
	return (page - 1) * limit, limit
}

// ListRecords returns one page of records, newest first, and the number of matching records
func (cm *CronJobManager) ListRecords(ctx context.Context, q RecordQuery) (records []*model.CronJobRecord, total int64, err error) {
	offset, limit := q.window()
	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cm.db.WithContext(groupCtx).
			Scopes(q.filter).
			Order("execute_time DESC").
			Offset(offset).
			Limit(limit).
			Find(&records).Error
	})
	g.Go(func() error {
		return cm.db.WithContext(groupCtx).
			Model(&model.CronJobRecord{}).
			Scopes(q.filter).
			Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		err = fmt.Errorf("list cron job records: %w", err)
		klog.Error(err)
		return nil, 0, err
	}
	return records, total, nil
}

// RecordTimeRange returns the span of stored executions widened by a day on both sides.
// Without records the day around now is returned.
func (cm *CronJobManager) RecordTimeRange(ctx context.Context) (from, to time.Time, err error) {
	var span struct {
		FirstRun *time.Time
		LastRun  *time.Time
	}
	err = cm.db.WithContext(ctx).
		Model(&model.CronJobRecord{}).
		Select("min(execute_time) AS first_run", "max(execute_time) AS last_run").
		Scan(&span).Error
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("cron job record time range: %w", err)
	}
	if span.FirstRun == nil || span.LastRun == nil {
		now := time.Now()
		return now.AddDate(0, 0, -1), now.AddDate(0, 0, 1), nil
	}
	return span.FirstRun.AddDate(0, 0, -1), span.LastRun.AddDate(0, 0, 1), nil
}

// PruneRecords permanently deletes the records with the given ids, the records executed
// before the cutoff, or both selections combined
func (cm *CronJobManager) PruneRecords(ctx context.Context, ids []uint, before *time.Time) (int64, error) {
	if len(ids) == 0 && before == nil {
		return 0, ErrNoSelection
	}
	tx := cm.db.WithContext(ctx).Unscoped()
	if len(ids) > 0 {
		tx = tx.Where("id IN ?", ids)
	}
	if before != nil {
		tx = tx.Where("execute_time < ?", *before)
	}
	res := tx.Delete(&model.CronJobRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune cron job records: %w", res.Error)
	}
	klog.Infof("pruned %d cron job records", res.RowsAffected)
	return res.RowsAffected, nil
}
