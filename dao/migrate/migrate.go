// Package migrate creates and evolves the intranet schema
package migrate

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/housekeeping"
)

func models() []any {
	return []any{
		&model.Department{},
		&model.Member{},
		&model.Document{},
		&model.ApprovalLine{},
		&model.Schedule{},
		&model.Notification{},
		&model.Attachment{},
		&model.ExpenseReport{},
		&model.ExpenseSubmission{},
		&model.ExpenseItem{},
		&model.ExpenseLedgerEntry{},
		&model.ExpenseReadStatus{},
		&model.CronJobConfig{},
		&model.CronJobRecord{},
	}
}

func defaultCronJobs() []*model.CronJobConfig {
	jobs := housekeeping.Jobs()
	configs := make([]*model.CronJobConfig, 0, len(jobs))
	for _, job := range jobs {
		configs = append(configs, &model.CronJobConfig{
			Name:    job.Name,
			Type:    model.CronJobTypeHousekeepingFunc,
			Spec:    job.DefaultSpec,
			Suspend: ptr.To(false),
			Config:  job.DefaultConfig(),
		})
	}
	return configs
}

// Migrations lists every schema change in order. Append, never edit.
func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "202503010000_init_schema",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(models()...)
			},
			Rollback: func(tx *gorm.DB) error {
				all := models()
				for i := len(all) - 1; i >= 0; i-- {
					if err := tx.Migrator().DropTable(all[i]); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			ID: "202503020000_seed_housekeeping_jobs",
			Migrate: func(tx *gorm.DB) error {
				return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(defaultCronJobs()).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Unscoped().
					Where("name IN ?", []string{housekeeping.REFRESH_SCHEDULE_STATUS_JOB, housekeeping.PURGE_READ_NOTIFICATIONS_JOB}).
					Delete(&model.CronJobConfig{}).Error
			},
		},
	}
}

// Run applies all pending migrations
func Run(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, Migrations())
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	klog.Info("database migrated")
	return nil
}

// RollbackLast reverts the most recent migration
func RollbackLast(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, Migrations())
	if err := m.RollbackLast(); err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}
	return nil
}
