package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CronJobRecordStatus string

const (
	CronJobRecordStatusUnknown CronJobRecordStatus = "unknown"
	CronJobRecordStatusSuccess CronJobRecordStatus = "success"
	CronJobRecordStatusFailed  CronJobRecordStatus = "failed"
)

type CronJobRecord struct {
	gorm.Model
	Name        string              `gorm:"type:varchar(128);not null;index;comment:cron job name"`
	ExecuteTime time.Time           `gorm:"not null;index;comment:execution time"`
	Status      CronJobRecordStatus `gorm:"type:varchar(128);not null;index;default:unknown;comment:execution status"`
	Message     string              `gorm:"type:text;comment:error message"`
	JobData     datatypes.JSON      `gorm:"type:jsonb;comment:job result"`
}

func (CronJobRecord) TableName() string {
	return "cron_job_records"
}

type CronJobType string

func (c CronJobType) String() string {
	return string(c)
}

const (
	CronJobTypeHousekeepingFunc CronJobType = "housekeeping_function"
)

func GetAllCronJobTypes() []CronJobType {
	return []CronJobType{
		CronJobTypeHousekeepingFunc,
	}
}

type CronJobConfig struct {
	gorm.Model
	Name    string         `gorm:"type:varchar(128);not null;index;unique;comment:cron job name"`
	Type    CronJobType    `gorm:"type:varchar(128);not null;index;comment:cron job type"`
	Spec    string         `gorm:"type:varchar(128);not null;index;comment:cron spec"`
	Suspend *bool          `gorm:"not null;default:false;comment:whether suspended"`
	Config  datatypes.JSON `gorm:"type:jsonb;comment:job config"`
	EntryID int            `gorm:"type:int;comment:cron entry ID"`
}

func (c *CronJobConfig) GetSuspend() bool {
	var v bool
	if c.Suspend != nil {
		v = *c.Suspend
	}
	return v
}

func (CronJobConfig) TableName() string {
	return "cron_job_configs"
}
