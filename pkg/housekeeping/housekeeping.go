// Package housekeeping holds the periodic maintenance jobs run by the cron manager
package housekeeping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"k8s.io/klog/v2"

	"github.com/ync-lab/intranet/dao/model"
)

const (
	REFRESH_SCHEDULE_STATUS_JOB  = "refresh-schedule-status"
	PURGE_READ_NOTIFICATIONS_JOB = "purge-read-notifications"
)

var (
	ErrUnknownJob    = errors.New("unknown housekeeping job")
	ErrInvalidConfig = errors.New("invalid housekeeping job config")
)

type ScheduleRefresher interface {
	RefreshTimeWindowStatuses(ctx context.Context) (int, error)
}

type ReadPurger interface {
	PurgeRead(ctx context.Context, retention time.Duration) (int64, error)
}

type RecordStore interface {
	CreateRecord(ctx context.Context, rec *model.CronJobRecord) error
}

// Clients are the services the jobs act on
type Clients struct {
	Schedules     ScheduleRefresher
	Notifications ReadPurger
	Records       RecordStore
}

// Config is the typed configuration stored with a job
type Config interface {
	Validate() error
}

type RefreshScheduleStatusConfig struct{}

func (RefreshScheduleStatusConfig) Validate() error { return nil }

type RefreshScheduleStatusResult struct {
	Updated int `json:"updated"`
}

// PurgeReadNotificationsConfig keeps read notifications for RetentionDays days
type PurgeReadNotificationsConfig struct {
	RetentionDays int `json:"retentionDays"`
}

func (c *PurgeReadNotificationsConfig) Validate() error {
	if c.RetentionDays < 1 || c.RetentionDays > 365 {
		return fmt.Errorf("retentionDays must be between 1 and 365, got %d", c.RetentionDays)
	}
	return nil
}

type PurgeReadNotificationsResult struct {
	Deleted int64 `json:"deleted"`
}

// Job is a maintenance task the scheduler knows how to run
type Job struct {
	Name        string
	Description string
	DefaultSpec string

	// defaults returns a fresh config holding the default values
	defaults func() Config
	run      func(ctx context.Context, clients *Clients, cfg Config) (any, error)
}

var registry = []*Job{
	{
		Name:        REFRESH_SCHEDULE_STATUS_JOB,
		Description: "Recompute the status of meetings and business trips from the clock",
		DefaultSpec: "*/5 * * * *",
		defaults:    func() Config { return &RefreshScheduleStatusConfig{} },
		run: func(ctx context.Context, clients *Clients, _ Config) (any, error) {
			updated, err := clients.Schedules.RefreshTimeWindowStatuses(ctx)
			if err != nil {
				return nil, err
			}
			return &RefreshScheduleStatusResult{Updated: updated}, nil
		},
	},
	{
		Name:        PURGE_READ_NOTIFICATIONS_JOB,
		Description: "Delete notifications that were read before the retention period",
		DefaultSpec: "0 3 * * *",
		defaults:    func() Config { return &PurgeReadNotificationsConfig{RetentionDays: 7} },
		run: func(ctx context.Context, clients *Clients, cfg Config) (any, error) {
			days := cfg.(*PurgeReadNotificationsConfig).RetentionDays
			deleted, err := clients.Notifications.PurgeRead(ctx, time.Duration(days)*24*time.Hour)
			if err != nil {
				return nil, err
			}
			return &PurgeReadNotificationsResult{Deleted: deleted}, nil
		},
	},
}

// Jobs returns every registered job
func Jobs() []*Job {
	return registry
}

func Lookup(name string) (*Job, error) {
	for _, job := range registry {
		if job.Name == name {
			return job, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownJob)
}

// ParseConfig decodes raw over the defaults of the job. Unknown fields are rejected.
func (j *Job) ParseConfig(raw []byte) (Config, error) {
	cfg := j.defaults()
	if len(bytes.TrimSpace(raw)) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("%s: %v: %w", j.Name, err, ErrInvalidConfig)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", j.Name, err, ErrInvalidConfig)
	}
	return cfg, nil
}

// NormalizeConfig validates raw and returns it with every default filled in
func (j *Job) NormalizeConfig(raw []byte) (datatypes.JSON, error) {
	cfg, err := j.ParseConfig(raw)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode %s config: %w", j.Name, err)
	}
	return datatypes.JSON(data), nil
}

func (j *Job) DefaultConfig() datatypes.JSON {
	data, _ := json.Marshal(j.defaults())
	return datatypes.JSON(data)
}

// Bind returns the function the scheduler calls, configured from raw
func (j *Job) Bind(clients *Clients, raw []byte) (func(), error) {
	cfg, err := j.ParseConfig(raw)
	if err != nil {
		return nil, err
	}
	return func() { j.Run(context.Background(), clients, cfg) }, nil
}

// Run executes the job once and stores a record of the outcome
func (j *Job) Run(ctx context.Context, clients *Clients, cfg Config) *model.CronJobRecord {
	rec := &model.CronJobRecord{
		Name:        j.Name,
		ExecuteTime: time.Now(),
		Status:      model.CronJobRecordStatusSuccess,
	}
	result, err := j.run(ctx, clients, cfg)
	if err != nil {
		rec.Status = model.CronJobRecordStatusFailed
		rec.Message = err.Error()
		klog.Errorf("housekeeping job %s failed: %v", j.Name, err)
	}
	if result != nil {
		if data, err := json.Marshal(result); err != nil {
			klog.Errorf("encode result of %s: %v", j.Name, err)
		} else {
			rec.JobData = datatypes.JSON(data)
		}
	}

	if clients.Records == nil {
		return rec
	}
	if err := clients.Records.CreateRecord(ctx, rec); err != nil {
		klog.Errorf("store record of %s: %v", j.Name, err)
	}
	return rec
}
