package cronjob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/housekeeping"
)

var ErrInvalidSpec = errors.New("invalid cron spec")

// JobUpdate holds the changes to one job; nil fields keep their value
type JobUpdate struct {
	Spec    *string
	Suspend *bool
	Config  json.RawMessage
}

// JobStatus is a stored job together with its place in the running scheduler
type JobStatus struct {
	Config      *model.CronJobConfig
	Description string
	NextRun     *time.Time
}

// schedule registers the job with the scheduler and returns its entry
func (cm *CronJobManager) schedule(job *housekeeping.Job, spec string, config []byte) (cron.EntryID, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %v: %w", job.Name, spec, err, ErrInvalidSpec)
	}
	f, err := job.Bind(cm.housekeepingClients, config)
	if err != nil {
		return 0, err
	}
	return cm.cron.Schedule(sched, cron.FuncJob(f)), nil
}

// applyUpdate returns the stored config with the validated changes applied
func applyUpdate(job *housekeeping.Job, cur *model.CronJobConfig, upd JobUpdate) (*model.CronJobConfig, error) {
	next := *cur
	if upd.Spec != nil {
		spec := strings.TrimSpace(*upd.Spec)
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("%s %q: %v: %w", job.Name, spec, err, ErrInvalidSpec)
		}
		next.Spec = spec
	}
	if upd.Suspend != nil {
		next.Suspend = ptr.To(*upd.Suspend)
	}
	if upd.Config != nil {
		config, err := job.NormalizeConfig(upd.Config)
		if err != nil {
			return nil, err
		}
		next.Config = config
	}
	return &next, nil
}

// UpdateJob changes the spec, suspension or config of a job and reschedules it.
// The running entry is only replaced once the new config is stored.
func (cm *CronJobManager) UpdateJob(ctx context.Context, name string, upd JobUpdate) (*model.CronJobConfig, error) {
	job, err := housekeeping.Lookup(name)
	if err != nil {
		return nil, err
	}

	cm.cronMutex.Lock()
	defer cm.cronMutex.Unlock()

	var (
		next     *model.CronJobConfig
		oldEntry cron.EntryID
		newEntry cron.EntryID
	)
	err = cm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cur := &model.CronJobConfig{}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", name).
			First(cur).Error; err != nil {
			return fmt.Errorf("load cron job %s: %w", name, err)
		}
		oldEntry = cron.EntryID(cur.EntryID)

		next, err = applyUpdate(job, cur, upd)
		if err != nil {
			return err
		}
		next.EntryID = -1
		if !next.GetSuspend() {
			if newEntry, err = cm.schedule(job, next.Spec, next.Config); err != nil {
				return err
			}
			next.EntryID = int(newEntry)
		}
		return tx.Model(cur).
			Select("spec", "suspend", "config", "entry_id").
			Updates(next).Error
	})
	if err != nil {
		if newEntry > 0 {
			cm.cron.Remove(newEntry)
		}
		klog.Errorf("update cron job %s: %v", name, err)
		return nil, err
	}
	if oldEntry > 0 {
		cm.cron.Remove(oldEntry)
	}
	klog.Infof("cron job %s updated: spec=%q suspend=%v", name, next.Spec, next.GetSuspend())
	return next, nil
}

// RunJob executes a job right away with its stored config
func (cm *CronJobManager) RunJob(ctx context.Context, name string) (*model.CronJobRecord, error) {
	job, err := housekeeping.Lookup(name)
	if err != nil {
		return nil, err
	}
	conf := &model.CronJobConfig{}
	if err := cm.db.WithContext(ctx).Where("name = ?", name).First(conf).Error; err != nil {
		return nil, fmt.Errorf("load cron job %s: %w", name, err)
	}
	cfg, err := job.ParseConfig(conf.Config)
	if err != nil {
		return nil, err
	}
	return job.Run(ctx, cm.housekeepingClients, cfg), nil
}

// SyncCronJob schedules every active stored job and starts the scheduler
func (cm *CronJobManager) SyncCronJob(ctx context.Context) {
	cm.cronMutex.Lock()
	defer cm.cronMutex.Unlock()

	db := cm.db.WithContext(ctx)
	var configs []*model.CronJobConfig
	if err := db.Where("suspend = ?", false).Find(&configs).Error; err != nil {
		klog.Errorf("load cron job configs: %v", err)
	}
	for _, conf := range configs {
		job, err := housekeeping.Lookup(conf.Name)
		if err != nil {
			klog.Warningf("skip stored cron job: %v", err)
			continue
		}
		entryID, err := cm.schedule(job, conf.Spec, conf.Config)
		if err != nil {
			klog.Errorf("schedule cron job %s: %v", conf.Name, err)
			continue
		}
		if int(entryID) == conf.EntryID {
			continue
		}
		if err := db.Model(conf).Update("entry_id", int(entryID)).Error; err != nil {
			klog.Errorf("store entry of cron job %s: %v", conf.Name, err)
		}
	}
	cm.cron.Start()
	klog.Infof("cron scheduler started with %d jobs", len(cm.cron.Entries()))
}

// ListJobs returns the stored jobs ordered by name with their next run
func (cm *CronJobManager) ListJobs(ctx context.Context) ([]JobStatus, error) {
	var configs []*model.CronJobConfig
	if err := cm.db.WithContext(ctx).Order("name").Find(&configs).Error; err != nil {
		return nil, err
	}

	cm.cronMutex.RLock()
	defer cm.cronMutex.RUnlock()
	jobs := make([]JobStatus, 0, len(configs))
	for _, conf := range configs {
		status := JobStatus{Config: conf}
		if job, err := housekeeping.Lookup(conf.Name); err == nil {
			status.Description = job.Description
		}
		if conf.EntryID > 0 {
			if entry := cm.cron.Entry(cron.EntryID(conf.EntryID)); entry.Valid() && !entry.Next.IsZero() {
				status.NextRun = ptr.To(entry.Next)
			}
		}
		jobs = append(jobs, status)
	}
	return jobs, nil
}

// StopCron stops the cron scheduler and waits for running jobs
func (cm *CronJobManager) StopCron() {
	cm.cronMutex.Lock()
	defer cm.cronMutex.Unlock()
	<-cm.cron.Stop().Done()
}
