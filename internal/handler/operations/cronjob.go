package operations

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/internal/resputil"
	"github.com/ync-lab/intranet/pkg/cronjob"
	"github.com/ync-lab/intranet/pkg/housekeeping"
)

type CronJobResp struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schedule    string          `json:"schedule"`
	Suspend     bool            `json:"suspend"`
	Config      json.RawMessage `json:"config"`
	NextRun     *time.Time      `json:"nextRun"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func newCronJobResp(conf *model.CronJobConfig, description string, nextRun *time.Time) CronJobResp {
	return CronJobResp{
		Name:        conf.Name,
		Description: description,
		Schedule:    conf.Spec,
		Suspend:     conf.GetSuspend(),
		Config:      json.RawMessage(conf.Config),
		NextRun:     nextRun,
		UpdatedAt:   conf.UpdatedAt,
	}
}

type CronjobRecordResp struct {
	ID          uint                      `json:"id"`
	Name        string                    `json:"name"`
	ExecuteTime time.Time                 `json:"executeTime"`
	Status      model.CronJobRecordStatus `json:"status"`
	Message     string                    `json:"message"`
	JobData     json.RawMessage           `json:"jobData"`
}

func newCronjobRecordResp(r *model.CronJobRecord) CronjobRecordResp {
	return CronjobRecordResp{
		ID:          r.ID,
		Name:        r.Name,
		ExecuteTime: r.ExecuteTime,
		Status:      r.Status,
		Message:     r.Message,
		JobData:     json.RawMessage(r.JobData),
	}
}

// cronError maps scheduler errors onto status and code
func cronError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, housekeeping.ErrUnknownJob), errors.Is(err, gorm.ErrRecordNotFound):
		resputil.HTTPError(c, http.StatusNotFound, err.Error(), resputil.NotFound)
	case errors.Is(err, housekeeping.ErrInvalidConfig),
		errors.Is(err, cronjob.ErrInvalidSpec),
		errors.Is(err, cronjob.ErrNoSelection):
		resputil.BadRequestError(c, err.Error())
	default:
		klog.Error(err)
		resputil.Error(c, err.Error(), resputil.ServiceError)
	}
}

// ListCronjobs godoc
//
//	@Summary		List housekeeping jobs
//	@Description	Stored jobs ordered by name with their next scheduled run
//	@Tags			Operations
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[[]CronJobResp]	"Success"
//	@Failure		500	{object}	resputil.Response[any]				"Other errors"
//	@Router			/v1/admin/operations/cronjob [get]
func (mgr *OperationsMgr) ListCronjobs(c *gin.Context) {
	jobs, err := mgr.cronJobManager.ListJobs(c)
	if err != nil {
		cronError(c, err)
		return
	}
	resputil.Success(c, lo.Map(jobs, func(job cronjob.JobStatus, _ int) CronJobResp {
		return newCronJobResp(job.Config, job.Description, job.NextRun)
	}))
}

type CronjobNameReq struct {
	Name string `uri:"name" binding:"required"`
}

type UpdateCronjobReq struct {
	Schedule *string        `json:"schedule"`
	Suspend  *bool          `json:"suspend"`
	Config   json.RawMessage `json:"config"`
}

// UpdateCronjob godoc
//
//	@Summary		Update a housekeeping job
//	@Description	Change the schedule, suspension or config of one job. Omitted fields are kept.
//	@Tags			Operations
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			name	path		string						true	"job name"
//	@Param			data	body		UpdateCronjobReq			true	"changes"
//	@Success		200		{object}	resputil.Response[CronJobResp]	"Success"
//	@Failure		400		{object}	resputil.Response[any]		"Invalid schedule or config"
//	@Failure		404		{object}	resputil.Response[any]		"Unknown job"
//	@Failure		500		{object}	resputil.Response[any]		"Other errors"
//	@Router			/v1/admin/operations/cronjob/{name} [put]
func (mgr *OperationsMgr) UpdateCronjob(c *gin.Context) {
	var uri CronjobNameReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req UpdateCronjobReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if req.Schedule == nil && req.Suspend == nil && req.Config == nil {
		resputil.BadRequestError(c, "schedule, suspend or config is required")
		return
	}

	conf, err := mgr.cronJobManager.UpdateJob(c, uri.Name, cronjob.JobUpdate{
		Spec:    req.Schedule,
		Suspend: req.Suspend,
		Config:  req.Config,
	})
	if err != nil {
		cronError(c, err)
		return
	}
	job, _ := housekeeping.Lookup(conf.Name)
	resputil.Success(c, newCronJobResp(conf, job.Description, nil))
}

// RunCronjob godoc
//
//	@Summary		Run a housekeeping job now
//	@Tags			Operations
//	@Produce		json
//	@Security		Bearer
//	@Param			name	path		string								true	"job name"
//	@Success		200		{object}	resputil.Response[CronjobRecordResp]	"Execution record"
//	@Failure		404		{object}	resputil.Response[any]				"Unknown job"
//	@Router			/v1/admin/operations/cronjob/{name}/run [post]
func (mgr *OperationsMgr) RunCronjob(c *gin.Context) {
	var uri CronjobNameReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	rec, err := mgr.cronJobManager.RunJob(c, uri.Name)
	if err != nil {
		cronError(c, err)
		return
	}
	resputil.Success(c, newCronjobRecordResp(rec))
}

// GetCronjobRecordTimeRange godoc
//
//	@Summary		Get the time range of cronjob records
//	@Tags			Operations
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[any]	"Success"
//	@Router			/v1/admin/operations/cronjob/record/timerange [get]
func (mgr *OperationsMgr) GetCronjobRecordTimeRange(c *gin.Context) {
	from, to, err := mgr.cronJobManager.RecordTimeRange(c)
	if err != nil {
		cronError(c, err)
		return
	}
	resputil.Success(c, map[string]any{
		"startTime": from,
		"endTime":   to,
	})
}

type ListCronjobRecordsReq struct {
	Name     []string                  `form:"name"`
	Status   model.CronJobRecordStatus `form:"status"`
	From     *time.Time                `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To       *time.Time                `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Page     int                       `form:"page" binding:"omitempty,min=1"`
	PageSize int                       `form:"pageSize" binding:"omitempty,min=1"`
}

// ListCronjobRecords godoc
//
//	@Summary		Query cronjob records
//	@Description	Records newest first, filtered by job name, status and execution time
//	@Tags			Operations
//	@Produce		json
//	@Security		Bearer
//	@Param			query	query		ListCronjobRecordsReq	false	"filters"
//	@Success		200		{object}	resputil.Response[any]	"Records and total"
//	@Router			/v1/admin/operations/cronjob/record [get]
func (mgr *OperationsMgr) ListCronjobRecords(c *gin.Context) {
	var req ListCronjobRecordsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	records, total, err := mgr.cronJobManager.ListRecords(c, cronjob.RecordQuery{
		Names:    req.Name,
		Status:   req.Status,
		From:     req.From,
		To:       req.To,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		cronError(c, err)
		return
	}
	resputil.Success(c, map[string]any{
		"records": lo.Map(records, func(r *model.CronJobRecord, _ int) CronjobRecordResp {
			return newCronjobRecordResp(r)
		}),
		"total": total,
	})
}

type PruneCronjobRecordsReq struct {
	IDs    []uint     `json:"ids"`
	Before *time.Time `json:"before"`
}

// PruneCronjobRecords godoc
//
//	@Summary		Delete cronjob records
//	@Description	Permanently deletes records by id, by execution before a cutoff, or both
//	@Tags			Operations
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			data	body		PruneCronjobRecordsReq	true	"selection"
//	@Success		200		{object}	resputil.Response[any]	"Number of deleted records"
//	@Failure		400		{object}	resputil.Response[any]	"Nothing selected"
//	@Router			/v1/admin/operations/cronjob/record [delete]
func (mgr *OperationsMgr) PruneCronjobRecords(c *gin.Context) {
	var req PruneCronjobRecordsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	deleted, err := mgr.cronJobManager.PruneRecords(c, req.IDs, req.Before)
	if err != nil {
		cronError(c, err)
		return
	}
	resputil.Success(c, map[string]int64{"deleted": deleted})
}
