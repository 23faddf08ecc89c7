package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/internal/resputil"
	"github.com/ync-lab/intranet/internal/util"
	"github.com/ync-lab/intranet/pkg/logutils"
	"github.com/ync-lab/intranet/pkg/workflow"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewScheduleMgr)
}

type ScheduleMgr struct {
	name     string
	workflow *workflow.Service
}

func NewScheduleMgr(conf *RegisterConfig) Manager {
	return &ScheduleMgr{
		name:     "schedules",
		workflow: conf.Workflow,
	}
}

func (mgr *ScheduleMgr) GetName() string { return mgr.name }

func (mgr *ScheduleMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ScheduleMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListSchedules)
	g.POST("", mgr.CreateSchedule)
	g.GET("/:id", mgr.GetSchedule)
	g.PUT("/:id", mgr.UpdateSchedule)
	g.DELETE("/:id", mgr.DeleteSchedule)
	g.POST("/:id/cancel", mgr.RequestCancellation)
	g.POST("/:id/withdraw-cancellation", mgr.WithdrawCancellation)
}

func (mgr *ScheduleMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	ScheduleIDReq struct {
		ID uint `uri:"id" binding:"required"`
	}

	ScheduleReq struct {
		Type        model.ScheduleType   `json:"type" binding:"required"`
		Title       string               `json:"title" binding:"required"`
		Description string               `json:"description"`
		Location    string               `json:"location"`
		StartDate   string               `json:"startDate" binding:"required"` // yyyy-MM-dd
		EndDate     string               `json:"endDate" binding:"required"`   // yyyy-MM-dd
		StartTime   string               `json:"startTime"`                    // HH:mm
		EndTime     string               `json:"endTime"`                      // HH:mm
		DaysUsed    *float64             `json:"daysUsed"`
		Status      model.ScheduleStatus `json:"status"`
		ApproverID  *uint                `json:"approverId"`
	}

	ListSchedulesReq struct {
		Mine         bool   `form:"mine"`
		MemberID     *uint  `form:"memberId"`
		DepartmentID *uint  `form:"departmentId"`
		DivisionID   *uint  `form:"divisionId"`
		StartDate    string `form:"startDate"`
		EndDate      string `form:"endDate"`
	}
)

func (mgr *ScheduleMgr) scheduleInput(req *ScheduleReq) (workflow.ScheduleInput, error) {
	loc := mgr.workflow.Location()
	in := workflow.ScheduleInput{
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		DaysUsed:    req.DaysUsed,
		Status:      req.Status,
		ApproverID:  req.ApproverID,
	}
	start, err := parseDate(req.StartDate, loc)
	if err != nil {
		return in, err
	}
	end, err := parseDate(req.EndDate, loc)
	if err != nil {
		return in, err
	}
	in.StartDate, in.EndDate = *start, *end
	return in, nil
}

// ListSchedules godoc
// @Summary List schedules
// @Description The first applicable filter wins: member (or mine), department with dates, division with dates, dates, everything
// @Tags Schedule
// @Produce json
// @Security Bearer
// @Param query query ListSchedulesReq false "filters"
// @Success 200 {object} resputil.Response[[]ScheduleResp] "Success"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Router /v1/schedules [get]
func (mgr *ScheduleMgr) ListSchedules(c *gin.Context) {
	var req ListSchedulesReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	loc := mgr.workflow.Location()
	q := workflow.ScheduleQuery{
		MemberID:     req.MemberID,
		DepartmentID: req.DepartmentID,
		DivisionID:   req.DivisionID,
	}
	if req.Mine {
		memberID := util.GetToken(c).UserID
		q.MemberID = &memberID
	}
	var err error
	if q.StartDate, err = parseDate(req.StartDate, loc); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if q.EndDate, err = parseDate(req.EndDate, loc); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	schedules, err := mgr.workflow.ListSchedules(c, q)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newScheduleResps(schedules))
}

// GetSchedule godoc
// @Summary Get a schedule
// @Description The status of an approval-gated schedule follows its document
// @Tags Schedule
// @Produce json
// @Security Bearer
// @Param id path int true "schedule ID"
// @Success 200 {object} resputil.Response[ScheduleResp] "Success"
// @Failure 404 {object} resputil.Response[any] "Not found"
// @Router /v1/schedules/{id} [get]
func (mgr *ScheduleMgr) GetSchedule(c *gin.Context) {
	var uri ScheduleIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	schedule, err := mgr.workflow.GetSchedule(c, uri.ID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newScheduleResp(schedule))
}

// CreateSchedule godoc
// @Summary Create a schedule
// @Description Leave and other approval-gated types with an approver are sent for approval
// @Tags Schedule
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body ScheduleReq true "schedule"
// @Success 200 {object} resputil.Response[ScheduleResp] "Success"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Failure 409 {object} resputil.Response[any] "Overlapping schedule"
// @Router /v1/schedules [post]
func (mgr *ScheduleMgr) CreateSchedule(c *gin.Context) {
	var req ScheduleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	in, err := mgr.scheduleInput(&req)
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	schedule, err := mgr.workflow.CreateSchedule(c, token.UserID, in)
	if err != nil {
		logutils.Log.WithFields(logutils.Fields{"member": token.UserID, "type": req.Type}).Info("create schedule: ", err)
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newScheduleResp(schedule))
}

// UpdateSchedule godoc
// @Summary Update a schedule
// @Tags Schedule
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "schedule ID"
// @Param data body ScheduleReq true "new values"
// @Success 200 {object} resputil.Response[ScheduleResp] "Success"
// @Failure 403 {object} resputil.Response[any] "Not the owner"
// @Failure 409 {object} resputil.Response[any] "Locked or overlapping"
// @Router /v1/schedules/{id} [put]
func (mgr *ScheduleMgr) UpdateSchedule(c *gin.Context) {
	var uri ScheduleIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req ScheduleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	in, err := mgr.scheduleInput(&req)
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	schedule, err := mgr.workflow.UpdateSchedule(c, uri.ID, token.UserID, in)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newScheduleResp(schedule))
}

// DeleteSchedule godoc
// @Summary Delete a schedule
// @Tags Schedule
// @Produce json
// @Security Bearer
// @Param id path int true "schedule ID"
// @Success 200 {object} resputil.Response[any] "Success"
// @Failure 403 {object} resputil.Response[any] "Not the owner"
// @Failure 409 {object} resputil.Response[any] "Schedule is under review or approved"
// @Router /v1/schedules/{id} [delete]
func (mgr *ScheduleMgr) DeleteSchedule(c *gin.Context) {
	var uri ScheduleIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	if err := mgr.workflow.DeleteSchedule(c, uri.ID, token.UserID); err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, nil)
}

// RequestCancellation godoc
// @Summary Request cancellation of an approved schedule
// @Description Creates a cancellation document for the original approvers
// @Tags Schedule
// @Produce json
// @Security Bearer
// @Param id path int true "schedule ID"
// @Success 200 {object} resputil.Response[DocumentResp] "Cancellation document"
// @Failure 409 {object} resputil.Response[any] "Schedule is not approved or already being cancelled"
// @Router /v1/schedules/{id}/cancel [post]
func (mgr *ScheduleMgr) RequestCancellation(c *gin.Context) {
	var uri ScheduleIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	doc, err := mgr.workflow.RequestCancellation(c, uri.ID, token.UserID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newDocumentResp(doc))
}

// WithdrawCancellation godoc
// @Summary Withdraw a pending cancellation
// @Tags Schedule
// @Produce json
// @Security Bearer
// @Param id path int true "schedule ID"
// @Success 200 {object} resputil.Response[any] "Success"
// @Failure 409 {object} resputil.Response[any] "No pending cancellation"
// @Router /v1/schedules/{id}/withdraw-cancellation [post]
func (mgr *ScheduleMgr) WithdrawCancellation(c *gin.Context) {
	var uri ScheduleIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	if err := mgr.workflow.WithdrawCancellation(c, uri.ID, token.UserID); err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, nil)
}
