package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ync-lab/intranet/internal/resputil"
	"github.com/ync-lab/intranet/internal/util"
	"github.com/ync-lab/intranet/pkg/workflow"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewActivityMgr)
}

type ActivityMgr struct {
	name     string
	workflow *workflow.Service
}

func NewActivityMgr(conf *RegisterConfig) Manager {
	return &ActivityMgr{
		name:     "activity",
		workflow: conf.Workflow,
	}
}

func (mgr *ActivityMgr) GetName() string { return mgr.name }

func (mgr *ActivityMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ActivityMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/recent", mgr.GetRecentActivity)
}

func (mgr *ActivityMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type ActivityResp struct {
	Documents []*DocumentResp     `json:"documents"`
	Approvals []*ApprovalLineResp `json:"approvals"`
	Schedules []*ScheduleResp     `json:"schedules"`
}

// GetRecentActivity godoc
// @Summary Dashboard activity
// @Description Latest documents, decided approvals and schedules of the current member
// @Tags Activity
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[ActivityResp] "Success"
// @Failure 500 {object} resputil.Response[any] "Other errors"
// @Router /v1/activity/recent [get]
func (mgr *ActivityMgr) GetRecentActivity(c *gin.Context) {
	token := util.GetToken(c)
	activity, err := mgr.workflow.RecentActivity(c, token.UserID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, ActivityResp{
		Documents: newDocumentResps(activity.Documents),
		Approvals: newApprovalLineResps(activity.Approvals),
		Schedules: newScheduleResps(activity.Schedules),
	})
}
