package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/dao/query"
	"github.com/ync-lab/intranet/internal/resputil"
	"github.com/ync-lab/intranet/internal/util"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewMemberMgr)
}

type MemberMgr struct {
	name    string
	members *query.MemberStore
}

func NewMemberMgr(conf *RegisterConfig) Manager {
	return &MemberMgr{
		name:    "members",
		members: conf.Members,
	}
}

func (mgr *MemberMgr) GetName() string { return mgr.name }

func (mgr *MemberMgr) RegisterPublic(_ *gin.RouterGroup) {}

// Approver pickers and the schedule filters read these lists
func (mgr *MemberMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListMembers)
	g.GET("/me", mgr.GetMe)
	g.GET("/departments", mgr.ListDepartments)
}

func (mgr *MemberMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	MemberResp struct {
		model.MemberInfo
		Email        string     `json:"email"`
		Role         model.Role `json:"role"`
		DepartmentID *uint      `json:"departmentId"`
	}

	DepartmentResp struct {
		ID       uint   `json:"id"`
		Name     string `json:"name"`
		ParentID *uint  `json:"parentId"`
	}
)

func newMemberResp(m *model.Member) MemberResp {
	return MemberResp{
		MemberInfo:   m.Info(),
		Email:        m.Email,
		Role:         m.Role,
		DepartmentID: m.DepartmentID,
	}
}

// ListMembers godoc
// @Summary List active members
// @Tags Member
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]MemberResp] "Success"
// @Router /v1/members [get]
func (mgr *MemberMgr) ListMembers(c *gin.Context) {
	members, err := mgr.members.ListActive(c)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}
	resputil.Success(c, lo.Map(members, func(m *model.Member, _ int) MemberResp { return newMemberResp(m) }))
}

// GetMe godoc
// @Summary Current member
// @Tags Member
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[MemberResp] "Success"
// @Failure 404 {object} resputil.Response[any] "Member not found"
// @Router /v1/members/me [get]
func (mgr *MemberMgr) GetMe(c *gin.Context) {
	member, err := mgr.members.GetMember(c, util.GetToken(c).UserID)
	if err != nil {
		resputil.HTTPError(c, http.StatusNotFound, err.Error(), resputil.NotFound)
		return
	}
	resputil.Success(c, newMemberResp(member))
}

// ListDepartments godoc
// @Summary List departments
// @Description Divisions first, then their departments, by name
// @Tags Member
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]DepartmentResp] "Success"
// @Router /v1/members/departments [get]
func (mgr *MemberMgr) ListDepartments(c *gin.Context) {
	departments, err := mgr.members.ListDepartments(c)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}
	resputil.Success(c, lo.Map(departments, func(d *model.Department, _ int) DepartmentResp {
		return DepartmentResp{ID: d.ID, Name: d.Name, ParentID: d.ParentID}
	}))
}
