package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ync-lab/intranet/internal/resputil"
	"github.com/ync-lab/intranet/internal/util"
	"github.com/ync-lab/intranet/pkg/logutils"
	"github.com/ync-lab/intranet/pkg/workflow"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewApprovalMgr)
}

type ApprovalMgr struct {
	name     string
	workflow *workflow.Service
}

func NewApprovalMgr(conf *RegisterConfig) Manager {
	return &ApprovalMgr{
		name:     "approvals",
		workflow: conf.Workflow,
	}
}

func (mgr *ApprovalMgr) GetName() string { return mgr.name }

func (mgr *ApprovalMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ApprovalMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/pending", mgr.ListPending)
	g.GET("/my", mgr.ListMine)
	g.GET("/completed", mgr.ListCompleted)
	g.GET("/document/:documentId", mgr.ListByDocument)
	g.POST("/document/:documentId/cancel", mgr.CancelApproval)
	g.GET("/:id", mgr.GetApproval)
	g.POST("/:id/approve", mgr.Approve)
	g.POST("/:id/reject", mgr.Reject)
}

func (mgr *ApprovalMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	ApprovalIDReq struct {
		ID uint `uri:"id" binding:"required"`
	}

	DocumentIDReq struct {
		DocumentID uint `uri:"documentId" binding:"required"`
	}

	CompletedApprovalsReq struct {
		Title     string `form:"title"`
		StartDate string `form:"startDate"` // yyyy-MM-dd
		EndDate   string `form:"endDate"`   // yyyy-MM-dd
	}

	ApproveReq struct {
		Comment string `json:"comment"`
	}

	RejectReq struct {
		Comment *string `json:"comment"`
	}
)

// parseDate reads an optional yyyy-MM-dd value in the given location
func parseDate(value string, loc *time.Location) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListPending godoc
// @Summary List pending approvals
// @Description Approval lines waiting for the decision of the current member
// @Tags Approval
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]ApprovalLineResp] "Success"
// @Failure 500 {object} resputil.Response[any] "Other errors"
// @Router /v1/approvals/pending [get]
func (mgr *ApprovalMgr) ListPending(c *gin.Context) {
	token := util.GetToken(c)
	lines, err := mgr.workflow.PendingApprovals(c, token.UserID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newApprovalLineResps(lines))
}

// ListMine godoc
// @Summary List my approval lines
// @Description Every approval line assigned to the current member
// @Tags Approval
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]ApprovalLineResp] "Success"
// @Failure 500 {object} resputil.Response[any] "Other errors"
// @Router /v1/approvals/my [get]
func (mgr *ApprovalMgr) ListMine(c *gin.Context) {
	token := util.GetToken(c)
	lines, err := mgr.workflow.ApprovalsByApprover(c, token.UserID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newApprovalLineResps(lines))
}

// ListCompleted godoc
// @Summary List completed approvals
// @Description Approved or rejected lines of the current member, newest decision first
// @Tags Approval
// @Produce json
// @Security Bearer
// @Param query query CompletedApprovalsReq false "title and decision date range"
// @Success 200 {object} resputil.Response[[]ApprovalLineResp] "Success"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Failure 500 {object} resputil.Response[any] "Other errors"
// @Router /v1/approvals/completed [get]
func (mgr *ApprovalMgr) ListCompleted(c *gin.Context) {
	var req CompletedApprovalsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	loc := mgr.workflow.Location()
	startDate, err := parseDate(req.StartDate, loc)
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	endDate, err := parseDate(req.EndDate, loc)
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	lines, err := mgr.workflow.CompletedApprovals(c, token.UserID, req.Title, startDate, endDate)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newApprovalLineResps(lines))
}

// ListByDocument godoc
// @Summary Approval chain of a document
// @Tags Approval
// @Produce json
// @Security Bearer
// @Param documentId path int true "document ID"
// @Success 200 {object} resputil.Response[[]ApprovalLineResp] "Success"
// @Failure 403 {object} resputil.Response[any] "Not the author or an approver"
// @Failure 404 {object} resputil.Response[any] "Document not found"
// @Router /v1/approvals/document/{documentId} [get]
func (mgr *ApprovalMgr) ListByDocument(c *gin.Context) {
	var req DocumentIDReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	lines, err := mgr.workflow.DocumentApprovals(c, req.DocumentID, token.UserID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newApprovalLineResps(lines))
}

// GetApproval godoc
// @Summary Get an approval line
// @Tags Approval
// @Produce json
// @Security Bearer
// @Param id path int true "approval line ID"
// @Success 200 {object} resputil.Response[ApprovalLineResp] "Success"
// @Failure 403 {object} resputil.Response[any] "Not the approver or the author"
// @Failure 404 {object} resputil.Response[any] "Approval line not found"
// @Router /v1/approvals/{id} [get]
func (mgr *ApprovalMgr) GetApproval(c *gin.Context) {
	var req ApprovalIDReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	line, err := mgr.workflow.ApprovalByID(c, req.ID, token.UserID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newApprovalLineResp(line))
}

// Approve godoc
// @Summary Approve a document
// @Description Records the approval of the current member. The document is approved with its last line.
// @Tags Approval
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "approval line ID"
// @Param data body ApproveReq false "comment"
// @Success 200 {object} resputil.Response[ApprovalLineResp] "Success"
// @Failure 403 {object} resputil.Response[any] "Not the approver"
// @Failure 409 {object} resputil.Response[any] "Already decided or not the current step"
// @Router /v1/approvals/{id}/approve [post]
func (mgr *ApprovalMgr) Approve(c *gin.Context) {
	var uri ApprovalIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req ApproveReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			resputil.BadRequestError(c, err.Error())
			return
		}
	}

	token := util.GetToken(c)
	line, err := mgr.workflow.Approve(c, uri.ID, token.UserID, req.Comment)
	if err != nil {
		logutils.Log.WithFields(logutils.Fields{"line": uri.ID, "approver": token.UserID}).Warn("approve: ", err)
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newApprovalLineResp(line))
}

// Reject godoc
// @Summary Reject a document
// @Tags Approval
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "approval line ID"
// @Param data body RejectReq false "reason"
// @Success 200 {object} resputil.Response[ApprovalLineResp] "Success"
// @Failure 403 {object} resputil.Response[any] "Not the approver"
// @Failure 409 {object} resputil.Response[any] "Already decided or not the current step"
// @Router /v1/approvals/{id}/reject [post]
func (mgr *ApprovalMgr) Reject(c *gin.Context) {
	var uri ApprovalIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req RejectReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			resputil.BadRequestError(c, err.Error())
			return
		}
	}

	token := util.GetToken(c)
	line, err := mgr.workflow.Reject(c, uri.ID, token.UserID, req.Comment)
	if err != nil {
		logutils.Log.WithFields(logutils.Fields{"line": uri.ID, "approver": token.UserID}).Warn("reject: ", err)
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newApprovalLineResp(line))
}

// CancelApproval godoc
// @Summary Withdraw a submitted document
// @Description The author pulls a pending document back to draft. On a cancellation document the cancellation is withdrawn.
// @Tags Approval
// @Produce json
// @Security Bearer
// @Param documentId path int true "document ID"
// @Success 200 {object} resputil.Response[any] "Success"
// @Failure 403 {object} resputil.Response[any] "Not the author"
// @Failure 409 {object} resputil.Response[any] "Document is not pending"
// @Router /v1/approvals/document/{documentId}/cancel [post]
func (mgr *ApprovalMgr) CancelApproval(c *gin.Context) {
	var req DocumentIDReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	if err := mgr.workflow.CancelApproval(c, req.DocumentID, token.UserID); err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, nil)
}
