package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/internal/payload"
	"github.com/ync-lab/intranet/internal/resputil"
	"github.com/ync-lab/intranet/internal/util"
	"github.com/ync-lab/intranet/pkg/attachment"
	"github.com/ync-lab/intranet/pkg/logutils"
	"github.com/ync-lab/intranet/pkg/workflow"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewDocumentMgr)
}

type DocumentMgr struct {
	name        string
	workflow    *workflow.Service
	attachments *attachment.Service
}

func NewDocumentMgr(conf *RegisterConfig) Manager {
	return &DocumentMgr{
		name:        "documents",
		workflow:    conf.Workflow,
		attachments: conf.Attachments,
	}
}

func (mgr *DocumentMgr) GetName() string { return mgr.name }

func (mgr *DocumentMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *DocumentMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListMyDocuments)
	g.POST("", mgr.CreateDocument)
	g.GET("/:id", mgr.GetDocument)
	g.PUT("/:id", mgr.UpdateDocument)
	g.DELETE("/:id", mgr.DeleteDocument)
	g.POST("/:id/submit", mgr.SubmitDocument)
}

func (mgr *DocumentMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	DocumentIDUriReq struct {
		ID uint `uri:"id" binding:"required"`
	}

	CreateDocumentReq struct {
		Type    model.DocumentType `json:"type" binding:"required"`
		Title   string             `json:"title" binding:"required"`
		Content string             `json:"content"`
		// Approvers in approval order. The document is submitted right away when given.
		ApproverIDs []uint `json:"approverIds"`
	}

	UpdateDocumentReq struct {
		Title   string `json:"title" binding:"required"`
		Content string `json:"content"`
	}

	SubmitDocumentReq struct {
		ApproverIDs []uint `json:"approverIds" binding:"required,min=1"`
	}
)

// ListMyDocuments godoc
// @Summary List my documents
// @Description Documents written by the current member, newest first
// @Tags Document
// @Produce json
// @Security Bearer
// @Param page query payload.ListReqQuery false "paging"
// @Success 200 {object} resputil.Response[payload.ListResp[DocumentResp]] "Success"
// @Failure 500 {object} resputil.Response[any] "Other errors"
// @Router /v1/documents [get]
func (mgr *DocumentMgr) ListMyDocuments(c *gin.Context) {
	var req payload.ListReqQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	docs, err := mgr.workflow.MyDocuments(c, token.UserID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, payload.Page(newDocumentResps(docs), req))
}

// CreateDocument godoc
// @Summary Create a document
// @Description Stores a draft, and submits it when approvers are given
// @Tags Document
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body CreateDocumentReq true "document"
// @Success 200 {object} resputil.Response[DocumentResp] "Success"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Router /v1/documents [post]
func (mgr *DocumentMgr) CreateDocument(c *gin.Context) {
	var req CreateDocumentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	doc, err := mgr.workflow.CreateDocument(c, token.UserID, workflow.DocumentInput{
		Type:    req.Type,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	if len(req.ApproverIDs) > 0 {
		doc, err = mgr.workflow.SubmitDocument(c, doc.ID, token.UserID, req.ApproverIDs)
		if err != nil {
			resputil.DomainError(c, err)
			return
		}
	}
	resputil.Success(c, newDocumentResp(doc))
}

// GetDocument godoc
// @Summary Get a document
// @Description Returns the document with its approval chain to the author or an approver
// @Tags Document
// @Produce json
// @Security Bearer
// @Param id path int true "document ID"
// @Success 200 {object} resputil.Response[DocumentResp] "Success"
// @Failure 403 {object} resputil.Response[any] "Not visible"
// @Failure 404 {object} resputil.Response[any] "Not found"
// @Router /v1/documents/{id} [get]
func (mgr *DocumentMgr) GetDocument(c *gin.Context) {
	var uri DocumentIDUriReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	doc, err := mgr.workflow.GetDocument(c, uri.ID, token.UserID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newDocumentResp(doc))
}

// UpdateDocument godoc
// @Summary Update a draft
// @Description Changes title and content of a draft or rejected document
// @Tags Document
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "document ID"
// @Param data body UpdateDocumentReq true "new values"
// @Success 200 {object} resputil.Response[DocumentResp] "Success"
// @Failure 409 {object} resputil.Response[any] "Document is not editable"
// @Router /v1/documents/{id} [put]
func (mgr *DocumentMgr) UpdateDocument(c *gin.Context) {
	var uri DocumentIDUriReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req UpdateDocumentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	doc, err := mgr.workflow.UpdateDraft(c, uri.ID, token.UserID, workflow.DocumentInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newDocumentResp(doc))
}

// SubmitDocument godoc
// @Summary Submit a document for approval
// @Tags Document
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "document ID"
// @Param data body SubmitDocumentReq true "approvers in order"
// @Success 200 {object} resputil.Response[DocumentResp] "Success"
// @Failure 400 {object} resputil.Response[any] "Unknown approver or malformed leave info"
// @Failure 409 {object} resputil.Response[any] "Document is not editable"
// @Router /v1/documents/{id}/submit [post]
func (mgr *DocumentMgr) SubmitDocument(c *gin.Context) {
	var uri DocumentIDUriReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req SubmitDocumentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	doc, err := mgr.workflow.SubmitDocument(c, uri.ID, token.UserID, req.ApproverIDs)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newDocumentResp(doc))
}

// DeleteDocument godoc
// @Summary Delete a document
// @Description Removes a draft or rejected document with its attachments
// @Tags Document
// @Produce json
// @Security Bearer
// @Param id path int true "document ID"
// @Success 200 {object} resputil.Response[any] "Success"
// @Failure 409 {object} resputil.Response[any] "Document is under review or approved"
// @Router /v1/documents/{id} [delete]
func (mgr *DocumentMgr) DeleteDocument(c *gin.Context) {
	var uri DocumentIDUriReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	if err := mgr.workflow.DeleteDocument(c, uri.ID, token.UserID); err != nil {
		resputil.DomainError(c, err)
		return
	}
	if err := mgr.attachments.DeleteByDocument(c, uri.ID); err != nil {
		logutils.Log.WithField("document", uri.ID).Warn("remove attachments of deleted document: ", err)
	}
	resputil.Success(c, nil)
}
