package handler

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/internal/resputil"
	"github.com/ync-lab/intranet/internal/util"
	"github.com/ync-lab/intranet/pkg/attachment"
	"github.com/ync-lab/intranet/pkg/logutils"
	"github.com/ync-lab/intranet/pkg/workflow"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewAttachmentMgr)
}

type AttachmentMgr struct {
	name        string
	attachments *attachment.Service
	workflow    *workflow.Service
}

func NewAttachmentMgr(conf *RegisterConfig) Manager {
	return &AttachmentMgr{
		name:        "attachments",
		attachments: conf.Attachments,
		workflow:    conf.Workflow,
	}
}

func (mgr *AttachmentMgr) GetName() string { return mgr.name }

func (mgr *AttachmentMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *AttachmentMgr) RegisterProtected(g *gin.RouterGroup) {
	g.POST("/upload", mgr.Upload)
	g.GET("/download/:id", mgr.Download)
	g.GET("/document/:documentId", mgr.ListByDocument)
	g.DELETE("/:id", mgr.Delete)
}

func (mgr *AttachmentMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	AttachmentIDReq struct {
		ID uint `uri:"id" binding:"required"`
	}

	UploadReq struct {
		DocumentID uint `form:"documentId" binding:"required"`
	}

	AttachmentResp struct {
		ID         uint      `json:"id"`
		DocumentID uint      `json:"documentId"`
		FileName   string    `json:"fileName"`
		FileSize   int64     `json:"fileSize"`
		FileType   string    `json:"fileType"`
		UploadedBy uint      `json:"uploadedBy"`
		CreatedAt  time.Time `json:"createdAt"`
	}
)

func newAttachmentResp(a *model.Attachment) AttachmentResp {
	return AttachmentResp{
		ID:         a.ID,
		DocumentID: a.DocumentID,
		FileName:   a.FileName,
		FileSize:   a.FileSize,
		FileType:   a.FileType,
		UploadedBy: a.UploadedBy,
		CreatedAt:  a.CreatedAt,
	}
}

// Upload godoc
// @Summary Upload an attachment
// @Description Attaches a file of at most 10 MB to a document visible to the member
// @Tags Attachment
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param documentId formData int true "document ID"
// @Param file formData file true "file"
// @Success 200 {object} resputil.Response[AttachmentResp] "Success"
// @Failure 400 {object} resputil.Response[any] "Empty, too large or disallowed file"
// @Failure 403 {object} resputil.Response[any] "Document not visible"
// @Router /v1/attachments/upload [post]
func (mgr *AttachmentMgr) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, attachment.MaxFileSize+1<<20)
	var req UploadReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	if _, err := mgr.workflow.GetDocument(c, req.DocumentID, token.UserID); err != nil {
		resputil.DomainError(c, err)
		return
	}

	file, err := header.Open()
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	defer file.Close()

	a, err := mgr.attachments.Upload(c, req.DocumentID, token.UserID, header.Filename, header.Size, file)
	if err != nil {
		logutils.Log.WithFields(logutils.Fields{"document": req.DocumentID, "file": header.Filename}).Warn("upload: ", err)
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newAttachmentResp(a))
}

// Download godoc
// @Summary Download an attachment
// @Tags Attachment
// @Produce octet-stream
// @Security Bearer
// @Param id path int true "attachment ID"
// @Success 200 {file} file "File content"
// @Failure 403 {object} resputil.Response[any] "Document not visible"
// @Failure 404 {object} resputil.Response[any] "Attachment or file not found"
// @Router /v1/attachments/download/{id} [get]
func (mgr *AttachmentMgr) Download(c *gin.Context) {
	var uri AttachmentIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	a, err := mgr.attachments.Get(c, uri.ID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	if _, err := mgr.workflow.GetDocument(c, a.DocumentID, token.UserID); err != nil {
		resputil.DomainError(c, err)
		return
	}

	a, file, err := mgr.attachments.Open(c, uri.ID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	defer file.Close()

	contentType := mime.TypeByExtension("." + a.FileType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, a.FileSize, contentType, file, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(a.FileName)),
	})
}

// ListByDocument godoc
// @Summary List attachments of a document
// @Tags Attachment
// @Produce json
// @Security Bearer
// @Param documentId path int true "document ID"
// @Success 200 {object} resputil.Response[[]AttachmentResp] "Success"
// @Failure 403 {object} resputil.Response[any] "Document not visible"
// @Router /v1/attachments/document/{documentId} [get]
func (mgr *AttachmentMgr) ListByDocument(c *gin.Context) {
	var uri DocumentIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	if _, err := mgr.workflow.GetDocument(c, uri.DocumentID, token.UserID); err != nil {
		resputil.DomainError(c, err)
		return
	}
	rows, err := mgr.attachments.ListByDocument(c, uri.DocumentID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, lo.Map(rows, func(a *model.Attachment, _ int) AttachmentResp { return newAttachmentResp(a) }))
}

// Delete godoc
// @Summary Delete an attachment
// @Description Only the uploader may delete; the file is removed from disk
// @Tags Attachment
// @Produce json
// @Security Bearer
// @Param id path int true "attachment ID"
// @Success 200 {object} resputil.Response[any] "Success"
// @Failure 403 {object} resputil.Response[any] "Not the uploader"
// @Router /v1/attachments/{id} [delete]
func (mgr *AttachmentMgr) Delete(c *gin.Context) {
	var uri AttachmentIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	if err := mgr.attachments.Delete(c, uri.ID, token.UserID); err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, nil)
}
