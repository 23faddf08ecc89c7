package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/internal/resputil"
	"github.com/ync-lab/intranet/internal/util"
	"github.com/ync-lab/intranet/pkg/config"
	"github.com/ync-lab/intranet/pkg/logutils"
	"github.com/ync-lab/intranet/pkg/notification"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewNotificationMgr)
}

type NotificationMgr struct {
	name          string
	notifications *notification.Service
}

func NewNotificationMgr(conf *RegisterConfig) Manager {
	return &NotificationMgr{
		name:          "notifications",
		notifications: conf.Notifications,
	}
}

func (mgr *NotificationMgr) GetName() string { return mgr.name }

func (mgr *NotificationMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *NotificationMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListNotifications)
	g.GET("/unread-count", mgr.GetUnreadCount)
	g.GET("/ws", mgr.StreamUnreadCount)
	g.POST("/read-all", mgr.MarkAllRead)
	g.POST("/:id/read", mgr.MarkRead)
	g.DELETE("/:id", mgr.DeleteNotification)
}

func (mgr *NotificationMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.POST("", mgr.CreateNotification)
}

const (
	// WriteTimeout specifies the maximum duration for completing a write operation.
	WriteTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

type (
	NotificationIDReq struct {
		ID uint `uri:"id" binding:"required"`
	}

	NotificationResp struct {
		ID        uint                   `json:"id"`
		Type      model.NotificationType `json:"type"`
		Title     string                 `json:"title"`
		Content   string                 `json:"content"`
		LinkURL   string                 `json:"linkUrl"`
		IsRead    bool                   `json:"isRead"`
		ReadAt    *time.Time             `json:"readAt"`
		CreatedAt time.Time              `json:"createdAt"`
	}

	UnreadCountResp struct {
		UnreadCount int64 `json:"unreadCount"`
	}

	CreateNotificationReq struct {
		MemberIDs []uint                 `json:"memberIds" binding:"required,min=1"`
		Type      model.NotificationType `json:"type"`
		Title     string                 `json:"title" binding:"required"`
		Content   string                 `json:"content"`
		LinkURL   string                 `json:"linkUrl"`
	}
)

func newNotificationResp(n *model.Notification) NotificationResp {
	return NotificationResp{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Content:   n.Content,
		LinkURL:   n.LinkURL,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

// ListNotifications godoc
// @Summary Recent notifications
// @Description The latest notifications of the current member, newest first
// @Tags Notification
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]NotificationResp] "Success"
// @Failure 500 {object} resputil.Response[any] "Other errors"
// @Router /v1/notifications [get]
func (mgr *NotificationMgr) ListNotifications(c *gin.Context) {
	token := util.GetToken(c)
	rows, err := mgr.notifications.Recent(c, token.UserID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, lo.Map(rows, func(n *model.Notification, _ int) NotificationResp {
		return newNotificationResp(n)
	}))
}

// GetUnreadCount godoc
// @Summary Unread notification count
// @Tags Notification
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[UnreadCountResp] "Success"
// @Router /v1/notifications/unread-count [get]
func (mgr *NotificationMgr) GetUnreadCount(c *gin.Context) {
	token := util.GetToken(c)
	count, err := mgr.notifications.UnreadCount(c, token.UserID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, UnreadCountResp{UnreadCount: count})
}

// StreamUnreadCount godoc
// @Summary Stream the unread notification count
// @Description Websocket sending {"unreadCount": n} on connect and on every change. Pass the access token as ?token=.
// @Tags Notification
// @Security Bearer
// @Router /v1/notifications/ws [get]
func (mgr *NotificationMgr) StreamUnreadCount(c *gin.Context) {
	token := util.GetToken(c)
	count, err := mgr.notifications.UnreadCount(c, token.UserID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}

	var upgrade = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	// Allow all origins in debug mode
	if config.IsDebugMode() {
		upgrade.CheckOrigin = func(_ *http.Request) bool {
			return true
		}
	}
	ws, err := upgrade.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already answered the request
		logutils.Log.WithField("member", token.UserID).Warn("upgrade websocket: ", err)
		return
	}
	defer ws.Close()

	updates, unsubscribe := mgr.notifications.Hub().Subscribe(token.UserID)
	defer unsubscribe()

	// The client sends nothing; reading detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(count int64) error {
		if err := ws.SetWriteDeadline(time.Now().Add(WriteTimeout)); err != nil {
			return err
		}
		return ws.WriteJSON(UnreadCountResp{UnreadCount: count})
	}
	if err := send(count); err != nil {
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case count, ok := <-updates:
			if !ok {
				return
			}
			if err := send(count); err != nil {
				return
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(WriteTimeout)); err != nil {
				return
			}
		}
	}
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notification
// @Produce json
// @Security Bearer
// @Param id path int true "notification ID"
// @Success 200 {object} resputil.Response[any] "Success"
// @Failure 403 {object} resputil.Response[any] "Not the receiver"
// @Failure 404 {object} resputil.Response[any] "Not found"
// @Router /v1/notifications/{id}/read [post]
func (mgr *NotificationMgr) MarkRead(c *gin.Context) {
	var uri NotificationIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	if err := mgr.notifications.MarkRead(c, uri.ID, token.UserID); err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, nil)
}

// MarkAllRead godoc
// @Summary Mark every notification as read
// @Tags Notification
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[int64] "Number of notifications marked"
// @Router /v1/notifications/read-all [post]
func (mgr *NotificationMgr) MarkAllRead(c *gin.Context) {
	token := util.GetToken(c)
	marked, err := mgr.notifications.MarkAllRead(c, token.UserID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, marked)
}

// DeleteNotification godoc
// @Summary Delete a notification
// @Tags Notification
// @Produce json
// @Security Bearer
// @Param id path int true "notification ID"
// @Success 200 {object} resputil.Response[any] "Success"
// @Failure 403 {object} resputil.Response[any] "Not the receiver"
// @Router /v1/notifications/{id} [delete]
func (mgr *NotificationMgr) DeleteNotification(c *gin.Context) {
	var uri NotificationIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	if err := mgr.notifications.Delete(c, uri.ID, token.UserID); err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, nil)
}

// CreateNotification godoc
// @Summary Send a notification
// @Description Admins send an announcement or any other notification to members
// @Tags Notification
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body CreateNotificationReq true "notification"
// @Success 200 {object} resputil.Response[[]NotificationResp] "Created notifications"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Router /v1/admin/notifications [post]
func (mgr *NotificationMgr) CreateNotification(c *gin.Context) {
	var req CreateNotificationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	created := make([]NotificationResp, 0, len(req.MemberIDs))
	for _, memberID := range lo.Uniq(req.MemberIDs) {
		n, err := mgr.notifications.Create(c, notification.CreateInput{
			MemberID: memberID,
			Type:     req.Type,
			Title:    req.Title,
			Content:  req.Content,
			LinkURL:  req.LinkURL,
		})
		if err != nil {
			resputil.DomainError(c, err)
			return
		}
		created = append(created, newNotificationResp(n))
	}
	resputil.Success(c, created)
}
