package model

import (
	"time"

	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeApprovalRequest  NotificationType = "APPROVAL_REQUEST"
	NotificationTypeApprovalApproved NotificationType = "APPROVAL_APPROVED"
	NotificationTypeApprovalRejected NotificationType = "APPROVAL_REJECTED"
	NotificationTypeDocumentComment  NotificationType = "DOCUMENT_COMMENT"
	NotificationTypeScheduleReminder NotificationType = "SCHEDULE_REMINDER"
	NotificationTypeLeaveApproved    NotificationType = "LEAVE_APPROVED"
	NotificationTypeLeaveRejected    NotificationType = "LEAVE_REJECTED"
	NotificationTypeAnnouncement     NotificationType = "ANNOUNCEMENT"
	NotificationTypeMention          NotificationType = "MENTION"
)

// Notification is an in-app message shown in the notification bell
type Notification struct {
	gorm.Model
	MemberID uint             `gorm:"not null;index;comment:receiver member ID"`
	Type     NotificationType `gorm:"type:varchar(32);not null;comment:notification type"`
	Title    string           `gorm:"type:varchar(256);not null;comment:title"`
	Content  string           `gorm:"type:text;comment:content"`
	LinkURL  string           `gorm:"type:varchar(512);comment:page to open"`
	IsRead   bool             `gorm:"not null;default:false;index;comment:whether read"`
	ReadAt   *time.Time       `gorm:"comment:read time"`
}

// Attachment is a file uploaded for a document
type Attachment struct {
	gorm.Model
	DocumentID uint   `gorm:"not null;index;comment:document ID"`
	FileName   string `gorm:"type:varchar(256);not null;comment:original file name"`
	StoredName string `gorm:"type:varchar(320);not null;comment:file name on disk"`
	FilePath   string `gorm:"type:varchar(1024);not null;comment:absolute path on disk"`
	FileSize   int64  `gorm:"not null;comment:size in bytes"`
	FileType   string `gorm:"type:varchar(16);comment:lowercase extension"`
	UploadedBy uint   `gorm:"not null;index;comment:uploader member ID"`
}
