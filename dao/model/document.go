package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentType is the kind of approval document
type DocumentType string

const (
	DocumentTypeLeave           DocumentType = "LEAVE"
	DocumentTypeVacation        DocumentType = "VACATION"
	DocumentTypeVacationRequest DocumentType = "VACATION_REQUEST"
	DocumentTypeMeeting         DocumentType = "MEETING"
	DocumentTypeBusinessTrip    DocumentType = "BUSINESS_TRIP"
	DocumentTypeHolidayWork     DocumentType = "HOLIDAY_WORK"
	DocumentTypeOfficialLeave   DocumentType = "OFFICIAL_LEAVE"
	DocumentTypeSecurityRequest DocumentType = "SECURITY_REQUEST"
	DocumentTypeExpense         DocumentType = "EXPENSE"
	DocumentTypeGeneral         DocumentType = "GENERAL"
)

// IsLeave reports whether documents of this type may carry embedded leave schedule info
func (t DocumentType) IsLeave() bool {
	switch t {
	case DocumentTypeLeave, DocumentTypeVacation, DocumentTypeVacationRequest:
		return true
	default:
		return false
	}
}

// DocumentStatus is the approval state of a document
type DocumentStatus string

const (
	DocumentStatusDraft    DocumentStatus = "DRAFT"
	DocumentStatusPending  DocumentStatus = "PENDING"
	DocumentStatusApproved DocumentStatus = "APPROVED"
	DocumentStatusRejected DocumentStatus = "REJECTED"
)

// Editable reports whether the author may still change or resubmit the document
func (s DocumentStatus) Editable() bool {
	return s == DocumentStatusDraft || s == DocumentStatusRejected
}

// CancellationTitlePrefix is prepended to the title of cancellation documents
const CancellationTitlePrefix = "[취소] "

// DocumentMetadata carries cross references that are not modeled as columns
type DocumentMetadata struct {
	// OriginalScheduleID is set on cancellation documents only
	OriginalScheduleID *uint `json:"originalScheduleId,omitempty"`
}

// Document is an approval request written by a member
type Document struct {
	gorm.Model
	Type        DocumentType                         `gorm:"type:varchar(32);not null;index;comment:document type"`
	AuthorID    uint                                 `gorm:"not null;index;comment:author member ID"`
	Author      Member                               `gorm:"foreignKey:AuthorID"`
	Title       string                               `gorm:"type:varchar(256);not null;comment:title"`
	Content     string                               `gorm:"type:text;comment:body"`
	Status      DocumentStatus                       `gorm:"type:varchar(32);not null;index;default:DRAFT;comment:approval status"`
	Metadata    datatypes.JSONType[DocumentMetadata] `gorm:"comment:cross reference metadata"`
	SubmittedAt *time.Time                           `gorm:"comment:time the document entered PENDING"`
	CompletedAt *time.Time                           `gorm:"comment:time the document was approved or rejected"`

	ApprovalLines []ApprovalLine `gorm:"foreignKey:DocumentID"`
}

// OriginalScheduleID returns the schedule a cancellation document targets
func (d *Document) OriginalScheduleID() (uint, bool) {
	meta := d.Metadata.Data()
	if meta.OriginalScheduleID == nil {
		return 0, false
	}
	return *meta.OriginalScheduleID, true
}

// IsCancellation reports whether the document asks to cancel an approved schedule
func (d *Document) IsCancellation() bool {
	_, ok := d.OriginalScheduleID()
	return ok
}

// ApprovalDecision is the vote of one approver
type ApprovalDecision string

const (
	ApprovalDecisionPending  ApprovalDecision = "PENDING"
	ApprovalDecisionApproved ApprovalDecision = "APPROVED"
	ApprovalDecisionRejected ApprovalDecision = "REJECTED"
)

// ApprovalLine is one step of a document's approval chain
type ApprovalLine struct {
	gorm.Model
	DocumentID       uint             `gorm:"not null;index;comment:document ID"`
	Document         *Document        `gorm:"foreignKey:DocumentID"`
	StepOrder        int              `gorm:"not null;comment:order of the step, starting from 1"`
	ApproverID       uint             `gorm:"not null;index;comment:approver member ID"`
	ApproverName     string           `gorm:"type:varchar(64);comment:approver name at submission time"`
	ApproverPosition string           `gorm:"type:varchar(64);comment:approver position at submission time"`
	Decision         ApprovalDecision `gorm:"type:varchar(32);not null;index;default:PENDING;comment:decision"`
	Comment          string           `gorm:"type:varchar(1024);comment:approver comment"`
	DecidedAt        *time.Time       `gorm:"comment:decision time"`
}
