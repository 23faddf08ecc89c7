package model

import (
	"time"

	"gorm.io/gorm"
)

// ScheduleType is the kind of calendar entry
type ScheduleType string

const (
	ScheduleTypeVacation        ScheduleType = "VACATION"
	ScheduleTypeHalfDay         ScheduleType = "HALF_DAY"
	ScheduleTypeMeeting         ScheduleType = "MEETING"
	ScheduleTypeBusinessTrip    ScheduleType = "BUSINESS_TRIP"
	ScheduleTypeHolidayWork     ScheduleType = "HOLIDAY_WORK"
	ScheduleTypeOfficialLeave   ScheduleType = "OFFICIAL_LEAVE"
	ScheduleTypeSecurityRequest ScheduleType = "SECURITY_REQUEST"
	ScheduleTypeOther           ScheduleType = "OTHER"
)

// Valid reports whether t is a known schedule type
func (t ScheduleType) Valid() bool {
	switch t {
	case ScheduleTypeVacation, ScheduleTypeHalfDay, ScheduleTypeMeeting, ScheduleTypeBusinessTrip,
		ScheduleTypeHolidayWork, ScheduleTypeOfficialLeave, ScheduleTypeSecurityRequest, ScheduleTypeOther:
		return true
	default:
		return false
	}
}

// RequiresApproval reports whether schedules of this type are gated by a document
func (t ScheduleType) RequiresApproval() bool {
	switch t {
	case ScheduleTypeVacation, ScheduleTypeHalfDay, ScheduleTypeHolidayWork,
		ScheduleTypeOfficialLeave, ScheduleTypeSecurityRequest:
		return true
	default:
		return false
	}
}

// IsTimeWindow reports whether the status follows the wall clock
func (t ScheduleType) IsTimeWindow() bool {
	return t == ScheduleTypeMeeting || t == ScheduleTypeBusinessTrip
}

// DocumentType returns the document type used to request approval for the schedule
func (t ScheduleType) DocumentType() DocumentType {
	switch t {
	case ScheduleTypeVacation, ScheduleTypeHalfDay:
		return DocumentTypeLeave
	case ScheduleTypeHolidayWork:
		return DocumentTypeHolidayWork
	case ScheduleTypeOfficialLeave:
		return DocumentTypeOfficialLeave
	case ScheduleTypeSecurityRequest:
		return DocumentTypeSecurityRequest
	case ScheduleTypeMeeting:
		return DocumentTypeMeeting
	case ScheduleTypeBusinessTrip:
		return DocumentTypeBusinessTrip
	default:
		return DocumentTypeGeneral
	}
}

// ScheduleStatus is the lifecycle state of a schedule
type ScheduleStatus string

const (
	ScheduleStatusDraft     ScheduleStatus = "DRAFT"
	ScheduleStatusSubmitted ScheduleStatus = "SUBMITTED"
	// ScheduleStatusCancelPending marks an approved schedule with a cancellation under review
	ScheduleStatusCancelPending ScheduleStatus = "PENDING"
	ScheduleStatusApproved      ScheduleStatus = "APPROVED"
	ScheduleStatusRejected      ScheduleStatus = "REJECTED"
	ScheduleStatusCancelled     ScheduleStatus = "CANCELLED"
	ScheduleStatusReserved      ScheduleStatus = "RESERVED"
	ScheduleStatusInProgress    ScheduleStatus = "IN_PROGRESS"
	ScheduleStatusCompleted     ScheduleStatus = "COMPLETED"
)

// ScheduleStatusFromDocument maps a document status onto its linked schedule
func ScheduleStatusFromDocument(s DocumentStatus) ScheduleStatus {
	switch s {
	case DocumentStatusPending:
		return ScheduleStatusSubmitted
	case DocumentStatusApproved:
		return ScheduleStatusApproved
	case DocumentStatusRejected:
		return ScheduleStatusRejected
	default:
		return ScheduleStatusDraft
	}
}

// Schedule is a calendar entry of a member
type Schedule struct {
	gorm.Model
	MemberID    uint           `gorm:"not null;index;comment:owner member ID"`
	Member      Member         `gorm:"foreignKey:MemberID"`
	DocumentID  *uint          `gorm:"index;comment:approval document ID"`
	Type        ScheduleType   `gorm:"type:varchar(32);not null;index;comment:schedule type"`
	Title       string         `gorm:"type:varchar(256);not null;comment:title"`
	Description string         `gorm:"type:text;comment:description"`
	Location    string         `gorm:"type:varchar(256);comment:location"`
	StartDate   time.Time      `gorm:"type:date;not null;index;comment:first day"`
	EndDate     time.Time      `gorm:"type:date;not null;index;comment:last day"`
	StartTime   string         `gorm:"type:varchar(5);comment:start time HH:MM"`
	EndTime     string         `gorm:"type:varchar(5);comment:end time HH:MM"`
	DaysUsed    float64        `gorm:"not null;default:0;comment:leave days consumed"`
	Status      ScheduleStatus `gorm:"type:varchar(32);not null;index;default:DRAFT;comment:status"`
}
