package workflow

import (
	"context"
	"time"

	"github.com/ync-lab/intranet/dao/model"
)

// ApprovalFilter selects approval lines of one approver
type ApprovalFilter struct {
	ApproverID     uint
	Decisions      []model.ApprovalDecision
	DocumentStatus *model.DocumentStatus
	// Title matches documents whose title contains the value
	Title       string
	DecidedFrom *time.Time
	DecidedTo   *time.Time
	// RecentlyDecided orders by decision time instead of creation time
	RecentlyDecided bool
	Limit           int
}

// ScheduleFilter selects schedules; zero fields are ignored
type ScheduleFilter struct {
	MemberID     *uint
	DepartmentID *uint
	// DivisionID matches members of every child department of the division
	DivisionID *uint
	// From and To match schedules overlapping the closed date range
	From            *time.Time
	To              *time.Time
	Types           []model.ScheduleType
	Statuses        []model.ScheduleStatus
	ExcludeStatuses []model.ScheduleStatus
	ExcludeID       uint
	NewestFirst     bool
	Limit           int
}

// Store persists documents, approval lines and schedules.
// Lookups of missing rows return an error wrapping gorm.ErrRecordNotFound.
type Store interface {
	// Transaction runs fn against a store bound to one database transaction
	Transaction(ctx context.Context, fn func(tx Store) error) error

	GetDocument(ctx context.Context, id uint) (*model.Document, error)
	CreateDocument(ctx context.Context, doc *model.Document) error
	SaveDocument(ctx context.Context, doc *model.Document) error
	DeleteDocument(ctx context.Context, id uint) error
	ListDocumentsByAuthor(ctx context.Context, authorID uint, limit int) ([]*model.Document, error)
	// FindCancellationDocuments returns cancellation documents targeting the schedule, newest first
	FindCancellationDocuments(ctx context.Context, scheduleID uint) ([]*model.Document, error)

	GetApprovalLine(ctx context.Context, id uint) (*model.ApprovalLine, error)
	// ListApprovalLines returns the lines of a document ordered by step
	ListApprovalLines(ctx context.Context, documentID uint) ([]*model.ApprovalLine, error)
	// ListApprovalLinesByApprover returns lines with their document preloaded
	ListApprovalLinesByApprover(ctx context.Context, filter ApprovalFilter) ([]*model.ApprovalLine, error)
	CreateApprovalLines(ctx context.Context, lines []*model.ApprovalLine) error
	SaveApprovalLine(ctx context.Context, line *model.ApprovalLine) error
	DeleteApprovalLines(ctx context.Context, documentID uint) error

	GetSchedule(ctx context.Context, id uint) (*model.Schedule, error)
	CreateSchedule(ctx context.Context, schedule *model.Schedule) error
	SaveSchedule(ctx context.Context, schedule *model.Schedule) error
	DeleteSchedule(ctx context.Context, id uint) error
	ListSchedulesByDocument(ctx context.Context, documentID uint) ([]*model.Schedule, error)
	ListSchedules(ctx context.Context, filter ScheduleFilter) ([]*model.Schedule, error)

	GetMember(ctx context.Context, id uint) (*model.Member, error)
}

// Notifier delivers workflow events to members. Implementations must not block for long
// and report their own failures.
type Notifier interface {
	ApprovalRequested(ctx context.Context, approverID uint, doc *model.Document)
	ApprovalApproved(ctx context.Context, doc *model.Document, approverName string)
	ApprovalRejected(ctx context.Context, doc *model.Document, approverName, reason string)
}
