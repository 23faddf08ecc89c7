package expense

import (
	"context"
	"time"

	"github.com/ync-lab/intranet/dao/model"
)

// ItemFilter selects expense items; zero fields are ignored
type ItemFilter struct {
	ReportID *uint
	MemberID *uint
	Account  string
	// WelfareOnly keeps items paid from the welfare budget
	WelfareOnly bool
	// From and To match usage dates in the closed range
	From *time.Time
	To   *time.Time
}

// Store persists expense items, reports, submissions and the settled ledger.
// Lookups of missing rows return an error wrapping gorm.ErrRecordNotFound.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Store) error) error

	GetItem(ctx context.Context, id uint) (*model.ExpenseItem, error)
	// ListItems returns matching items ordered by usage date
	ListItems(ctx context.Context, filter ItemFilter) ([]*model.ExpenseItem, error)
	// FindItems returns the existing items among ids, in the order of ids
	FindItems(ctx context.Context, ids []uint) ([]*model.ExpenseItem, error)
	CreateItems(ctx context.Context, items []*model.ExpenseItem) error
	SaveItem(ctx context.Context, item *model.ExpenseItem) error
	DeleteItem(ctx context.Context, id uint) error
	DeleteItemsByReport(ctx context.Context, reportID uint) error
	AssignSubmission(ctx context.Context, itemIDs []uint, submissionID uint) error

	CreateReport(ctx context.Context, report *model.ExpenseReport) error
	GetReport(ctx context.Context, id uint) (*model.ExpenseReport, error)
	ListReportsByMember(ctx context.Context, memberID uint) ([]*model.ExpenseReport, error)
	UpdateReportTotal(ctx context.Context, reportID uint, total int64) error

	CreateLedgerEntries(ctx context.Context, entries []*model.ExpenseLedgerEntry) error
	// ListLedgerEntries returns entries used in the closed range. A nil memberIDs matches everyone.
	ListLedgerEntries(ctx context.Context, from, to time.Time, memberIDs []uint) ([]*model.ExpenseLedgerEntry, error)

	CreateSubmission(ctx context.Context, submission *model.ExpenseSubmission) error
	CreateReadStatuses(ctx context.Context, statuses []*model.ExpenseReadStatus) error
	// ListUnreadSubmissions returns submissions the reader has not read yet with submitter
	// department and items preloaded, oldest first
	ListUnreadSubmissions(ctx context.Context, readerID uint) ([]*model.ExpenseSubmission, error)
	// MarkSubmissionRead reports whether a read status of the reader was found
	MarkSubmissionRead(ctx context.Context, submissionID, readerID uint, at time.Time) (bool, error)
	CountUnread(ctx context.Context, readerID uint) (int64, error)

	GetMember(ctx context.Context, id uint) (*model.Member, error)
	FindDepartmentByName(ctx context.Context, name string) (*model.Department, error)
	ListChildDepartments(ctx context.Context, parentID uint) ([]*model.Department, error)
	ListMembersByDepartments(ctx context.Context, departmentIDs []uint) ([]*model.Member, error)
}
