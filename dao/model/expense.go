package model

import (
	"time"

	"gorm.io/gorm"
)

// ExpenseReport groups expense items written by a member
type ExpenseReport struct {
	gorm.Model
	MemberID    uint   `gorm:"not null;index;comment:owner member ID"`
	Title       string `gorm:"type:varchar(256);not null;comment:title"`
	TotalAmount int64  `gorm:"not null;default:0;comment:sum of item amounts (KRW)"`

	Items []ExpenseItem `gorm:"foreignKey:ExpenseReportID"`
}

// ExpenseItem is one expense line written in the intranet
type ExpenseItem struct {
	gorm.Model
	ExpenseReportID *uint     `gorm:"index;comment:expense report ID"`
	MemberID        uint      `gorm:"not null;index;comment:spender member ID"`
	Member          Member    `gorm:"foreignKey:MemberID"`
	UsageDate       time.Time `gorm:"type:date;not null;index;comment:usage date"`
	Description     string    `gorm:"type:varchar(512);comment:description"`
	Account         string    `gorm:"type:varchar(64);not null;index;comment:account (category)"`
	Amount          int64     `gorm:"not null;comment:amount (KRW)"`
	Vendor          string    `gorm:"type:varchar(128);comment:vendor"`
	CostCode        string    `gorm:"type:varchar(32);comment:cost code"`
	ProjectCode     string    `gorm:"type:varchar(32);comment:project code"`
	Note            string    `gorm:"type:varchar(512);comment:note"`
	WelfareFlag     bool      `gorm:"not null;default:false;comment:paid from the welfare budget"`
	SubmissionID    *uint     `gorm:"index;comment:expense submission ID"`
}

// ExpenseSubmission is one submission of expense items to the management department
type ExpenseSubmission struct {
	gorm.Model
	SubmitterID          uint   `gorm:"not null;index;comment:submitter member ID"`
	Submitter            Member `gorm:"foreignKey:SubmitterID"`
	RepresentativeItemID uint   `gorm:"not null;comment:first submitted item"`
	Year                 string `gorm:"type:varchar(4);not null;comment:settlement year yyyy"`
	Month                string `gorm:"type:varchar(2);not null;comment:settlement month mm"`

	Items []ExpenseItem `gorm:"foreignKey:SubmissionID"`
}

// ExpenseLedgerEntry is the settled copy of a submitted item, keyed by the item ID
type ExpenseLedgerEntry struct {
	ID          uint      `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt   time.Time ``
	MemberID    uint      `gorm:"not null;index;comment:spender member ID"`
	UsageDate   time.Time `gorm:"type:date;not null;index;comment:usage date"`
	Account     string    `gorm:"type:varchar(64);not null;comment:account (category)"`
	Amount      int64     `gorm:"not null;comment:amount (KRW)"`
	WelfareFlag string    `gorm:"type:varchar(1);not null;default:N;comment:Y or N"`
	Year        string    `gorm:"type:varchar(4);not null;comment:settlement year yyyy"`
	Month       string    `gorm:"type:varchar(2);not null;comment:settlement month mm"`
}

func (ExpenseLedgerEntry) TableName() string {
	return "expense_ledger_entries"
}

// ExpenseReadStatus tracks whether a management member has read a submission
type ExpenseReadStatus struct {
	gorm.Model
	SubmissionID   uint       `gorm:"not null;uniqueIndex:idx_submission_reader;comment:expense submission ID"`
	ReaderMemberID uint       `gorm:"not null;uniqueIndex:idx_submission_reader;index;comment:reader member ID"`
	IsRead         bool       `gorm:"not null;default:false;comment:whether read"`
	ReadAt         *time.Time `gorm:"comment:read time"`
}
