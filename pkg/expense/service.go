// Package expense keeps the expense items of members, their welfare budget and the
// submission of items to the management department.
package expense

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/logutils"
	"github.com/ync-lab/intranet/pkg/workflow"
)

// DefaultManagementDepartment reads every submitted expense
const DefaultManagementDepartment = "경영관리 Unit"

type Service struct {
	store          Store
	managementDept string
	loc            *time.Location
	now            func() time.Time
}

func NewService(store Store, managementDept string, loc *time.Location) *Service {
	if managementDept == "" {
		managementDept = DefaultManagementDepartment
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:          store,
		managementDept: managementDept,
		loc:            loc,
		now:            time.Now,
	}
}

// ItemInput is the editable part of an expense item
type ItemInput struct {
	ReportID    *uint
	UsageDate   time.Time
	Description string
	Account     string
	Amount      int64
	Vendor      string
	CostCode    string
	ProjectCode string
	Note        string
	WelfareFlag bool
}

func (in *ItemInput) validate() error {
	switch {
	case in.UsageDate.IsZero():
		return fmt.Errorf("usage date is required: %w", workflow.ErrInvalidInput)
	case strings.TrimSpace(in.Account) == "":
		return fmt.Errorf("account is required: %w", workflow.ErrInvalidInput)
	case in.Amount < 0:
		return fmt.Errorf("amount %d is negative: %w", in.Amount, workflow.ErrInvalidInput)
	}
	return nil
}

func (in *ItemInput) apply(item *model.ExpenseItem) {
	item.UsageDate = in.UsageDate
	item.Description = in.Description
	item.Account = strings.TrimSpace(in.Account)
	item.Amount = in.Amount
	item.Vendor = in.Vendor
	item.CostCode = in.CostCode
	item.ProjectCode = in.ProjectCode
	item.Note = in.Note
	item.WelfareFlag = in.WelfareFlag
}

func lookupError(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, workflow.ErrNotFound)
	}
	return fmt.Errorf("get %s %d: %w", what, id, err)
}

func (s *Service) GetItem(ctx context.Context, id uint) (*model.ExpenseItem, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, lookupError(err, "expense item", id)
	}
	return item, nil
}

func (s *Service) ItemsByReport(ctx context.Context, reportID uint) ([]*model.ExpenseItem, error) {
	return s.store.ListItems(ctx, ItemFilter{ReportID: &reportID})
}

func (s *Service) ItemsByCategory(ctx context.Context, account string) ([]*model.ExpenseItem, error) {
	return s.store.ListItems(ctx, ItemFilter{Account: account})
}

func (s *Service) AllItems(ctx context.Context) ([]*model.ExpenseItem, error) {
	return s.store.ListItems(ctx, ItemFilter{})
}

// ownedReport returns ErrForbidden when the report belongs to another member
func ownedReport(ctx context.Context, st Store, reportID, memberID uint) (*model.ExpenseReport, error) {
	report, err := st.GetReport(ctx, reportID)
	if err != nil {
		return nil, lookupError(err, "expense report", reportID)
	}
	if report.MemberID != memberID {
		return nil, fmt.Errorf("expense report %d belongs to another member: %w", reportID, workflow.ErrForbidden)
	}
	return report, nil
}

func ownedItem(ctx context.Context, st Store, id, memberID uint) (*model.ExpenseItem, error) {
	item, err := st.GetItem(ctx, id)
	if err != nil {
		return nil, lookupError(err, "expense item", id)
	}
	if item.MemberID != memberID {
		return nil, fmt.Errorf("expense item %d belongs to another member: %w", id, workflow.ErrForbidden)
	}
	if item.SubmissionID != nil {
		return nil, fmt.Errorf("expense item %d is already submitted: %w", id, workflow.ErrInvalidState)
	}
	return item, nil
}

// recomputeTotal stores the sum of the report items as the report total
func recomputeTotal(ctx context.Context, st Store, reportID *uint) error {
	if reportID == nil {
		return nil
	}
	items, err := st.ListItems(ctx, ItemFilter{ReportID: reportID})
	if err != nil {
		return fmt.Errorf("list items of report %d: %w", *reportID, err)
	}
	total := lo.SumBy(items, func(item *model.ExpenseItem) int64 { return item.Amount })
	if err := st.UpdateReportTotal(ctx, *reportID, total); err != nil {
		return fmt.Errorf("update total of report %d: %w", *reportID, err)
	}
	return nil
}

func (s *Service) CreateItem(ctx context.Context, memberID uint, in ItemInput) (*model.ExpenseItem, error) {
	items, err := s.CreateItems(ctx, memberID, []ItemInput{in})
	if err != nil {
		return nil, err
	}
	return items[0], nil
}

// CreateItems stores the items of the member in one transaction and refreshes the totals
// of every report involved
func (s *Service) CreateItems(ctx context.Context, memberID uint, ins []ItemInput) ([]*model.ExpenseItem, error) {
	if len(ins) == 0 {
		return nil, fmt.Errorf("no expense items: %w", workflow.ErrInvalidInput)
	}
	items := make([]*model.ExpenseItem, 0, len(ins))
	for i := range ins {
		if err := ins[i].validate(); err != nil {
			return nil, err
		}
		item := &model.ExpenseItem{ExpenseReportID: ins[i].ReportID, MemberID: memberID}
		ins[i].apply(item)
		items = append(items, item)
	}
	reportIDs := lo.Uniq(lo.FilterMap(ins, func(in ItemInput, _ int) (uint, bool) {
		if in.ReportID == nil {
			return 0, false
		}
		return *in.ReportID, true
	}))

	err := s.store.Transaction(ctx, func(tx Store) error {
		for _, id := range reportIDs {
			if _, err := ownedReport(ctx, tx, id, memberID); err != nil {
				return err
			}
		}
		if err := tx.CreateItems(ctx, items); err != nil {
			return fmt.Errorf("create expense items: %w", err)
		}
		for _, id := range reportIDs {
			if err := recomputeTotal(ctx, tx, &id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateItem changes an unsubmitted item of the member. The report of an item never changes.
func (s *Service) UpdateItem(ctx context.Context, id, memberID uint, in ItemInput) (*model.ExpenseItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var item *model.ExpenseItem
	err := s.store.Transaction(ctx, func(tx Store) error {
		var err error
		item, err = ownedItem(ctx, tx, id, memberID)
		if err != nil {
			return err
		}
		in.apply(item)
		if err := tx.SaveItem(ctx, item); err != nil {
			return fmt.Errorf("update expense item %d: %w", id, err)
		}
		return recomputeTotal(ctx, tx, item.ExpenseReportID)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) DeleteItem(ctx context.Context, id, memberID uint) error {
	return s.store.Transaction(ctx, func(tx Store) error {
		item, err := ownedItem(ctx, tx, id, memberID)
		if err != nil {
			return err
		}
		if err := tx.DeleteItem(ctx, id); err != nil {
			return fmt.Errorf("delete expense item %d: %w", id, err)
		}
		return recomputeTotal(ctx, tx, item.ExpenseReportID)
	})
}

// DeleteReportItems removes every item of the report and resets its total
func (s *Service) DeleteReportItems(ctx context.Context, reportID, memberID uint) error {
	return s.store.Transaction(ctx, func(tx Store) error {
		if _, err := ownedReport(ctx, tx, reportID, memberID); err != nil {
			return err
		}
		if err := tx.DeleteItemsByReport(ctx, reportID); err != nil {
			return fmt.Errorf("delete items of report %d: %w", reportID, err)
		}
		return tx.UpdateReportTotal(ctx, reportID, 0)
	})
}

func (s *Service) CreateReport(ctx context.Context, memberID uint, title string) (*model.ExpenseReport, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("report title is required: %w", workflow.ErrInvalidInput)
	}
	report := &model.ExpenseReport{MemberID: memberID, Title: strings.TrimSpace(title)}
	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("create expense report: %w", err)
	}
	logutils.Log.WithFields(logutils.Fields{"reportID": report.ID, "memberID": memberID}).Info("expense report created")
	return report, nil
}

// GetReport returns the report with its items
func (s *Service) GetReport(ctx context.Context, id uint) (*model.ExpenseReport, error) {
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, lookupError(err, "expense report", id)
	}
	items, err := s.store.ListItems(ctx, ItemFilter{ReportID: &id})
	if err != nil {
		return nil, fmt.Errorf("list items of report %d: %w", id, err)
	}
	report.Items = lo.FromSlicePtr(items)
	return report, nil
}

func (s *Service) ReportsByMember(ctx context.Context, memberID uint) ([]*model.ExpenseReport, error) {
	return s.store.ListReportsByMember(ctx, memberID)
}
