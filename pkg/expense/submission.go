package expense

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/logutils"
	"github.com/ync-lab/intranet/pkg/workflow"
)

var (
	yearPattern  = regexp.MustCompile(`^\d{4}$`)
	monthPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])$`)
)

// UnreadSubmission summarizes a submission not yet read by a management member
type UnreadSubmission struct {
	SubmissionID        uint                `json:"submissionId"`
	SubmitterName       string              `json:"submitterName"`
	SubmitterDepartment string              `json:"submitterDepartment"`
	SubmittedAt         time.Time           `json:"submittedAt"`
	Items               []model.ExpenseItem `json:"items"`
	ItemCount           int                 `json:"itemCount"`
}

func welfareFlag(welfare bool) string {
	if welfare {
		return model.FlagYes
	}
	return model.FlagNo
}

// managementMembers returns the active members of the management department, if any
func (s *Service) managementMembers(ctx context.Context, st Store) ([]*model.Member, error) {
	dept, err := st.FindDepartmentByName(ctx, s.managementDept)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find department %q: %w", s.managementDept, err)
	}
	members, err := st.ListMembersByDepartments(ctx, []uint{dept.ID})
	if err != nil {
		return nil, fmt.Errorf("list members of %q: %w", s.managementDept, err)
	}
	return lo.Filter(members, func(m *model.Member, _ int) bool { return m.IsActive }), nil
}

// Submit settles the items for the year and month and asks every management member to
// read them. Unknown ids are skipped. The returned submission is nil when there is
// nobody to read it.
func (s *Service) Submit(ctx context.Context, itemIDs []uint, submitterID uint, yyyy, mm string) (*model.ExpenseSubmission, error) {
	if len(itemIDs) == 0 {
		return nil, fmt.Errorf("no expense items to submit: %w", workflow.ErrInvalidInput)
	}
	if !yearPattern.MatchString(yyyy) || !monthPattern.MatchString(mm) {
		return nil, fmt.Errorf("settlement month %s-%s: %w", yyyy, mm, workflow.ErrInvalidInput)
	}

	var submission *model.ExpenseSubmission
	err := s.store.Transaction(ctx, func(tx Store) error {
		// 1. Load the items
		items, err := tx.FindItems(ctx, lo.Uniq(itemIDs))
		if err != nil {
			return fmt.Errorf("find expense items: %w", err)
		}
		if len(items) == 0 {
			return fmt.Errorf("none of the expense items exist: %w", workflow.ErrInvalidInput)
		}
		if submitted, ok := lo.Find(items, func(item *model.ExpenseItem) bool { return item.SubmissionID != nil }); ok {
			return fmt.Errorf("expense item %d is already submitted: %w", submitted.ID, workflow.ErrInvalidState)
		}

		// 2. Copy them into the ledger under the same ids
		entries := lo.Map(items, func(item *model.ExpenseItem, _ int) *model.ExpenseLedgerEntry {
			return &model.ExpenseLedgerEntry{
				ID:          item.ID,
				MemberID:    item.MemberID,
				UsageDate:   item.UsageDate,
				Account:     item.Account,
				Amount:      item.Amount,
				WelfareFlag: welfareFlag(item.WelfareFlag),
				Year:        yyyy,
				Month:       mm,
			}
		})
		if err := tx.CreateLedgerEntries(ctx, entries); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("expense items are already settled: %w", workflow.ErrInvalidState)
			}
			return fmt.Errorf("create ledger entries: %w", err)
		}

		// 3. One read status per management member
		readers, err := s.managementMembers(ctx, tx)
		if err != nil {
			return err
		}
		if len(readers) == 0 {
			logutils.Log.WithField("department", s.managementDept).Warn("no management members, expense settled without submission")
			return nil
		}
		submission = &model.ExpenseSubmission{
			SubmitterID:          submitterID,
			RepresentativeItemID: items[0].ID,
			Year:                 yyyy,
			Month:                mm,
		}
		if err := tx.CreateSubmission(ctx, submission); err != nil {
			return fmt.Errorf("create expense submission: %w", err)
		}
		statuses := lo.Map(readers, func(reader *model.Member, _ int) *model.ExpenseReadStatus {
			return &model.ExpenseReadStatus{SubmissionID: submission.ID, ReaderMemberID: reader.ID}
		})
		if err := tx.CreateReadStatuses(ctx, statuses); err != nil {
			return fmt.Errorf("create read statuses: %w", err)
		}

		// 4. Link the items to the submission
		ids := lo.Map(items, func(item *model.ExpenseItem, _ int) uint { return item.ID })
		return tx.AssignSubmission(ctx, ids, submission.ID)
	})
	if err != nil {
		return nil, err
	}
	fields := logutils.Fields{"submitterID": submitterID, "items": len(itemIDs), "month": yyyy + "-" + mm}
	if submission != nil {
		fields["submissionID"] = submission.ID
	}
	logutils.Log.WithFields(fields).Info("expense items submitted")
	return submission, nil
}

// UnreadSubmissions lists the submissions the reader still has to read
func (s *Service) UnreadSubmissions(ctx context.Context, readerID uint) ([]UnreadSubmission, error) {
	submissions, err := s.store.ListUnreadSubmissions(ctx, readerID)
	if err != nil {
		return nil, fmt.Errorf("list unread submissions of member %d: %w", readerID, err)
	}
	return lo.FilterMap(submissions, func(sub *model.ExpenseSubmission, _ int) (UnreadSubmission, bool) {
		if len(sub.Items) == 0 {
			return UnreadSubmission{}, false
		}
		return UnreadSubmission{
			SubmissionID:        sub.ID,
			SubmitterName:       sub.Submitter.Name,
			SubmitterDepartment: sub.Submitter.DepartmentName(),
			SubmittedAt:         sub.CreatedAt,
			Items:               sub.Items,
			ItemCount:           len(sub.Items),
		}, true
	}), nil
}

func (s *Service) MarkRead(ctx context.Context, submissionID, readerID uint) error {
	found, err := s.store.MarkSubmissionRead(ctx, submissionID, readerID, s.now())
	if err != nil {
		return fmt.Errorf("mark submission %d read: %w", submissionID, err)
	}
	if !found {
		return fmt.Errorf("submission %d has no read status for member %d: %w", submissionID, readerID, workflow.ErrNotFound)
	}
	return nil
}

func (s *Service) UnreadCount(ctx context.Context, readerID uint) (int64, error) {
	return s.store.CountUnread(ctx, readerID)
}
