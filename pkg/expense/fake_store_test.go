package expense

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/ync-lab/intranet/dao/model"
)

// fakeStore keeps everything in memory. Transactions restore the previous state on error.
type fakeStore struct {
	mu sync.Mutex

	nextID      uint
	items       map[uint]model.ExpenseItem
	reports     map[uint]model.ExpenseReport
	ledger      map[uint]model.ExpenseLedgerEntry
	submissions map[uint]model.ExpenseSubmission
	statuses    []model.ExpenseReadStatus
	members     map[uint]model.Member
	departments map[uint]model.Department
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:      100,
		items:       map[uint]model.ExpenseItem{},
		reports:     map[uint]model.ExpenseReport{},
		ledger:      map[uint]model.ExpenseLedgerEntry{},
		submissions: map[uint]model.ExpenseSubmission{},
		members:     map[uint]model.Member{},
		departments: map[uint]model.Department{},
	}
}

func (f *fakeStore) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) Transaction(_ context.Context, fn func(tx Store) error) error {
	f.mu.Lock()
	items, reports, ledger := clone(f.items), clone(f.reports), clone(f.ledger)
	submissions, statuses := clone(f.submissions), append([]model.ExpenseReadStatus(nil), f.statuses...)
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.items, f.reports, f.ledger = items, reports, ledger
		f.submissions, f.statuses = submissions, statuses
		f.mu.Unlock()
		return err
	}
	return nil
}

func clone[T any](m map[uint]T) map[uint]T {
	out := make(map[uint]T, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (f *fakeStore) GetItem(_ context.Context, id uint) (*model.ExpenseItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &item, nil
}

func (f *fakeStore) ListItems(_ context.Context, filter ItemFilter) ([]*model.ExpenseItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ExpenseItem
	for _, item := range f.items {
		switch {
		case filter.ReportID != nil && (item.ExpenseReportID == nil || *item.ExpenseReportID != *filter.ReportID):
			continue
		case filter.MemberID != nil && item.MemberID != *filter.MemberID:
			continue
		case filter.Account != "" && item.Account != filter.Account:
			continue
		case filter.WelfareOnly && !item.WelfareFlag:
			continue
		case filter.From != nil && item.UsageDate.Before(*filter.From):
			continue
		case filter.To != nil && item.UsageDate.After(*filter.To):
			continue
		}
		out = append(out, &item)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UsageDate.Equal(out[j].UsageDate) {
			return out[i].UsageDate.Before(out[j].UsageDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) FindItems(_ context.Context, ids []uint) ([]*model.ExpenseItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ExpenseItem
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			out = append(out, &item)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateItems(_ context.Context, items []*model.ExpenseItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		item.ID = f.id()
		f.items[item.ID] = *item
	}
	return nil
}

func (f *fakeStore) SaveItem(_ context.Context, item *model.ExpenseItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.ID] = *item
	return nil
}

func (f *fakeStore) DeleteItem(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

func (f *fakeStore) DeleteItemsByReport(_ context.Context, reportID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, item := range f.items {
		if item.ExpenseReportID != nil && *item.ExpenseReportID == reportID {
			delete(f.items, id)
		}
	}
	return nil
}

func (f *fakeStore) AssignSubmission(_ context.Context, itemIDs []uint, submissionID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range itemIDs {
		item := f.items[id]
		item.SubmissionID = &submissionID
		f.items[id] = item
	}
	return nil
}

func (f *fakeStore) CreateReport(_ context.Context, report *model.ExpenseReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	report.ID = f.id()
	f.reports[report.ID] = *report
	return nil
}

func (f *fakeStore) GetReport(_ context.Context, id uint) (*model.ExpenseReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	report, ok := f.reports[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &report, nil
}

func (f *fakeStore) ListReportsByMember(_ context.Context, memberID uint) ([]*model.ExpenseReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ExpenseReport
	for _, report := range f.reports {
		if report.MemberID == memberID {
			out = append(out, &report)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateReportTotal(_ context.Context, reportID uint, total int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	report := f.reports[reportID]
	report.TotalAmount = total
	f.reports[reportID] = report
	return nil
}

func (f *fakeStore) CreateLedgerEntries(_ context.Context, entries []*model.ExpenseLedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		if _, ok := f.ledger[e.ID]; ok {
			return gorm.ErrDuplicatedKey
		}
	}
	for _, e := range entries {
		f.ledger[e.ID] = *e
	}
	return nil
}

func (f *fakeStore) ListLedgerEntries(_ context.Context, from, to time.Time, memberIDs []uint) ([]*model.ExpenseLedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ExpenseLedgerEntry
	for _, e := range f.ledger {
		if e.UsageDate.Before(from) || e.UsageDate.After(to) {
			continue
		}
		if memberIDs != nil && !lo.Contains(memberIDs, e.MemberID) {
			continue
		}
		out = append(out, &e)
	}
	return out, nil
}

func (f *fakeStore) CreateSubmission(_ context.Context, submission *model.ExpenseSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	submission.ID = f.id()
	submission.CreatedAt = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	f.submissions[submission.ID] = *submission
	return nil
}

func (f *fakeStore) CreateReadStatuses(_ context.Context, statuses []*model.ExpenseReadStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range statuses {
		s.ID = f.id()
		f.statuses = append(f.statuses, *s)
	}
	return nil
}

func (f *fakeStore) ListUnreadSubmissions(_ context.Context, readerID uint) ([]*model.ExpenseSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ExpenseSubmission
	for _, status := range f.statuses {
		if status.ReaderMemberID != readerID || status.IsRead {
			continue
		}
		sub := f.submissions[status.SubmissionID]
		sub.Submitter = f.memberWithDepartment(sub.SubmitterID)
		for _, item := range f.items {
			if item.SubmissionID != nil && *item.SubmissionID == sub.ID {
				sub.Items = append(sub.Items, item)
			}
		}
		sort.Slice(sub.Items, func(i, j int) bool { return sub.Items[i].ID < sub.Items[j].ID })
		out = append(out, &sub)
	}
	return out, nil
}

func (f *fakeStore) MarkSubmissionRead(_ context.Context, submissionID, readerID uint, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.statuses {
		if f.statuses[i].SubmissionID == submissionID && f.statuses[i].ReaderMemberID == readerID {
			f.statuses[i].IsRead = true
			f.statuses[i].ReadAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CountUnread(_ context.Context, readerID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(lo.CountBy(f.statuses, func(s model.ExpenseReadStatus) bool {
		return s.ReaderMemberID == readerID && !s.IsRead
	})), nil
}

func (f *fakeStore) memberWithDepartment(id uint) model.Member {
	member := f.members[id]
	if member.DepartmentID != nil {
		dept := f.departments[*member.DepartmentID]
		member.Department = &dept
	}
	return member
}

func (f *fakeStore) GetMember(_ context.Context, id uint) (*model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.members[id]; !ok {
		return nil, gorm.ErrRecordNotFound
	}
	member := f.memberWithDepartment(id)
	return &member, nil
}

func (f *fakeStore) FindDepartmentByName(_ context.Context, name string) (*model.Department, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, dept := range f.departments {
		if dept.Name == name {
			return &dept, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) ListChildDepartments(_ context.Context, parentID uint) ([]*model.Department, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Department
	for _, dept := range f.departments {
		if dept.ParentID != nil && *dept.ParentID == parentID {
			out = append(out, &dept)
		}
	}
	return out, nil
}

func (f *fakeStore) ListMembersByDepartments(_ context.Context, departmentIDs []uint) ([]*model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Member
	for id, member := range f.members {
		if member.DepartmentID != nil && lo.Contains(departmentIDs, *member.DepartmentID) {
			m := f.memberWithDepartment(id)
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
