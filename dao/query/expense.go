package query

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/expense"
)

var _ expense.Store = (*ExpenseStore)(nil)

type ExpenseStore struct {
	db *gorm.DB
}

func NewExpenseStore(db *gorm.DB) *ExpenseStore {
	return &ExpenseStore{db: db}
}

func (s *ExpenseStore) Transaction(ctx context.Context, fn func(tx expense.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ExpenseStore{db: tx})
	})
}

func (s *ExpenseStore) GetItem(ctx context.Context, id uint) (*model.ExpenseItem, error) {
	item := &model.ExpenseItem{}
	if err := s.db.WithContext(ctx).Preload("Member").First(item, id).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ExpenseStore) ListItems(ctx context.Context, filter expense.ItemFilter) ([]*model.ExpenseItem, error) {
	q := s.db.WithContext(ctx).Preload("Member")
	if filter.ReportID != nil {
		q = q.Where("expense_report_id = ?", *filter.ReportID)
	}
	if filter.MemberID != nil {
		q = q.Where("member_id = ?", *filter.MemberID)
	}
	if filter.Account != "" {
		q = q.Where("account = ?", filter.Account)
	}
	if filter.WelfareOnly {
		q = q.Where("welfare_flag = ?", true)
	}
	if filter.From != nil {
		q = q.Where("usage_date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("usage_date <= ?", *filter.To)
	}
	var items []*model.ExpenseItem
	if err := q.Order("usage_date ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *ExpenseStore) FindItems(ctx context.Context, ids []uint) ([]*model.ExpenseItem, error) {
	var found []*model.ExpenseItem
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]*model.ExpenseItem, len(found))
	for _, item := range found {
		byID[item.ID] = item
	}
	items := make([]*model.ExpenseItem, 0, len(found))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (s *ExpenseStore) CreateItems(ctx context.Context, items []*model.ExpenseItem) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(items).Error
}

func (s *ExpenseStore) SaveItem(ctx context.Context, item *model.ExpenseItem) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(item).Error
}

func (s *ExpenseStore) DeleteItem(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&model.ExpenseItem{}, id).Error
}

func (s *ExpenseStore) DeleteItemsByReport(ctx context.Context, reportID uint) error {
	return s.db.WithContext(ctx).Where("expense_report_id = ?", reportID).Delete(&model.ExpenseItem{}).Error
}

func (s *ExpenseStore) AssignSubmission(ctx context.Context, itemIDs []uint, submissionID uint) error {
	return s.db.WithContext(ctx).
		Model(&model.ExpenseItem{}).
		Where("id IN ?", itemIDs).
		Update("submission_id", submissionID).Error
}

func (s *ExpenseStore) CreateReport(ctx context.Context, report *model.ExpenseReport) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(report).Error
}

func (s *ExpenseStore) GetReport(ctx context.Context, id uint) (*model.ExpenseReport, error) {
	report := &model.ExpenseReport{}
	if err := s.db.WithContext(ctx).First(report, id).Error; err != nil {
		return nil, err
	}
	return report, nil
}

func (s *ExpenseStore) ListReportsByMember(ctx context.Context, memberID uint) ([]*model.ExpenseReport, error) {
	var reports []*model.ExpenseReport
	if err := s.db.WithContext(ctx).Where("member_id = ?", memberID).Order("id DESC").Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *ExpenseStore) UpdateReportTotal(ctx context.Context, reportID uint, total int64) error {
	return s.db.WithContext(ctx).
		Model(&model.ExpenseReport{}).
		Where("id = ?", reportID).
		Update("total_amount", total).Error
}

func (s *ExpenseStore) CreateLedgerEntries(ctx context.Context, entries []*model.ExpenseLedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(entries).Error
}

func (s *ExpenseStore) ListLedgerEntries(
	ctx context.Context,
	from, to time.Time,
	memberIDs []uint,
) ([]*model.ExpenseLedgerEntry, error) {
	q := s.db.WithContext(ctx).Where("usage_date BETWEEN ? AND ?", from, to)
	if memberIDs != nil {
		q = q.Where("member_id IN ?", memberIDs)
	}
	var entries []*model.ExpenseLedgerEntry
	if err := q.Order("usage_date ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *ExpenseStore) CreateSubmission(ctx context.Context, submission *model.ExpenseSubmission) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(submission).Error
}

func (s *ExpenseStore) CreateReadStatuses(ctx context.Context, statuses []*model.ExpenseReadStatus) error {
	if len(statuses) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(statuses).Error
}

func (s *ExpenseStore) ListUnreadSubmissions(ctx context.Context, readerID uint) ([]*model.ExpenseSubmission, error) {
	db := s.db.WithContext(ctx)
	var submissions []*model.ExpenseSubmission
	err := db.
		Preload("Submitter.Department").
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Where("id IN (?)", db.Model(&model.ExpenseReadStatus{}).
			Select("submission_id").
			Where("reader_member_id = ? AND is_read = ?", readerID, false)).
		Order("created_at ASC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (s *ExpenseStore) MarkSubmissionRead(ctx context.Context, submissionID, readerID uint, at time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&model.ExpenseReadStatus{}).
		Where("submission_id = ? AND reader_member_id = ?", submissionID, readerID).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return result.RowsAffected > 0, result.Error
}

func (s *ExpenseStore) CountUnread(ctx context.Context, readerID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.ExpenseReadStatus{}).
		Where("reader_member_id = ? AND is_read = ?", readerID, false).
		Count(&count).Error
	return count, err
}

func (s *ExpenseStore) GetMember(ctx context.Context, id uint) (*model.Member, error) {
	return getMember(ctx, s.db, id)
}

func (s *ExpenseStore) FindDepartmentByName(ctx context.Context, name string) (*model.Department, error) {
	dept := &model.Department{}
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(dept).Error; err != nil {
		return nil, err
	}
	return dept, nil
}

func (s *ExpenseStore) ListChildDepartments(ctx context.Context, parentID uint) ([]*model.Department, error) {
	var depts []*model.Department
	if err := s.db.WithContext(ctx).Where("parent_id = ?", parentID).Find(&depts).Error; err != nil {
		return nil, err
	}
	return depts, nil
}

func (s *ExpenseStore) ListMembersByDepartments(ctx context.Context, departmentIDs []uint) ([]*model.Member, error) {
	var members []*model.Member
	err := s.db.WithContext(ctx).
		Preload("Department").
		Where("department_id IN ?", departmentIDs).
		Order("id ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}
