package query

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/workflow"
)

var _ workflow.Store = (*WorkflowStore)(nil)

// WorkflowStore keeps documents, approval lines and schedules in Postgres
type WorkflowStore struct {
	db *gorm.DB
	// inTx locks rows read for update
	inTx bool
}

func NewWorkflowStore(db *gorm.DB) *WorkflowStore {
	return &WorkflowStore{db: db}
}

func (s *WorkflowStore) Transaction(ctx context.Context, fn func(tx workflow.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&WorkflowStore{db: tx, inTx: true})
	})
}

// forUpdate reads with SELECT ... FOR UPDATE inside a transaction
func (s *WorkflowStore) forUpdate(ctx context.Context) *gorm.DB {
	db := s.db.WithContext(ctx)
	if s.inTx {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func (s *WorkflowStore) GetDocument(ctx context.Context, id uint) (*model.Document, error) {
	doc := &model.Document{}
	if err := s.forUpdate(ctx).First(doc, id).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Preload("Department").First(&doc.Author, doc.AuthorID).Error; err != nil {
		return nil, fmt.Errorf("load author of document %d: %w", id, err)
	}
	return doc, nil
}

func (s *WorkflowStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(doc).Error
}

func (s *WorkflowStore) SaveDocument(ctx context.Context, doc *model.Document) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(doc).Error
}

func (s *WorkflowStore) DeleteDocument(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&model.Document{}, id).Error
}

func (s *WorkflowStore) ListDocumentsByAuthor(ctx context.Context, authorID uint, limit int) ([]*model.Document, error) {
	var docs []*model.Document
	q := s.db.WithContext(ctx).
		Preload("Author").
		Where("author_id = ?", authorID).
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *WorkflowStore) FindCancellationDocuments(ctx context.Context, scheduleID uint) ([]*model.Document, error) {
	var docs []*model.Document
	err := s.db.WithContext(ctx).
		Where(datatypes.JSONQuery("metadata").Equals(fmt.Sprint(scheduleID), "originalScheduleId")).
		Order("id DESC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *WorkflowStore) GetApprovalLine(ctx context.Context, id uint) (*model.ApprovalLine, error) {
	line := &model.ApprovalLine{}
	if err := s.forUpdate(ctx).First(line, id).Error; err != nil {
		return nil, err
	}
	return line, nil
}

func (s *WorkflowStore) ListApprovalLines(ctx context.Context, documentID uint) ([]*model.ApprovalLine, error) {
	var lines []*model.ApprovalLine
	err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("step_order ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *WorkflowStore) ListApprovalLinesByApprover(
	ctx context.Context,
	filter workflow.ApprovalFilter,
) ([]*model.ApprovalLine, error) {
	q := s.db.WithContext(ctx).
		Joins("Document").
		Joins("Document.Author").
		Where("approval_lines.approver_id = ?", filter.ApproverID).
		Where(`"Document"."id" IS NOT NULL`)
	if len(filter.Decisions) > 0 {
		q = q.Where("approval_lines.decision IN ?", filter.Decisions)
	}
	if filter.DocumentStatus != nil {
		q = q.Where(`"Document"."status" = ?`, *filter.DocumentStatus)
	}
	if filter.Title != "" {
		q = q.Where(`"Document"."title" LIKE ?`, "%"+filter.Title+"%")
	}
	if filter.DecidedFrom != nil {
		q = q.Where("approval_lines.decided_at >= ?", *filter.DecidedFrom)
	}
	if filter.DecidedTo != nil {
		q = q.Where("approval_lines.decided_at <= ?", *filter.DecidedTo)
	}
	if filter.RecentlyDecided {
		q = q.Order("approval_lines.decided_at DESC NULLS LAST")
	} else {
		q = q.Order("approval_lines.id DESC")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var lines []*model.ApprovalLine
	if err := q.Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *WorkflowStore) CreateApprovalLines(ctx context.Context, lines []*model.ApprovalLine) error {
	if len(lines) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(lines).Error
}

func (s *WorkflowStore) SaveApprovalLine(ctx context.Context, line *model.ApprovalLine) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(line).Error
}

func (s *WorkflowStore) DeleteApprovalLines(ctx context.Context, documentID uint) error {
	return s.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&model.ApprovalLine{}).Error
}

func (s *WorkflowStore) GetSchedule(ctx context.Context, id uint) (*model.Schedule, error) {
	schedule := &model.Schedule{}
	if err := s.forUpdate(ctx).First(schedule, id).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Preload("Department").First(&schedule.Member, schedule.MemberID).Error; err != nil {
		return nil, fmt.Errorf("load owner of schedule %d: %w", id, err)
	}
	return schedule, nil
}

func (s *WorkflowStore) CreateSchedule(ctx context.Context, schedule *model.Schedule) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(schedule).Error
}

func (s *WorkflowStore) SaveSchedule(ctx context.Context, schedule *model.Schedule) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(schedule).Error
}

func (s *WorkflowStore) DeleteSchedule(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&model.Schedule{}, id).Error
}

func (s *WorkflowStore) ListSchedulesByDocument(ctx context.Context, documentID uint) ([]*model.Schedule, error) {
	var schedules []*model.Schedule
	if err := s.db.WithContext(ctx).Where("document_id = ?", documentID).Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

func (s *WorkflowStore) ListSchedules(ctx context.Context, filter workflow.ScheduleFilter) ([]*model.Schedule, error) {
	db := s.db.WithContext(ctx)
	q := db.Preload("Member.Department")
	if filter.MemberID != nil {
		q = q.Where("member_id = ?", *filter.MemberID)
	}
	if filter.DepartmentID != nil {
		q = q.Where("member_id IN (?)", db.Model(&model.Member{}).
			Select("id").
			Where("department_id = ?", *filter.DepartmentID))
	}
	if filter.DivisionID != nil {
		q = q.Where("member_id IN (?)", db.Model(&model.Member{}).
			Select("id").
			Where("department_id IN (?)", db.Model(&model.Department{}).
				Select("id").
				Where("parent_id = ?", *filter.DivisionID)))
	}
	if filter.From != nil {
		q = q.Where("end_date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("start_date <= ?", *filter.To)
	}
	if len(filter.Types) > 0 {
		q = q.Where("type IN ?", filter.Types)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if len(filter.ExcludeStatuses) > 0 {
		q = q.Where("status NOT IN ?", filter.ExcludeStatuses)
	}
	if filter.ExcludeID != 0 {
		q = q.Where("id <> ?", filter.ExcludeID)
	}
	if filter.NewestFirst {
		q = q.Order("id DESC")
	} else {
		q = q.Order("start_date ASC").Order("id ASC")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var schedules []*model.Schedule
	if err := q.Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

func (s *WorkflowStore) GetMember(ctx context.Context, id uint) (*model.Member, error) {
	return getMember(ctx, s.db, id)
}

func getMember(ctx context.Context, db *gorm.DB, id uint) (*model.Member, error) {
	member := &model.Member{}
	if err := db.WithContext(ctx).Preload("Department").First(member, id).Error; err != nil {
		return nil, err
	}
	return member, nil
}
