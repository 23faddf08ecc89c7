package query

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ync-lab/intranet/dao/model"
)

// MemberStore keeps employees and their departments
type MemberStore struct {
	db *gorm.DB
}

func NewMemberStore(db *gorm.DB) *MemberStore {
	return &MemberStore{db: db}
}

func (s *MemberStore) GetMember(ctx context.Context, id uint) (*model.Member, error) {
	return getMember(ctx, s.db, id)
}

func (s *MemberStore) FindByEmail(ctx context.Context, email string) (*model.Member, error) {
	member := &model.Member{}
	if err := s.db.WithContext(ctx).Preload("Department").Where("email = ?", email).First(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

func (s *MemberStore) Create(ctx context.Context, member *model.Member) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(member).Error
}

func (s *MemberStore) Save(ctx context.Context, member *model.Member) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(member).Error
}

func (s *MemberStore) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.Member{}).Where("id = ?", id).Update("last_login_at", at).Error
}

// FindOrCreateDepartment returns the department with the given name, creating a
// top-level one when it is unknown
func (s *MemberStore) FindOrCreateDepartment(ctx context.Context, name string) (*model.Department, error) {
	dept := &model.Department{}
	err := s.db.WithContext(ctx).Where("name = ?", name).First(dept).Error
	if err == nil {
		return dept, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	dept.Name = name
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(dept).Error; err != nil {
		return nil, err
	}
	if dept.ID == 0 {
		// created concurrently
		if err := s.db.WithContext(ctx).Where("name = ?", name).First(dept).Error; err != nil {
			return nil, err
		}
	}
	return dept, nil
}

func (s *MemberStore) ListActive(ctx context.Context) ([]*model.Member, error) {
	var members []*model.Member
	err := s.db.WithContext(ctx).
		Preload("Department").
		Where("is_active = ?", true).
		Order("name").
		Find(&members).Error
	return members, err
}

func (s *MemberStore) ListDepartments(ctx context.Context) ([]*model.Department, error) {
	var departments []*model.Department
	err := s.db.WithContext(ctx).Order("parent_id NULLS FIRST").Order("name").Find(&departments).Error
	return departments, err
}
