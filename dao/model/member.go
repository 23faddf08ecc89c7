package model

import (
	"time"

	"gorm.io/gorm"
)

// Department is an organization unit. A department without parent is a division.
type Department struct {
	gorm.Model
	Name     string      `gorm:"uniqueIndex;type:varchar(128);not null;comment:department name"`
	ParentID *uint       `gorm:"index;comment:parent department (division) ID"`
	Parent   *Department `gorm:"foreignKey:ParentID"`
}

// Member is an employee account of the intranet
type Member struct {
	gorm.Model
	Email          string      `gorm:"uniqueIndex;type:varchar(256);not null;comment:login email"`
	Name           string      `gorm:"type:varchar(64);not null;comment:display name"`
	Password       *string     `gorm:"type:varchar(128);comment:bcrypt hash, empty for SSO-only members"`
	Role           Role        `gorm:"not null;default:1;comment:role (1 user, 2 admin)"`
	Position       string      `gorm:"type:varchar(64);comment:job position"`
	Phone          string      `gorm:"type:varchar(32);comment:phone number"`
	EmployeeNumber string      `gorm:"type:varchar(32);comment:employee number"`
	ExternalID     *string     `gorm:"uniqueIndex;type:varchar(128);comment:NAVER WORKS user ID"`
	DepartmentID   *uint       `gorm:"index;comment:department ID"`
	Department     *Department `gorm:"foreignKey:DepartmentID"`
	HireDate       *time.Time  `gorm:"type:date;comment:hire date"`
	IsActive       bool        `gorm:"not null;default:true;comment:whether the member may sign in"`
	LastLoginAt    *time.Time  `gorm:"comment:last login time"`
}

// DepartmentName returns the department name or an empty string when not loaded
func (m *Member) DepartmentName() string {
	if m.Department == nil {
		return ""
	}
	return m.Department.Name
}

// MemberInfo is the public projection of a member embedded in responses
type MemberInfo struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Position   string `json:"position"`
	Department string `json:"department"`
}

func (m *Member) Info() MemberInfo {
	return MemberInfo{
		ID:         m.ID,
		Name:       m.Name,
		Position:   m.Position,
		Department: m.DepartmentName(),
	}
}
