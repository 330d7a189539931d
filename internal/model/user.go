package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type Role string

const (
	RolePending  Role = "PENDING"
	RoleNurse    Role = "NURSE"
	RoleAdmin    Role = "ADMIN"
	RoleInactive Role = "INACTIVE"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RolePending, RoleNurse, RoleAdmin, RoleInactive:
		return r, true
	}
	return "", false
}

// CanTransitionTo 角色只能由管理员从 PENDING 迁出
func (r Role) CanTransitionTo(next Role) bool {
	if r != RolePending {
		return false
	}
	switch next {
	case RoleNurse, RoleAdmin, RoleInactive:
		return true
	}
	return false
}

// CanPublish 可以发帖、提交资源和博客的角色
func (r Role) CanPublish() bool {
	return r == RoleNurse || r == RoleAdmin
}

type ExpertiseLevel string

const (
	ExpertiseBeginner     ExpertiseLevel = "BEGINNER"
	ExpertiseIntermediate ExpertiseLevel = "INTERMEDIATE"
	ExpertiseExpert       ExpertiseLevel = "EXPERT"
)

func ParseExpertiseLevel(s string) (ExpertiseLevel, bool) {
	switch l := ExpertiseLevel(strings.ToUpper(strings.TrimSpace(s))); l {
	case ExpertiseBeginner, ExpertiseIntermediate, ExpertiseExpert:
		return l, true
	}
	return "", false
}

type User struct {
	ID               uint64                      `gorm:"primaryKey"`
	Name             string                      `gorm:"size:100;not null"`
	Email            string                      `gorm:"uniqueIndex;size:120;not null"`
	Password         string                      `gorm:"size:255;not null"`
	Role             Role                        `gorm:"size:16;not null;index"`
	AvatarURL        string                      `gorm:"size:512"`
	Title            string                      `gorm:"size:120"`
	Department       string                      `gorm:"size:120"`
	State            string                      `gorm:"size:64"`
	Bio              string                      `gorm:"type:text"`
	ExpertiseLevel   ExpertiseLevel              `gorm:"size:16;not null"`
	ExpertiseAreas   datatypes.JSONSlice[string] `gorm:"type:json"`
	NewsletterOptOut bool                        `gorm:"not null"`
	InvitedByUserID  *uint64                     `gorm:"index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (User) TableName() string { return "users" }

// ProfileCompletion 职称、科室、州、简介各占 25%
func (u *User) ProfileCompletion() int {
	pct := 0
	for _, f := range []string{u.Title, u.Department, u.State, u.Bio} {
		if strings.TrimSpace(f) != "" {
			pct += 25
		}
	}
	return pct
}
