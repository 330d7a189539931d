package model

import (
	"strings"
	"time"
)

type ContentStatus string

const (
	StatusPending  ContentStatus = "PENDING"
	StatusApproved ContentStatus = "APPROVED"
	StatusRejected ContentStatus = "REJECTED"
	StatusInactive ContentStatus = "INACTIVE"
)

// Decision 管理员对待审核内容的动作
type Decision string

const (
	DecisionApprove    Decision = "approve"
	DecisionReject     Decision = "reject"
	DecisionDeactivate Decision = "deactivate"
	DecisionActivate   Decision = "activate"
)

// Transition 返回该动作允许的起始状态与目标状态
func (d Decision) Transition() (from []ContentStatus, to ContentStatus) {
	switch d {
	case DecisionApprove:
		return []ContentStatus{StatusPending, StatusRejected}, StatusApproved
	case DecisionReject:
		return []ContentStatus{StatusPending}, StatusRejected
	case DecisionDeactivate:
		return []ContentStatus{StatusApproved}, StatusInactive
	case DecisionActivate:
		return []ContentStatus{StatusInactive}, StatusApproved
	}
	return nil, ""
}

type ResourceType string

const (
	ResourceFile ResourceType = "FILE"
	ResourceLink ResourceType = "LINK"
	ResourceText ResourceType = "TEXT"
)

func ParseResourceType(s string) (ResourceType, bool) {
	switch t := ResourceType(strings.ToUpper(strings.TrimSpace(s))); t {
	case ResourceFile, ResourceLink, ResourceText:
		return t, true
	}
	return "", false
}

type Resource struct {
	ID              uint64        `gorm:"primaryKey"`
	AuthorID        uint64        `gorm:"not null;index"`
	Title           string        `gorm:"size:200;not null"`
	Description     string        `gorm:"type:text"`
	Type            ResourceType  `gorm:"size:16;not null"`
	Content         string        `gorm:"type:text"`
	FileURL         string        `gorm:"size:512"`
	Status          ContentStatus `gorm:"size:16;not null;index"`
	RejectionReason *string       `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Author *User `gorm:"foreignKey:AuthorID"`
}

func (Resource) TableName() string { return "resources" }

func (r Resource) Owner() uint64                { return r.AuthorID }
func (r Resource) CurrentStatus() ContentStatus { return r.Status }
func (r Resource) StoredFile() string           { return r.FileURL }
func (r Resource) Heading() string              { return r.Title }

type Blog struct {
	ID              uint64        `gorm:"primaryKey"`
	AuthorID        uint64        `gorm:"not null;index"`
	Title           string        `gorm:"size:200;not null"`
	Content         string        `gorm:"type:text;not null"`
	CoverImageURL   string        `gorm:"size:512"`
	Status          ContentStatus `gorm:"size:16;not null;index"`
	RejectionReason *string       `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Author *User `gorm:"foreignKey:AuthorID"`
}

func (Blog) TableName() string { return "blogs" }

func (b Blog) Owner() uint64                { return b.AuthorID }
func (b Blog) CurrentStatus() ContentStatus { return b.Status }
func (b Blog) StoredFile() string           { return b.CoverImageURL }
func (b Blog) Heading() string              { return b.Title }

// Moderated 走审核流程的内容
type Moderated interface {
	Resource | Blog
	Owner() uint64
	CurrentStatus() ContentStatus
	StoredFile() string
	Heading() string
}
