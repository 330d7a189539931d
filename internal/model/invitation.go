package model

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
)

type Invitation struct {
	ID           uint64           `gorm:"primaryKey"`
	InviterID    uint64           `gorm:"not null;index"`
	InviteeEmail string           `gorm:"size:120;not null;index:idx_invitation_email_status,priority:1"`
	Token        string           `gorm:"size:64;not null;uniqueIndex"`
	Status       InvitationStatus `gorm:"size:16;not null;index:idx_invitation_email_status,priority:2"`
	AcceptedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Inviter *User `gorm:"foreignKey:InviterID"`
}

func (Invitation) TableName() string { return "invitations" }

type BroadcastMessage struct {
	ID        uint64 `gorm:"primaryKey"`
	Title     string `gorm:"size:200;not null"`
	Message   string `gorm:"type:text;not null"`
	IsActive  bool   `gorm:"not null;index"`
	CreatedBy uint64 `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (BroadcastMessage) TableName() string { return "broadcast_messages" }
