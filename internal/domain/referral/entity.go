package referral

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusOffered   = "offered"
	StatusAccepted  = "accepted"
	StatusDeclined  = "declined"
	StatusCompleted = "completed"
)

// Referral represents the referrals table: a hand-off offer from one agent
// to another, layered on a shared conversation.
type Referral struct {
	ID             uint `gorm:"primaryKey"`
	FromUser       uint
	ToUser         uint
	ConversationID uint
	FeePercent     float64        `gorm:"type:double precision"`
	Context        datatypes.JSON `gorm:"type:jsonb"`
	Status         string         `gorm:"size:16;default:offered"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Context is the structured hand-off payload, validated at the boundary
// instead of stored as a free-form blob.
type Context struct {
	PropertyID uint   `json:"property_id,omitempty"`
	Address    string `json:"address,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Counts are the badge counters surfaced to the client.
type Counts struct {
	OfferedToMe    int64 `json:"offered_to_me"`
	AcceptedActive int64 `json:"accepted_active"`
}

// Terminal reports whether no further transitions are allowed.
func Terminal(status string) bool {
	return status == StatusDeclined || status == StatusCompleted
}

func (Referral) TableName() string {
	return "referrals"
}
