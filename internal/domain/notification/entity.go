package notification

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ChannelInApp = "inapp"
	ChannelEmail = "email"

	TypeContract = "contract"
	TypeReferral = "referral"
	TypeLead     = "lead"
	TypeMessage  = "message"
)

// Notification represents the notifications table. Channel starts as inapp
// and becomes email only after a successful relay; DeliveredAt stays nil
// until then.
type Notification struct {
	ID          uint `gorm:"primaryKey"`
	UserID      uint `gorm:"index"`
	Type        string
	Payload     datatypes.JSON `gorm:"type:jsonb"`
	Channel     string         `gorm:"size:16;default:inapp"`
	DeliveredAt *time.Time
	CreatedAt   time.Time
}

// Extra carries the typed cross-references a notification may point at.
type Extra struct {
	ConversationID uint    `json:"conversation_id,omitempty"`
	ContractID     uint    `json:"contract_id,omitempty"`
	ReferralID     uint    `json:"referral_id,omitempty"`
	LeadID         uint    `json:"lead_id,omitempty"`
	MarketplaceID  uint    `json:"marketplace_id,omitempty"`
	AreaCode       string  `json:"area_code,omitempty"`
	FeePercent     float64 `json:"fee_percent,omitempty"`
}

// Payload is the persisted notification body.
type Payload struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
	Extra
}

func (Notification) TableName() string {
	return "notifications"
}
