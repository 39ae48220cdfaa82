package contract

import "time"

const (
	StatusDraft  = "draft"
	StatusSent   = "sent"
	StatusSigned = "signed"
)

// Contract represents the contracts table. FileKey is written at creation
// time, before any bytes exist in object storage.
type Contract struct {
	ID             uint `gorm:"primaryKey"`
	CreatedBy      uint
	Title          string
	Type           string `gorm:"size:32"`
	FileKey        string
	ConversationID *uint
	Status         string `gorm:"size:16;default:draft"`
	SentAt         *time.Time
	SignedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Signer represents the contract_signers table. SignedAt stays nil until
// the user attests; the contract flips to signed only when no nil rows
// remain.
type Signer struct {
	ContractID uint `gorm:"primaryKey;autoIncrement:false"`
	UserID     uint `gorm:"primaryKey;autoIncrement:false"`
	SignedAt   *time.Time
}

func (Contract) TableName() string {
	return "contracts"
}

func (Signer) TableName() string {
	return "contract_signers"
}
