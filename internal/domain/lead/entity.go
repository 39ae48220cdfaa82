package lead

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PostingOpen    = "open"
	PostingEngaged = "engaged"

	LeadNew     = "new"
	LeadClaimed = "claimed"

	SourceMarketplace = "marketplace"
)

// Posting represents the marketplace_leads table: an owner-posted intent
// visible to agents serving its area code.
type Posting struct {
	ID        uint `gorm:"primaryKey"`
	OwnerUser uint
	Title     string
	AreaCode  string         `gorm:"size:16;index"`
	Details   datatypes.JSON `gorm:"type:jsonb"`
	Status    string         `gorm:"size:16;default:open"`
	CreatedAt time.Time
}

// Lead represents the leads table, paired 1:1 with a Posting. Status moves
// new -> claimed exactly once; the assignee is the winning agent.
type Lead struct {
	ID           uint   `gorm:"primaryKey"`
	Source       string `gorm:"size:32"`
	RelatedID    uint   `gorm:"index"`
	OwnerUser    uint
	AssigneeUser *uint
	Status       string `gorm:"size:16;default:new"`
	CreatedAt    time.Time
}

// Match represents the lead_matches table, written once at fan-out time.
type Match struct {
	LeadID     uint `gorm:"primaryKey;autoIncrement:false"`
	AgentUser  uint `gorm:"primaryKey;autoIncrement:false"`
	NotifiedAt time.Time
}

// Details is the structured posting payload.
type Details struct {
	Address     string `json:"address,omitempty"`
	Description string `json:"description,omitempty"`
}

// PostingSummary annotates a posting with its paired lead id and the count
// of matched agents (a measure of competing interest).
type PostingSummary struct {
	Posting    Posting
	LeadID     uint
	MatchCount int64
}

func (Posting) TableName() string {
	return "marketplace_leads"
}

func (Lead) TableName() string {
	return "leads"
}

func (Match) TableName() string {
	return "lead_matches"
}
