package conversation

import (
	"database/sql"
	"time"
)

// Conversation represents the conversations table.
type Conversation struct {
	ID        uint `gorm:"primaryKey"`
	Subject   sql.NullString
	CreatedBy uint
	CreatedAt time.Time

	Participants []Participant `gorm:"foreignKey:ConversationID"`
}

// Participant represents the conversation_participants table. Absence of a
// row means the user is not a member and has no access.
type Participant struct {
	ConversationID    uint   `gorm:"primaryKey;autoIncrement:false"`
	UserID            uint   `gorm:"primaryKey;autoIncrement:false"`
	Role              string `gorm:"size:32"`
	LastReadMessageID uint
	JoinedAt          time.Time
}

// Message ids come from a single auto-increment sequence, so within one
// conversation they are strictly increasing. The id is the sole ordering
// key for read positions.
type Message struct {
	ID             uint `gorm:"primaryKey"`
	ConversationID uint `gorm:"index"`
	SenderID       uint
	Body           string
	AttachmentKey  sql.NullString
	CreatedAt      time.Time
}

// Link is the purpose-keyed reuse index for conversations: "is there
// already a thread for this purpose, entity, and party set" becomes an
// indexed lookup instead of a subject-string scan.
type Link struct {
	Purpose        string `gorm:"primaryKey;size:32"`
	RefID          uint   `gorm:"primaryKey;autoIncrement:false"`
	PartyKey       string `gorm:"primaryKey;size:64"`
	ConversationID uint
}

// Summary annotates a conversation for inbox listings.
type Summary struct {
	Conversation Conversation
	LastMessage  string
	UnreadCount  int64
}

// Detail is the full membership-gated view of one conversation.
type Detail struct {
	Conversation Conversation
	Participants []Participant
	Messages     []Message
}

func (Conversation) TableName() string {
	return "conversations"
}

func (Participant) TableName() string {
	return "conversation_participants"
}

func (Message) TableName() string {
	return "messages"
}

func (Link) TableName() string {
	return "conversation_links"
}
