package repository

import (
	"brokerdesk/internal/domain/contract"
	"brokerdesk/internal/domain/conversation"
	"brokerdesk/internal/domain/lead"
	"brokerdesk/internal/domain/notification"
	"brokerdesk/internal/domain/referral"
	"brokerdesk/internal/domain/user"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates every table this module owns, plus the
// read-only identity tables needed for local development.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&user.User{},
		&user.AgentProfile{},

		&conversation.Conversation{},
		&conversation.Participant{},
		&conversation.Message{},
		&conversation.Link{},

		&contract.Contract{},
		&contract.Signer{},

		&referral.Referral{},

		&lead.Posting{},
		&lead.Lead{},
		&lead.Match{},

		&notification.Notification{},
	)
}
