package repository

import (
	"context"
	"time"

	"brokerdesk/internal/domain/contract"
	"brokerdesk/internal/domain/conversation"
	"brokerdesk/internal/domain/lead"
	"brokerdesk/internal/domain/notification"
	"brokerdesk/internal/domain/referral"
	"brokerdesk/internal/domain/user"
)

type ConversationRepository interface {
	Create(ctx context.Context, c *conversation.Conversation) error
	Get(ctx context.Context, id uint) (conversation.Conversation, error)
	AddParticipant(ctx context.Context, p *conversation.Participant) error
	GetParticipants(ctx context.Context, conversationID uint) ([]conversation.Participant, error)
	IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error)
	ListForUser(ctx context.Context, userID uint, limit int) ([]conversation.Summary, error)

	CreateMessage(ctx context.Context, m *conversation.Message) error
	Messages(ctx context.Context, conversationID uint, limit int) ([]conversation.Message, error)
	MaxMessageID(ctx context.Context, conversationID uint) (uint, error)
	SetLastRead(ctx context.Context, conversationID, userID, messageID uint) error

	FindLink(ctx context.Context, purpose string, refID uint, partyKey string) (uint, error)
	CreateLink(ctx context.Context, l *conversation.Link) error
}

type ContractRepository interface {
	Create(ctx context.Context, c *contract.Contract) error
	Get(ctx context.Context, id uint) (contract.Contract, error)
	MarkSent(ctx context.Context, id, conversationID uint, at time.Time) error
	ListByConversation(ctx context.Context, conversationID uint) ([]contract.Contract, error)

	AddSigner(ctx context.Context, s *contract.Signer) error
	GetSigner(ctx context.Context, contractID, userID uint) (contract.Signer, error)
	ListSigners(ctx context.Context, contractID uint) ([]contract.Signer, error)
	// SetSigned stamps signed_at only when it is still null; signing twice
	// is a no-op.
	SetSigned(ctx context.Context, contractID, userID uint, at time.Time) error
	// FinalizeIfComplete flips the contract to signed in a single
	// conditional update guarded on no unsigned signer rows remaining.
	// Returns whether this call performed the flip.
	FinalizeIfComplete(ctx context.Context, contractID uint, at time.Time) (bool, error)
	CountPendingForUser(ctx context.Context, userID uint) (int64, error)
}

type ReferralRepository interface {
	Create(ctx context.Context, r *referral.Referral) error
	Get(ctx context.Context, id uint) (referral.Referral, error)
	// Transition moves status from -> to as one conditional update and
	// reports whether this call won the transition.
	Transition(ctx context.Context, id uint, from, to string, at time.Time) (bool, error)
	ListForUser(ctx context.Context, userID uint, limit int) ([]referral.Referral, error)
	Counts(ctx context.Context, userID uint) (referral.Counts, error)
}

type LeadRepository interface {
	CreatePosting(ctx context.Context, p *lead.Posting) error
	CreateLead(ctx context.Context, l *lead.Lead) error
	GetPosting(ctx context.Context, id uint) (lead.Posting, error)
	GetLeadByPosting(ctx context.Context, postingID uint) (lead.Lead, error)
	ListOpenInAreas(ctx context.Context, areas []string, status string, limit int) ([]lead.PostingSummary, error)

	AddMatch(ctx context.Context, m *lead.Match) error
	CountMatches(ctx context.Context, leadID uint) (int64, error)

	// Claim performs the new -> claimed transition as one conditional
	// update and, when the caller wins, flips the posting to engaged in
	// the same transaction. The returned bool tells the caller whether
	// they won.
	Claim(ctx context.Context, leadID, postingID, agentID uint) (bool, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *notification.Notification) error
	MarkDelivered(ctx context.Context, id uint, channel string, at time.Time) error
	ListForUser(ctx context.Context, userID uint, limit int) ([]notification.Notification, error)
}

// IdentityRepository is the read-only adapter over the external identity
// store: role, email, and resolved area codes.
type IdentityRepository interface {
	Resolve(ctx context.Context, userID uint) (user.Identity, error)
	AgentsInArea(ctx context.Context, areaCode string) ([]uint, error)
}
