package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"brokerdesk/internal/domain/conversation"
	"brokerdesk/internal/repository"
	apperrors "brokerdesk/pkg/errors"
)

// ConversationStore is the surface the contract, referral, and lead
// services compose with. They never touch message or participant rows
// directly.
type ConversationStore interface {
	IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error)
	EnsureConversation(ctx context.Context, in EnsureConversationInput) (uint, error)
}

type ConversationService struct {
	repo repository.ConversationRepository
}

func NewConversationService(repo repository.ConversationRepository) *ConversationService {
	return &ConversationService{repo: repo}
}

type CreateConversationInput struct {
	CreatorID      uint
	ParticipantIDs []uint
	Subject        string
	InitialBody    string
}

// Create starts a conversation. The creator is implicitly a participant
// with a distinguished role label, and a non-empty initial body seeds the
// first message.
func (s *ConversationService) Create(ctx context.Context, in CreateConversationInput) (uint, error) {
	if len(in.ParticipantIDs) == 0 {
		return 0, fmt.Errorf("participant ids required: %w", apperrors.ErrInvalidInput)
	}

	conv := &conversation.Conversation{
		Subject:   nullString(in.Subject),
		CreatedBy: in.CreatorID,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		return 0, err
	}

	members := dedupe(append([]uint{in.CreatorID}, in.ParticipantIDs...))
	for _, id := range members {
		role := "other"
		if id == in.CreatorID {
			role = "owner"
		}
		p := &conversation.Participant{
			ConversationID: conv.ID,
			UserID:         id,
			Role:           role,
			JoinedAt:       time.Now(),
		}
		if err := s.repo.AddParticipant(ctx, p); err != nil {
			return 0, err
		}
	}

	if body := strings.TrimSpace(in.InitialBody); body != "" {
		if _, err := s.appendMessage(ctx, conv.ID, in.CreatorID, body); err != nil {
			return 0, err
		}
	}
	return conv.ID, nil
}

// PostMessage appends a message and advances the sender's own read
// position, so a sender never sees their own message as unread.
func (s *ConversationService) PostMessage(ctx context.Context, conversationID, senderID uint, body string) (uint, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return 0, fmt.Errorf("message body required: %w", apperrors.ErrInvalidInput)
	}

	member, err := s.repo.IsParticipant(ctx, conversationID, senderID)
	if err != nil {
		return 0, err
	}
	if !member {
		return 0, fmt.Errorf("not a participant of conversation %d: %w", conversationID, apperrors.ErrForbidden)
	}
	return s.appendMessage(ctx, conversationID, senderID, body)
}

func (s *ConversationService) appendMessage(ctx context.Context, conversationID, senderID uint, body string) (uint, error) {
	m := &conversation.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      time.Now(),
	}
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		return 0, err
	}
	if err := s.repo.SetLastRead(ctx, conversationID, senderID, m.ID); err != nil {
		return 0, err
	}
	return m.ID, nil
}

func (s *ConversationService) ListForUser(ctx context.Context, userID uint, limit int) ([]conversation.Summary, error) {
	if limit <= 0 {
		limit = 200
	}
	return s.repo.ListForUser(ctx, userID, limit)
}

// Get returns the full thread for a member. A missing conversation and a
// non-member request are indistinguishable to the caller.
func (s *ConversationService) Get(ctx context.Context, conversationID, userID uint) (conversation.Detail, error) {
	member, err := s.repo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return conversation.Detail{}, err
	}
	if !member {
		return conversation.Detail{}, fmt.Errorf("conversation %d: %w", conversationID, apperrors.ErrNotFound)
	}

	conv, err := s.repo.Get(ctx, conversationID)
	if err != nil {
		return conversation.Detail{}, err
	}
	participants, err := s.repo.GetParticipants(ctx, conversationID)
	if err != nil {
		return conversation.Detail{}, err
	}
	messages, err := s.repo.Messages(ctx, conversationID, 0)
	if err != nil {
		return conversation.Detail{}, err
	}
	return conversation.Detail{
		Conversation: conv,
		Participants: participants,
		Messages:     messages,
	}, nil
}

// MarkRead catches the participant up to the conversation's current
// maximum message id and returns it.
func (s *ConversationService) MarkRead(ctx context.Context, conversationID, userID uint) (uint, error) {
	member, err := s.repo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	if !member {
		return 0, fmt.Errorf("conversation %d: %w", conversationID, apperrors.ErrNotFound)
	}

	maxID, err := s.repo.MaxMessageID(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	if err := s.repo.SetLastRead(ctx, conversationID, userID, maxID); err != nil {
		return 0, err
	}
	return maxID, nil
}

func (s *ConversationService) IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error) {
	return s.repo.IsParticipant(ctx, conversationID, userID)
}

type EnsureConversationInput struct {
	Purpose   string
	RefID     uint
	CreatorID uint
	// Parties maps each participant to their role label.
	Parties  map[uint]string
	Subject  string
	SeedBody string
}

// EnsureConversation reuses the thread registered for (purpose, ref, party
// set) or creates and registers one, seeding it with an opening message.
func (s *ConversationService) EnsureConversation(ctx context.Context, in EnsureConversationInput) (uint, error) {
	partyKey := PartyKey(keys(in.Parties))

	convID, err := s.repo.FindLink(ctx, in.Purpose, in.RefID, partyKey)
	if err == nil {
		return convID, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return 0, err
	}

	conv := &conversation.Conversation{
		Subject:   nullString(in.Subject),
		CreatedBy: in.CreatorID,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		return 0, err
	}
	for id, role := range in.Parties {
		p := &conversation.Participant{
			ConversationID: conv.ID,
			UserID:         id,
			Role:           role,
			JoinedAt:       time.Now(),
		}
		if err := s.repo.AddParticipant(ctx, p); err != nil {
			return 0, err
		}
	}
	if body := strings.TrimSpace(in.SeedBody); body != "" {
		if _, err := s.appendMessage(ctx, conv.ID, in.CreatorID, body); err != nil {
			return 0, err
		}
	}

	link := &conversation.Link{
		Purpose:        in.Purpose,
		RefID:          in.RefID,
		PartyKey:       partyKey,
		ConversationID: conv.ID,
	}
	if err := s.repo.CreateLink(ctx, link); err != nil {
		// A concurrent caller registered first; reuse their thread.
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return s.repo.FindLink(ctx, in.Purpose, in.RefID, partyKey)
		}
		return 0, err
	}
	return conv.ID, nil
}

// PartyKey canonicalizes a party set into a stable lookup key.
func PartyKey(ids []uint) string {
	sorted := append([]uint(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ":")
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func keys(m map[uint]string) []uint {
	out := make([]uint, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}
