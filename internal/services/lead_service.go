package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"brokerdesk/internal/domain/lead"
	"brokerdesk/internal/domain/notification"
	"brokerdesk/internal/domain/user"
	"brokerdesk/internal/repository"
	apperrors "brokerdesk/pkg/errors"
	"brokerdesk/pkg/logger"
)

const purposeLead = "lead"

type LeadService struct {
	repo     repository.LeadRepository
	identity repository.IdentityRepository
	convs    ConversationStore
	notifier Notifier
	log      *logger.Logger
}

func NewLeadService(repo repository.LeadRepository, identity repository.IdentityRepository, convs ConversationStore, notifier Notifier, log *logger.Logger) *LeadService {
	return &LeadService{repo: repo, identity: identity, convs: convs, notifier: notifier, log: log}
}

type PostLeadInput struct {
	OwnerID  uint
	Title    string
	AreaCode string
	Details  *lead.Details
}

type PostLeadResult struct {
	PostingID    uint
	LeadID       uint
	MatchedCount int
}

// PostLead persists the posting and its paired lead, then fans out to
// every agent whose resolved area set contains the posting's area code.
// Match insertion is idempotent, so a retried post cannot double-notify
// through duplicate match rows.
func (s *LeadService) PostLead(ctx context.Context, in PostLeadInput) (PostLeadResult, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || in.AreaCode == "" {
		return PostLeadResult{}, fmt.Errorf("title and area code required: %w", apperrors.ErrInvalidInput)
	}

	p := &lead.Posting{
		OwnerUser: in.OwnerID,
		Title:     title,
		AreaCode:  in.AreaCode,
		Status:    lead.PostingOpen,
		CreatedAt: time.Now(),
	}
	if in.Details != nil {
		blob, err := json.Marshal(in.Details)
		if err != nil {
			return PostLeadResult{}, fmt.Errorf("marshal lead details: %w", apperrors.ErrInvalidInput)
		}
		p.Details = blob
	}
	if err := s.repo.CreatePosting(ctx, p); err != nil {
		return PostLeadResult{}, err
	}

	l := &lead.Lead{
		Source:    lead.SourceMarketplace,
		RelatedID: p.ID,
		OwnerUser: in.OwnerID,
		Status:    lead.LeadNew,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateLead(ctx, l); err != nil {
		return PostLeadResult{}, err
	}

	agents, err := s.identity.AgentsInArea(ctx, in.AreaCode)
	if err != nil {
		return PostLeadResult{}, err
	}
	for _, agentID := range agents {
		if err := s.repo.AddMatch(ctx, &lead.Match{
			LeadID:     l.ID,
			AgentUser:  agentID,
			NotifiedAt: time.Now(),
		}); err != nil {
			return PostLeadResult{}, err
		}
		if err := s.notifier.Notify(ctx, agentID, notification.TypeLead,
			"New lead in your area", fmt.Sprintf("A new owner lead is available: %s", title),
			notification.Extra{LeadID: l.ID, MarketplaceID: p.ID, AreaCode: in.AreaCode}); err != nil && s.log != nil {
			s.log.Warnf("lead %d: notify agent %d: %v", l.ID, agentID, err)
		}
	}

	return PostLeadResult{PostingID: p.ID, LeadID: l.ID, MatchedCount: len(agents)}, nil
}

// ListOpen serves agents the postings inside their verified areas,
// annotated with the count of competing matched agents.
func (s *LeadService) ListOpen(ctx context.Context, agentID uint, statusFilter string) ([]lead.PostingSummary, error) {
	ident, err := s.identity.Resolve(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if ident.Role != user.RoleAgent {
		return nil, fmt.Errorf("agents only: %w", apperrors.ErrForbidden)
	}
	if len(ident.AreaCodes) == 0 {
		return nil, nil
	}
	if statusFilter == "" {
		statusFilter = lead.PostingOpen
	}
	return s.repo.ListOpenInAreas(ctx, ident.AreaCodes, statusFilter, 200)
}

type ClaimResult struct {
	ConversationID uint
	// Claimed is true only for the caller that won the new -> claimed
	// transition; late claimants still get the conversation.
	Claimed bool
}

// Claim is at-most-once: the conditional update decides the winner, losers
// proceed without re-claiming and receive the same conversation.
func (s *LeadService) Claim(ctx context.Context, postingID, agentID uint) (ClaimResult, error) {
	p, err := s.repo.GetPosting(ctx, postingID)
	if err != nil {
		return ClaimResult{}, err
	}

	ident, err := s.identity.Resolve(ctx, agentID)
	if err != nil {
		return ClaimResult{}, err
	}
	if !ident.ServesArea(p.AreaCode) {
		return ClaimResult{}, fmt.Errorf("area %s is outside your service area: %w", p.AreaCode, apperrors.ErrForbidden)
	}

	l, err := s.repo.GetLeadByPosting(ctx, postingID)
	if err != nil {
		return ClaimResult{}, err
	}

	won, err := s.repo.Claim(ctx, l.ID, p.ID, agentID)
	if err != nil {
		return ClaimResult{}, err
	}

	convID, err := s.convs.EnsureConversation(ctx, EnsureConversationInput{
		Purpose:   purposeLead,
		RefID:     l.ID,
		CreatorID: agentID,
		Parties: map[uint]string{
			p.OwnerUser: user.RoleOwner,
			agentID:     user.RoleAgent,
		},
		Subject:  fmt.Sprintf("Marketplace: %s", p.Title),
		SeedBody: "Hi! I'm interested in your property.",
	})
	if err != nil {
		return ClaimResult{}, err
	}

	if err := s.notifier.Notify(ctx, p.OwnerUser, notification.TypeMessage,
		"An agent reached out about your property", "Check your inbox.",
		notification.Extra{ConversationID: convID, MarketplaceID: p.ID}); err != nil && s.log != nil {
		s.log.Warnf("lead %d: notify owner %d: %v", l.ID, p.OwnerUser, err)
	}

	return ClaimResult{ConversationID: convID, Claimed: won}, nil
}
