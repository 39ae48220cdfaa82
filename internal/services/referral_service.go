package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"brokerdesk/internal/domain/notification"
	"brokerdesk/internal/domain/referral"
	"brokerdesk/internal/domain/user"
	"brokerdesk/internal/repository"
	apperrors "brokerdesk/pkg/errors"
	"brokerdesk/pkg/logger"
)

const purposeReferral = "referral"

type ReferralService struct {
	repo     repository.ReferralRepository
	convs    ConversationStore
	notifier Notifier
	log      *logger.Logger
}

func NewReferralService(repo repository.ReferralRepository, convs ConversationStore, notifier Notifier, log *logger.Logger) *ReferralService {
	return &ReferralService{repo: repo, convs: convs, notifier: notifier, log: log}
}

type OfferReferralInput struct {
	FromID     uint
	ToID       uint
	FeePercent float64
	Context    *referral.Context
}

// Offer clamps the fee into [0,100], resolves the referral thread between
// the two agents (reused per party pair, created and seeded otherwise),
// persists the offer, and notifies the recipient.
func (s *ReferralService) Offer(ctx context.Context, in OfferReferralInput) (uint, error) {
	if in.ToID == 0 {
		return 0, fmt.Errorf("recipient required: %w", apperrors.ErrInvalidInput)
	}
	if in.ToID == in.FromID {
		return 0, fmt.Errorf("cannot refer to yourself: %w", apperrors.ErrInvalidInput)
	}

	fee := clampFee(in.FeePercent)

	convID, err := s.convs.EnsureConversation(ctx, EnsureConversationInput{
		Purpose:   purposeReferral,
		CreatorID: in.FromID,
		Parties: map[uint]string{
			in.FromID: user.RoleAgent,
			in.ToID:   user.RoleAgent,
		},
		Subject:  "Referral",
		SeedBody: "I would like to refer a client.",
	})
	if err != nil {
		return 0, err
	}

	ref := &referral.Referral{
		FromUser:       in.FromID,
		ToUser:         in.ToID,
		ConversationID: convID,
		FeePercent:     fee,
		Status:         referral.StatusOffered,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if in.Context != nil {
		blob, err := json.Marshal(in.Context)
		if err != nil {
			return 0, fmt.Errorf("marshal referral context: %w", apperrors.ErrInvalidInput)
		}
		ref.Context = blob
	}
	if err := s.repo.Create(ctx, ref); err != nil {
		return 0, err
	}

	if err := s.notifier.Notify(ctx, in.ToID, notification.TypeReferral,
		"New referral offer", "An agent sent you a referral.",
		notification.Extra{ReferralID: ref.ID, ConversationID: convID, FeePercent: fee}); err != nil && s.log != nil {
		s.log.Warnf("referral %d: notify recipient %d: %v", ref.ID, in.ToID, err)
	}
	return ref.ID, nil
}

// Accept transitions offered -> accepted; only the recipient may act.
func (s *ReferralService) Accept(ctx context.Context, referralID, actorID uint) error {
	return s.respond(ctx, referralID, actorID, referral.StatusAccepted, "Referral accepted", "Your referral was accepted.")
}

// Decline transitions offered -> declined; only the recipient may act.
func (s *ReferralService) Decline(ctx context.Context, referralID, actorID uint) error {
	return s.respond(ctx, referralID, actorID, referral.StatusDeclined, "Referral declined", "Your referral was declined.")
}

func (s *ReferralService) respond(ctx context.Context, referralID, actorID uint, to, subject, message string) error {
	ref, err := s.repo.Get(ctx, referralID)
	if err != nil {
		return err
	}
	if ref.ToUser != actorID {
		return fmt.Errorf("only the recipient may respond: %w", apperrors.ErrForbidden)
	}
	if referral.Terminal(ref.Status) {
		return fmt.Errorf("referral %d is %s: %w", referralID, ref.Status, apperrors.ErrConflict)
	}

	won, err := s.repo.Transition(ctx, referralID, referral.StatusOffered, to, time.Now())
	if err != nil {
		return err
	}
	if !won {
		return fmt.Errorf("referral %d is no longer offered: %w", referralID, apperrors.ErrConflict)
	}

	typ := notification.TypeReferral
	if err := s.notifier.Notify(ctx, ref.FromUser, typ, subject, message,
		notification.Extra{ReferralID: referralID}); err != nil && s.log != nil {
		s.log.Warnf("referral %d: notify offerer %d: %v", referralID, ref.FromUser, err)
	}
	return nil
}

// Complete transitions accepted -> completed; either party may act, and
// both are notified.
func (s *ReferralService) Complete(ctx context.Context, referralID, actorID uint) error {
	ref, err := s.repo.Get(ctx, referralID)
	if err != nil {
		return err
	}
	if ref.FromUser != actorID && ref.ToUser != actorID {
		return fmt.Errorf("not a party to referral %d: %w", referralID, apperrors.ErrForbidden)
	}
	if referral.Terminal(ref.Status) {
		return fmt.Errorf("referral %d is %s: %w", referralID, ref.Status, apperrors.ErrConflict)
	}

	won, err := s.repo.Transition(ctx, referralID, referral.StatusAccepted, referral.StatusCompleted, time.Now())
	if err != nil {
		return err
	}
	if !won {
		return fmt.Errorf("referral %d is not accepted: %w", referralID, apperrors.ErrConflict)
	}

	for _, party := range []uint{ref.FromUser, ref.ToUser} {
		if err := s.notifier.Notify(ctx, party, notification.TypeReferral,
			"Referral marked completed", "The referral has been marked as completed.",
			notification.Extra{ReferralID: referralID}); err != nil && s.log != nil {
			s.log.Warnf("referral %d: notify party %d: %v", referralID, party, err)
		}
	}
	return nil
}

func (s *ReferralService) ListMine(ctx context.Context, userID uint, limit int) ([]referral.Referral, error) {
	if limit <= 0 {
		limit = 200
	}
	return s.repo.ListForUser(ctx, userID, limit)
}

// Get is visible to either party only.
func (s *ReferralService) Get(ctx context.Context, referralID, requesterID uint) (referral.Referral, error) {
	ref, err := s.repo.Get(ctx, referralID)
	if err != nil {
		return referral.Referral{}, err
	}
	if ref.FromUser != requesterID && ref.ToUser != requesterID {
		return referral.Referral{}, fmt.Errorf("not a party to referral %d: %w", referralID, apperrors.ErrForbidden)
	}
	return ref, nil
}

func (s *ReferralService) Counts(ctx context.Context, userID uint) (referral.Counts, error) {
	return s.repo.Counts(ctx, userID)
}

func clampFee(fee float64) float64 {
	if fee < 0 {
		return 0
	}
	if fee > 100 {
		return 100
	}
	return fee
}
