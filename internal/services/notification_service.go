package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"brokerdesk/internal/domain/notification"
	"brokerdesk/internal/repository"
	"brokerdesk/pkg/logger"
)

// Notifier is the dispatch interface the other services compose with.
type Notifier interface {
	Notify(ctx context.Context, userID uint, typ, subject, message string, extra notification.Extra) error
}

// Relay is the best-effort external channel (email in production).
type Relay interface {
	Send(ctx context.Context, toAddress, subject, body string) error
}

// NotificationService persists the authoritative in-app record and then
// attempts at most one relay. The in-app write is the record of truth: its
// failure fails the call, while relay failure is logged and swallowed so a
// dead email provider can never fail a sign, claim, or offer.
type NotificationService struct {
	repo     repository.NotificationRepository
	identity repository.IdentityRepository
	relay    Relay
	log      *logger.Logger
}

func NewNotificationService(repo repository.NotificationRepository, identity repository.IdentityRepository, relay Relay, log *logger.Logger) *NotificationService {
	return &NotificationService{repo: repo, identity: identity, relay: relay, log: log}
}

func (s *NotificationService) Notify(ctx context.Context, userID uint, typ, subject, message string, extra notification.Extra) error {
	payload, err := json.Marshal(notification.Payload{
		Subject: subject,
		Message: message,
		Extra:   extra,
	})
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	n := &notification.Notification{
		UserID:    userID,
		Type:      typ,
		Payload:   payload,
		Channel:   notification.ChannelInApp,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}

	if s.relay == nil {
		return nil
	}

	ident, err := s.identity.Resolve(ctx, userID)
	if err != nil || ident.Email == "" {
		if err != nil && s.log != nil {
			s.log.Warnf("notification relay skipped, cannot resolve user %d: %v", userID, err)
		}
		return nil
	}

	if err := s.relay.Send(ctx, ident.Email, subject, message); err != nil {
		if s.log != nil {
			s.log.Warnf("notification relay failed for user %d: %v", userID, err)
		}
		return nil
	}

	if err := s.repo.MarkDelivered(ctx, n.ID, notification.ChannelEmail, time.Now()); err != nil && s.log != nil {
		s.log.Warnf("failed to mark notification %d delivered: %v", n.ID, err)
	}
	return nil
}

func (s *NotificationService) ListForUser(ctx context.Context, userID uint, limit int) ([]notification.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.repo.ListForUser(ctx, userID, limit)
}
