package services

import (
	"context"
	"errors"
	"testing"

	apperrors "brokerdesk/pkg/errors"
)

func TestCreateConversationSeedsInitialMessage(t *testing.T) {
	repo := newFakeConversationRepo()
	svc := NewConversationService(repo)
	ctx := context.Background()

	convID, err := svc.Create(ctx, CreateConversationInput{
		CreatorID:      1,
		ParticipantIDs: []uint{2, 3},
		Subject:        "Kickoff",
		InitialBody:    "Hello everyone",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	detail, err := svc.Get(ctx, convID, 2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(detail.Participants) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(detail.Participants))
	}
	if len(detail.Messages) != 1 || detail.Messages[0].Body != "Hello everyone" {
		t.Fatalf("expected seeded message, got %+v", detail.Messages)
	}
}

func TestCreateConversationRequiresParticipants(t *testing.T) {
	svc := NewConversationService(newFakeConversationRepo())

	_, err := svc.Create(context.Background(), CreateConversationInput{CreatorID: 1})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPostMessageAdvancesSenderReadPosition(t *testing.T) {
	repo := newFakeConversationRepo()
	svc := NewConversationService(repo)
	ctx := context.Background()

	convID, err := svc.Create(ctx, CreateConversationInput{
		CreatorID:      1,
		ParticipantIDs: []uint{2},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	msgID, err := svc.PostMessage(ctx, convID, 1, "first")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if got := repo.lastRead(convID, 1); got != msgID {
		t.Fatalf("sender last read = %d, want %d", got, msgID)
	}

	// The sender never counts their own message as unread; the other
	// participant does until they catch up.
	senderList, err := svc.ListForUser(ctx, 1, 0)
	if err != nil {
		t.Fatalf("ListForUser sender: %v", err)
	}
	if senderList[0].UnreadCount != 0 {
		t.Fatalf("sender unread = %d, want 0", senderList[0].UnreadCount)
	}

	otherList, err := svc.ListForUser(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListForUser other: %v", err)
	}
	if otherList[0].UnreadCount != 1 {
		t.Fatalf("recipient unread = %d, want 1", otherList[0].UnreadCount)
	}
}

func TestMarkReadResetsUnread(t *testing.T) {
	repo := newFakeConversationRepo()
	svc := NewConversationService(repo)
	ctx := context.Background()

	convID, _ := svc.Create(ctx, CreateConversationInput{CreatorID: 1, ParticipantIDs: []uint{2}})
	if _, err := svc.PostMessage(ctx, convID, 1, "one"); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	lastID, err := svc.PostMessage(ctx, convID, 1, "two")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	maxID, err := svc.MarkRead(ctx, convID, 2)
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if maxID != lastID {
		t.Fatalf("MarkRead returned %d, want %d", maxID, lastID)
	}

	list, _ := svc.ListForUser(ctx, 2, 0)
	if list[0].UnreadCount != 0 {
		t.Fatalf("unread after mark read = %d, want 0", list[0].UnreadCount)
	}

	// A message posted afterwards counts again.
	if _, err := svc.PostMessage(ctx, convID, 1, "three"); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	list, _ = svc.ListForUser(ctx, 2, 0)
	if list[0].UnreadCount != 1 {
		t.Fatalf("unread after new message = %d, want 1", list[0].UnreadCount)
	}
}

func TestMarkReadEmptyConversation(t *testing.T) {
	svc := NewConversationService(newFakeConversationRepo())
	ctx := context.Background()

	convID, _ := svc.Create(ctx, CreateConversationInput{CreatorID: 1, ParticipantIDs: []uint{2}})
	maxID, err := svc.MarkRead(ctx, convID, 2)
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if maxID != 0 {
		t.Fatalf("MarkRead on empty conversation = %d, want 0", maxID)
	}
}

func TestPostMessageRejectsNonParticipant(t *testing.T) {
	svc := NewConversationService(newFakeConversationRepo())
	ctx := context.Background()

	convID, _ := svc.Create(ctx, CreateConversationInput{CreatorID: 1, ParticipantIDs: []uint{2}})
	_, err := svc.PostMessage(ctx, convID, 99, "hi")
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestPostMessageRejectsEmptyBody(t *testing.T) {
	svc := NewConversationService(newFakeConversationRepo())
	ctx := context.Background()

	convID, _ := svc.Create(ctx, CreateConversationInput{CreatorID: 1, ParticipantIDs: []uint{2}})
	_, err := svc.PostMessage(ctx, convID, 1, "   ")
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetHidesConversationFromNonMembers(t *testing.T) {
	svc := NewConversationService(newFakeConversationRepo())
	ctx := context.Background()

	convID, _ := svc.Create(ctx, CreateConversationInput{CreatorID: 1, ParticipantIDs: []uint{2}})

	// Non-members and missing conversations look the same.
	if _, err := svc.Get(ctx, convID, 99); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("non-member: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Get(ctx, 12345, 1); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("missing: expected ErrNotFound, got %v", err)
	}
}

func TestMessageIDsIncreaseWithinConversation(t *testing.T) {
	svc := NewConversationService(newFakeConversationRepo())
	ctx := context.Background()

	convID, _ := svc.Create(ctx, CreateConversationInput{CreatorID: 1, ParticipantIDs: []uint{2}})
	otherID, _ := svc.Create(ctx, CreateConversationInput{CreatorID: 1, ParticipantIDs: []uint{3}})

	var prev uint
	for i := 0; i < 5; i++ {
		id, err := svc.PostMessage(ctx, convID, 1, "ping")
		if err != nil {
			t.Fatalf("PostMessage: %v", err)
		}
		if id <= prev {
			t.Fatalf("message id %d not greater than previous %d", id, prev)
		}
		prev = id
		// Interleave traffic in another thread.
		if _, err := svc.PostMessage(ctx, otherID, 1, "noise"); err != nil {
			t.Fatalf("PostMessage other: %v", err)
		}
	}
}

func TestGetReturnsFullThread(t *testing.T) {
	svc := NewConversationService(newFakeConversationRepo())
	ctx := context.Background()

	convID, _ := svc.Create(ctx, CreateConversationInput{CreatorID: 1, ParticipantIDs: []uint{2}})

	const posted = 40
	for i := 0; i < posted; i++ {
		if _, err := svc.PostMessage(ctx, convID, 1, "ping"); err != nil {
			t.Fatalf("PostMessage %d: %v", i, err)
		}
	}

	detail, err := svc.Get(ctx, convID, 2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(detail.Messages) != posted {
		t.Fatalf("thread has %d messages, want %d", len(detail.Messages), posted)
	}
	for i := 1; i < len(detail.Messages); i++ {
		if detail.Messages[i].ID <= detail.Messages[i-1].ID {
			t.Fatalf("messages out of order at %d: %d then %d", i, detail.Messages[i-1].ID, detail.Messages[i].ID)
		}
	}
}

func TestEnsureConversationReusesThread(t *testing.T) {
	svc := NewConversationService(newFakeConversationRepo())
	ctx := context.Background()

	in := EnsureConversationInput{
		Purpose:   "referral",
		CreatorID: 1,
		Parties:   map[uint]string{1: "agent", 2: "agent"},
		Subject:   "Referral",
		SeedBody:  "hello",
	}
	first, err := svc.EnsureConversation(ctx, in)
	if err != nil {
		t.Fatalf("EnsureConversation: %v", err)
	}
	second, err := svc.EnsureConversation(ctx, in)
	if err != nil {
		t.Fatalf("EnsureConversation again: %v", err)
	}
	if first != second {
		t.Fatalf("expected reuse, got %d then %d", first, second)
	}

	// A different party set gets its own thread.
	in.Parties = map[uint]string{1: "agent", 3: "agent"}
	third, err := svc.EnsureConversation(ctx, in)
	if err != nil {
		t.Fatalf("EnsureConversation third: %v", err)
	}
	if third == first {
		t.Fatalf("different parties reused thread %d", first)
	}
}

func TestPartyKeyIsOrderIndependent(t *testing.T) {
	if PartyKey([]uint{7, 2}) != PartyKey([]uint{2, 7}) {
		t.Fatal("party key depends on order")
	}
	if got := PartyKey([]uint{10, 2}); got != "2:10" {
		t.Fatalf("party key = %q, want %q", got, "2:10")
	}
}
