package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"brokerdesk/internal/domain/contract"
	"brokerdesk/internal/domain/conversation"
	"brokerdesk/internal/domain/lead"
	"brokerdesk/internal/domain/notification"
	"brokerdesk/internal/domain/referral"
	"brokerdesk/internal/domain/user"
	apperrors "brokerdesk/pkg/errors"
)

type partKey struct {
	conversationID uint
	userID         uint
}

type linkKey struct {
	purpose  string
	refID    uint
	partyKey string
}

type fakeConversationRepo struct {
	mu            sync.Mutex
	nextConvID    uint
	nextMessageID uint
	conversations map[uint]conversation.Conversation
	participants  map[partKey]*conversation.Participant
	messages      []conversation.Message
	links         map[linkKey]uint
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: make(map[uint]conversation.Conversation),
		participants:  make(map[partKey]*conversation.Participant),
		links:         make(map[linkKey]uint),
	}
}

func (f *fakeConversationRepo) Create(ctx context.Context, c *conversation.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextConvID++
	c.ID = f.nextConvID
	f.conversations[c.ID] = *c
	return nil
}

func (f *fakeConversationRepo) Get(ctx context.Context, id uint) (conversation.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return conversation.Conversation{}, fmt.Errorf("conversation %d: %w", id, apperrors.ErrNotFound)
	}
	return c, nil
}

func (f *fakeConversationRepo) AddParticipant(ctx context.Context, p *conversation.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := partKey{p.ConversationID, p.UserID}
	if _, ok := f.participants[k]; ok {
		return nil
	}
	cp := *p
	f.participants[k] = &cp
	return nil
}

func (f *fakeConversationRepo) GetParticipants(ctx context.Context, conversationID uint) ([]conversation.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []conversation.Participant
	for k, p := range f.participants {
		if k.conversationID == conversationID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (f *fakeConversationRepo) IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.participants[partKey{conversationID, userID}]
	return ok, nil
}

func (f *fakeConversationRepo) ListForUser(ctx context.Context, userID uint, limit int) ([]conversation.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []conversation.Summary
	for k, p := range f.participants {
		if k.userID != userID {
			continue
		}
		s := conversation.Summary{Conversation: f.conversations[k.conversationID]}
		for _, m := range f.messages {
			if m.ConversationID != k.conversationID {
				continue
			}
			s.LastMessage = m.Body
			if m.ID > p.LastReadMessageID && m.SenderID != userID {
				s.UnreadCount++
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Conversation.ID < out[j].Conversation.ID })
	return out, nil
}

func (f *fakeConversationRepo) CreateMessage(ctx context.Context, m *conversation.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMessageID++
	m.ID = f.nextMessageID
	f.messages = append(f.messages, *m)
	return nil
}

func (f *fakeConversationRepo) Messages(ctx context.Context, conversationID uint, limit int) ([]conversation.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []conversation.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) MaxMessageID(ctx context.Context, conversationID uint) (uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var max uint
	for _, m := range f.messages {
		if m.ConversationID == conversationID && m.ID > max {
			max = m.ID
		}
	}
	return max, nil
}

func (f *fakeConversationRepo) SetLastRead(ctx context.Context, conversationID, userID, messageID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[partKey{conversationID, userID}]
	if !ok {
		return fmt.Errorf("participant: %w", apperrors.ErrNotFound)
	}
	p.LastReadMessageID = messageID
	return nil
}

func (f *fakeConversationRepo) FindLink(ctx context.Context, purpose string, refID uint, partyKey string) (uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.links[linkKey{purpose, refID, partyKey}]
	if !ok {
		return 0, fmt.Errorf("link: %w", apperrors.ErrNotFound)
	}
	return id, nil
}

func (f *fakeConversationRepo) CreateLink(ctx context.Context, l *conversation.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := linkKey{l.Purpose, l.RefID, l.PartyKey}
	if _, ok := f.links[k]; ok {
		return fmt.Errorf("link: %w", apperrors.ErrAlreadyExists)
	}
	f.links[k] = l.ConversationID
	return nil
}

func (f *fakeConversationRepo) lastRead(conversationID, userID uint) uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.participants[partKey{conversationID, userID}]; ok {
		return p.LastReadMessageID
	}
	return 0
}

type signerKey struct {
	contractID uint
	userID     uint
}

type fakeContractRepo struct {
	mu        sync.Mutex
	nextID    uint
	contracts map[uint]*contract.Contract
	signers   map[signerKey]*contract.Signer
}

func newFakeContractRepo() *fakeContractRepo {
	return &fakeContractRepo{
		contracts: make(map[uint]*contract.Contract),
		signers:   make(map[signerKey]*contract.Signer),
	}
}

func (f *fakeContractRepo) Create(ctx context.Context, c *contract.Contract) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	cp := *c
	f.contracts[c.ID] = &cp
	return nil
}

func (f *fakeContractRepo) Get(ctx context.Context, id uint) (contract.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contracts[id]
	if !ok {
		return contract.Contract{}, fmt.Errorf("contract %d: %w", id, apperrors.ErrNotFound)
	}
	return *c, nil
}

func (f *fakeContractRepo) MarkSent(ctx context.Context, id, conversationID uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contracts[id]
	if !ok {
		return fmt.Errorf("contract %d: %w", id, apperrors.ErrNotFound)
	}
	if c.Status == contract.StatusSigned {
		return fmt.Errorf("contract %d is already signed: %w", id, apperrors.ErrConflict)
	}
	cid := conversationID
	c.ConversationID = &cid
	c.Status = contract.StatusSent
	c.SentAt = &at
	return nil
}

func (f *fakeContractRepo) ListByConversation(ctx context.Context, conversationID uint) ([]contract.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []contract.Contract
	for _, c := range f.contracts {
		if c.ConversationID != nil && *c.ConversationID == conversationID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeContractRepo) AddSigner(ctx context.Context, s *contract.Signer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := signerKey{s.ContractID, s.UserID}
	if _, ok := f.signers[k]; ok {
		return nil
	}
	cp := *s
	f.signers[k] = &cp
	return nil
}

func (f *fakeContractRepo) GetSigner(ctx context.Context, contractID, userID uint) (contract.Signer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.signers[signerKey{contractID, userID}]
	if !ok {
		return contract.Signer{}, fmt.Errorf("signer: %w", apperrors.ErrNotFound)
	}
	return *s, nil
}

func (f *fakeContractRepo) ListSigners(ctx context.Context, contractID uint) ([]contract.Signer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []contract.Signer
	for k, s := range f.signers {
		if k.contractID == contractID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (f *fakeContractRepo) SetSigned(ctx context.Context, contractID, userID uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.signers[signerKey{contractID, userID}]
	if !ok {
		return fmt.Errorf("signer: %w", apperrors.ErrNotFound)
	}
	if s.SignedAt == nil {
		s.SignedAt = &at
	}
	return nil
}

func (f *fakeContractRepo) FinalizeIfComplete(ctx context.Context, contractID uint, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contracts[contractID]
	if !ok {
		return false, fmt.Errorf("contract %d: %w", contractID, apperrors.ErrNotFound)
	}
	if c.Status != contract.StatusSent {
		return false, nil
	}
	for k, s := range f.signers {
		if k.contractID == contractID && s.SignedAt == nil {
			return false, nil
		}
	}
	c.Status = contract.StatusSigned
	c.SignedAt = &at
	return true, nil
}

func (f *fakeContractRepo) CountPendingForUser(ctx context.Context, userID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, s := range f.signers {
		if k.userID != userID || s.SignedAt != nil {
			continue
		}
		if c, ok := f.contracts[k.contractID]; ok && c.Status == contract.StatusSent {
			n++
		}
	}
	return n, nil
}

type fakeReferralRepo struct {
	mu        sync.Mutex
	nextID    uint
	referrals map[uint]*referral.Referral
}

func newFakeReferralRepo() *fakeReferralRepo {
	return &fakeReferralRepo{referrals: make(map[uint]*referral.Referral)}
}

func (f *fakeReferralRepo) Create(ctx context.Context, r *referral.Referral) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = f.nextID
	cp := *r
	f.referrals[r.ID] = &cp
	return nil
}

func (f *fakeReferralRepo) Get(ctx context.Context, id uint) (referral.Referral, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.referrals[id]
	if !ok {
		return referral.Referral{}, fmt.Errorf("referral %d: %w", id, apperrors.ErrNotFound)
	}
	return *r, nil
}

func (f *fakeReferralRepo) Transition(ctx context.Context, id uint, from, to string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.referrals[id]
	if !ok {
		return false, fmt.Errorf("referral %d: %w", id, apperrors.ErrNotFound)
	}
	if r.Status != from {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = at
	return true, nil
}

func (f *fakeReferralRepo) ListForUser(ctx context.Context, userID uint, limit int) ([]referral.Referral, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []referral.Referral
	for _, r := range f.referrals {
		if r.FromUser == userID || r.ToUser == userID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeReferralRepo) Counts(ctx context.Context, userID uint) (referral.Counts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c referral.Counts
	for _, r := range f.referrals {
		if r.ToUser == userID && r.Status == referral.StatusOffered {
			c.OfferedToMe++
		}
		if (r.ToUser == userID || r.FromUser == userID) && r.Status == referral.StatusAccepted {
			c.AcceptedActive++
		}
	}
	return c, nil
}

type matchKey struct {
	leadID    uint
	agentUser uint
}

type fakeLeadRepo struct {
	mu          sync.Mutex
	nextPosting uint
	nextLead    uint
	postings    map[uint]*lead.Posting
	leads       map[uint]*lead.Lead
	matches     map[matchKey]lead.Match
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{
		postings: make(map[uint]*lead.Posting),
		leads:    make(map[uint]*lead.Lead),
		matches:  make(map[matchKey]lead.Match),
	}
}

func (f *fakeLeadRepo) CreatePosting(ctx context.Context, p *lead.Posting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPosting++
	p.ID = f.nextPosting
	cp := *p
	f.postings[p.ID] = &cp
	return nil
}

func (f *fakeLeadRepo) CreateLead(ctx context.Context, l *lead.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextLead++
	l.ID = f.nextLead
	cp := *l
	f.leads[l.ID] = &cp
	return nil
}

func (f *fakeLeadRepo) GetPosting(ctx context.Context, id uint) (lead.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.postings[id]
	if !ok {
		return lead.Posting{}, fmt.Errorf("posting %d: %w", id, apperrors.ErrNotFound)
	}
	return *p, nil
}

func (f *fakeLeadRepo) GetLeadByPosting(ctx context.Context, postingID uint) (lead.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.leads {
		if l.Source == lead.SourceMarketplace && l.RelatedID == postingID {
			return *l, nil
		}
	}
	return lead.Lead{}, fmt.Errorf("lead for posting %d: %w", postingID, apperrors.ErrNotFound)
}

func (f *fakeLeadRepo) ListOpenInAreas(ctx context.Context, areas []string, status string, limit int) ([]lead.PostingSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	areaSet := make(map[string]struct{}, len(areas))
	for _, a := range areas {
		areaSet[a] = struct{}{}
	}
	var out []lead.PostingSummary
	for _, p := range f.postings {
		if _, ok := areaSet[p.AreaCode]; !ok || p.Status != status {
			continue
		}
		s := lead.PostingSummary{Posting: *p}
		for _, l := range f.leads {
			if l.RelatedID == p.ID {
				s.LeadID = l.ID
				for k := range f.matches {
					if k.leadID == l.ID {
						s.MatchCount++
					}
				}
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Posting.ID < out[j].Posting.ID })
	return out, nil
}

func (f *fakeLeadRepo) AddMatch(ctx context.Context, m *lead.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := matchKey{m.LeadID, m.AgentUser}
	if _, ok := f.matches[k]; ok {
		return nil
	}
	f.matches[k] = *m
	return nil
}

func (f *fakeLeadRepo) CountMatches(ctx context.Context, leadID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k := range f.matches {
		if k.leadID == leadID {
			n++
		}
	}
	return n, nil
}

func (f *fakeLeadRepo) Claim(ctx context.Context, leadID, postingID, agentID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[leadID]
	if !ok {
		return false, fmt.Errorf("lead %d: %w", leadID, apperrors.ErrNotFound)
	}
	if l.Status != lead.LeadNew {
		return false, nil
	}
	id := agentID
	l.Status = lead.LeadClaimed
	l.AssigneeUser = &id
	if p, ok := f.postings[postingID]; ok && p.Status == lead.PostingOpen {
		p.Status = lead.PostingEngaged
	}
	return true, nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	nextID        uint
	notifications []*notification.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	n.ID = f.nextID
	cp := *n
	f.notifications = append(f.notifications, &cp)
	return nil
}

func (f *fakeNotificationRepo) MarkDelivered(ctx context.Context, id uint, channel string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notifications {
		if n.ID == id {
			n.Channel = channel
			n.DeliveredAt = &at
			return nil
		}
	}
	return fmt.Errorf("notification %d: %w", id, apperrors.ErrNotFound)
}

func (f *fakeNotificationRepo) ListForUser(ctx context.Context, userID uint, limit int) ([]notification.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notification.Notification
	for i := len(f.notifications) - 1; i >= 0; i-- {
		if f.notifications[i].UserID == userID {
			out = append(out, *f.notifications[i])
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) forUser(userID uint) []notification.Notification {
	out, _ := f.ListForUser(context.Background(), userID, 100)
	return out
}

type fakeIdentityRepo struct {
	mu         sync.Mutex
	identities map[uint]user.Identity
}

func newFakeIdentityRepo() *fakeIdentityRepo {
	return &fakeIdentityRepo{identities: make(map[uint]user.Identity)}
}

func (f *fakeIdentityRepo) add(id user.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identities[id.ID] = id
}

func (f *fakeIdentityRepo) Resolve(ctx context.Context, userID uint) (user.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ident, ok := f.identities[userID]
	if !ok {
		return user.Identity{}, fmt.Errorf("user %d: %w", userID, apperrors.ErrNotFound)
	}
	return ident, nil
}

func (f *fakeIdentityRepo) AgentsInArea(ctx context.Context, areaCode string) ([]uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uint
	for _, ident := range f.identities {
		if ident.Role == user.RoleAgent && ident.ServesArea(areaCode) {
			out = append(out, ident.ID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeRelay struct {
	mu   sync.Mutex
	fail bool
	sent []sentMail
}

func (f *fakeRelay) Send(ctx context.Context, toAddress, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("relay unavailable")
	}
	f.sent = append(f.sent, sentMail{To: toAddress, Subject: subject, Body: body})
	return nil
}

type fakeObjectStore struct {
	failPut bool
	failGet bool
}

func (f *fakeObjectStore) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	if f.failPut {
		return "", fmt.Errorf("storage unavailable")
	}
	return "https://storage.test/put/" + key, nil
}

func (f *fakeObjectStore) PresignGet(ctx context.Context, key string) (string, error) {
	if f.failGet {
		return "", fmt.Errorf("storage unavailable")
	}
	return "https://storage.test/get/" + key, nil
}

// recordingNotifier captures dispatches without persisting anything.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

type notifyCall struct {
	UserID  uint
	Type    string
	Subject string
	Extra   notification.Extra
}

func (r *recordingNotifier) Notify(ctx context.Context, userID uint, typ, subject, message string, extra notification.Extra) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, notifyCall{UserID: userID, Type: typ, Subject: subject, Extra: extra})
	return nil
}

func (r *recordingNotifier) forUser(userID uint) []notifyCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notifyCall
	for _, c := range r.calls {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out
}
