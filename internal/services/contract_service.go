package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"brokerdesk/internal/domain/contract"
	"brokerdesk/internal/domain/notification"
	"brokerdesk/internal/repository"
	apperrors "brokerdesk/pkg/errors"
	"brokerdesk/pkg/logger"

	"github.com/google/uuid"
)

// ObjectStore issues time-boxed upload and download authorizations; the
// service never proxies file bytes.
type ObjectStore interface {
	PresignPut(ctx context.Context, key, contentType string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

type ContractService struct {
	repo     repository.ContractRepository
	convs    ConversationStore
	notifier Notifier
	store    ObjectStore
	log      *logger.Logger
}

func NewContractService(repo repository.ContractRepository, convs ConversationStore, notifier Notifier, store ObjectStore, log *logger.Logger) *ContractService {
	return &ContractService{repo: repo, convs: convs, notifier: notifier, store: store, log: log}
}

type CreateContractResult struct {
	ContractID uint
	FileKey    string
	UploadURL  string
}

// Create persists the draft row before any bytes exist and hands back a
// presigned upload target under the owner's key namespace.
func (s *ContractService) Create(ctx context.Context, ownerID uint, title, contractType string) (CreateContractResult, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return CreateContractResult{}, fmt.Errorf("title required: %w", apperrors.ErrInvalidInput)
	}
	if contractType == "" {
		contractType = "custom"
	}

	key := fmt.Sprintf("contracts/%d/%s.pdf", ownerID, uuid.NewString())
	uploadURL, err := s.store.PresignPut(ctx, key, "application/pdf")
	if err != nil {
		return CreateContractResult{}, fmt.Errorf("issue upload authorization: %v: %w", err, apperrors.ErrDependencyFailure)
	}

	c := &contract.Contract{
		CreatedBy: ownerID,
		Title:     title,
		Type:      contractType,
		FileKey:   key,
		Status:    contract.StatusDraft,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return CreateContractResult{}, err
	}
	return CreateContractResult{ContractID: c.ID, FileKey: key, UploadURL: uploadURL}, nil
}

// Send attaches the contract to a conversation the sender belongs to and
// registers the signer set ({sender} union signers, deduplicated). Signer
// insertion is insert-if-absent so a re-send never resets signatures.
func (s *ContractService) Send(ctx context.Context, contractID, senderID, conversationID uint, signerIDs []uint) error {
	c, err := s.repo.Get(ctx, contractID)
	if err != nil {
		return err
	}
	if c.Status == contract.StatusSigned {
		return fmt.Errorf("contract %d is already signed: %w", contractID, apperrors.ErrConflict)
	}

	member, err := s.convs.IsParticipant(ctx, conversationID, senderID)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("sender not in conversation %d: %w", conversationID, apperrors.ErrForbidden)
	}

	if err := s.repo.MarkSent(ctx, contractID, conversationID, time.Now()); err != nil {
		return err
	}

	for _, signerID := range dedupe(append([]uint{senderID}, signerIDs...)) {
		if err := s.repo.AddSigner(ctx, &contract.Signer{ContractID: contractID, UserID: signerID}); err != nil {
			return err
		}
		if signerID == senderID {
			continue
		}
		if err := s.notifier.Notify(ctx, signerID, notification.TypeContract,
			"New contract to sign", "A contract was sent to you for signature.",
			notification.Extra{ContractID: contractID, ConversationID: conversationID}); err != nil && s.log != nil {
			s.log.Warnf("contract %d: notify signer %d: %v", contractID, signerID, err)
		}
	}
	return nil
}

// Sign stamps the caller's signature, then flips the contract to signed
// through a conditional update that only succeeds when no unsigned rows
// remain at commit time. Signing twice is a no-op.
func (s *ContractService) Sign(ctx context.Context, contractID, signerID uint) error {
	if _, err := s.repo.GetSigner(ctx, contractID, signerID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("user %d is not a signer of contract %d: %w", signerID, contractID, apperrors.ErrForbidden)
		}
		return err
	}

	if err := s.repo.SetSigned(ctx, contractID, signerID, time.Now()); err != nil {
		return err
	}

	flipped, err := s.repo.FinalizeIfComplete(ctx, contractID, time.Now())
	if err != nil {
		return err
	}
	if flipped && s.log != nil {
		s.log.Infof("contract %d fully signed", contractID)
	}
	return nil
}

type ContractDetail struct {
	Contract contract.Contract
	Signers  []contract.Signer
}

// Get enforces visibility: creator, participant of the attached
// conversation, or listed signer.
func (s *ContractService) Get(ctx context.Context, contractID, requesterID uint) (ContractDetail, error) {
	c, err := s.repo.Get(ctx, contractID)
	if err != nil {
		return ContractDetail{}, err
	}
	if err := s.authorize(ctx, c, requesterID); err != nil {
		return ContractDetail{}, err
	}

	signers, err := s.repo.ListSigners(ctx, contractID)
	if err != nil {
		return ContractDetail{}, err
	}
	return ContractDetail{Contract: c, Signers: signers}, nil
}

func (s *ContractService) DownloadURL(ctx context.Context, contractID, requesterID uint) (string, error) {
	c, err := s.repo.Get(ctx, contractID)
	if err != nil {
		return "", err
	}
	if err := s.authorize(ctx, c, requesterID); err != nil {
		return "", err
	}
	if c.FileKey == "" {
		return "", fmt.Errorf("contract %d has no file: %w", contractID, apperrors.ErrInvalidInput)
	}

	url, err := s.store.PresignGet(ctx, c.FileKey)
	if err != nil {
		return "", fmt.Errorf("issue download authorization: %v: %w", err, apperrors.ErrDependencyFailure)
	}
	return url, nil
}

// ListByConversation serves a conversation member the contracts attached
// to their thread.
func (s *ContractService) ListByConversation(ctx context.Context, conversationID, requesterID uint) ([]ContractDetail, error) {
	member, err := s.convs.IsParticipant(ctx, conversationID, requesterID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("not in conversation %d: %w", conversationID, apperrors.ErrForbidden)
	}

	contracts, err := s.repo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	details := make([]ContractDetail, 0, len(contracts))
	for _, c := range contracts {
		signers, err := s.repo.ListSigners(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, ContractDetail{Contract: c, Signers: signers})
	}
	return details, nil
}

// PendingCount returns how many contracts still await the user's signature.
func (s *ContractService) PendingCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountPendingForUser(ctx, userID)
}

func (s *ContractService) authorize(ctx context.Context, c contract.Contract, requesterID uint) error {
	if c.CreatedBy == requesterID {
		return nil
	}
	if c.ConversationID != nil {
		member, err := s.convs.IsParticipant(ctx, *c.ConversationID, requesterID)
		if err != nil {
			return err
		}
		if member {
			return nil
		}
	}
	if _, err := s.repo.GetSigner(ctx, c.ID, requesterID); err == nil {
		return nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	return fmt.Errorf("contract %d: %w", c.ID, apperrors.ErrForbidden)
}
