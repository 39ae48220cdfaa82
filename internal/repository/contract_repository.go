package repository

import (
	"context"
	"fmt"
	"time"

	"brokerdesk/internal/domain/contract"
	apperrors "brokerdesk/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) ContractRepository {
	return &GormContractRepository{db: db}
}

func (r *GormContractRepository) Create(ctx context.Context, c *contract.Contract) error {
	return apperrors.FromDB(r.db.WithContext(ctx).Create(c).Error)
}

func (r *GormContractRepository) Get(ctx context.Context, id uint) (contract.Contract, error) {
	var c contract.Contract
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		return contract.Contract{}, apperrors.FromDB(err)
	}
	return c, nil
}

// MarkSent refuses to touch a signed contract: signed is terminal, and a
// re-send may only happen while the contract is draft or sent.
func (r *GormContractRepository) MarkSent(ctx context.Context, id, conversationID uint, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&contract.Contract{}).
		Where("id = ? AND status <> ?", id, contract.StatusSigned).
		Updates(map[string]interface{}{
			"conversation_id": conversationID,
			"status":          contract.StatusSent,
			"sent_at":         at,
		})
	if res.Error != nil {
		return apperrors.FromDB(res.Error)
	}
	if res.RowsAffected == 0 {
		// Existence is checked by the caller, so zero rows means the
		// contract reached signed in the meantime.
		return fmt.Errorf("contract %d is already signed: %w", id, apperrors.ErrConflict)
	}
	return nil
}

func (r *GormContractRepository) ListByConversation(ctx context.Context, conversationID uint) ([]contract.Contract, error) {
	var contracts []contract.Contract
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Find(&contracts).Error
	if err != nil {
		return nil, apperrors.FromDB(err)
	}
	return contracts, nil
}

// AddSigner is insert-if-absent: re-sending a contract with an overlapping
// signer set must not reset an existing signature.
func (r *GormContractRepository) AddSigner(ctx context.Context, s *contract.Signer) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "contract_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(s).Error
	return apperrors.FromDB(err)
}

func (r *GormContractRepository) GetSigner(ctx context.Context, contractID, userID uint) (contract.Signer, error) {
	var s contract.Signer
	err := r.db.WithContext(ctx).
		Where("contract_id = ? AND user_id = ?", contractID, userID).
		First(&s).Error
	if err != nil {
		return contract.Signer{}, apperrors.FromDB(err)
	}
	return s, nil
}

func (r *GormContractRepository) ListSigners(ctx context.Context, contractID uint) ([]contract.Signer, error) {
	var signers []contract.Signer
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Find(&signers).Error
	if err != nil {
		return nil, apperrors.FromDB(err)
	}
	return signers, nil
}

func (r *GormContractRepository) SetSigned(ctx context.Context, contractID, userID uint, at time.Time) error {
	// signed_at IS NULL keeps a second sign a no-op.
	err := r.db.WithContext(ctx).
		Model(&contract.Signer{}).
		Where("contract_id = ? AND user_id = ? AND signed_at IS NULL", contractID, userID).
		Update("signed_at", at).Error
	return apperrors.FromDB(err)
}

// FinalizeIfComplete re-evaluates the unsigned-count predicate inside the
// update itself, so concurrent signers cannot both observe a stale count.
func (r *GormContractRepository) FinalizeIfComplete(ctx context.Context, contractID uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE contracts SET status = ?, signed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?
		   AND NOT EXISTS (
		     SELECT 1 FROM contract_signers
		     WHERE contract_id = ? AND signed_at IS NULL
		   )`,
		contract.StatusSigned, at, at, contractID, contract.StatusSent, contractID,
	)
	if res.Error != nil {
		return false, apperrors.FromDB(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *GormContractRepository) CountPendingForUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&contract.Signer{}).
		Joins("JOIN contracts c ON c.id = contract_signers.contract_id AND c.status = ?", contract.StatusSent).
		Where("contract_signers.user_id = ? AND contract_signers.signed_at IS NULL", userID).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.FromDB(err)
	}
	return count, nil
}
