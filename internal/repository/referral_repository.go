package repository

import (
	"context"
	"time"

	"brokerdesk/internal/domain/referral"
	apperrors "brokerdesk/pkg/errors"

	"gorm.io/gorm"
)

type GormReferralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) ReferralRepository {
	return &GormReferralRepository{db: db}
}

func (r *GormReferralRepository) Create(ctx context.Context, ref *referral.Referral) error {
	return apperrors.FromDB(r.db.WithContext(ctx).Create(ref).Error)
}

func (r *GormReferralRepository) Get(ctx context.Context, id uint) (referral.Referral, error) {
	var ref referral.Referral
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&ref).Error
	if err != nil {
		return referral.Referral{}, apperrors.FromDB(err)
	}
	return ref, nil
}

// Transition guards the status change on the expected current status; the
// row count tells the caller whether the transition actually happened.
func (r *GormReferralRepository) Transition(ctx context.Context, id uint, from, to string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&referral.Referral{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, apperrors.FromDB(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *GormReferralRepository) ListForUser(ctx context.Context, userID uint, limit int) ([]referral.Referral, error) {
	var refs []referral.Referral
	err := r.db.WithContext(ctx).
		Where("from_user = ? OR to_user = ?", userID, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&refs).Error
	if err != nil {
		return nil, apperrors.FromDB(err)
	}
	return refs, nil
}

func (r *GormReferralRepository) Counts(ctx context.Context, userID uint) (referral.Counts, error) {
	var counts referral.Counts
	err := r.db.WithContext(ctx).
		Model(&referral.Referral{}).
		Where("to_user = ? AND status = ?", userID, referral.StatusOffered).
		Count(&counts.OfferedToMe).Error
	if err != nil {
		return referral.Counts{}, apperrors.FromDB(err)
	}
	err = r.db.WithContext(ctx).
		Model(&referral.Referral{}).
		Where("(from_user = ? OR to_user = ?) AND status = ?", userID, userID, referral.StatusAccepted).
		Count(&counts.AcceptedActive).Error
	if err != nil {
		return referral.Counts{}, apperrors.FromDB(err)
	}
	return counts, nil
}
