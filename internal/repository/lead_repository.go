package repository

import (
	"context"

	"brokerdesk/internal/domain/lead"
	apperrors "brokerdesk/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormLeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &GormLeadRepository{db: db}
}

func (r *GormLeadRepository) CreatePosting(ctx context.Context, p *lead.Posting) error {
	return apperrors.FromDB(r.db.WithContext(ctx).Create(p).Error)
}

func (r *GormLeadRepository) CreateLead(ctx context.Context, l *lead.Lead) error {
	return apperrors.FromDB(r.db.WithContext(ctx).Create(l).Error)
}

func (r *GormLeadRepository) GetPosting(ctx context.Context, id uint) (lead.Posting, error) {
	var p lead.Posting
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		return lead.Posting{}, apperrors.FromDB(err)
	}
	return p, nil
}

func (r *GormLeadRepository) GetLeadByPosting(ctx context.Context, postingID uint) (lead.Lead, error) {
	var l lead.Lead
	err := r.db.WithContext(ctx).
		Where("source = ? AND related_id = ?", lead.SourceMarketplace, postingID).
		First(&l).Error
	if err != nil {
		return lead.Lead{}, apperrors.FromDB(err)
	}
	return l, nil
}

func (r *GormLeadRepository) ListOpenInAreas(ctx context.Context, areas []string, status string, limit int) ([]lead.PostingSummary, error) {
	if len(areas) == 0 {
		return nil, nil
	}

	var postings []lead.Posting
	err := r.db.WithContext(ctx).
		Where("area_code IN ? AND status = ?", areas, status).
		Order("created_at DESC").
		Limit(limit).
		Find(&postings).Error
	if err != nil {
		return nil, apperrors.FromDB(err)
	}

	summaries := make([]lead.PostingSummary, 0, len(postings))
	for _, p := range postings {
		l, err := r.GetLeadByPosting(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		count, err := r.CountMatches(ctx, l.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, lead.PostingSummary{
			Posting:    p,
			LeadID:     l.ID,
			MatchCount: count,
		})
	}
	return summaries, nil
}

// AddMatch is idempotent on (lead_id, agent_user): re-running fan-out must
// not duplicate match rows.
func (r *GormLeadRepository) AddMatch(ctx context.Context, m *lead.Match) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lead_id"}, {Name: "agent_user"}},
			DoNothing: true,
		}).
		Create(m).Error
	return apperrors.FromDB(err)
}

func (r *GormLeadRepository) CountMatches(ctx context.Context, leadID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&lead.Match{}).
		Where("lead_id = ?", leadID).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.FromDB(err)
	}
	return count, nil
}

// Claim is the first-writer-wins transition: the WHERE status = 'new' guard
// makes the row count the authoritative answer to "did this caller claim
// it", never a prior read. The winner's posting flip to engaged happens in
// the same transaction so a crash between the two writes cannot leave a
// claimed lead on an open posting.
func (r *GormLeadRepository) Claim(ctx context.Context, leadID, postingID, agentID uint) (bool, error) {
	won := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&lead.Lead{}).
			Where("id = ? AND status = ?", leadID, lead.LeadNew).
			Updates(map[string]interface{}{
				"status":        lead.LeadClaimed,
				"assignee_user": agentID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		won = true
		return tx.Model(&lead.Posting{}).
			Where("id = ? AND status = ?", postingID, lead.PostingOpen).
			Update("status", lead.PostingEngaged).Error
	})
	if err != nil {
		return false, apperrors.FromDB(err)
	}
	return won, nil
}
