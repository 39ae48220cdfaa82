package repository

import (
	"context"
	"errors"

	"brokerdesk/internal/domain/conversation"
	apperrors "brokerdesk/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &GormConversationRepository{db: db}
}

func (r *GormConversationRepository) Create(ctx context.Context, c *conversation.Conversation) error {
	return apperrors.FromDB(r.db.WithContext(ctx).Create(c).Error)
}

func (r *GormConversationRepository) Get(ctx context.Context, id uint) (conversation.Conversation, error) {
	var c conversation.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return conversation.Conversation{}, apperrors.FromDB(err)
	}
	return c, nil
}

func (r *GormConversationRepository) AddParticipant(ctx context.Context, p *conversation.Participant) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(p).Error
	return apperrors.FromDB(err)
}

func (r *GormConversationRepository) GetParticipants(ctx context.Context, conversationID uint) ([]conversation.Participant, error) {
	var participants []conversation.Participant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Find(&participants).Error
	if err != nil {
		return nil, apperrors.FromDB(err)
	}
	return participants, nil
}

func (r *GormConversationRepository) IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&conversation.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, apperrors.FromDB(err)
	}
	return count > 0, nil
}

func (r *GormConversationRepository) ListForUser(ctx context.Context, userID uint, limit int) ([]conversation.Summary, error) {
	var convs []conversation.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id AND cp.user_id = ?", userID).
		Order("conversations.created_at DESC").
		Limit(limit).
		Find(&convs).Error
	if err != nil {
		return nil, apperrors.FromDB(err)
	}

	summaries := make([]conversation.Summary, 0, len(convs))
	for _, c := range convs {
		var p conversation.Participant
		if err := r.db.WithContext(ctx).
			Where("conversation_id = ? AND user_id = ?", c.ID, userID).
			First(&p).Error; err != nil {
			return nil, apperrors.FromDB(err)
		}

		var last conversation.Message
		lastBody := ""
		err := r.db.WithContext(ctx).
			Where("conversation_id = ?", c.ID).
			Order("id DESC").
			First(&last).Error
		if err == nil {
			lastBody = last.Body
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.FromDB(err)
		}

		var unread int64
		if err := r.db.WithContext(ctx).
			Model(&conversation.Message{}).
			Where("conversation_id = ? AND id > ? AND sender_id <> ?", c.ID, p.LastReadMessageID, userID).
			Count(&unread).Error; err != nil {
			return nil, apperrors.FromDB(err)
		}

		summaries = append(summaries, conversation.Summary{
			Conversation: c,
			LastMessage:  lastBody,
			UnreadCount:  unread,
		})
	}
	return summaries, nil
}

func (r *GormConversationRepository) CreateMessage(ctx context.Context, m *conversation.Message) error {
	return apperrors.FromDB(r.db.WithContext(ctx).Create(m).Error)
}

// Messages returns the thread in id order. A limit of zero or below means
// the whole thread.
func (r *GormConversationRepository) Messages(ctx context.Context, conversationID uint, limit int) ([]conversation.Message, error) {
	q := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var messages []conversation.Message
	err := q.Find(&messages).Error
	if err != nil {
		return nil, apperrors.FromDB(err)
	}
	return messages, nil
}

func (r *GormConversationRepository) MaxMessageID(ctx context.Context, conversationID uint) (uint, error) {
	var maxID uint
	err := r.db.WithContext(ctx).
		Model(&conversation.Message{}).
		Where("conversation_id = ?", conversationID).
		Select("COALESCE(MAX(id), 0)").
		Scan(&maxID).Error
	if err != nil {
		return 0, apperrors.FromDB(err)
	}
	return maxID, nil
}

func (r *GormConversationRepository) SetLastRead(ctx context.Context, conversationID, userID, messageID uint) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("last_read_message_id", messageID)
	if res.Error != nil {
		return apperrors.FromDB(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *GormConversationRepository) FindLink(ctx context.Context, purpose string, refID uint, partyKey string) (uint, error) {
	var l conversation.Link
	err := r.db.WithContext(ctx).
		Where("purpose = ? AND ref_id = ? AND party_key = ?", purpose, refID, partyKey).
		First(&l).Error
	if err != nil {
		return 0, apperrors.FromDB(err)
	}
	return l.ConversationID, nil
}

func (r *GormConversationRepository) CreateLink(ctx context.Context, l *conversation.Link) error {
	return apperrors.FromDB(r.db.WithContext(ctx).Create(l).Error)
}
