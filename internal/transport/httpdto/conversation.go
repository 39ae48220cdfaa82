package httpdto

import (
	"time"

	"brokerdesk/internal/domain/conversation"
)

type CreateConversationRequest struct {
	ParticipantIDs []uint `json:"participant_ids" binding:"required"`
	Subject        string `json:"subject"`
	InitialMessage string `json:"initial_message"`
}

type PostMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

type ConversationSummaryResponse struct {
	ID          uint      `json:"id"`
	Subject     string    `json:"subject,omitempty"`
	CreatedBy   uint      `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	LastMessage string    `json:"last_message,omitempty"`
	UnreadCount int64     `json:"unread_count"`
}

type ParticipantResponse struct {
	UserID            uint   `json:"user_id"`
	Role              string `json:"role"`
	LastReadMessageID uint   `json:"last_read_message_id"`
}

type MessageResponse struct {
	ID            uint      `json:"id"`
	SenderID      uint      `json:"sender_id"`
	Body          string    `json:"body"`
	AttachmentKey string    `json:"attachment_key,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type ConversationDetailResponse struct {
	ID           uint                  `json:"id"`
	Subject      string                `json:"subject,omitempty"`
	CreatedBy    uint                  `json:"created_by"`
	CreatedAt    time.Time             `json:"created_at"`
	Participants []ParticipantResponse `json:"participants"`
	Messages     []MessageResponse     `json:"messages"`
}

type MarkReadResponse struct {
	LastReadMessageID uint `json:"last_read_message_id"`
}

func FromConversationSummary(s conversation.Summary) ConversationSummaryResponse {
	return ConversationSummaryResponse{
		ID:          s.Conversation.ID,
		Subject:     s.Conversation.Subject.String,
		CreatedBy:   s.Conversation.CreatedBy,
		CreatedAt:   s.Conversation.CreatedAt,
		LastMessage: s.LastMessage,
		UnreadCount: s.UnreadCount,
	}
}

func FromConversationDetail(d conversation.Detail) ConversationDetailResponse {
	resp := ConversationDetailResponse{
		ID:        d.Conversation.ID,
		Subject:   d.Conversation.Subject.String,
		CreatedBy: d.Conversation.CreatedBy,
		CreatedAt: d.Conversation.CreatedAt,
	}
	for _, p := range d.Participants {
		resp.Participants = append(resp.Participants, ParticipantResponse{
			UserID:            p.UserID,
			Role:              p.Role,
			LastReadMessageID: p.LastReadMessageID,
		})
	}
	for _, m := range d.Messages {
		resp.Messages = append(resp.Messages, MessageResponse{
			ID:            m.ID,
			SenderID:      m.SenderID,
			Body:          m.Body,
			AttachmentKey: m.AttachmentKey.String,
			CreatedAt:     m.CreatedAt,
		})
	}
	return resp
}
