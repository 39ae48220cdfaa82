package httpdto

import (
	"encoding/json"
	"time"

	"brokerdesk/internal/domain/lead"
)

type PostLeadRequest struct {
	Title    string        `json:"title" binding:"required"`
	AreaCode string        `json:"area_code" binding:"required"`
	Details  *lead.Details `json:"details"`
}

type PostLeadResponse struct {
	ID            uint `json:"id"`
	LeadID        uint `json:"lead_id"`
	MatchedAgents int  `json:"matched_agents"`
}

type PostingResponse struct {
	ID               uint          `json:"id"`
	OwnerUser        uint          `json:"owner_user"`
	Title            string        `json:"title"`
	AreaCode         string        `json:"area_code"`
	Details          *lead.Details `json:"details,omitempty"`
	Status           string        `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	LeadID           uint          `json:"lead_id"`
	InterestedAgents int64         `json:"interested_agents"`
}

type ClaimResponse struct {
	ConversationID uint `json:"conversation_id"`
	Claimed        bool `json:"claimed"`
}

func FromPostingSummary(s lead.PostingSummary) PostingResponse {
	resp := PostingResponse{
		ID:               s.Posting.ID,
		OwnerUser:        s.Posting.OwnerUser,
		Title:            s.Posting.Title,
		AreaCode:         s.Posting.AreaCode,
		Status:           s.Posting.Status,
		CreatedAt:        s.Posting.CreatedAt,
		LeadID:           s.LeadID,
		InterestedAgents: s.MatchCount,
	}
	if len(s.Posting.Details) > 0 {
		var d lead.Details
		if err := json.Unmarshal(s.Posting.Details, &d); err == nil {
			resp.Details = &d
		}
	}
	return resp
}
