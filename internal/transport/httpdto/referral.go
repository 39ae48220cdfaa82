package httpdto

import (
	"encoding/json"
	"time"

	"brokerdesk/internal/domain/referral"
)

type OfferReferralRequest struct {
	ToUserID   uint              `json:"to_user_id" binding:"required"`
	FeePercent float64           `json:"fee_percent"`
	Context    *referral.Context `json:"context"`
}

type OfferReferralResponse struct {
	ID             uint `json:"id"`
	ConversationID uint `json:"conversation_id"`
}

type ReferralResponse struct {
	ID             uint              `json:"id"`
	FromUser       uint              `json:"from_user"`
	ToUser         uint              `json:"to_user"`
	ConversationID uint              `json:"conversation_id"`
	FeePercent     float64           `json:"fee_percent"`
	Context        *referral.Context `json:"context,omitempty"`
	Status         string            `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func FromReferral(r referral.Referral) ReferralResponse {
	resp := ReferralResponse{
		ID:             r.ID,
		FromUser:       r.FromUser,
		ToUser:         r.ToUser,
		ConversationID: r.ConversationID,
		FeePercent:     r.FeePercent,
		Status:         r.Status,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if len(r.Context) > 0 {
		var c referral.Context
		if err := json.Unmarshal(r.Context, &c); err == nil {
			resp.Context = &c
		}
	}
	return resp
}
