package httpdto

import (
	"time"

	"brokerdesk/internal/domain/contract"
)

type CreateContractRequest struct {
	Title string `json:"title" binding:"required"`
	Type  string `json:"type"`
}

type CreateContractResponse struct {
	ID        uint   `json:"id"`
	UploadURL string `json:"upload_url"`
	FileKey   string `json:"file_key"`
}

type SendContractRequest struct {
	ConversationID uint   `json:"conversation_id" binding:"required"`
	SignerIDs      []uint `json:"signer_ids"`
}

type SignerResponse struct {
	UserID   uint       `json:"user_id"`
	SignedAt *time.Time `json:"signed_at,omitempty"`
}

type ContractResponse struct {
	ID             uint             `json:"id"`
	CreatedBy      uint             `json:"created_by"`
	Title          string           `json:"title"`
	Type           string           `json:"type"`
	ConversationID *uint            `json:"conversation_id,omitempty"`
	Status         string           `json:"status"`
	SentAt         *time.Time       `json:"sent_at,omitempty"`
	SignedAt       *time.Time       `json:"signed_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	Signers        []SignerResponse `json:"signers"`
}

type DownloadURLResponse struct {
	URL string `json:"url"`
}

type PendingCountResponse struct {
	Pending int64 `json:"pending"`
}

func FromContract(c contract.Contract, signers []contract.Signer) ContractResponse {
	resp := ContractResponse{
		ID:             c.ID,
		CreatedBy:      c.CreatedBy,
		Title:          c.Title,
		Type:           c.Type,
		ConversationID: c.ConversationID,
		Status:         c.Status,
		SentAt:         c.SentAt,
		SignedAt:       c.SignedAt,
		CreatedAt:      c.CreatedAt,
	}
	for _, s := range signers {
		resp.Signers = append(resp.Signers, SignerResponse{
			UserID:   s.UserID,
			SignedAt: s.SignedAt,
		})
	}
	return resp
}
