package httpdto

import (
	"encoding/json"
	"time"

	"brokerdesk/internal/domain/notification"
)

type NotificationResponse struct {
	ID          uint                  `json:"id"`
	Type        string                `json:"type"`
	Payload     *notification.Payload `json:"payload,omitempty"`
	Channel     string                `json:"channel"`
	DeliveredAt *time.Time            `json:"delivered_at,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

func FromNotification(n notification.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:          n.ID,
		Type:        n.Type,
		Channel:     n.Channel,
		DeliveredAt: n.DeliveredAt,
		CreatedAt:   n.CreatedAt,
	}
	if len(n.Payload) > 0 {
		var p notification.Payload
		if err := json.Unmarshal(n.Payload, &p); err == nil {
			resp.Payload = &p
		}
	}
	return resp
}
