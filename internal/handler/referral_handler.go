package handler

import (
	"context"
	"net/http"

	"brokerdesk/internal/services"
	"brokerdesk/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type ReferralHandler struct {
	service *services.ReferralService
}

func NewReferralHandler(service *services.ReferralService) *ReferralHandler {
	return &ReferralHandler{service: service}
}

func (h *ReferralHandler) Offer(c *gin.Context) {
	var req httpdto.OfferReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	id, err := h.service.Offer(c.Request.Context(), services.OfferReferralInput{
		FromID:     userID,
		ToID:       req.ToUserID,
		FeePercent: req.FeePercent,
		Context:    req.Context,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	ref, err := h.service.Get(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.OfferReferralResponse{
		ID:             id,
		ConversationID: ref.ConversationID,
	}))
}

func (h *ReferralHandler) Accept(c *gin.Context) {
	h.respond(c, h.service.Accept)
}

func (h *ReferralHandler) Decline(c *gin.Context) {
	h.respond(c, h.service.Decline)
}

func (h *ReferralHandler) Complete(c *gin.Context) {
	h.respond(c, h.service.Complete)
}

func (h *ReferralHandler) respond(c *gin.Context, action func(ctx context.Context, referralID, actorID uint) error) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid referral id", "INVALID_REQUEST"))
		return
	}

	if err := action(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"ok": true}))
}

func (h *ReferralHandler) ListMine(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	refs, err := h.service.ListMine(c.Request.Context(), userID, 0)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]httpdto.ReferralResponse, 0, len(refs))
	for _, r := range refs {
		items = append(items, httpdto.FromReferral(r))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(items))
}

func (h *ReferralHandler) Get(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid referral id", "INVALID_REQUEST"))
		return
	}

	ref, err := h.service.Get(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromReferral(ref)))
}

func (h *ReferralHandler) Counts(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	counts, err := h.service.Counts(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(counts))
}
