package handler

import (
	"net/http"

	"brokerdesk/internal/services"
	"brokerdesk/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type LeadHandler struct {
	service *services.LeadService
}

func NewLeadHandler(service *services.LeadService) *LeadHandler {
	return &LeadHandler{service: service}
}

func (h *LeadHandler) PostLead(c *gin.Context) {
	var req httpdto.PostLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	res, err := h.service.PostLead(c.Request.Context(), services.PostLeadInput{
		OwnerID:  userID,
		Title:    req.Title,
		AreaCode: req.AreaCode,
		Details:  req.Details,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PostLeadResponse{
		ID:            res.PostingID,
		LeadID:        res.LeadID,
		MatchedAgents: res.MatchedCount,
	}))
}

func (h *LeadHandler) ListOpen(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	summaries, err := h.service.ListOpen(c.Request.Context(), userID, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]httpdto.PostingResponse, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, httpdto.FromPostingSummary(s))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(items))
}

func (h *LeadHandler) Claim(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid posting id", "INVALID_REQUEST"))
		return
	}

	res, err := h.service.Claim(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ClaimResponse{
		ConversationID: res.ConversationID,
		Claimed:        res.Claimed,
	}))
}
