package handler

import (
	"net/http"
	"strconv"

	"brokerdesk/internal/services"
	"brokerdesk/internal/transport/httpdto"
	apperrors "brokerdesk/pkg/errors"
	"brokerdesk/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ConversationHandler struct {
	service *services.ConversationService
}

func NewConversationHandler(service *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

func (h *ConversationHandler) Create(c *gin.Context) {
	var req httpdto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	id, err := h.service.Create(c.Request.Context(), services.CreateConversationInput{
		CreatorID:      userID,
		ParticipantIDs: req.ParticipantIDs,
		Subject:        req.Subject,
		InitialBody:    req.InitialMessage,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"id": id}))
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	summaries, err := h.service.ListForUser(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]httpdto.ConversationSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, httpdto.FromConversationSummary(s))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(items))
}

func (h *ConversationHandler) Get(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}

	detail, err := h.service.Get(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromConversationDetail(detail)))
}

func (h *ConversationHandler) MarkRead(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}

	lastID, err := h.service.MarkRead(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.MarkReadResponse{LastReadMessageID: lastID}))
}

func (h *ConversationHandler) PostMessage(c *gin.Context) {
	var req httpdto.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}

	msgID, err := h.service.PostMessage(c.Request.Context(), id, userID, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"id": msgID}))
}

// respondError maps a service error onto the wire. Server-side failures are
// logged in full but clients only ever see the taxonomy message, never
// driver or SDK text.
func respondError(c *gin.Context, err error) {
	status, code := httpdto.StatusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		if l := logger.GetGlobalLogger(); l != nil {
			l.WithContext(c.Request.Context()).Error("request failed", zap.Error(err))
		}
		msg = "internal error"
		if status == http.StatusBadGateway {
			msg = apperrors.ErrDependencyFailure.Error()
		}
	}
	c.JSON(status, httpdto.NewErrorResponse(msg, code))
}

func parseID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
