package handler

import (
	"net/http"
	"strconv"

	"brokerdesk/internal/services"
	"brokerdesk/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type ContractHandler struct {
	service *services.ContractService
}

func NewContractHandler(service *services.ContractService) *ContractHandler {
	return &ContractHandler{service: service}
}

func (h *ContractHandler) Create(c *gin.Context) {
	var req httpdto.CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	res, err := h.service.Create(c.Request.Context(), userID, req.Title, req.Type)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.CreateContractResponse{
		ID:        res.ContractID,
		UploadURL: res.UploadURL,
		FileKey:   res.FileKey,
	}))
}

func (h *ContractHandler) Send(c *gin.Context) {
	var req httpdto.SendContractRequest
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
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid contract id", "INVALID_REQUEST"))
		return
	}

	if err := h.service.Send(c.Request.Context(), id, userID, req.ConversationID, req.SignerIDs); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"ok": true}))
}

func (h *ContractHandler) Sign(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid contract id", "INVALID_REQUEST"))
		return
	}

	if err := h.service.Sign(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"ok": true}))
}

func (h *ContractHandler) Get(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid contract id", "INVALID_REQUEST"))
		return
	}

	detail, err := h.service.Get(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromContract(detail.Contract, detail.Signers)))
}

func (h *ContractHandler) ListByConversation(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	convID, err := strconv.ParseUint(c.Query("conversation_id"), 10, 64)
	if err != nil || convID == 0 {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("conversation_id required", "INVALID_REQUEST"))
		return
	}

	details, err := h.service.ListByConversation(c.Request.Context(), uint(convID), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]httpdto.ContractResponse, 0, len(details))
	for _, d := range details {
		items = append(items, httpdto.FromContract(d.Contract, d.Signers))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(items))
}

func (h *ContractHandler) DownloadURL(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid contract id", "INVALID_REQUEST"))
		return
	}

	url, err := h.service.DownloadURL(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.DownloadURLResponse{URL: url}))
}

func (h *ContractHandler) PendingCount(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	count, err := h.service.PendingCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PendingCountResponse{Pending: count}))
}
