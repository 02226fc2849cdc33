package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/snapfeed/snapfeed-backend/internal/common"
	"github.com/snapfeed/snapfeed-backend/internal/domain"
	"github.com/snapfeed/snapfeed-backend/internal/middleware"
	"github.com/snapfeed/snapfeed-backend/internal/service"
	"github.com/snapfeed/snapfeed-backend/pkg/ginutil"
)

// ReactionRequest is the body of a reaction request. Value is -1, 0 or 1;
// numeric strings are accepted.
type ReactionRequest struct {
	Value interface{} `json:"value" swaggertype:"integer" enums:"-1,0,1"`
}

// ReactionHandler handles like/dislike requests
type ReactionHandler struct {
	service service.ReactionService
}

// NewReactionHandler creates a new ReactionHandler
func NewReactionHandler(service service.ReactionService) *ReactionHandler {
	return &ReactionHandler{service: service}
}

// ReactToPhoto handles POST /api/photos/:photo_id/reaction
// @Summary React to a photo
// @Description Like (1), dislike (-1) or clear (0) the caller's vote. Repeating the current vote clears it.
// @Tags reactions
// @Accept json
// @Produce json
// @Param photo_id path int true "Photo ID"
// @Param request body ReactionRequest true "Reaction"
// @Success 200 {object} common.APIResponse{data=domain.ReactionResult}
// @Failure 400 {object} common.APIResponse
// @Failure 401 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Security BearerAuth
// @Router /api/photos/{photo_id}/reaction [post]
func (h *ReactionHandler) ReactToPhoto(c *gin.Context) {
	h.react(c, domain.TargetPhoto, "photo_id", "Invalid photo id")
}

// ReactToComment handles POST /api/comments/:comment_id/reaction
// @Summary React to a comment
// @Tags reactions
// @Accept json
// @Produce json
// @Param comment_id path int true "Comment ID"
// @Param request body ReactionRequest true "Reaction"
// @Success 200 {object} common.APIResponse{data=domain.ReactionResult}
// @Failure 400 {object} common.APIResponse
// @Failure 401 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Security BearerAuth
// @Router /api/comments/{comment_id}/reaction [post]
func (h *ReactionHandler) ReactToComment(c *gin.Context) {
	h.react(c, domain.TargetComment, "comment_id", "Invalid comment id")
}

func (h *ReactionHandler) react(c *gin.Context, targetType domain.TargetType, param, invalidIDMessage string) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		common.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	targetID, err := ginutil.ParamID(c, param)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, invalidIDMessage, nil)
		return
	}

	var req ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid value", err)
		return
	}
	value, err := domain.ParseReactionValue(req.Value)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid value", err)
		return
	}

	result, err := h.service.ApplyReaction(c.Request.Context(), userID, targetType, targetID, value)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Data: result})
}
