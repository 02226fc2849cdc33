package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/snapfeed/snapfeed-backend/internal/common"
	"github.com/snapfeed/snapfeed-backend/internal/middleware"
	"github.com/snapfeed/snapfeed-backend/internal/service"
	"github.com/snapfeed/snapfeed-backend/pkg/ginutil"
)

// CommentRequest is the body of a comment create or edit
type CommentRequest struct {
	Comment string `json:"comment" form:"comment"`
}

// CommentHandler handles comments on photos. Every write answers with the
// refreshed photo so clients can re-render the thread.
type CommentHandler struct {
	photos service.PhotoService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(photos service.PhotoService) *CommentHandler {
	return &CommentHandler{photos: photos}
}

func commentParams(c *gin.Context, withComment bool) (photoID, commentID uint64, ok bool) {
	photoID, err := ginutil.ParamID(c, "photo_id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid photo id", nil)
		return 0, 0, false
	}
	if !withComment {
		return photoID, 0, true
	}
	commentID, err = ginutil.ParamID(c, "comment_id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid comment id", nil)
		return 0, 0, false
	}
	return photoID, commentID, true
}

// Add handles POST /commentsOfPhoto/:photo_id
// @Summary Comment on a photo
// @Tags comments
// @Accept json
// @Produce json
// @Param photo_id path int true "Photo ID"
// @Param request body CommentRequest true "Comment"
// @Success 200 {object} common.APIResponse{data=domain.PhotoView}
// @Failure 400 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Security BearerAuth
// @Router /commentsOfPhoto/{photo_id} [post]
func (h *CommentHandler) Add(c *gin.Context) {
	photoID, _, ok := commentParams(c, false)
	if !ok {
		return
	}

	var req CommentRequest
	if err := c.ShouldBind(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := h.photos.AddComment(c.Request.Context(), middleware.GetActor(c), photoID, req.Comment)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.APIResponse{Data: view})
}

// Update handles PUT /commentsOfPhoto/:photo_id/:comment_id
// @Summary Edit a comment
// @Tags comments
// @Accept json
// @Produce json
// @Param photo_id path int true "Photo ID"
// @Param comment_id path int true "Comment ID"
// @Param request body CommentRequest true "Comment"
// @Success 200 {object} common.APIResponse{data=domain.PhotoView}
// @Failure 403 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Security BearerAuth
// @Router /commentsOfPhoto/{photo_id}/{comment_id} [put]
func (h *CommentHandler) Update(c *gin.Context) {
	photoID, commentID, ok := commentParams(c, true)
	if !ok {
		return
	}

	var req CommentRequest
	if err := c.ShouldBind(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := h.photos.UpdateComment(c.Request.Context(), middleware.GetActor(c), photoID, commentID, req.Comment)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.APIResponse{Data: view})
}

// Delete handles DELETE /commentsOfPhoto/:photo_id/:comment_id
// @Summary Delete a comment
// @Tags comments
// @Produce json
// @Param photo_id path int true "Photo ID"
// @Param comment_id path int true "Comment ID"
// @Success 200 {object} common.APIResponse{data=domain.PhotoView}
// @Failure 403 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Security BearerAuth
// @Router /commentsOfPhoto/{photo_id}/{comment_id} [delete]
func (h *CommentHandler) Delete(c *gin.Context) {
	photoID, commentID, ok := commentParams(c, true)
	if !ok {
		return
	}

	view, err := h.photos.DeleteComment(c.Request.Context(), middleware.GetActor(c), photoID, commentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.APIResponse{Data: view})
}
