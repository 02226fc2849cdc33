package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/snapfeed/snapfeed-backend/internal/common"
	"github.com/snapfeed/snapfeed-backend/internal/middleware"
	"github.com/snapfeed/snapfeed-backend/internal/service"
	"github.com/snapfeed/snapfeed-backend/pkg/ginutil"
)

const uploadField = "photo"

// DescriptionRequest is the body of a caption update
type DescriptionRequest struct {
	Description string `json:"description" form:"description"`
}

// PhotoHandler handles photo feed and photo CRUD requests
type PhotoHandler struct {
	feed   service.FeedService
	photos service.PhotoService
}

// NewPhotoHandler creates a new PhotoHandler
func NewPhotoHandler(feed service.FeedService, photos service.PhotoService) *PhotoHandler {
	return &PhotoHandler{feed: feed, photos: photos}
}

// Recent handles GET /photos/recent
// @Summary Recent photos feed
// @Tags photos
// @Produce json
// @Param limit query int false "Page size (default 12, max 30)"
// @Param cursor query string false "Cursor from the previous page"
// @Success 200 {object} common.APIResponse{data=domain.FeedPage}
// @Failure 400 {object} common.APIResponse
// @Router /photos/recent [get]
func (h *PhotoHandler) Recent(c *gin.Context) {
	page, err := h.feed.RecentPhotos(c.Request.Context(), middleware.GetUserID(c), c.Query("limit"), c.Query("cursor"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.APIResponse{Data: page})
}

// Detail handles GET /photos/:id
// @Summary Photo with comments
// @Tags photos
// @Produce json
// @Param id path int true "Photo ID"
// @Success 200 {object} common.APIResponse{data=domain.PhotoView}
// @Failure 404 {object} common.APIResponse
// @Router /photos/{id} [get]
func (h *PhotoHandler) Detail(c *gin.Context) {
	photoID, err := ginutil.ParamID(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid photo id", nil)
		return
	}

	view, err := h.feed.PhotoDetail(c.Request.Context(), middleware.GetUserID(c), photoID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.APIResponse{Data: view})
}

// OfUser handles GET /photosOfUser/:id
// @Summary Photos posted by a user
// @Tags photos
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} common.APIResponse{data=[]domain.PhotoView}
// @Router /photosOfUser/{id} [get]
func (h *PhotoHandler) OfUser(c *gin.Context) {
	userID, err := ginutil.ParamID(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid user id", nil)
		return
	}

	views, err := h.feed.PhotosOfUser(c.Request.Context(), middleware.GetUserID(c), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.APIResponse{Data: views})
}

// readUpload opens the multipart image; the caller closes it
func readUpload(c *gin.Context) (*service.ImageUpload, func(), error) {
	fh, err := c.FormFile(uploadField)
	if err != nil {
		return nil, nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &service.ImageUpload{
		Body:        f,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	}, func() { _ = f.Close() }, nil
}

// Create handles POST /photos/new
// @Summary Upload a photo
// @Tags photos
// @Accept multipart/form-data
// @Produce json
// @Param photo formData file true "Image file"
// @Param description formData string false "Caption (max 200 characters)"
// @Success 201 {object} common.APIResponse{data=domain.PhotoView}
// @Failure 400 {object} common.APIResponse
// @Failure 401 {object} common.APIResponse
// @Security BearerAuth
// @Router /photos/new [post]
func (h *PhotoHandler) Create(c *gin.Context) {
	upload, closeFn, err := readUpload(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "No file uploaded", err)
		return
	}
	defer closeFn()

	view, err := h.photos.CreatePhoto(c.Request.Context(), middleware.GetActor(c), upload, c.PostForm("description"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, common.APIResponse{Data: view})
}

// UpdateDescription handles PUT /photos/:id
// @Summary Update a photo caption
// @Tags photos
// @Accept json
// @Produce json
// @Param id path int true "Photo ID"
// @Param request body DescriptionRequest true "Caption"
// @Success 200 {object} common.APIResponse{data=domain.PhotoView}
// @Failure 403 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Security BearerAuth
// @Router /photos/{id} [put]
func (h *PhotoHandler) UpdateDescription(c *gin.Context) {
	photoID, err := ginutil.ParamID(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid photo id", nil)
		return
	}

	var req DescriptionRequest
	if err := c.ShouldBind(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := h.photos.UpdateDescription(c.Request.Context(), middleware.GetActor(c), photoID, req.Description)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.APIResponse{Data: view})
}

// ReplaceImage handles PUT /photos/:id/image
// @Summary Replace a photo's image
// @Tags photos
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Photo ID"
// @Param photo formData file true "Image file"
// @Success 200 {object} common.APIResponse{data=domain.PhotoView}
// @Failure 403 {object} common.APIResponse
// @Security BearerAuth
// @Router /photos/{id}/image [put]
func (h *PhotoHandler) ReplaceImage(c *gin.Context) {
	photoID, err := ginutil.ParamID(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid photo id", nil)
		return
	}

	upload, closeFn, err := readUpload(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "No file uploaded", err)
		return
	}
	defer closeFn()

	view, err := h.photos.ReplaceImage(c.Request.Context(), middleware.GetActor(c), photoID, upload)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.APIResponse{Data: view})
}

// Delete handles DELETE /photos/:id
// @Summary Delete a photo with its comments and reactions
// @Tags photos
// @Produce json
// @Param id path int true "Photo ID"
// @Success 200 {object} common.APIResponse
// @Failure 403 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Security BearerAuth
// @Router /photos/{id} [delete]
func (h *PhotoHandler) Delete(c *gin.Context) {
	photoID, err := ginutil.ParamID(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid photo id", nil)
		return
	}

	if err := h.photos.DeletePhoto(c.Request.Context(), middleware.GetActor(c), photoID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.APIResponse{Data: gin.H{"success": true}})
}
