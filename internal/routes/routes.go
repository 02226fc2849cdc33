package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/snapfeed/snapfeed-backend/internal/config"
	"github.com/snapfeed/snapfeed-backend/internal/handler"
	"github.com/snapfeed/snapfeed-backend/internal/middleware"
	"github.com/snapfeed/snapfeed-backend/pkg/jwt"
)

// Setup configures all API routes. redisClient may be nil; rate limits then
// fall back to in-process buckets.
func Setup(
	router *gin.Engine,
	reactionHandler *handler.ReactionHandler,
	photoHandler *handler.PhotoHandler,
	commentHandler *handler.CommentHandler,
	jwtManager *jwt.Manager,
	redisClient *redis.Client,
	cfg *config.Config,
) {
	required := middleware.JWTAuth(jwtManager)
	optional := middleware.OptionalAuth(jwtManager)

	api := router.Group("/api")
	api.GET("/csrf-token", middleware.GenerateCSRFToken(cfg.Server.CrossSiteCookies))

	// Reactions
	reactions := api.Group("", required, middleware.RateLimitPerUser(redisClient, cfg.RateLimit.ReactionsPerMinute))
	reactions.POST("/photos/:photo_id/reaction", reactionHandler.ReactToPhoto)
	reactions.POST("/comments/:comment_id/reaction", reactionHandler.ReactToComment)

	// Photos
	photos := router.Group("/photos")
	photos.GET("/recent", optional, photoHandler.Recent)
	photos.POST("/new", required, photoHandler.Create)
	photos.GET("/:id", optional, photoHandler.Detail)
	photos.PUT("/:id", required, photoHandler.UpdateDescription)
	photos.PUT("/:id/image", required, photoHandler.ReplaceImage)
	photos.DELETE("/:id", required, photoHandler.Delete)

	router.GET("/photosOfUser/:id", optional, photoHandler.OfUser)

	// Comments
	comments := router.Group("/commentsOfPhoto", required)
	comments.POST("/:photo_id", commentHandler.Add)
	comments.PUT("/:photo_id/:comment_id", commentHandler.Update)
	comments.DELETE("/:photo_id/:comment_id", commentHandler.Delete)
}
