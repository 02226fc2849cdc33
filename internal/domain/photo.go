package domain

import (
	"time"
)

// User is the read-only projection of an account used to label photos and comments.
// Accounts are owned by the auth service.
type User struct {
	ID        uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"_id"`
	FirstName string `gorm:"column:first_name;type:varchar(100)" json:"first_name"`
	LastName  string `gorm:"column:last_name;type:varchar(100)" json:"last_name"`
	LoginName string `gorm:"column:login_name;type:varchar(100);uniqueIndex" json:"login_name,omitempty"`
	Role      string `gorm:"column:role;type:varchar(20);default:'user'" json:"-"`
}

func (User) TableName() string { return "users" }

// Photo is an uploaded image with its aggregate reaction counters
type Photo struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"_id"`
	UserID       uint64    `gorm:"column:user_id;index" json:"user_id"`
	ImageURL     string    `gorm:"column:image_url;type:varchar(500)" json:"imageUrl"`
	PublicID     string    `gorm:"column:public_id;type:varchar(255)" json:"publicId,omitempty"`
	Width        int       `gorm:"column:width" json:"width,omitempty"`
	Height       int       `gorm:"column:height" json:"height,omitempty"`
	Format       string    `gorm:"column:format;type:varchar(20)" json:"format,omitempty"`
	Bytes        int64     `gorm:"column:bytes" json:"bytes,omitempty"`
	Description  string    `gorm:"column:description;type:varchar(255)" json:"description"`
	DateTime     time.Time `gorm:"column:date_time;index:idx_photos_feed,priority:1" json:"date_time"`
	LikeCount    int64     `gorm:"column:like_count;not null;default:0" json:"likeCount"`
	DislikeCount int64     `gorm:"column:dislike_count;not null;default:0" json:"dislikeCount"`
	Author       *User     `gorm:"foreignKey:UserID" json:"-"`
	Comments     []Comment `gorm:"foreignKey:PhotoID" json:"-"`
}

func (Photo) TableName() string { return "photos" }

// Comment belongs to exactly one photo and carries its own counters
type Comment struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"_id"`
	PhotoID      uint64    `gorm:"column:photo_id;not null;index" json:"photo_id"`
	UserID       uint64    `gorm:"column:user_id;index" json:"user_id"`
	Comment      string    `gorm:"column:comment;type:text" json:"comment"`
	DateTime     time.Time `gorm:"column:date_time" json:"date_time"`
	LikeCount    int64     `gorm:"column:like_count;not null;default:0" json:"likeCount"`
	DislikeCount int64     `gorm:"column:dislike_count;not null;default:0" json:"dislikeCount"`
	Author       *User     `gorm:"foreignKey:UserID" json:"-"`
}

func (Comment) TableName() string { return "comments" }

// Actor is the authenticated caller of a mutating request
type Actor struct {
	UserID uint64
	Role   string
}

// IsOwnerOrAdmin reports whether the actor may modify a resource owned by ownerID
func (a Actor) IsOwnerOrAdmin(ownerID uint64) bool {
	if a.UserID == 0 {
		return false
	}
	return a.Role == "admin" || a.UserID == ownerID
}

// UserSummary is the author block attached to shaped photos and comments
type UserSummary struct {
	ID        uint64 `json:"_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	LoginName string `json:"login_name,omitempty"`
}

// CommentView is a comment shaped for clients
type CommentView struct {
	ID           uint64        `json:"_id"`
	Comment      string        `json:"comment"`
	DateTime     time.Time     `json:"date_time"`
	User         interface{}   `json:"user"`
	LikeCount    int64         `json:"likeCount"`
	DislikeCount int64         `json:"dislikeCount"`
	MyReaction   ReactionValue `json:"myReaction"`
}

// PhotoView is a photo shaped for clients with the viewer's reaction attached
type PhotoView struct {
	ID                uint64        `json:"_id"`
	ImageURL          string        `json:"imageUrl"`
	ImageURLOptimized string        `json:"imageUrlOptimized,omitempty"`
	PublicID          string        `json:"publicId,omitempty"`
	Width             int           `json:"width,omitempty"`
	Height            int           `json:"height,omitempty"`
	Format            string        `json:"format,omitempty"`
	Bytes             int64         `json:"bytes,omitempty"`
	Description       string        `json:"description"`
	DateTime          time.Time     `json:"date_time"`
	UserID            interface{}   `json:"user_id"`
	LikeCount         int64         `json:"likeCount"`
	DislikeCount      int64         `json:"dislikeCount"`
	MyReaction        ReactionValue `json:"myReaction"`
	Comments          []CommentView `json:"comments"`
}

// FeedPage is one page of the recent-photos feed
type FeedPage struct {
	Items      []PhotoView `json:"items"`
	NextCursor *string     `json:"nextCursor"`
	HasMore    bool        `json:"hasMore"`
}
