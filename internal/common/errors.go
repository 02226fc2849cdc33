package common

import (
	"errors"

	"github.com/snapfeed/snapfeed-backend/internal/domain"
)

// Business logic errors
var (
	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Not found errors
	ErrPhotoNotFound   = errors.New("photo not found")
	ErrCommentNotFound = errors.New("comment not found")

	// Validation errors
	ErrInvalidID            = errors.New("invalid id")
	ErrInvalidTargetType    = errors.New("invalid target type")
	ErrInvalidReactionValue = domain.ErrInvalidReactionValue
	ErrInvalidCursor        = domain.ErrInvalidCursor
	ErrEmptyComment         = errors.New("empty comment")
	ErrDescriptionTooLong   = errors.New("description too long")
	ErrInvalidUpload        = errors.New("invalid upload")
)

// IsBadRequest reports whether err is a client input error
func IsBadRequest(err error) bool {
	for _, target := range []error{
		ErrInvalidID,
		ErrInvalidTargetType,
		ErrInvalidReactionValue,
		ErrInvalidCursor,
		ErrEmptyComment,
		ErrDescriptionTooLong,
		ErrInvalidUpload,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err means the addressed resource does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPhotoNotFound) || errors.Is(err, ErrCommentNotFound)
}
