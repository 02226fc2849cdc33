package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	pkglogger "github.com/snapfeed/snapfeed-backend/pkg/logger"
)

// CloudinaryConfig holds Cloudinary credentials
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// CloudinaryClient stores images on Cloudinary
type CloudinaryClient struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryClient creates a new Cloudinary client
func NewCloudinaryClient(cfg CloudinaryConfig) (*CloudinaryClient, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary configuration is missing")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	pkglogger.GetLogger().Info().
		Str("cloud", cfg.CloudName).
		Str("folder", cfg.Folder).
		Msg("Cloudinary storage client initialized")

	return &CloudinaryClient{cld: cld, folder: cfg.Folder}, nil
}

// Upload sends the image to Cloudinary; the key without extension becomes the public id
func (c *CloudinaryClient) Upload(ctx context.Context, key string, body io.Reader, contentType string, size int64) (*UploadResult, error) {
	overwrite := false
	res, err := c.cld.Upload.Upload(ctx, body, uploader.UploadParams{
		PublicID:     strings.TrimSuffix(key, path.Ext(key)),
		Folder:       c.folder,
		Overwrite:    &overwrite,
		ResourceType: "image",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload rejected: %s", res.Error.Message)
	}

	return &UploadResult{
		PublicID:    res.PublicID,
		URL:         res.SecureURL,
		ContentType: contentType,
		Width:       res.Width,
		Height:      res.Height,
		Format:      res.Format,
		Size:        int64(res.Bytes),
	}, nil
}

// Delete destroys an image by its public id
func (c *CloudinaryClient) Delete(ctx context.Context, publicID string) error {
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy rejected: %s", res.Error.Message)
	}
	return nil
}
