package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// UploadTimeout bounds a single Cloudinary upload.
const UploadTimeout = 30 * time.Second

// ImageUploader turns an inline base64 data URI into a durable URL.
type ImageUploader interface {
	UploadDataURI(ctx context.Context, dataURI string) (string, error)
}

// IsDataURI reports whether the value is inline base64 image data rather
// than an already-hosted URL.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:image/")
}

type cloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryUploader returns an ImageUploader backed by Cloudinary.
func NewCloudinaryUploader(cloudName, apiKey, apiSecret string) (ImageUploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &cloudinaryUploader{cld: cld}, nil
}

func (u *cloudinaryUploader) UploadDataURI(ctx context.Context, dataURI string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, UploadTimeout)
	defer cancel()

	// The uploader accepts a data URI directly as the file parameter.
	res, err := u.cld.Upload.Upload(ctx, dataURI, uploader.UploadParams{
		Folder:   "profiles",
		PublicID: uuid.New().String(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	return res.SecureURL, nil
}
