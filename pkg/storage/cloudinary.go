package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// BlobStorage defines the contract for uploading snapshot artifacts to an
// off-site location (Cloudinary implementation, raw assets).
type BlobStorage interface {
	// UploadBlob uploads a named blob and returns its secure URL.
	UploadBlob(ctx context.Context, name string, blob []byte) (string, error)
}

type cloudinaryStorage struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStorage creates a Cloudinary-backed implementation of
// BlobStorage. It expects CLOUDINARY_URL or the individual
// CLOUDINARY_CLOUD_NAME / CLOUDINARY_API_KEY / CLOUDINARY_API_SECRET
// environment variables (see Cloudinary Go SDK docs).
func NewCloudinaryStorage(folder string) (BlobStorage, error) {
	// cloudinary.New() automatically reads CLOUDINARY_URL from environment if present.
	cld, err := cloudinary.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}

	// Ensure HTTPS URLs by default.
	cld.Config.URL.Secure = true

	if cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME"); cloudName != "" {
		cld.Config.Cloud.CloudName = cloudName
	}

	if folder == "" {
		folder = "ledger_snapshots"
	}

	return &cloudinaryStorage{cld: cld, folder: folder}, nil
}

// UploadBlob uploads a snapshot blob to Cloudinary as a raw asset.
func (s *cloudinaryStorage) UploadBlob(ctx context.Context, name string, blob []byte) (string, error) {
	if s == nil || s.cld == nil {
		return "", fmt.Errorf("cloudinary storage is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	params := uploader.UploadParams{
		Folder:         s.folder,
		PublicID:       name,
		ResourceType:   "raw",
		UseFilename:    api.Bool(true),
		UniqueFilename: api.Bool(false),
		Overwrite:      api.Bool(false),
	}

	resp, err := s.cld.Upload.Upload(ctx, bytes.NewReader(blob), params)
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot to cloudinary: %w", err)
	}

	if resp.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload succeeded but secure URL is empty")
	}

	return resp.SecureURL, nil
}
