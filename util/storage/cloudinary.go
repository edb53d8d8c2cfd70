package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwise1/gunaso/config"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type Cloudinary struct {
	CLD *cloudinary.Cloudinary
}

func NewCloudinary(cfg *config.Config) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("initialising cloudinary: %w", err)
	}

	return &Cloudinary{CLD: cld}, nil
}

// cloudinary keeps audio under the video resource type
func resourceType(mediaType string) string {
	switch mediaType {
	case "image":
		return "image"
	case "audio", "video":
		return "video"
	default:
		return "raw"
	}
}

func (c *Cloudinary) Upload(ctx context.Context, obj Object) (StoredFile, error) {
	publicID := strings.TrimSuffix(obj.Name, "."+extension(obj.Name))
	resp, err := c.CLD.Upload.Upload(ctx, obj.Body, uploader.UploadParams{
		Folder:         obj.Folder,
		PublicID:       publicID,
		ResourceType:   resourceType(obj.MediaType),
		UniqueFilename: api.Bool(true),
		Overwrite:      api.Bool(false),
	})
	if err != nil {
		return StoredFile{}, err
	}
	if resp.Error.Message != "" {
		return StoredFile{}, fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}
	return StoredFile{URL: resp.SecureURL, Key: resp.PublicID}, nil
}

func (c *Cloudinary) Delete(ctx context.Context, key string, mediaType string) error {
	_, err := c.CLD.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     key,
		ResourceType: resourceType(mediaType),
	})
	return err
}

func extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return name[i+1:]
}
