package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/bwise1/gunaso/config"
	"github.com/bwise1/gunaso/internal/model"
	"github.com/gabriel-vasile/mimetype"
)

var ErrUnsupportedMedia = errors.New("unsupported evidence file type")

// Object describes a file to be stored.
type Object struct {
	Folder      string
	Name        string
	ContentType string
	MediaType   string
	Size        int64
	Body        io.Reader
}

type StoredFile struct {
	URL string
	Key string
}

// FileStore is implemented by every evidence storage backend.
type FileStore interface {
	Upload(ctx context.Context, obj Object) (StoredFile, error)
	Delete(ctx context.Context, key string, mediaType string) error
}

func New(cfg *config.Config) (FileStore, error) {
	switch strings.ToLower(cfg.StorageDriver) {
	case "", "cloudinary":
		return NewCloudinary(cfg)
	case "s3":
		return NewS3(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

var documentTypes = map[string]bool{
	"application/pdf":    true,
	"text/plain":         true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.oasis.opendocument.text":                           true,
}

// Detect sniffs the first bytes of r and classifies the content. The returned
// reader replays the sniffed bytes.
func Detect(r io.Reader) (contentType string, mediaType string, body io.Reader, err error) {
	header := make([]byte, 3072)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", "", nil, err
	}
	header = header[:n]

	mt := mimetype.Detect(header)
	contentType = mt.String()
	mediaType, err = Classify(contentType)
	if err != nil {
		return contentType, "", nil, err
	}
	return contentType, mediaType, io.MultiReader(bytes.NewReader(header), r), nil
}

// Classify maps a MIME type to an evidence media type.
func Classify(contentType string) (string, error) {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch {
	case strings.HasPrefix(base, "image/"):
		return model.MediaImage, nil
	case strings.HasPrefix(base, "audio/"):
		return model.MediaAudio, nil
	case strings.HasPrefix(base, "video/"):
		return model.MediaVideo, nil
	case documentTypes[base]:
		return model.MediaDocument, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedMedia, base)
}

// SafeName strips directories and anything outside a conservative charset.
func SafeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	if len(out) > 120 {
		out = out[len(out)-120:]
	}
	return out
}
