package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	MediaImage    = "image"
	MediaAudio    = "audio"
	MediaVideo    = "video"
	MediaDocument = "document"
)

type EvidenceFile struct {
	ID          uuid.UUID `json:"id"`
	ComplaintID uuid.UUID `json:"complaint_id"`
	FileName    string    `json:"file_name"`
	FileURL     string    `json:"file_url"`
	StorageKey  string    `json:"-"`
	MediaType   string    `json:"media_type"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
