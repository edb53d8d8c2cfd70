package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	SubmissionAnonymous    = "anonymous"
	SubmissionPseudonymous = "pseudonymous"
	SubmissionVerified     = "verified"
)

type Complaint struct {
	ID             uuid.UUID  `json:"id"`
	TrackingID     string     `json:"tracking_id"`
	SubmissionType string     `json:"submission_type"`
	UserID         *uuid.UUID `json:"user_id,omitempty"`
	Pseudonym      *string    `json:"pseudonym,omitempty"`
	ContactEmail   *string    `json:"contact_email,omitempty"`
	ContactPhone   *string    `json:"contact_phone,omitempty"`
	AccessKeyHash  *string    `json:"-"`
	Category       string     `json:"category"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Province       *string    `json:"province,omitempty"`
	District       *string    `json:"district,omitempty"`
	Municipality   *string    `json:"municipality,omitempty"`
	Ward           *int       `json:"ward,omitempty"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	Status         string     `json:"status"`
	OfficeCode     *string    `json:"office_code,omitempty"`
	EvidenceCount  int        `json:"evidence_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type CreateComplaintRequest struct {
	SubmissionType string   `json:"submission_type" validate:"required,submission_type"`
	Pseudonym      string   `json:"pseudonym,omitempty" validate:"omitempty,min=2,max=50"`
	ContactEmail   string   `json:"contact_email,omitempty" validate:"omitempty,email,max=254"`
	ContactPhone   string   `json:"contact_phone,omitempty" validate:"omitempty,min=7,max=20,numeric"`
	Category       string   `json:"category" validate:"required,max=50"`
	Title          string   `json:"title" validate:"required,min=5,max=200"`
	Description    string   `json:"description" validate:"required,min=20,max=5000"`
	Province       string   `json:"province,omitempty" validate:"omitempty,province"`
	District       string   `json:"district,omitempty" validate:"omitempty,max=100"`
	Municipality   string   `json:"municipality,omitempty" validate:"omitempty,max=100"`
	Ward           *int     `json:"ward,omitempty" validate:"omitempty,min=1,max=35"`
	Latitude       *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude      *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

type CreateComplaintResponse struct {
	ID         uuid.UUID `json:"id"`
	TrackingID string    `json:"tracking_id"`
	Status     string    `json:"status"`
	Office     *Office   `json:"office,omitempty"`
	MatchLevel string    `json:"match_level,omitempty"`
	// AccessKey is only returned once, for complaints without an owner account.
	AccessKey string    `json:"access_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TrackedComplaint is the public view returned by tracking lookups. It never
// carries identity or contact details.
type TrackedComplaint struct {
	TrackingID     string          `json:"tracking_id"`
	SubmissionType string          `json:"submission_type"`
	Category       string          `json:"category"`
	Title          string          `json:"title"`
	Province       *string         `json:"province,omitempty"`
	District       *string         `json:"district,omitempty"`
	Status         string          `json:"status"`
	Office         *Office         `json:"office,omitempty"`
	EvidenceCount  int             `json:"evidence_count"`
	History        []StatusHistory `json:"history"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,complaint_status"`
	Note   string `json:"note,omitempty" validate:"omitempty,max=1000"`
}

type ComplaintFilter struct {
	Status   string `url:"status,omitempty"`
	Category string `url:"category,omitempty"`
	Page     int    `url:"page,omitempty"`
	PageSize int    `url:"page_size,omitempty"`
}

type Forwarding struct {
	ComplaintID uuid.UUID `json:"complaint_id"`
	OfficeCode  string    `json:"office_code"`
	MatchLevel  string    `json:"match_level"`
	ForwardedAt time.Time `json:"forwarded_at"`
}

type ComplaintStats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByCategory map[string]int `json:"by_category"`
	Resolved30 int            `json:"resolved_last_30_days"`
}
