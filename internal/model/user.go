package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	FirstName    *string   `json:"firstname,omitempty"`
	LastName     *string   `json:"lastname,omitempty"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone,omitempty"`
	Role         string    `json:"role"`
	OfficeCode   *string   `json:"office_code,omitempty"`
	AuthProvider string    `json:"auth_provider,omitempty"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UpdateProfileRequest struct {
	FirstName string `json:"firstname" validate:"omitempty,max=100"`
	LastName  string `json:"lastname" validate:"omitempty,max=100"`
	Phone     string `json:"phone" validate:"omitempty,min=7,max=20,numeric"`
}
