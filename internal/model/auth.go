package model

import (
	"github.com/google/uuid"
)

type RegisterRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyCodeRequest struct {
	Code  string `json:"code" validate:"required,len=4,numeric"`
	Type  string `json:"type" validate:"required,oneof=register login"`
	Email string `json:"email" validate:"required,email"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type GoogleTokenRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

type VerifyCodeResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type LoginUserResponse struct {
	ID         uuid.UUID `json:"id"`
	FirstName  *string   `json:"firstname,omitempty"`
	LastName   *string   `json:"lastname,omitempty"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"is_verified"`
}

type LoginResponse struct {
	User         *LoginUserResponse `json:"user"`
	Token        string             `json:"token"`
	RefreshToken string             `json:"refresh_token,omitempty"`
}
