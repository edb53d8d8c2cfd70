package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProjectPlanned   = "planned"
	ProjectOngoing   = "ongoing"
	ProjectCompleted = "completed"
	ProjectStalled   = "stalled"
)

type PublicProject struct {
	ID              uuid.UUID   `json:"id"`
	Name            string      `json:"name"`
	Description     *string     `json:"description,omitempty"`
	Category        string      `json:"category"`
	Province        *string     `json:"province,omitempty"`
	District        *string     `json:"district,omitempty"`
	OfficeCode      *string     `json:"office_code,omitempty"`
	Contractor      *string     `json:"contractor,omitempty"`
	BudgetNPR       int64       `json:"budget_npr"`
	SpentNPR        int64       `json:"spent_npr"`
	Status          string      `json:"status"`
	ProgressPercent int         `json:"progress_percent"`
	StartDate       *time.Time  `json:"start_date,omitempty"`
	EndDate         *time.Time  `json:"end_date,omitempty"`
	AlignmentLine   *string     `json:"-"`
	Alignment       [][]float64 `json:"alignment,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type CreateProjectRequest struct {
	Name            string     `json:"name" validate:"required,min=3,max=200"`
	Description     string     `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category        string     `json:"category" validate:"required,max=50"`
	Province        string     `json:"province,omitempty" validate:"omitempty,province"`
	District        string     `json:"district,omitempty" validate:"omitempty,max=100"`
	OfficeCode      string     `json:"office_code,omitempty" validate:"omitempty,max=50"`
	Contractor      string     `json:"contractor,omitempty" validate:"omitempty,max=200"`
	BudgetNPR       int64      `json:"budget_npr" validate:"gte=0"`
	SpentNPR        int64      `json:"spent_npr" validate:"gte=0,ltefield=BudgetNPR"`
	Status          string     `json:"status" validate:"required,oneof=planned ongoing completed stalled"`
	ProgressPercent int        `json:"progress_percent" validate:"gte=0,lte=100"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	// Alignment is an encoded polyline of the project route, if any.
	Alignment string `json:"alignment,omitempty" validate:"omitempty,max=20000"`
}

type ProjectFilter struct {
	Province string `url:"province,omitempty"`
	District string `url:"district,omitempty"`
	Status   string `url:"status,omitempty"`
	Category string `url:"category,omitempty"`
	Query    string `url:"q,omitempty"`
	Page     int    `url:"page,omitempty"`
	PageSize int    `url:"page_size,omitempty"`
}
