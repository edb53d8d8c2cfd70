package util

import (
	"testing"

	"github.com/bwise1/gunaso/internal/model"
	"github.com/stretchr/testify/assert"
)

func validComplaint() model.CreateComplaintRequest {
	lat, lng := 27.7172, 85.3240
	return model.CreateComplaintRequest{
		SubmissionType: model.SubmissionAnonymous,
		Category:       "roads",
		Title:          "Pothole on ring road",
		Description:    "A large pothole near Koteshwor has caused several accidents this week.",
		Province:       "Bagmati",
		District:       "Kathmandu",
		Latitude:       &lat,
		Longitude:      &lng,
	}
}

func TestValidateComplaint(t *testing.T) {
	assert.NoError(t, ValidateStruct(validComplaint()))

	testCases := map[string]func(*model.CreateComplaintRequest){
		"unknown submission type": func(r *model.CreateComplaintRequest) { r.SubmissionType = "secret" },
		"short title":             func(r *model.CreateComplaintRequest) { r.Title = "Hole" },
		"short description":       func(r *model.CreateComplaintRequest) { r.Description = "too short" },
		"unknown province":        func(r *model.CreateComplaintRequest) { r.Province = "Province 8" },
		"latitude out of range":   func(r *model.CreateComplaintRequest) { lat := 91.0; r.Latitude = &lat },
		"bad email":               func(r *model.CreateComplaintRequest) { r.ContactEmail = "not-an-email" },
		"bad phone":               func(r *model.CreateComplaintRequest) { r.ContactPhone = "call me" },
		"ward out of range":       func(r *model.CreateComplaintRequest) { r.Ward = IntPtr(40) },
		"short pseudonym":         func(r *model.CreateComplaintRequest) { r.Pseudonym = "x" },
	}
	for name, mutate := range testCases {
		t.Run(name, func(t *testing.T) {
			req := validComplaint()
			mutate(&req)
			err := ValidateStruct(req)
			assert.Error(t, err)
			assert.Contains(t, ValidationMessage(err), "validation failed:")
		})
	}
}

func TestProvinceIsCaseInsensitive(t *testing.T) {
	assert.True(t, IsProvince(" sudurpashchim "))
	assert.False(t, IsProvince(""))
}

func TestValidateProject(t *testing.T) {
	req := model.CreateProjectRequest{
		Name:      "Ring road widening",
		Category:  "roads",
		Status:    model.ProjectOngoing,
		BudgetNPR: 1000,
		SpentNPR:  1500,
	}
	assert.Error(t, ValidateStruct(req), "spent above budget")

	req.SpentNPR = 500
	assert.NoError(t, ValidateStruct(req))

	req.Status = "abandoned"
	assert.Error(t, ValidateStruct(req))
}

func TestValidateStatusRequest(t *testing.T) {
	assert.NoError(t, ValidateStruct(model.UpdateStatusRequest{Status: model.StatusInProgress}))
	assert.Error(t, ValidateStruct(model.UpdateStatusRequest{Status: "done"}))
}
