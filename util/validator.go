package util

import (
	"fmt"
	"strings"

	"github.com/bwise1/gunaso/internal/model"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("latitude", validateLatitude)
	validate.RegisterValidation("longitude", validateLongitude)
	validate.RegisterValidation("province", validateProvince)
	validate.RegisterValidation("submission_type", validateSubmissionType)
	validate.RegisterValidation("complaint_status", validateComplaintStatus)
}

func validateLatitude(fl validator.FieldLevel) bool {
	lat := fl.Field().Float()
	return lat >= -90 && lat <= 90
}

func validateLongitude(fl validator.FieldLevel) bool {
	lon := fl.Field().Float()
	return lon >= -180 && lon <= 180
}

func validateProvince(fl validator.FieldLevel) bool {
	return IsProvince(fl.Field().String())
}

func validateSubmissionType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case model.SubmissionAnonymous, model.SubmissionPseudonymous, model.SubmissionVerified:
		return true
	}
	return false
}

func validateComplaintStatus(fl validator.FieldLevel) bool {
	return model.IsStatus(fl.Field().String())
}

// IsProvince matches case-insensitively against the province list.
func IsProvince(s string) bool {
	s = strings.TrimSpace(s)
	for _, p := range model.Provinces {
		if strings.EqualFold(p, s) {
			return true
		}
	}
	return false
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ValidationMessage turns validator errors into a short client-facing message.
func ValidationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
