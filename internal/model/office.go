package model

// Office is a government office that complaints are forwarded to.
type Office struct {
	Code     string `json:"code" yaml:"code"`
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category" yaml:"-"`
	Province string `json:"province,omitempty" yaml:"province,omitempty"`
	District string `json:"district,omitempty" yaml:"district,omitempty"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone    string `json:"phone,omitempty" yaml:"phone,omitempty"`
}

var Provinces = []string{
	"Koshi",
	"Madhesh",
	"Bagmati",
	"Gandaki",
	"Lumbini",
	"Karnali",
	"Sudurpashchim",
}
