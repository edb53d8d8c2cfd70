// Package forwarding assigns complaints to the government office responsible
// for a category in a given province and district.
package forwarding

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bwise1/gunaso/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed offices.yaml
var defaultRules []byte

var ErrNoOffice = errors.New("no office found for category")

type MatchLevel string

const (
	MatchDistrict MatchLevel = "district"
	MatchProvince MatchLevel = "province"
	MatchGeneric  MatchLevel = "generic"
)

type Assignment struct {
	Office model.Office `json:"office"`
	Level  MatchLevel   `json:"match_level"`
}

type ruleFile struct {
	Categories []struct {
		Category string         `yaml:"category"`
		Offices  []model.Office `yaml:"offices"`
	} `yaml:"categories"`
}

// Engine is read-only after construction and safe for concurrent use.
type Engine struct {
	categories []string
	rules      map[string][]model.Office
}

// Default returns the engine built from the embedded office table.
func Default() (*Engine, error) {
	return New(bytes.NewReader(defaultRules))
}

// Load reads the office table from path, or the embedded table when path is empty.
func Load(path string) (*Engine, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening forwarding rules: %w", err)
	}
	defer f.Close()
	return New(f)
}

func New(r io.Reader) (*Engine, error) {
	var rf ruleFile
	if err := yaml.NewDecoder(r).Decode(&rf); err != nil {
		return nil, fmt.Errorf("decoding forwarding rules: %w", err)
	}

	e := &Engine{rules: make(map[string][]model.Office, len(rf.Categories))}
	seen := make(map[string]bool)
	for _, c := range rf.Categories {
		category := normalize(c.Category)
		if category == "" {
			return nil, errors.New("forwarding rules: category name is empty")
		}
		if _, dup := e.rules[category]; dup {
			return nil, fmt.Errorf("forwarding rules: category %q listed twice", category)
		}
		if len(c.Offices) == 0 {
			return nil, fmt.Errorf("forwarding rules: category %q has no offices", category)
		}
		offices := make([]model.Office, 0, len(c.Offices))
		for _, o := range c.Offices {
			if o.Code == "" || o.Name == "" {
				return nil, fmt.Errorf("forwarding rules: office in %q needs a code and a name", category)
			}
			if seen[o.Code] {
				return nil, fmt.Errorf("forwarding rules: office code %q is not unique", o.Code)
			}
			if o.District != "" && o.Province == "" {
				return nil, fmt.Errorf("forwarding rules: office %q has a district but no province", o.Code)
			}
			seen[o.Code] = true
			o.Category = category
			offices = append(offices, o)
		}
		e.categories = append(e.categories, category)
		e.rules[category] = offices
	}
	if len(e.categories) == 0 {
		return nil, errors.New("forwarding rules: no categories defined")
	}
	return e, nil
}

// Assign picks the office for a complaint. A province and district match wins
// over a province-only match, which wins over the category's generic office.
func (e *Engine) Assign(category, province, district string) (Assignment, error) {
	offices, ok := e.rules[normalize(category)]
	if !ok {
		return Assignment{}, fmt.Errorf("%w %q", ErrNoOffice, category)
	}

	if province != "" && district != "" {
		for _, o := range offices {
			if sameName(o.Province, province) && sameName(o.District, district) {
				return Assignment{Office: o, Level: MatchDistrict}, nil
			}
		}
	}

	if province != "" {
		var first *model.Office
		for i, o := range offices {
			if !sameName(o.Province, province) {
				continue
			}
			if o.District == "" {
				return Assignment{Office: o, Level: MatchProvince}, nil
			}
			if first == nil {
				first = &offices[i]
			}
		}
		if first != nil {
			return Assignment{Office: *first, Level: MatchProvince}, nil
		}
	}

	for _, o := range offices {
		if o.Province == "" {
			return Assignment{Office: o, Level: MatchGeneric}, nil
		}
	}
	return Assignment{Office: offices[0], Level: MatchGeneric}, nil
}

func (e *Engine) Categories() []string {
	out := make([]string, len(e.categories))
	copy(out, e.categories)
	return out
}

func (e *Engine) HasCategory(category string) bool {
	_, ok := e.rules[normalize(category)]
	return ok
}

// Offices lists the table in order. An empty category returns every office.
func (e *Engine) Offices(category string) []model.Office {
	if category != "" {
		offices := e.rules[normalize(category)]
		out := make([]model.Office, len(offices))
		copy(out, offices)
		return out
	}
	var out []model.Office
	for _, c := range e.categories {
		out = append(out, e.rules[c]...)
	}
	return out
}

func (e *Engine) OfficeByCode(code string) (model.Office, bool) {
	for _, c := range e.categories {
		for _, o := range e.rules[c] {
			if o.Code == code {
				return o, true
			}
		}
	}
	return model.Office{}, false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func sameName(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
