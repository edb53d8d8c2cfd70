package forwarding

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRules = `
categories:
  - category: roads
    offices:
      - code: ROADS-HQ
        name: Roads HQ
      - code: ROADS-KTM
        name: Roads Kathmandu
        province: Bagmati
        district: Kathmandu
      - code: ROADS-LTP
        name: Roads Lalitpur
        province: Bagmati
        district: Lalitpur
      - code: ROADS-BAG
        name: Roads Bagmati
        province: Bagmati
      - code: ROADS-PKR
        name: Roads Pokhara
        province: Gandaki
        district: Kaski
  - category: Water
    offices:
      - code: WATER-KTM
        name: Water Kathmandu
        province: Bagmati
        district: Kathmandu
      - code: WATER-HQ
        name: Water HQ
  - category: power
    offices:
      - code: POWER-KOS
        name: Power Koshi
        province: Koshi
        district: Morang
      - code: POWER-BAG
        name: Power Bagmati
        province: Bagmati
        district: Kathmandu
`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(strings.NewReader(testRules))
	require.NoError(t, err)
	return e
}

func TestAssign(t *testing.T) {
	e := newTestEngine(t)

	testCases := []struct {
		name     string
		category string
		province string
		district string
		wantCode string
		wantLvl  MatchLevel
	}{
		{"district match", "roads", "Bagmati", "Lalitpur", "ROADS-LTP", MatchDistrict},
		{"case and space insensitive", " ROADS ", "bagmati ", " kathmandu", "ROADS-KTM", MatchDistrict},
		{"unknown district falls back to province", "roads", "Bagmati", "Bhaktapur", "ROADS-BAG", MatchProvince},
		{"province without district", "roads", "Bagmati", "", "ROADS-BAG", MatchProvince},
		{"province with only district offices takes first", "roads", "Gandaki", "Tanahun", "ROADS-PKR", MatchProvince},
		{"unknown province is generic", "roads", "Karnali", "Surkhet", "ROADS-HQ", MatchGeneric},
		{"no location is generic", "roads", "", "", "ROADS-HQ", MatchGeneric},
		{"district alone is ignored", "roads", "", "Lalitpur", "ROADS-HQ", MatchGeneric},
		{"generic need not be listed first", "water", "Koshi", "", "WATER-HQ", MatchGeneric},
		{"no generic office falls back to first entry", "power", "Karnali", "", "POWER-KOS", MatchGeneric},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.Assign(tc.category, tc.province, tc.district)
			require.NoError(t, err)
			assert.Equal(t, tc.wantCode, got.Office.Code)
			assert.Equal(t, tc.wantLvl, got.Level)
		})
	}
}

func TestAssignUnknownCategory(t *testing.T) {
	e := newTestEngine(t)

	for _, category := range []string{"", "parking", "road"} {
		_, err := e.Assign(category, "Bagmati", "Kathmandu")
		assert.True(t, errors.Is(err, ErrNoOffice), "category %q", category)
	}
}

func TestAssignSetsCategory(t *testing.T) {
	e := newTestEngine(t)

	got, err := e.Assign("Water", "Bagmati", "Kathmandu")
	require.NoError(t, err)
	assert.Equal(t, "water", got.Office.Category)
}

func TestNewRejectsBadTables(t *testing.T) {
	testCases := map[string]string{
		"empty":           `categories: []`,
		"no offices":      "categories:\n  - category: roads\n    offices: []\n",
		"missing code":    "categories:\n  - category: roads\n    offices:\n      - name: HQ\n",
		"duplicate code":  "categories:\n  - category: a\n    offices:\n      - {code: X, name: X}\n  - category: b\n    offices:\n      - {code: X, name: Y}\n",
		"duplicate cat":   "categories:\n  - category: a\n    offices:\n      - {code: X, name: X}\n  - category: A\n    offices:\n      - {code: Y, name: Y}\n",
		"orphan district": "categories:\n  - category: a\n    offices:\n      - {code: X, name: X, district: Kaski}\n",
		"not yaml":        "categories: [",
	}
	for name, input := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := New(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestDefaultTable(t *testing.T) {
	e, err := Default()
	require.NoError(t, err)

	assert.Contains(t, e.Categories(), "roads")
	assert.Contains(t, e.Categories(), "other")

	for _, category := range e.Categories() {
		got, err := e.Assign(category, "", "")
		require.NoError(t, err, category)
		assert.Equal(t, MatchGeneric, got.Level)
		assert.Empty(t, got.Office.Province, "generic office for %s should be national", category)
	}

	got, err := e.Assign("electricity", "Bagmati", "Kathmandu")
	require.NoError(t, err)
	assert.Equal(t, "NEA-RTP", got.Office.Code)

	office, ok := e.OfficeByCode("CIAA")
	require.True(t, ok)
	assert.Equal(t, "corruption", office.Category)
}

func TestOfficesReturnsCopy(t *testing.T) {
	e := newTestEngine(t)

	offices := e.Offices("roads")
	require.Len(t, offices, 5)
	offices[0].Code = "CHANGED"

	assert.Equal(t, "ROADS-HQ", e.Offices("roads")[0].Code)
	assert.Len(t, e.Offices(""), 9)
	assert.Empty(t, e.Offices("parking"))
}
