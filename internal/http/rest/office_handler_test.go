package rest

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/bwise1/gunaso/internal/forwarding"
	"github.com/bwise1/gunaso/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListOffices(t *testing.T) {
	api := newTestAPI(t)

	rec, resp := do(t, api, http.MethodGet, "/offices?category=water_supply", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var offices []model.Office
	require.NoError(t, json.Unmarshal(resp.Data, &offices))
	require.NotEmpty(t, offices)
	assert.Equal(t, "DWSSM-HQ", offices[0].Code)
	for _, o := range offices {
		assert.Equal(t, "water_supply", o.Category)
	}

	rec, _ = do(t, api, http.MethodGet, "/offices", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, api, http.MethodGet, "/offices?category=parking", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListCategories(t *testing.T) {
	api := newTestAPI(t)

	rec, resp := do(t, api, http.MethodGet, "/offices/categories", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var categories []string
	require.NoError(t, json.Unmarshal(resp.Data, &categories))
	assert.Equal(t, api.Forwarding.Categories(), categories)
}

func TestRouteComplaint(t *testing.T) {
	api := newTestAPI(t)

	testCases := []struct {
		query     string
		wantCode  int
		wantOffic string
		wantLevel forwarding.MatchLevel
	}{
		{"category=roads&province=Bagmati&district=Lalitpur", http.StatusOK, "DOR-LTP", forwarding.MatchDistrict},
		{"category=roads&province=bagmati&district=Bhaktapur", http.StatusOK, "MOPIT-BAG", forwarding.MatchProvince},
		{"category=roads", http.StatusOK, "DOR-HQ", forwarding.MatchGeneric},
		{"category=other&province=Koshi&district=Morang", http.StatusOK, "HELLO-SARKAR", forwarding.MatchGeneric},
		{"province=Bagmati", http.StatusBadRequest, "", ""},
		{"category=parking&province=Bagmati", http.StatusNotFound, "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.query, func(t *testing.T) {
			rec, resp := do(t, api, http.MethodGet, "/offices/route?"+tc.query, nil, nil)
			require.Equal(t, tc.wantCode, rec.Code, resp.Message)
			if tc.wantCode != http.StatusOK {
				return
			}
			var got forwarding.Assignment
			require.NoError(t, json.Unmarshal(resp.Data, &got))
			assert.Equal(t, tc.wantOffic, got.Office.Code)
			assert.Equal(t, tc.wantLevel, got.Level)
		})
	}
}
