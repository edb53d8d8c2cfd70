package rest

import (
	"context"
	"net/http"
	"testing"

	"github.com/bwise1/gunaso/internal/model"
	"github.com/bwise1/gunaso/util/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckProjectFilter(t *testing.T) {
	f := model.ProjectFilter{Province: " bagmati ", Status: "ONGOING", Category: " Roads", Query: " ring road "}
	require.NoError(t, checkProjectFilter(&f))
	assert.Equal(t, "bagmati", f.Province)
	assert.Equal(t, "ongoing", f.Status)
	assert.Equal(t, "roads", f.Category)
	assert.Equal(t, "ring road", f.Query)

	assert.Error(t, checkProjectFilter(&model.ProjectFilter{Province: "Atlantis"}))
	assert.Error(t, checkProjectFilter(&model.ProjectFilter{Status: "abandoned"}))
}

func TestListProjectsRejectsBadFilter(t *testing.T) {
	api := newTestAPI(t)

	rec, resp := do(t, api, http.MethodGet, "/projects?province=Atlantis", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, values.BadRequestBody, resp.Status)
}

func TestGetProjectBadID(t *testing.T) {
	api := newTestAPI(t)

	rec, _ := do(t, api, http.MethodGet, "/projects/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProjectRequiresOfficer(t *testing.T) {
	api := newTestAPI(t)

	rec, _ := do(t, api, http.MethodPost, "/projects", map[string]string{"name": "Ring road"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateProjectValidation(t *testing.T) {
	api := newTestAPI(t)
	valid := model.CreateProjectRequest{
		Name:      "Koteshwor flyover",
		Category:  "roads",
		Province:  "Bagmati",
		BudgetNPR: 1000,
		SpentNPR:  200,
		Status:    model.ProjectOngoing,
	}

	testCases := map[string]func(r *model.CreateProjectRequest){
		"overspent":      func(r *model.CreateProjectRequest) { r.SpentNPR = 5000 },
		"bad status":     func(r *model.CreateProjectRequest) { r.Status = "abandoned" },
		"bad progress":   func(r *model.CreateProjectRequest) { r.ProgressPercent = 140 },
		"unknown office": func(r *model.CreateProjectRequest) { r.OfficeCode = "NOPE" },
		"bad alignment":  func(r *model.CreateProjectRequest) { r.Alignment = "_p~iF~ps|U!!" },
	}
	for name, mutate := range testCases {
		t.Run(name, func(t *testing.T) {
			req := valid
			mutate(&req)
			_, status, _, err := api.CreateProjectHelper(context.Background(), req)
			assert.Error(t, err)
			assert.Equal(t, values.BadRequestBody, status)
		})
	}
}

func TestPaginationLinks(t *testing.T) {
	api := newTestAPI(t)
	filter := model.ProjectFilter{Province: "Bagmati", PageSize: 20}
	linkFor := func(page int) interface{} {
		f := filter
		f.Page = page
		return f
	}

	p := api.pagination("/projects", 45, 2, 20, linkFor)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, "https://gunaso.test/projects?page=3&page_size=20&province=Bagmati", p.Next)
	assert.Equal(t, "https://gunaso.test/projects?page=1&page_size=20&province=Bagmati", p.Prev)

	p = api.pagination("/projects", 45, 3, 20, linkFor)
	assert.Empty(t, p.Next)

	p = api.pagination("/projects", 0, 1, 20, linkFor)
	assert.Equal(t, 0, p.TotalPages)
	assert.Empty(t, p.Next)
	assert.Empty(t, p.Prev)

}

func TestProjectSearchMatchesLiterally(t *testing.T) {
	assert.Equal(t, `100\% \_done \\ ring road`, likeEscaper.Replace(`100% _done \ ring road`))
	assert.Equal(t, "ring road", likeEscaper.Replace("ring road"))
}
