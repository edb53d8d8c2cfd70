package rest

import (
	"net/http"

	"github.com/bwise1/gunaso/internal/model"
	"github.com/bwise1/gunaso/util"
	"github.com/bwise1/gunaso/util/values"
	"github.com/go-chi/chi/v5"
)

func (api *API) ProjectRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/", Handler(api.ListProjects))
	mux.Method(http.MethodGet, "/{id}", Handler(api.GetProject))

	mux.Group(func(r chi.Router) {
		r.Use(api.RequireLogin)
		r.Use(RequireRole(values.RoleOfficer))
		r.Method(http.MethodPost, "/", Handler(api.CreateProject))
	})

	return mux
}

func (api *API) ListProjects(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	q := r.URL.Query()
	page, pageSize := util.PageParams(q)
	filter := model.ProjectFilter{
		Province: q.Get("province"),
		District: q.Get("district"),
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Query:    q.Get("q"),
		Page:     page,
		PageSize: pageSize,
	}

	projects, status, message, err := api.ListProjectsHelper(r.Context(), filter)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       projects,
	}
}

func (api *API) GetProject(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	project, status, message, err := api.GetProjectHelper(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       project,
	}
}

func (api *API) CreateProject(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	var req model.CreateProjectRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	project, status, message, err := api.CreateProjectHelper(r.Context(), req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       project,
	}
}
