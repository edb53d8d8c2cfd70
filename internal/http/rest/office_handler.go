package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bwise1/gunaso/internal/forwarding"
	"github.com/bwise1/gunaso/util"
	"github.com/bwise1/gunaso/util/values"
	"github.com/go-chi/chi/v5"
)

func (api *API) OfficeRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/", Handler(api.ListOffices))
	mux.Method(http.MethodGet, "/categories", Handler(api.ListCategories))
	mux.Method(http.MethodGet, "/route", Handler(api.RouteComplaint))
	return mux
}

func (api *API) ListOffices(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category != "" && !api.Forwarding.HasCategory(category) {
		return respondWithError(forwarding.ErrNoOffice, "unknown category", values.NotFound, &tc)
	}

	return &ServerResponse{
		Message:    "Offices retrieved",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       api.Forwarding.Offices(category),
	}
}

func (api *API) ListCategories(_ http.ResponseWriter, _ *http.Request) *ServerResponse {
	return &ServerResponse{
		Message:    "Categories retrieved",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       api.Forwarding.Categories(),
	}
}

// RouteComplaint previews which office a complaint would be forwarded to.
func (api *API) RouteComplaint(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	q := r.URL.Query()
	category := strings.TrimSpace(q.Get("category"))
	if category == "" {
		return respondWithError(errors.New("missing category"), "category is required", values.BadRequestBody, &tc)
	}

	assignment, err := api.Forwarding.Assign(category, strings.TrimSpace(q.Get("province")), strings.TrimSpace(q.Get("district")))
	if err != nil {
		if errors.Is(err, forwarding.ErrNoOffice) {
			return respondWithError(err, "no office handles this category", values.NotFound, &tc)
		}
		return respondWithError(err, values.SystemErr, values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Office found",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       assignment,
	}
}
