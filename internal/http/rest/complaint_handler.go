package rest

import (
	"net/http"

	"github.com/bwise1/gunaso/internal/model"
	"github.com/bwise1/gunaso/util"
	"github.com/bwise1/gunaso/util/values"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (api *API) ComplaintRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/track/{trackingID}", Handler(api.TrackComplaint))
	mux.Method(http.MethodGet, "/stats", Handler(api.ComplaintStats))

	mux.Group(func(r chi.Router) {
		r.Use(api.RateLimitSubmissions)
		r.Use(api.OptionalLogin)
		r.Method(http.MethodPost, "/", Handler(api.CreateComplaint))
	})

	mux.Group(func(r chi.Router) {
		r.Use(api.OptionalLogin)
		r.Method(http.MethodPost, "/{trackingID}/evidence", Handler(api.UploadEvidence))
		r.Method(http.MethodGet, "/{trackingID}/evidence", Handler(api.ListEvidence))
	})

	mux.Group(func(r chi.Router) {
		r.Use(api.RequireLogin)
		r.Method(http.MethodGet, "/mine", Handler(api.MyComplaints))
	})

	mux.Group(func(r chi.Router) {
		r.Use(api.RequireLogin)
		r.Use(RequireRole(values.RoleOfficer))
		r.Method(http.MethodGet, "/", Handler(api.OfficeComplaints))
		r.Method(http.MethodPatch, "/{trackingID}/status", Handler(api.UpdateComplaintStatus))
	})

	return mux
}

func (api *API) CreateComplaint(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	var req model.CreateComplaintRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	var userID *uuid.UUID
	if id, err := util.GetUserIDFromContext(r.Context()); err == nil {
		userID = &id
	}

	resp, status, message, err := api.CreateComplaintHelper(r.Context(), req, userID)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       resp,
	}
}

func (api *API) TrackComplaint(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	tracked, status, message, err := api.TrackComplaintHelper(r.Context(), chi.URLParam(r, "trackingID"))
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       tracked,
	}
}

func complaintFilterFrom(r *http.Request) model.ComplaintFilter {
	q := r.URL.Query()
	page, pageSize := util.PageParams(q)
	return model.ComplaintFilter{
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Page:     page,
		PageSize: pageSize,
	}
}

func (api *API) MyComplaints(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "unable to get user ID from context", values.NotAuthorised, &tc)
	}

	page, status, message, err := api.MyComplaintsHelper(r.Context(), userID, complaintFilterFrom(r))
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       page,
	}
}

func (api *API) OfficeComplaints(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	officeCode, _ := r.Context().Value(contextOfficeKey).(string)
	page, status, message, err := api.OfficeComplaintsHelper(r.Context(), officeCode, complaintFilterFrom(r))
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       page,
	}
}

func (api *API) UpdateComplaintStatus(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	officerID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "unable to get user ID from context", values.NotAuthorised, &tc)
	}

	var req model.UpdateStatusRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	officeCode, _ := r.Context().Value(contextOfficeKey).(string)
	event, status, message, err := api.UpdateComplaintStatusHelper(r.Context(), chi.URLParam(r, "trackingID"), req, officerID, officeCode)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       event,
	}
}

func (api *API) ComplaintStats(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	stats, status, message, err := api.ComplaintStatsHelper(r.Context())
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       stats,
	}
}
