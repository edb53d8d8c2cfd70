package rest

import (
	"net/http"

	"github.com/bwise1/gunaso/util"
	"github.com/bwise1/gunaso/util/values"
	"github.com/go-chi/chi/v5"
)

const multipartMemory = 8 << 20

func evidenceCallerFrom(r *http.Request) evidenceCaller {
	caller := evidenceCaller{
		Role:      util.GetUserRoleFromContext(r.Context()),
		AccessKey: r.Header.Get(values.HeaderAccessKey),
	}
	caller.OfficeCode, _ = r.Context().Value(contextOfficeKey).(string)
	if id, err := util.GetUserIDFromContext(r.Context()); err == nil {
		caller.UserID = &id
	}
	return caller
}

func (api *API) UploadEvidence(w http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	trackingID := util.NormalizeTrackingID(chi.URLParam(r, "trackingID"))
	if !util.ValidTrackingID(trackingID) {
		return respondWithError(ErrComplaintNotFound, "complaint not found", values.NotFound, &tc)
	}

	// room for every allowed file plus multipart framing
	limit := api.Config.MaxEvidenceBytes*int64(api.Config.MaxEvidenceFiles) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return respondWithError(err, "invalid or oversized multipart upload", values.BadRequestBody, &tc)
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		return respondWithError(nil, "at least one file is required in the files field", values.BadRequestBody, &tc)
	}

	stored, status, message, err := api.UploadEvidenceHelper(r.Context(), trackingID, evidenceCallerFrom(r), files)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       stored,
	}
}

func (api *API) ListEvidence(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	files, status, message, err := api.ListEvidenceHelper(r.Context(), chi.URLParam(r, "trackingID"), evidenceCallerFrom(r))
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       files,
	}
}
