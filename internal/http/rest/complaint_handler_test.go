package rest

import (
	"errors"
	"net/http"
	"testing"

	"github.com/bwise1/gunaso/internal/model"
	"github.com/bwise1/gunaso/util/values"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validComplaint() map[string]interface{} {
	return map[string]interface{}{
		"submission_type": "anonymous",
		"category":        "roads",
		"title":           "Pothole on the ring road",
		"description":     "A deep pothole near the Koteshwor junction has been open for weeks.",
		"province":        "Bagmati",
		"district":        "Kathmandu",
	}
}

func TestCreateComplaintRejectsBadInput(t *testing.T) {
	api := newTestAPI(t)

	with := func(changes map[string]interface{}) map[string]interface{} {
		body := validComplaint()
		for k, v := range changes {
			if v == nil {
				delete(body, k)
				continue
			}
			body[k] = v
		}
		return body
	}

	testCases := []struct {
		name       string
		body       interface{}
		wantCode   int
		wantStatus string
	}{
		{"malformed json", `{"title":`, http.StatusBadRequest, values.BadRequestBody},
		{"short title", with(map[string]interface{}{"title": "Hole"}), http.StatusBadRequest, values.BadRequestBody},
		{"short description", with(map[string]interface{}{"description": "too short"}), http.StatusBadRequest, values.BadRequestBody},
		{"unknown province", with(map[string]interface{}{"province": "Atlantis"}), http.StatusBadRequest, values.BadRequestBody},
		{"bad submission type", with(map[string]interface{}{"submission_type": "secret"}), http.StatusBadRequest, values.BadRequestBody},
		{"latitude out of range", with(map[string]interface{}{"latitude": 123.4}), http.StatusBadRequest, values.BadRequestBody},
		{"unknown category", with(map[string]interface{}{"category": "parking"}), http.StatusBadRequest, values.BadRequestBody},
		{"anonymous with contact", with(map[string]interface{}{"contact_email": "me@example.com"}), http.StatusBadRequest, values.BadRequestBody},
		{"pseudonymous without pseudonym", with(map[string]interface{}{"submission_type": "pseudonymous"}), http.StatusBadRequest, values.BadRequestBody},
		{"pseudonym too short", with(map[string]interface{}{"submission_type": "pseudonymous", "pseudonym": "x"}), http.StatusBadRequest, values.BadRequestBody},
		{"verified without login", with(map[string]interface{}{"submission_type": "verified"}), http.StatusUnauthorized, values.NotAuthorised},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, resp := do(t, api, http.MethodPost, "/complaints", tc.body, nil)
			assert.Equal(t, tc.wantCode, rec.Code, resp.Message)
			assert.Equal(t, tc.wantStatus, resp.Status)
		})
	}
}

func TestCreateComplaintRejectsInvalidToken(t *testing.T) {
	api := newTestAPI(t)

	rec, _ := do(t, api, http.MethodPost, "/complaints", validComplaint(), bearer("forged"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateComplaintRateLimited(t *testing.T) {
	api := newTestAPI(t)
	limiter := &fakeLimiter{allow: false}
	api.Limiter = limiter

	rec, resp := do(t, api, http.MethodPost, "/complaints", validComplaint(), nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, values.TooManyRequest, resp.Status)
	// httptest requests come from 192.0.2.1
	assert.Equal(t, []string{"submit:192.0.2.1"}, limiter.keys)
}

func TestCreateComplaintRateLimitIgnoresForgedForwardedFor(t *testing.T) {
	api := newTestAPI(t)
	limiter := &fakeLimiter{allow: false}
	api.Limiter = limiter

	for _, forged := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		rec, _ := do(t, api, http.MethodPost, "/complaints", validComplaint(), map[string]string{"X-Forwarded-For": forged})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	}
	assert.Equal(t, []string{"submit:192.0.2.1", "submit:192.0.2.1", "submit:192.0.2.1"}, limiter.keys)
}

func TestCreateComplaintRateLimitBehindTrustedProxy(t *testing.T) {
	api := newTestAPI(t)
	api.Config.TrustedProxies = []string{"192.0.2.0/24"}
	limiter := &fakeLimiter{allow: false}
	api.Limiter = limiter

	rec, _ := do(t, api, http.MethodPost, "/complaints", validComplaint(), map[string]string{"X-Forwarded-For": "198.51.100.4"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, []string{"submit:198.51.100.4"}, limiter.keys)
}

func TestCreateComplaintLimiterFailsOpen(t *testing.T) {
	api := newTestAPI(t)
	api.Limiter = &fakeLimiter{err: errors.New("redis down")}

	// reaches the handler, which rejects the body
	rec, _ := do(t, api, http.MethodPost, "/complaints", `{`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckSubmission(t *testing.T) {
	user := uuid.New()

	req := model.CreateComplaintRequest{SubmissionType: model.SubmissionVerified}
	owner, _, _, err := checkSubmission(req, &user)
	require.NoError(t, err)
	assert.Equal(t, &user, owner)

	req = model.CreateComplaintRequest{SubmissionType: model.SubmissionPseudonymous, Pseudonym: "Ram"}
	owner, _, _, err = checkSubmission(req, &user)
	require.NoError(t, err)
	assert.Equal(t, &user, owner, "a logged in pseudonymous complainant keeps ownership")

	req = model.CreateComplaintRequest{SubmissionType: model.SubmissionAnonymous}
	owner, _, _, err = checkSubmission(req, &user)
	require.NoError(t, err)
	assert.Nil(t, owner, "anonymous complaints never record the user")

	req = model.CreateComplaintRequest{SubmissionType: model.SubmissionAnonymous, ContactPhone: "9841000000"}
	_, status, _, err := checkSubmission(req, nil)
	assert.Error(t, err)
	assert.Equal(t, values.BadRequestBody, status)
}

func TestNormalizeComplaint(t *testing.T) {
	req := model.CreateComplaintRequest{
		SubmissionType: " Anonymous ",
		Category:       " ROADS",
		Province:       "bagmati ",
		Title:          "  Broken bridge  ",
	}
	normalizeComplaint(&req)

	assert.Equal(t, "anonymous", req.SubmissionType)
	assert.Equal(t, "roads", req.Category)
	assert.Equal(t, "Bagmati", req.Province)
	assert.Equal(t, "Broken bridge", req.Title)
}

func TestTrackComplaintUnknownFormat(t *testing.T) {
	api := newTestAPI(t)

	for _, id := range []string{"nope", "GRV-2026-ABCDEF", "GRV-20260101-ABCDE0"} {
		rec, resp := do(t, api, http.MethodGet, "/complaints/track/"+id, nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
		assert.Equal(t, values.NotFound, resp.Status)
	}
}

func TestUpdateStatusRequiresOfficer(t *testing.T) {
	api := newTestAPI(t)
	body := map[string]string{"status": model.StatusAcknowledged}

	rec, _ := do(t, api, http.MethodPatch, "/complaints/GRV-20260101-ABCDEF/status", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired := newTestAPI(t)
	expired.Config.JwtExpires = "-1m"
	stale, _, err := expired.createToken(uuid.NewString(), values.RoleOfficer)
	require.NoError(t, err)

	rec, resp := do(t, api, http.MethodPatch, "/complaints/GRV-20260101-ABCDEF/status", body, bearer(stale))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, values.TokenExpired, resp.Status)
}

func TestUploadEvidenceUnknownTrackingID(t *testing.T) {
	api := newTestAPI(t)

	rec, resp := do(t, api, http.MethodPost, "/complaints/not-a-tracking-id/evidence", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, values.NotFound, resp.Status)
}

func TestUploadEvidenceNeedsMultipart(t *testing.T) {
	api := newTestAPI(t)

	rec, resp := do(t, api, http.MethodPost, "/complaints/GRV-20260101-ABCDEF/evidence", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, values.BadRequestBody, resp.Status)
}
