package rest

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bwise1/gunaso/internal/db"
	deps "github.com/bwise1/gunaso/internal/debs"
	"github.com/bwise1/gunaso/internal/model"
	"github.com/bwise1/gunaso/util"
	"github.com/bwise1/gunaso/util/storage"
	"github.com/bwise1/gunaso/util/values"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newDBTestAPI returns an API on a freshly truncated database named by
// TEST_DATABASE_DSN, or skips the test when none is configured.
func newDBTestAPI(t *testing.T) *API {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	database, err := db.New(dsn)
	require.NoError(t, err)
	t.Cleanup(database.Close)

	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx))
	_, err = database.Pool().Exec(ctx, `
        TRUNCATE users, email_verifications, auth_tokens, complaints,
                 complaint_forwardings, status_history, evidence_files, public_projects CASCADE`)
	require.NoError(t, err)

	api := newTestAPI(t)
	api.Deps = &deps.Dependencies{DB: database, Forwarding: api.Forwarding}
	api.DB = database.Pool()
	return api
}

type memoryCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) SetTracking(_ context.Context, trackingID string, v interface{}, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[trackingID] = raw
	return nil
}

func (c *memoryCache) GetTracking(_ context.Context, trackingID string, v interface{}) (bool, error) {
	c.mu.Lock()
	raw, ok := c.entries[trackingID]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func (c *memoryCache) InvalidateTracking(_ context.Context, trackingID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, trackingID)
	c.invalidated = append(c.invalidated, trackingID)
	return nil
}

// flakyStore accepts the first ok uploads and fails after that.
type flakyStore struct {
	ok      int
	uploads int
}

func (s *flakyStore) Upload(_ context.Context, obj storage.Object) (storage.StoredFile, error) {
	s.uploads++
	if s.uploads > s.ok {
		return storage.StoredFile{}, errors.New("bucket unavailable")
	}
	return storage.StoredFile{URL: "https://files.test/" + obj.Name, Key: obj.Folder + "/" + obj.Name}, nil
}

func (s *flakyStore) Delete(context.Context, string, string) error { return nil }

func roadsComplaint() model.CreateComplaintRequest {
	return model.CreateComplaintRequest{
		SubmissionType: model.SubmissionAnonymous,
		Category:       "roads",
		Title:          "Pothole on the ring road",
		Description:    "A deep pothole near the Koteshwor junction has been open for weeks.",
		Province:       "bagmati",
		District:       "Kathmandu",
	}
}

func createOfficer(t *testing.T, api *API, officeCode string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := api.DB.Exec(context.Background(), `
        INSERT INTO users (id, email, role, office_code, is_verified)
        VALUES ($1, $2, 'officer', NULLIF($3, ''), TRUE)`,
		id, id.String()+"@office.gov.np", officeCode)
	require.NoError(t, err)
	return id
}

func submit(t *testing.T, api *API, req model.CreateComplaintRequest) model.CreateComplaintResponse {
	t.Helper()
	resp, status, message, err := api.CreateComplaintHelper(context.Background(), req, nil)
	require.NoError(t, err, message)
	require.Equal(t, values.Created, status)
	return resp
}

func TestCreateComplaintRecordsForwarding(t *testing.T) {
	api := newDBTestAPI(t)
	ctx := context.Background()

	resp := submit(t, api, roadsComplaint())
	assert.True(t, util.ValidTrackingID(resp.TrackingID))
	assert.Equal(t, model.StatusForwarded, resp.Status)
	assert.Equal(t, "district", resp.MatchLevel)
	require.NotNil(t, resp.Office)
	assert.Equal(t, "DOR-KTM", resp.Office.Code)
	assert.NotEmpty(t, resp.AccessKey)

	stored, err := api.GetComplaintByTrackingIDRepo(ctx, resp.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusForwarded, stored.Status)
	assert.Equal(t, "DOR-KTM", util.Deref(stored.OfficeCode))
	assert.Equal(t, "Bagmati", util.Deref(stored.Province))
	assert.Nil(t, stored.UserID)

	var office, level string
	err = api.DB.QueryRow(ctx, `SELECT office_code, match_level FROM complaint_forwardings WHERE complaint_id = $1`, stored.ID).Scan(&office, &level)
	require.NoError(t, err)
	assert.Equal(t, "DOR-KTM", office)
	assert.Equal(t, "district", level)

	history, err := api.GetStatusHistoryRepo(ctx, stored.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.StatusSubmitted, history[0].ToStatus)
	assert.Nil(t, history[0].FromStatus)
	assert.Equal(t, model.StatusForwarded, history[1].ToStatus)
	assert.Equal(t, model.StatusSubmitted, util.Deref(history[1].FromStatus))
	assert.Equal(t, "Forwarded to Division Road Office Kathmandu", util.Deref(history[1].Note))
}

func TestCreateComplaintRetriesTrackingIDCollision(t *testing.T) {
	api := newDBTestAPI(t)
	taken := submit(t, api, roadsComplaint()).TrackingID

	calls := 0
	newTrackingID = func(now time.Time) (string, error) {
		calls++
		if calls < maxTrackingAttempts {
			return taken, nil
		}
		return util.GenerateTrackingID(now)
	}
	t.Cleanup(func() { newTrackingID = util.GenerateTrackingID })

	resp := submit(t, api, roadsComplaint())
	assert.Equal(t, maxTrackingAttempts, calls)
	assert.NotEqual(t, taken, resp.TrackingID)
}

func TestCreateComplaintGivesUpAfterRepeatedCollisions(t *testing.T) {
	api := newDBTestAPI(t)
	ctx := context.Background()
	taken := submit(t, api, roadsComplaint()).TrackingID

	calls := 0
	newTrackingID = func(time.Time) (string, error) {
		calls++
		return taken, nil
	}
	t.Cleanup(func() { newTrackingID = util.GenerateTrackingID })

	_, status, _, err := api.CreateComplaintHelper(ctx, roadsComplaint(), nil)
	require.Error(t, err)
	assert.True(t, isTrackingIDCollision(err))
	assert.Equal(t, values.Error, status)
	assert.Equal(t, maxTrackingAttempts, calls)

	var count int
	require.NoError(t, api.DB.QueryRow(ctx, `SELECT COUNT(*) FROM complaints`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUpdateStatusConflictsWithConcurrentChange(t *testing.T) {
	api := newDBTestAPI(t)
	ctx := context.Background()
	officer := createOfficer(t, api, "")
	resp := submit(t, api, roadsComplaint())

	// hold the row with an uncommitted change so the helper reads the old
	// status and then waits on the lock
	tx, err := api.DB.Begin(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback(ctx) })
	_, err = tx.Exec(ctx, `UPDATE complaints SET status = 'acknowledged' WHERE id = $1`, resp.ID)
	require.NoError(t, err)

	type result struct {
		status string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		_, status, _, err := api.UpdateComplaintStatusHelper(ctx, resp.TrackingID,
			model.UpdateStatusRequest{Status: model.StatusAcknowledged}, officer, "")
		done <- result{status, err}
	}()

	require.Eventually(t, func() bool {
		var waiting int
		err := api.DB.QueryRow(ctx, `
            SELECT COUNT(*) FROM pg_stat_activity
            WHERE datname = current_database() AND wait_event_type = 'Lock'`).Scan(&waiting)
		return err == nil && waiting > 0
	}, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, tx.Commit(ctx))

	got := <-done
	assert.ErrorIs(t, got.err, ErrStatusChanged)
	assert.Equal(t, values.Conflict, got.status)

	history, err := api.GetStatusHistoryRepo(ctx, resp.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestUpdateStatusScopedToOfficerOffice(t *testing.T) {
	api := newDBTestAPI(t)
	ctx := context.Background()
	cache := newMemoryCache()
	api.Cache = cache
	resp := submit(t, api, roadsComplaint())

	outsider := createOfficer(t, api, "NEA-HQ")
	_, status, _, err := api.UpdateComplaintStatusHelper(ctx, resp.TrackingID,
		model.UpdateStatusRequest{Status: model.StatusAcknowledged}, outsider, "NEA-HQ")
	require.Error(t, err)
	assert.Equal(t, values.NotAllowed, status)
	assert.Empty(t, cache.invalidated)

	assigned := createOfficer(t, api, "DOR-KTM")
	event, status, _, err := api.UpdateComplaintStatusHelper(ctx, resp.TrackingID,
		model.UpdateStatusRequest{Status: model.StatusAcknowledged, Note: "Crew inspecting"}, assigned, "DOR-KTM")
	require.NoError(t, err)
	assert.Equal(t, values.Success, status)
	assert.Equal(t, model.StatusForwarded, event.FromStatus)
	assert.Equal(t, model.StatusAcknowledged, event.ToStatus)

	_, status, _, err = api.UpdateComplaintStatusHelper(ctx, resp.TrackingID,
		model.UpdateStatusRequest{Status: model.StatusClosed}, assigned, "DOR-KTM")
	require.Error(t, err)
	assert.Equal(t, values.Unprocessable, status)
}

func TestStatusChangeInvalidatesTrackingCache(t *testing.T) {
	api := newDBTestAPI(t)
	ctx := context.Background()
	cache := newMemoryCache()
	api.Cache = cache
	officer := createOfficer(t, api, "")
	resp := submit(t, api, roadsComplaint())

	tracked, _, _, err := api.TrackComplaintHelper(ctx, resp.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusForwarded, tracked.Status)
	require.Contains(t, cache.entries, resp.TrackingID)

	_, _, _, err = api.UpdateComplaintStatusHelper(ctx, resp.TrackingID,
		model.UpdateStatusRequest{Status: model.StatusAcknowledged}, officer, "")
	require.NoError(t, err)
	assert.Equal(t, []string{resp.TrackingID}, cache.invalidated)

	tracked, _, _, err = api.TrackComplaintHelper(ctx, resp.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAcknowledged, tracked.Status)
	assert.Len(t, tracked.History, 3)
}

func TestEvidencePartialFailureInvalidatesCache(t *testing.T) {
	api := newDBTestAPI(t)
	ctx := context.Background()
	cache := newMemoryCache()
	api.Cache = cache
	api.Storage = &flakyStore{ok: 1}
	resp := submit(t, api, roadsComplaint())

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	files := []*multipart.FileHeader{fileHeader(t, "one.png", png), fileHeader(t, "two.png", png)}

	stored, status, _, err := api.UploadEvidenceHelper(ctx, resp.TrackingID, evidenceCaller{AccessKey: resp.AccessKey}, files)
	require.Error(t, err)
	assert.Equal(t, values.Error, status)
	assert.Len(t, stored, 1)
	assert.Equal(t, []string{resp.TrackingID}, cache.invalidated)

	tracked, _, _, err := api.TrackComplaintHelper(ctx, resp.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, 1, tracked.EvidenceCount)
}

func TestEvidenceListingScopedToOfficerOffice(t *testing.T) {
	api := newDBTestAPI(t)
	ctx := context.Background()
	resp := submit(t, api, roadsComplaint())

	outsider := createOfficer(t, api, "NEA-HQ")
	_, status, _, err := api.ListEvidenceHelper(ctx, resp.TrackingID, evidenceCaller{UserID: &outsider, Role: values.RoleOfficer})
	require.Error(t, err)
	assert.Equal(t, values.NotAllowed, status)

	assigned := createOfficer(t, api, "DOR-KTM")
	files, status, _, err := api.ListEvidenceHelper(ctx, resp.TrackingID, evidenceCaller{UserID: &assigned, Role: values.RoleOfficer})
	require.NoError(t, err)
	assert.Equal(t, values.Success, status)
	assert.Empty(t, files)
}

func createCitizen(t *testing.T, api *API, email string) model.User {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, api.CreateNewUserRepo(ctx, model.User{
		ID:           uuid.New(),
		Email:        email,
		AuthProvider: "email",
	}))
	user, err := api.GetUserByEmail(ctx, email)
	require.NoError(t, err)
	return user
}

func TestRefreshRotatesWithinOneSecond(t *testing.T) {
	api := newDBTestAPI(t)
	ctx := context.Background()
	user := createCitizen(t, api, "sita@example.com")

	first, err := api.issueTokens(ctx, user)
	require.NoError(t, err)
	// a second login in the same second stores a distinct token
	_, err = api.issueTokens(ctx, user)
	require.NoError(t, err)

	rotated, status, _, err := api.RefreshSession(ctx, model.RefreshRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, values.Success, status)
	assert.NotEqual(t, first.RefreshToken, rotated.RefreshToken)

	_, status, _, err = api.RefreshSession(ctx, model.RefreshRequest{RefreshToken: first.RefreshToken})
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)
	assert.Equal(t, values.NotAuthorised, status)

	_, status, _, err = api.RefreshSession(ctx, model.RefreshRequest{RefreshToken: rotated.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, values.Success, status)
}

func TestVerificationCodesAreSingleUse(t *testing.T) {
	api := newDBTestAPI(t)
	ctx := context.Background()
	user := createCitizen(t, api, "ram@example.com")

	require.NoError(t, api.StoreVerificationCode(ctx, user.ID.String(), user.Email, "1234", codeTypeLogin, time.Now().Add(time.Hour)))

	_, err := api.VerifyCodeRepo(ctx, "0000", codeTypeLogin, user.Email)
	assert.ErrorIs(t, err, ErrInvalidCode)

	userID, err := api.VerifyCodeRepo(ctx, "1234", codeTypeLogin, "RAM@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), userID)

	_, err = api.VerifyCodeRepo(ctx, "1234", codeTypeLogin, user.Email)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerificationCodeDiesAfterTooManyGuesses(t *testing.T) {
	api := newDBTestAPI(t)
	ctx := context.Background()
	user := createCitizen(t, api, "gita@example.com")

	require.NoError(t, api.StoreVerificationCode(ctx, user.ID.String(), user.Email, "5678", codeTypeLogin, time.Now().Add(time.Hour)))

	for i := 0; i < maxCodeAttempts; i++ {
		_, err := api.VerifyCodeRepo(ctx, "0000", codeTypeLogin, user.Email)
		require.ErrorIs(t, err, ErrInvalidCode)
	}

	_, err := api.VerifyCodeRepo(ctx, "5678", codeTypeLogin, user.Email)
	assert.ErrorIs(t, err, ErrInvalidCode)
}
