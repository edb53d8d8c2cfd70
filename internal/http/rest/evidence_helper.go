package rest

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/bwise1/gunaso/internal/metrics"
	"github.com/bwise1/gunaso/internal/model"
	"github.com/bwise1/gunaso/util"
	"github.com/bwise1/gunaso/util/logger"
	"github.com/bwise1/gunaso/util/storage"
	"github.com/bwise1/gunaso/util/values"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	errNoEvidenceCredentials = errors.New("no evidence credentials supplied")
	errEvidenceForbidden     = errors.New("credentials do not match complaint")
)

// evidenceCaller is who is asking to read or add evidence.
type evidenceCaller struct {
	UserID     *uuid.UUID
	Role       string
	OfficeCode string
	AccessKey  string
}

// authorizeEvidence admits the complaint owner or a holder of the access key.
// Officers may read evidence of complaints forwarded to their office but not
// upload; an officer with no office reads any complaint.
func authorizeEvidence(c model.Complaint, caller evidenceCaller, upload bool) error {
	if caller.UserID != nil && c.UserID != nil && *caller.UserID == *c.UserID {
		return nil
	}
	if !upload && caller.Role == values.RoleOfficer {
		if caller.OfficeCode == "" || caller.OfficeCode == util.Deref(c.OfficeCode) {
			return nil
		}
		if caller.AccessKey == "" {
			return errEvidenceForbidden
		}
	}
	if caller.AccessKey != "" {
		if c.AccessKeyHash != nil && bcrypt.CompareHashAndPassword([]byte(*c.AccessKeyHash), []byte(caller.AccessKey)) == nil {
			return nil
		}
		return errEvidenceForbidden
	}
	if caller.UserID != nil {
		return errEvidenceForbidden
	}
	return errNoEvidenceCredentials
}

func evidenceAuthStatus(err error) (string, string) {
	if errors.Is(err, errNoEvidenceCredentials) {
		return values.NotAuthorised, "login or an access key is required"
	}
	return values.NotAllowed, "you cannot access evidence for this complaint"
}

func (api *API) loadComplaintForEvidence(ctx context.Context, trackingID string, caller evidenceCaller, upload bool) (model.Complaint, string, string, error) {
	trackingID = util.NormalizeTrackingID(trackingID)
	if !util.ValidTrackingID(trackingID) {
		return model.Complaint{}, values.NotFound, "complaint not found", ErrComplaintNotFound
	}

	complaint, err := api.GetComplaintByTrackingIDRepo(ctx, trackingID)
	if err != nil {
		if errors.Is(err, ErrComplaintNotFound) {
			return model.Complaint{}, values.NotFound, "complaint not found", err
		}
		return model.Complaint{}, values.Error, values.SystemErr, err
	}

	if !upload && caller.Role == values.RoleOfficer && caller.UserID != nil && caller.OfficeCode == "" {
		officer, err := api.GetUserByID(ctx, caller.UserID.String())
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return model.Complaint{}, values.NotAuthorised, "user not found", err
			}
			return model.Complaint{}, values.Error, values.SystemErr, err
		}
		caller.OfficeCode = util.Deref(officer.OfficeCode)
	}

	if err := authorizeEvidence(complaint, caller, upload); err != nil {
		status, message := evidenceAuthStatus(err)
		return model.Complaint{}, status, message, err
	}
	return complaint, values.Success, "", nil
}

type checkedUpload struct {
	header      *multipart.FileHeader
	contentType string
	mediaType   string
}

// checkUpload sniffs one file without keeping it open.
func (api *API) checkUpload(fh *multipart.FileHeader) (checkedUpload, error) {
	if fh.Size <= 0 {
		return checkedUpload{}, fmt.Errorf("%s is empty", fh.Filename)
	}
	if fh.Size > api.Config.MaxEvidenceBytes {
		return checkedUpload{}, fmt.Errorf("%s is larger than %d bytes", fh.Filename, api.Config.MaxEvidenceBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return checkedUpload{}, err
	}
	defer f.Close()

	contentType, mediaType, _, err := storage.Detect(f)
	if err != nil {
		return checkedUpload{}, fmt.Errorf("%s: %w", fh.Filename, err)
	}
	return checkedUpload{header: fh, contentType: contentType, mediaType: mediaType}, nil
}

func (api *API) UploadEvidenceHelper(ctx context.Context, trackingID string, caller evidenceCaller, files []*multipart.FileHeader) ([]model.EvidenceFile, string, string, error) {
	complaint, status, message, err := api.loadComplaintForEvidence(ctx, trackingID, caller, true)
	if err != nil {
		return nil, status, message, err
	}

	if complaint.Status == model.StatusClosed || complaint.Status == model.StatusRejected {
		return nil, values.Unprocessable, "evidence cannot be added to a " + complaint.Status + " complaint", errors.New("complaint is final")
	}
	if len(files) == 0 {
		return nil, values.BadRequestBody, "at least one file is required", errors.New("no files")
	}
	if complaint.EvidenceCount+len(files) > api.Config.MaxEvidenceFiles {
		return nil, values.BadRequestBody, fmt.Sprintf("a complaint can have at most %d evidence files", api.Config.MaxEvidenceFiles), errors.New("too many files")
	}

	checked := make([]checkedUpload, 0, len(files))
	for _, fh := range files {
		c, err := api.checkUpload(fh)
		if err != nil {
			if errors.Is(err, storage.ErrUnsupportedMedia) {
				return nil, values.BadRequestBody, "unsupported file type, upload an image, audio, video or document", err
			}
			return nil, values.BadRequestBody, err.Error(), err
		}
		checked = append(checked, c)
	}

	stored := make([]model.EvidenceFile, 0, len(checked))
	var storeErr error
	for _, c := range checked {
		file, err := api.storeEvidence(ctx, complaint, c)
		if err != nil {
			storeErr = err
			break
		}
		stored = append(stored, file)
	}

	// files saved before a failure still change the evidence count
	if len(stored) > 0 && api.Cache != nil {
		if err := api.Cache.InvalidateTracking(ctx, complaint.TrackingID); err != nil {
			logger.Warn("tracking cache invalidation failed", zap.String("tracking_id", complaint.TrackingID), zap.Error(err))
		}
	}
	if storeErr != nil {
		return stored, values.Error, "failed to store evidence", storeErr
	}
	return stored, values.Created, "Evidence uploaded", nil
}

func (api *API) storeEvidence(ctx context.Context, complaint model.Complaint, c checkedUpload) (model.EvidenceFile, error) {
	f, err := c.header.Open()
	if err != nil {
		return model.EvidenceFile{}, err
	}
	defer f.Close()

	id := util.GenerateUUID()
	name := storage.SafeName(c.header.Filename)
	saved, err := api.Storage.Upload(ctx, storage.Object{
		Folder:      "evidence/" + complaint.TrackingID,
		Name:        id.String() + "-" + name,
		ContentType: c.contentType,
		MediaType:   c.mediaType,
		Size:        c.header.Size,
		Body:        f,
	})
	if err != nil {
		return model.EvidenceFile{}, err
	}

	file := model.EvidenceFile{
		ID:          id,
		ComplaintID: complaint.ID,
		FileName:    name,
		FileURL:     saved.URL,
		StorageKey:  saved.Key,
		MediaType:   c.mediaType,
		ContentType: c.contentType,
		SizeBytes:   c.header.Size,
	}
	if err := api.InsertEvidenceRepo(ctx, &file); err != nil {
		if delErr := api.Storage.Delete(ctx, saved.Key, c.mediaType); delErr != nil {
			logger.Error("orphaned evidence object", zap.String("key", saved.Key), zap.Error(delErr))
		}
		return model.EvidenceFile{}, err
	}

	metrics.EvidenceUploaded.WithLabelValues(c.mediaType).Inc()
	return file, nil
}

func (api *API) ListEvidenceHelper(ctx context.Context, trackingID string, caller evidenceCaller) ([]model.EvidenceFile, string, string, error) {
	complaint, status, message, err := api.loadComplaintForEvidence(ctx, trackingID, caller, false)
	if err != nil {
		return nil, status, message, err
	}

	files, err := api.ListEvidenceRepo(ctx, complaint.ID)
	if err != nil {
		return nil, values.Error, "failed to list evidence", err
	}
	return files, values.Success, "Evidence retrieved", nil
}
