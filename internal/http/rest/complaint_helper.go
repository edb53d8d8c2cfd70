package rest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwise1/gunaso/internal/forwarding"
	"github.com/bwise1/gunaso/internal/metrics"
	"github.com/bwise1/gunaso/internal/model"
	"github.com/bwise1/gunaso/util"
	"github.com/bwise1/gunaso/util/logger"
	"github.com/bwise1/gunaso/util/values"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

// newTrackingID is swapped in tests to force collisions.
var newTrackingID = util.GenerateTrackingID

const (
	maxTrackingAttempts = 3
	defaultTrackingTTL  = 2 * time.Minute
)

// normalizeComplaint trims free text and lower-cases the category.
func normalizeComplaint(req *model.CreateComplaintRequest) {
	req.SubmissionType = strings.ToLower(strings.TrimSpace(req.SubmissionType))
	req.Pseudonym = strings.TrimSpace(req.Pseudonym)
	req.ContactEmail = strings.TrimSpace(req.ContactEmail)
	req.ContactPhone = strings.TrimSpace(req.ContactPhone)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Province = strings.TrimSpace(req.Province)
	req.District = strings.TrimSpace(req.District)
	req.Municipality = strings.TrimSpace(req.Municipality)
	for _, p := range model.Provinces {
		if strings.EqualFold(p, req.Province) {
			req.Province = p
		}
	}
}

// checkSubmission applies the identity rules of each submission type and
// returns the owner to record, if any.
func checkSubmission(req model.CreateComplaintRequest, userID *uuid.UUID) (*uuid.UUID, string, string, error) {
	switch req.SubmissionType {
	case model.SubmissionVerified:
		if userID == nil {
			return nil, values.NotAuthorised, "login required to submit a verified complaint", errors.New("verified complaint without a user")
		}
		return userID, "", "", nil
	case model.SubmissionPseudonymous:
		if req.Pseudonym == "" {
			return nil, values.BadRequestBody, "pseudonym is required for pseudonymous complaints", errors.New("missing pseudonym")
		}
		return userID, "", "", nil
	default:
		if req.Pseudonym != "" || req.ContactEmail != "" || req.ContactPhone != "" {
			return nil, values.BadRequestBody, "anonymous complaints cannot carry a pseudonym or contact details", errors.New("identity on anonymous complaint")
		}
		return nil, "", "", nil
	}
}

func (api *API) CreateComplaintHelper(ctx context.Context, req model.CreateComplaintRequest, userID *uuid.UUID) (model.CreateComplaintResponse, string, string, error) {
	normalizeComplaint(&req)

	if err := util.ValidateStruct(req); err != nil {
		return model.CreateComplaintResponse{}, values.BadRequestBody, util.ValidationMessage(err), err
	}
	if !api.Forwarding.HasCategory(req.Category) {
		return model.CreateComplaintResponse{}, values.BadRequestBody, "unknown complaint category", forwarding.ErrNoOffice
	}

	owner, status, message, err := checkSubmission(req, userID)
	if err != nil {
		return model.CreateComplaintResponse{}, status, message, err
	}

	complaint := model.Complaint{
		ID:             util.GenerateUUID(),
		SubmissionType: req.SubmissionType,
		UserID:         owner,
		Pseudonym:      util.StringPtr(req.Pseudonym),
		ContactEmail:   util.StringPtr(req.ContactEmail),
		ContactPhone:   util.StringPtr(req.ContactPhone),
		Category:       req.Category,
		Title:          req.Title,
		Description:    req.Description,
		Province:       util.StringPtr(req.Province),
		District:       util.StringPtr(req.District),
		Municipality:   util.StringPtr(req.Municipality),
		Ward:           req.Ward,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Status:         model.StatusSubmitted,
	}

	var accessKey string
	if complaint.SubmissionType != model.SubmissionVerified {
		accessKey, err = util.GenerateAccessKey()
		if err != nil {
			return model.CreateComplaintResponse{}, values.Error, values.SystemErr, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(accessKey), bcrypt.DefaultCost)
		if err != nil {
			return model.CreateComplaintResponse{}, values.Error, values.SystemErr, err
		}
		complaint.AccessKeyHash = util.StringPtr(string(hash))
	}

	assignment, assignErr := api.Forwarding.Assign(req.Category, req.Province, req.District)
	if assignErr != nil {
		logger.Warn("complaint not forwarded", zap.String("category", req.Category), zap.Error(assignErr))
	}

	for attempt := 1; attempt <= maxTrackingAttempts; attempt++ {
		complaint.TrackingID, err = newTrackingID(time.Now())
		if err != nil {
			return model.CreateComplaintResponse{}, values.Error, values.SystemErr, err
		}
		err = api.Deps.DB.RunInTx(ctx, func(tx pgx.Tx) error {
			return api.saveComplaintTx(ctx, tx, &complaint, assignment, assignErr == nil)
		})
		if !isTrackingIDCollision(err) {
			break
		}
		logger.Warn("tracking id collision, retrying", zap.String("tracking_id", complaint.TrackingID), zap.Int("attempt", attempt))
	}
	if err != nil {
		return model.CreateComplaintResponse{}, values.Error, "failed to save complaint", err
	}

	metrics.ComplaintsSubmitted.WithLabelValues(complaint.Category, complaint.SubmissionType).Inc()

	resp := model.CreateComplaintResponse{
		ID:         complaint.ID,
		TrackingID: complaint.TrackingID,
		Status:     complaint.Status,
		AccessKey:  accessKey,
		CreatedAt:  complaint.CreatedAt,
	}
	if assignErr == nil {
		metrics.ComplaintsForwarded.WithLabelValues(string(assignment.Level)).Inc()
		office := assignment.Office
		resp.Office = &office
		resp.MatchLevel = string(assignment.Level)
	}
	return resp, values.Created, "Complaint submitted successfully", nil
}

func (api *API) saveComplaintTx(ctx context.Context, tx pgx.Tx, c *model.Complaint, assignment forwarding.Assignment, forwarded bool) error {
	c.Status = model.StatusSubmitted
	if err := insertComplaintTx(ctx, tx, c); err != nil {
		return err
	}
	if err := insertHistoryTx(ctx, tx, model.StatusHistory{
		ComplaintID: c.ID,
		ToStatus:    model.StatusSubmitted,
		ChangedBy:   c.UserID,
		ChangedAt:   c.CreatedAt,
	}); err != nil {
		return err
	}
	if !forwarded {
		return nil
	}

	now := c.CreatedAt
	if err := insertForwardingTx(ctx, tx, model.Forwarding{
		ComplaintID: c.ID,
		OfficeCode:  assignment.Office.Code,
		MatchLevel:  string(assignment.Level),
		ForwardedAt: now,
	}); err != nil {
		return err
	}
	if _, err := updateStatusTx(ctx, tx, c.ID, model.StatusSubmitted, model.StatusForwarded); err != nil {
		return err
	}
	from := model.StatusSubmitted
	note := "Forwarded to " + assignment.Office.Name
	if err := insertHistoryTx(ctx, tx, model.StatusHistory{
		ComplaintID: c.ID,
		FromStatus:  &from,
		ToStatus:    model.StatusForwarded,
		Note:        &note,
		ChangedAt:   now,
	}); err != nil {
		return err
	}

	c.Status = model.StatusForwarded
	code := assignment.Office.Code
	c.OfficeCode = &code
	return nil
}

func (api *API) trackingTTL() time.Duration {
	ttl, err := time.ParseDuration(api.Config.TrackingTTL)
	if err != nil || ttl <= 0 {
		return defaultTrackingTTL
	}
	return ttl
}

func (api *API) TrackComplaintHelper(ctx context.Context, trackingID string) (model.TrackedComplaint, string, string, error) {
	trackingID = util.NormalizeTrackingID(trackingID)
	if !util.ValidTrackingID(trackingID) {
		return model.TrackedComplaint{}, values.NotFound, "complaint not found", ErrComplaintNotFound
	}

	var tracked model.TrackedComplaint
	if api.Cache != nil {
		found, err := api.Cache.GetTracking(ctx, trackingID, &tracked)
		if err != nil {
			logger.Warn("tracking cache read failed", zap.String("tracking_id", trackingID), zap.Error(err))
		} else if found {
			return tracked, values.Success, "Complaint found", nil
		}
	}

	complaint, err := api.GetComplaintByTrackingIDRepo(ctx, trackingID)
	if err != nil {
		if errors.Is(err, ErrComplaintNotFound) {
			return model.TrackedComplaint{}, values.NotFound, "complaint not found", err
		}
		return model.TrackedComplaint{}, values.Error, values.SystemErr, err
	}

	history, err := api.GetStatusHistoryRepo(ctx, complaint.ID)
	if err != nil {
		return model.TrackedComplaint{}, values.Error, values.SystemErr, err
	}

	tracked = model.TrackedComplaint{
		TrackingID:     complaint.TrackingID,
		SubmissionType: complaint.SubmissionType,
		Category:       complaint.Category,
		Title:          complaint.Title,
		Province:       complaint.Province,
		District:       complaint.District,
		Status:         complaint.Status,
		EvidenceCount:  complaint.EvidenceCount,
		History:        history,
		CreatedAt:      complaint.CreatedAt,
		UpdatedAt:      complaint.UpdatedAt,
	}
	if complaint.OfficeCode != nil {
		if office, ok := api.Forwarding.OfficeByCode(*complaint.OfficeCode); ok {
			tracked.Office = &office
		}
	}

	if api.Cache != nil {
		if err := api.Cache.SetTracking(ctx, trackingID, tracked, api.trackingTTL()); err != nil {
			logger.Warn("tracking cache write failed", zap.String("tracking_id", trackingID), zap.Error(err))
		}
	}
	return tracked, values.Success, "Complaint found", nil
}

func (api *API) listComplaints(ctx context.Context, scope complaintScope, filter model.ComplaintFilter, base string) (model.Page[model.Complaint], string, string, error) {
	if filter.Status != "" && !model.IsStatus(filter.Status) {
		return model.Page[model.Complaint]{}, values.BadRequestBody, "unknown status filter", errors.New("invalid status " + filter.Status)
	}
	filter.Category = strings.ToLower(strings.TrimSpace(filter.Category))

	complaints, total, err := api.ListComplaintsRepo(ctx, scope, filter)
	if err != nil {
		return model.Page[model.Complaint]{}, values.Error, "failed to list complaints", err
	}
	return model.Page[model.Complaint]{
		Items: complaints,
		Pagination: api.pagination(base, total, filter.Page, filter.PageSize, func(page int) interface{} {
			f := filter
			f.Page = page
			return f
		}),
	}, values.Success, "Complaints retrieved", nil
}

func (api *API) MyComplaintsHelper(ctx context.Context, userID uuid.UUID, filter model.ComplaintFilter) (model.Page[model.Complaint], string, string, error) {
	return api.listComplaints(ctx, complaintScope{UserID: &userID}, filter, "/complaints/mine")
}

// OfficeComplaintsHelper lists complaints forwarded to the officer's office.
// Officers without an office see every complaint.
func (api *API) OfficeComplaintsHelper(ctx context.Context, officeCode string, filter model.ComplaintFilter) (model.Page[model.Complaint], string, string, error) {
	scope := complaintScope{}
	if officeCode != "" {
		scope.OfficeCode = &officeCode
	}
	return api.listComplaints(ctx, scope, filter, "/complaints")
}

func (api *API) UpdateComplaintStatusHelper(ctx context.Context, trackingID string, req model.UpdateStatusRequest, officerID uuid.UUID, officeCode string) (model.StatusEvent, string, string, error) {
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	req.Note = strings.TrimSpace(req.Note)
	if err := util.ValidateStruct(req); err != nil {
		return model.StatusEvent{}, values.BadRequestBody, util.ValidationMessage(err), err
	}

	trackingID = util.NormalizeTrackingID(trackingID)
	if !util.ValidTrackingID(trackingID) {
		return model.StatusEvent{}, values.NotFound, "complaint not found", ErrComplaintNotFound
	}

	complaint, err := api.GetComplaintByTrackingIDRepo(ctx, trackingID)
	if err != nil {
		if errors.Is(err, ErrComplaintNotFound) {
			return model.StatusEvent{}, values.NotFound, "complaint not found", err
		}
		return model.StatusEvent{}, values.Error, values.SystemErr, err
	}

	if officeCode != "" && util.Deref(complaint.OfficeCode) != officeCode {
		return model.StatusEvent{}, values.NotAllowed, "complaint is not assigned to your office", errors.New("office mismatch")
	}
	if !model.CanTransition(complaint.Status, req.Status) {
		return model.StatusEvent{}, values.Unprocessable, "cannot move complaint from " + complaint.Status + " to " + req.Status, errors.New("invalid status transition")
	}

	event := model.StatusEvent{
		TrackingID: complaint.TrackingID,
		FromStatus: complaint.Status,
		ToStatus:   req.Status,
		Note:       req.Note,
	}
	err = api.Deps.DB.RunInTx(ctx, func(tx pgx.Tx) error {
		changedAt, err := updateStatusTx(ctx, tx, complaint.ID, complaint.Status, req.Status)
		if err != nil {
			return err
		}
		event.ChangedAt = changedAt
		from := complaint.Status
		return insertHistoryTx(ctx, tx, model.StatusHistory{
			ComplaintID: complaint.ID,
			FromStatus:  &from,
			ToStatus:    req.Status,
			Note:        util.StringPtr(req.Note),
			ChangedBy:   &officerID,
			ChangedAt:   changedAt,
		})
	})
	if err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return model.StatusEvent{}, values.Conflict, "complaint status was changed by someone else, reload and try again", err
		}
		return model.StatusEvent{}, values.Error, "failed to update status", err
	}

	metrics.StatusChanges.WithLabelValues(req.Status).Inc()
	api.announceStatus(ctx, complaint, event)

	return event, values.Success, "Status updated", nil
}

// announceStatus drops the cached tracking view and notifies subscribers and
// the complainant. Failures here never undo the status change.
func (api *API) announceStatus(ctx context.Context, complaint model.Complaint, event model.StatusEvent) {
	if api.Cache != nil {
		if err := api.Cache.InvalidateTracking(ctx, event.TrackingID); err != nil {
			logger.Warn("tracking cache invalidation failed", zap.String("tracking_id", event.TrackingID), zap.Error(err))
		}
	}
	if api.Publisher != nil {
		api.Publisher.Publish(event.TrackingID, event)
	}

	recipient := util.Deref(complaint.ContactEmail)
	if recipient == "" || api.Mailer == nil {
		return
	}
	go func() {
		data := map[string]interface{}{
			"TrackingID": event.TrackingID,
			"FromStatus": event.FromStatus,
			"Status":     event.ToStatus,
			"Note":       event.Note,
			"TrackURL":   api.Config.PublicBaseURL + "/complaints/track/" + event.TrackingID,
		}
		if err := api.Mailer.Send(recipient, data, "statusUpdate.tmpl"); err != nil {
			logger.Error("failed to send status email", zap.String("tracking_id", event.TrackingID), zap.Error(err))
		}
	}()
}

func (api *API) ComplaintStatsHelper(ctx context.Context) (model.ComplaintStats, string, string, error) {
	var stats model.ComplaintStats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats.Total, err = api.countComplaints(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.ByStatus, err = api.countComplaintsBy(gctx, "status")
		return err
	})
	g.Go(func() error {
		var err error
		stats.ByCategory, err = api.countComplaintsBy(gctx, "category")
		return err
	})
	g.Go(func() error {
		var err error
		stats.Resolved30, err = api.countResolvedSince(gctx, time.Now().AddDate(0, 0, -30))
		return err
	})
	if err := g.Wait(); err != nil {
		return model.ComplaintStats{}, values.Error, "failed to compute statistics", err
	}
	return stats, values.Success, "Statistics retrieved", nil
}
