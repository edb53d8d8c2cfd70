package rest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwise1/gunaso/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrComplaintNotFound = errors.New("complaint not found")
	// ErrStatusChanged means another writer moved the complaint first.
	ErrStatusChanged = errors.New("complaint status changed concurrently")
)

const (
	uniqueViolation       = "23505"
	trackingIDConstraint  = "complaints_tracking_id_key"
	complaintSelectColumn = `
            c.id, c.tracking_id, c.submission_type, c.user_id, c.pseudonym,
            c.contact_email, c.contact_phone, c.access_key_hash, c.category, c.title,
            c.description, c.province, c.district, c.municipality, c.ward,
            c.latitude, c.longitude, c.status, c.office_code,
            (SELECT COUNT(*) FROM evidence_files e WHERE e.complaint_id = c.id),
            c.created_at, c.updated_at`
)

func isTrackingIDCollision(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == trackingIDConstraint
}

func scanComplaint(row pgx.Row) (model.Complaint, error) {
	var c model.Complaint
	err := row.Scan(
		&c.ID, &c.TrackingID, &c.SubmissionType, &c.UserID, &c.Pseudonym,
		&c.ContactEmail, &c.ContactPhone, &c.AccessKeyHash, &c.Category, &c.Title,
		&c.Description, &c.Province, &c.District, &c.Municipality, &c.Ward,
		&c.Latitude, &c.Longitude, &c.Status, &c.OfficeCode,
		&c.EvidenceCount,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Complaint{}, ErrComplaintNotFound
	}
	return c, err
}

func insertComplaintTx(ctx context.Context, tx pgx.Tx, c *model.Complaint) error {
	query := `
        INSERT INTO complaints (
            id, tracking_id, submission_type, user_id, pseudonym, contact_email,
            contact_phone, access_key_hash, category, title, description,
            province, district, municipality, ward, latitude, longitude, status
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
        ) RETURNING created_at, updated_at
    `
	return tx.QueryRow(ctx, query,
		c.ID, c.TrackingID, c.SubmissionType, c.UserID, c.Pseudonym, c.ContactEmail,
		c.ContactPhone, c.AccessKeyHash, c.Category, c.Title, c.Description,
		c.Province, c.District, c.Municipality, c.Ward, c.Latitude, c.Longitude, c.Status,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func insertForwardingTx(ctx context.Context, tx pgx.Tx, f model.Forwarding) error {
	query := `
        INSERT INTO complaint_forwardings (complaint_id, office_code, match_level, forwarded_at)
        VALUES ($1, $2, $3, $4)
    `
	if _, err := tx.Exec(ctx, query, f.ComplaintID, f.OfficeCode, f.MatchLevel, f.ForwardedAt); err != nil {
		return fmt.Errorf("inserting forwarding: %w", err)
	}

	update := `UPDATE complaints SET office_code = $2 WHERE id = $1`
	if _, err := tx.Exec(ctx, update, f.ComplaintID, f.OfficeCode); err != nil {
		return fmt.Errorf("setting complaint office: %w", err)
	}
	return nil
}

func insertHistoryTx(ctx context.Context, tx pgx.Tx, h model.StatusHistory) error {
	query := `
        INSERT INTO status_history (complaint_id, from_status, to_status, note, changed_by, changed_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	if _, err := tx.Exec(ctx, query, h.ComplaintID, h.FromStatus, h.ToStatus, h.Note, h.ChangedBy, h.ChangedAt); err != nil {
		return fmt.Errorf("inserting status history: %w", err)
	}
	return nil
}

// updateStatusTx moves a complaint only if it is still in the expected status.
func updateStatusTx(ctx context.Context, tx pgx.Tx, complaintID uuid.UUID, from, to string) (time.Time, error) {
	query := `
        UPDATE complaints SET status = $3, updated_at = NOW()
        WHERE id = $1 AND status = $2
        RETURNING updated_at
    `
	var updatedAt time.Time
	err := tx.QueryRow(ctx, query, complaintID, from, to).Scan(&updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrStatusChanged
	}
	return updatedAt, err
}

func (api *API) GetComplaintByTrackingIDRepo(ctx context.Context, trackingID string) (model.Complaint, error) {
	query := `SELECT ` + complaintSelectColumn + ` FROM complaints c WHERE c.tracking_id = $1`
	return scanComplaint(api.DB.QueryRow(ctx, query, trackingID))
}

func (api *API) GetStatusHistoryRepo(ctx context.Context, complaintID uuid.UUID) ([]model.StatusHistory, error) {
	query := `
        SELECT id, complaint_id, from_status, to_status, note, changed_by, changed_at
        FROM status_history
        WHERE complaint_id = $1
        ORDER BY seq
    `
	rows, err := api.DB.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []model.StatusHistory{}
	for rows.Next() {
		var h model.StatusHistory
		if err := rows.Scan(&h.ID, &h.ComplaintID, &h.FromStatus, &h.ToStatus, &h.Note, &h.ChangedBy, &h.ChangedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// complaintScope restricts a listing to one owner or one office.
type complaintScope struct {
	UserID     *uuid.UUID
	OfficeCode *string
}

func (api *API) ListComplaintsRepo(ctx context.Context, scope complaintScope, filter model.ComplaintFilter) ([]model.Complaint, int, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if scope.UserID != nil {
		add("c.user_id = $%d", *scope.UserID)
	}
	if scope.OfficeCode != nil {
		add("c.office_code = $%d", *scope.OfficeCode)
	}
	if filter.Status != "" {
		add("c.status = $%d", filter.Status)
	}
	if filter.Category != "" {
		add("c.category = $%d", filter.Category)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := api.DB.QueryRow(ctx, `SELECT COUNT(*) FROM complaints c`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM complaints c%s ORDER BY c.created_at DESC LIMIT $%d OFFSET $%d`,
		complaintSelectColumn, clause, len(args)-1, len(args))

	rows, err := api.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	complaints := []model.Complaint{}
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, 0, err
		}
		complaints = append(complaints, c)
	}
	return complaints, total, rows.Err()
}

func (api *API) countComplaints(ctx context.Context) (int, error) {
	var total int
	err := api.DB.QueryRow(ctx, `SELECT COUNT(*) FROM complaints`).Scan(&total)
	return total, err
}

func (api *API) countComplaintsBy(ctx context.Context, column string) (map[string]int, error) {
	// column is never user input
	rows, err := api.DB.Query(ctx, fmt.Sprintf(`SELECT %s, COUNT(*) FROM complaints GROUP BY %s`, column, column))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

func (api *API) countResolvedSince(ctx context.Context, since time.Time) (int, error) {
	query := `
        SELECT COUNT(DISTINCT complaint_id) FROM status_history
        WHERE to_status = 'resolved' AND changed_at >= $1
    `
	var n int
	err := api.DB.QueryRow(ctx, query, since).Scan(&n)
	return n, err
}
