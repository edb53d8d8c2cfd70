package rest

import (
	"context"

	"github.com/bwise1/gunaso/internal/model"
	"github.com/google/uuid"
)

func (api *API) InsertEvidenceRepo(ctx context.Context, file *model.EvidenceFile) error {
	query := `
        INSERT INTO evidence_files (
            id, complaint_id, file_name, file_url, storage_key, media_type, content_type, size_bytes
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING uploaded_at
    `
	return api.DB.QueryRow(ctx, query,
		file.ID, file.ComplaintID, file.FileName, file.FileURL, file.StorageKey,
		file.MediaType, file.ContentType, file.SizeBytes,
	).Scan(&file.UploadedAt)
}

func (api *API) ListEvidenceRepo(ctx context.Context, complaintID uuid.UUID) ([]model.EvidenceFile, error) {
	query := `
        SELECT id, complaint_id, file_name, file_url, storage_key, media_type, content_type, size_bytes, uploaded_at
        FROM evidence_files
        WHERE complaint_id = $1
        ORDER BY uploaded_at
    `
	rows, err := api.DB.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []model.EvidenceFile{}
	for rows.Next() {
		var f model.EvidenceFile
		if err := rows.Scan(&f.ID, &f.ComplaintID, &f.FileName, &f.FileURL, &f.StorageKey,
			&f.MediaType, &f.ContentType, &f.SizeBytes, &f.UploadedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
