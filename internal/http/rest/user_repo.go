package rest

import (
	"context"

	"github.com/bwise1/gunaso/internal/model"
	"github.com/bwise1/gunaso/util"
)

// UpdateUserRepo sets the profile fields; blank values clear them.
func (api *API) UpdateUserRepo(ctx context.Context, userID string, req model.UpdateProfileRequest) (model.User, error) {
	stmt := `
        UPDATE users
        SET firstname = $2, lastname = $3, phone = $4, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + userColumns

	return scanUser(api.DB.QueryRow(ctx, stmt, userID,
		util.StringPtr(req.FirstName),
		util.StringPtr(req.LastName),
		util.StringPtr(req.Phone),
	))
}
