package rest

import (
	"context"
	"errors"
	"strings"

	"github.com/bwise1/gunaso/internal/model"
	"github.com/bwise1/gunaso/util"
	"github.com/bwise1/gunaso/util/logger"
	"github.com/bwise1/gunaso/util/values"
	"go.uber.org/zap"
)

var projectStatuses = []string{model.ProjectPlanned, model.ProjectOngoing, model.ProjectCompleted, model.ProjectStalled}

func isProjectStatus(s string) bool {
	for _, st := range projectStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// checkProjectFilter normalizes a listing filter and rejects unknown values.
func checkProjectFilter(filter *model.ProjectFilter) error {
	filter.Province = strings.TrimSpace(filter.Province)
	filter.District = strings.TrimSpace(filter.District)
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
	filter.Category = strings.ToLower(strings.TrimSpace(filter.Category))
	filter.Query = strings.TrimSpace(filter.Query)

	if filter.Province != "" && !util.IsProvince(filter.Province) {
		return errors.New("unknown province " + filter.Province)
	}
	if filter.Status != "" && !isProjectStatus(filter.Status) {
		return errors.New("unknown project status " + filter.Status)
	}
	if len(filter.Query) > 100 {
		return errors.New("search query is too long")
	}
	return nil
}

func (api *API) ListProjectsHelper(ctx context.Context, filter model.ProjectFilter) (model.Page[model.PublicProject], string, string, error) {
	if err := checkProjectFilter(&filter); err != nil {
		return model.Page[model.PublicProject]{}, values.BadRequestBody, err.Error(), err
	}

	projects, total, err := api.ListProjectsRepo(ctx, filter)
	if err != nil {
		return model.Page[model.PublicProject]{}, values.Error, "failed to list projects", err
	}

	return model.Page[model.PublicProject]{
		Items: projects,
		Pagination: api.pagination("/projects", total, filter.Page, filter.PageSize, func(page int) interface{} {
			f := filter
			f.Page = page
			return f
		}),
	}, values.Success, "Projects retrieved", nil
}

func (api *API) GetProjectHelper(ctx context.Context, id string) (model.PublicProject, string, string, error) {
	if _, err := util.StringToUUID(id); err != nil {
		return model.PublicProject{}, values.NotFound, "project not found", ErrProjectNotFound
	}

	project, err := api.GetProjectByIDRepo(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return model.PublicProject{}, values.NotFound, "project not found", err
		}
		return model.PublicProject{}, values.Error, values.SystemErr, err
	}

	if line := util.Deref(project.AlignmentLine); line != "" {
		coords, err := util.DecodePolyLines(line)
		if err != nil {
			// a bad stored line should not hide the project itself
			logger.Warn("project alignment unreadable", zap.String("project_id", id), zap.Error(err))
		} else {
			project.Alignment = coords
		}
	}
	return project, values.Success, "Project retrieved", nil
}

func (api *API) CreateProjectHelper(ctx context.Context, req model.CreateProjectRequest) (model.PublicProject, string, string, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	req.Province = strings.TrimSpace(req.Province)
	req.Alignment = strings.TrimSpace(req.Alignment)

	if err := util.ValidateStruct(req); err != nil {
		return model.PublicProject{}, values.BadRequestBody, util.ValidationMessage(err), err
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return model.PublicProject{}, values.BadRequestBody, "end_date cannot be before start_date", errors.New("invalid date range")
	}
	if req.OfficeCode != "" {
		if _, ok := api.Forwarding.OfficeByCode(req.OfficeCode); !ok {
			return model.PublicProject{}, values.BadRequestBody, "unknown office code", errors.New("unknown office " + req.OfficeCode)
		}
	}

	project := model.PublicProject{
		ID:              util.GenerateUUID(),
		Name:            req.Name,
		Description:     util.StringPtr(req.Description),
		Category:        req.Category,
		Province:        util.StringPtr(req.Province),
		District:        util.StringPtr(req.District),
		OfficeCode:      util.StringPtr(req.OfficeCode),
		Contractor:      util.StringPtr(req.Contractor),
		BudgetNPR:       req.BudgetNPR,
		SpentNPR:        req.SpentNPR,
		Status:          req.Status,
		ProgressPercent: req.ProgressPercent,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
	}
	if req.Alignment != "" {
		coords, err := util.DecodePolyLines(req.Alignment)
		if err != nil {
			return model.PublicProject{}, values.BadRequestBody, "alignment is not a valid encoded polyline", err
		}
		project.AlignmentLine = util.StringPtr(req.Alignment)
		project.Alignment = coords
	}

	if err := api.CreateProjectRepo(ctx, &project); err != nil {
		return model.PublicProject{}, values.Error, "failed to create project", err
	}
	return project, values.Created, "Project created", nil
}
