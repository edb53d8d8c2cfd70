package rest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwise1/gunaso/internal/model"
	"github.com/jackc/pgx/v5"
)

var ErrProjectNotFound = errors.New("project not found")

const projectColumns = `
            id, name, description, category, province, district, office_code, contractor,
            budget_npr, spent_npr, status, progress_percent, start_date, end_date,
            alignment_polyline, created_at, updated_at`

func scanProject(row pgx.Row) (model.PublicProject, error) {
	var p model.PublicProject
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.Province, &p.District, &p.OfficeCode, &p.Contractor,
		&p.BudgetNPR, &p.SpentNPR, &p.Status, &p.ProgressPercent, &p.StartDate, &p.EndDate,
		&p.AlignmentLine, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PublicProject{}, ErrProjectNotFound
	}
	return p, err
}

// likeEscaper makes user text match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (api *API) ListProjectsRepo(ctx context.Context, filter model.ProjectFilter) ([]model.PublicProject, int, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.Province != "" {
		add("lower(province) = lower($%d)", filter.Province)
	}
	if filter.District != "" {
		add("lower(district) = lower($%d)", filter.District)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.Query != "" {
		add(`name ILIKE '%%' || $%d || '%%' ESCAPE '\'`, likeEscaper.Replace(filter.Query))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := api.DB.QueryRow(ctx, `SELECT COUNT(*) FROM public_projects`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM public_projects%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		projectColumns, clause, len(args)-1, len(args))

	rows, err := api.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	projects := []model.PublicProject{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	return projects, total, rows.Err()
}

func (api *API) GetProjectByIDRepo(ctx context.Context, id string) (model.PublicProject, error) {
	query := `SELECT ` + projectColumns + ` FROM public_projects WHERE id = $1`
	return scanProject(api.DB.QueryRow(ctx, query, id))
}

func (api *API) CreateProjectRepo(ctx context.Context, p *model.PublicProject) error {
	query := `
        INSERT INTO public_projects (
            id, name, description, category, province, district, office_code, contractor,
            budget_npr, spent_npr, status, progress_percent, start_date, end_date, alignment_polyline
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        RETURNING created_at, updated_at
    `
	return api.DB.QueryRow(ctx, query,
		p.ID, p.Name, p.Description, p.Category, p.Province, p.District, p.OfficeCode, p.Contractor,
		p.BudgetNPR, p.SpentNPR, p.Status, p.ProgressPercent, p.StartDate, p.EndDate, p.AlignmentLine,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}
