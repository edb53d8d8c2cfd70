package rest

import (
	"github.com/bwise1/gunaso/internal/model"
	"github.com/bwise1/gunaso/util"
)

// pagination builds page metadata. linkFilter returns the filter for a given
// page, encoded into the next and prev links.
func (api *API) pagination(base string, total, page, pageSize int, linkFilter func(page int) interface{}) model.Pagination {
	p := model.Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: util.TotalPages(total, pageSize),
	}
	url := api.Config.PublicBaseURL + base
	if page < p.TotalPages {
		p.Next = util.PageLink(url, linkFilter(page+1))
	}
	if page > 1 {
		p.Prev = util.PageLink(url, linkFilter(page-1))
	}
	return p
}
