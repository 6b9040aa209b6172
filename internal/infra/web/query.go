package web

import (
	"fmt"
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/model"
)

type pageQuery struct {
	Page  int `query:"page" validate:"min=1"`
	Limit int `query:"limit" validate:"min=1,max=100"`
}

// bindPage reads ?page&limit, defaulting to the first page of DefaultLimit items.
func (s *Server) bindPage(r *http.Request) (model.PageRequest, error) {
	q := pageQuery{Page: model.DefaultPage, Limit: model.DefaultLimit}
	params := r.URL.Query()
	var page, limit *int
	if err := runtime.BindQueryParameter("form", true, false, "page", params, &page); err != nil {
		return model.PageRequest{}, fmt.Errorf("page must be an integer: %w", domain.ErrInvalidArgument)
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", params, &limit); err != nil {
		return model.PageRequest{}, fmt.Errorf("limit must be an integer: %w", domain.ErrInvalidArgument)
	}
	if page != nil {
		q.Page = *page
	}
	if limit != nil {
		q.Limit = *limit
	}
	if err := s.validate.Struct(q); err != nil {
		return model.PageRequest{}, err
	}
	return model.PageRequest{Page: q.Page, Limit: q.Limit}, nil
}

func bindString(r *http.Request, name string) (string, error) {
	var v *string
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return "", fmt.Errorf("%s: %w", name, domain.ErrInvalidArgument)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}
