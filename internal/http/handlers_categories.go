package http

import (
	"net/http"
	"strconv"

	"budget/internal/core"
	"budget/internal/services"
)

const defaultSuggestLimit = 3

type reorderRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Categories.List(r.Context())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	NewJSONResponse().Body(cats).Write(w)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Categories.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(c).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in services.CategoryInput
	if err := DecodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	c, err := s.deps.Categories.Create(r.Context(), in)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/categories/"+c.ID).
		Body(c).
		Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var in services.CategoryInput
	if err := DecodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	c, err := s.deps.Categories.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(c).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Categories.Delete(r.Context(), r.PathValue("id")); err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleReorderCategories accepts {"ids": [...]}, a permutation of every
// category id, and returns the list in its new order.
func (s *Server) handleReorderCategories(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	cats, err := s.deps.Categories.Reorder(r.Context(), req.IDs)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(cats).Write(w)
}

func (s *Server) handleSuggestCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := sanitizeInput(q.Get("name"))
	if name == "" {
		BadRequestError("name is required").Write(w)
		return
	}
	limit := defaultSuggestLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			BadRequestError("limit must be a positive integer").Write(w)
			return
		}
		limit = n
	}
	names, err := s.deps.Categories.Suggest(r.Context(), name, limit)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if names == nil {
		names = []string{}
	}
	NewJSONResponse().Body(map[string][]string{"suggestions": names}).Write(w)
}
