package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleTagSuggestions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r.URL.Query(), "limit", 0)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	out, err := s.svc.Tags.Suggestions(r.Context(), r.URL.Query().Get("prefix"), limit)
	if err != nil {
		s.fail(w, r, "tag_suggestions", err)
		return
	}
	NewJSONResponse().Data(map[string][]string{"tags": out}).Write(w)
}

func (s *Server) handlePopularTags(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r.URL.Query(), "limit", 0)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	counts, err := s.svc.Tags.Popular(r.Context(), limit)
	if err != nil {
		s.fail(w, r, "popular_tags", err)
		return
	}
	out := make([]tagCountResponse, 0, len(counts))
	for _, c := range counts {
		out = append(out, tagCountResponse{Tag: c.Tag, Count: c.Count})
	}
	NewJSONResponse().Data(map[string][]tagCountResponse{"tags": out}).Write(w)
}

func (s *Server) handleRemoveTag(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Tags.Remove(r.Context(), chi.URLParam(r, "tag")); err != nil {
		s.fail(w, r, "remove_tag", err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
