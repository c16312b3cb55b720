package server

import (
	"net/http"

	"organlink/internal/review"
	"organlink/pkg/types"
)

type reviewRequest struct {
	Decision string `json:"decision" form:"decision"`
	Notes    string `json:"notes" form:"notes"`
}

func (s *Service) listApplications(kind types.ApplicationKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applications, err := s.applications.Applications(r.Context(), kind)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		views := make([]*types.ApplicationView, 0, len(applications))
		for _, a := range applications {
			views = append(views, a.View())
		}

		s.writeJSON(w, http.StatusOK, views)
	}
}

func (s *Service) reviewApplication(kind types.ApplicationKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in reviewRequest
		if err := decodeBody(w, r, &in); err != nil {
			s.writeMessage(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		result, err := s.reviews.Review(r.Context(), review.Request{
			Kind:          kind,
			ApplicationID: r.PathValue("id"),
			Decision:      in.Decision,
			Notes:         in.Notes,
			Reviewer:      userFromContext(r.Context()),
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.writeJSON(w, http.StatusOK, result)
	}
}
