package server

import (
	"net/http"
	"strings"

	"organlink/internal/utils"
	"organlink/pkg/types"
)

type availabilityRequest struct {
	OrganType         string           `json:"organType" form:"organType"`
	Hospital          string           `json:"hospital" form:"hospital"`
	PreservationHours types.FlexString `json:"preservationHours" form:"preservationHours"`
	Notes             string           `json:"notes" form:"notes"`
}

func (s *Service) handleGetDonations(w http.ResponseWriter, r *http.Request) {
	donations, err := s.donations.Donations(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	views := make([]*types.DonationView, 0, len(donations))
	for _, d := range donations {
		views = append(views, d.View())
	}

	s.writeJSON(w, http.StatusOK, views)
}

func (s *Service) handlePostAvailability(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	user := userFromContext(ctx)

	var in availabilityRequest
	if err := decodeBody(w, r, &in); err != nil {
		s.writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var errs fieldErrors
	errs.required("organType", in.OrganType, "Organ type is required")
	errs.required("hospital", in.Hospital, "Hospital is required")
	hours, ok := intValue(in.PreservationHours)
	if !ok {
		errs.add("preservationHours", "Preservation hours must be a number")
	}
	if len(errs) > 0 {
		s.writeValidation(w, errs)
		return
	}

	donation := &types.Donation{
		DonorID:           user.ID,
		OrganType:         strings.TrimSpace(in.OrganType),
		Hospital:          utils.NonEmptyStringPtr(in.Hospital),
		PreservationHours: hours,
		Notes:             utils.NonEmptyStringPtr(in.Notes),
		Donor:             user,
	}

	if err := s.donations.Create(ctx, donation); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.auditor.Record(ctx, types.AuditEntry{
		Action: "donation.shared",
		Actor:  types.ActorFromUser(user),
		Entity: &types.AuditEntity{Type: "donation", ID: donation.ID},
		Metadata: map[string]any{
			"organType": donation.OrganType,
			"hospital":  utils.PtrString(donation.Hospital),
		},
	})

	s.writeJSON(w, http.StatusCreated, donation.View())
}

func (s *Service) handleGetRecipients(w http.ResponseWriter, r *http.Request) {
	recipients, err := s.users.UsersByRole(r.Context(), types.RoleRecipient)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	summaries := make([]types.RecipientSummary, 0, len(recipients))
	for _, u := range recipients {
		summaries = append(summaries, types.RecipientSummary{
			ID:           u.ID,
			Name:         u.Name,
			Email:        u.Email,
			BloodGroup:   u.BloodGroup,
			OrganType:    u.OrganType,
			Urgency:      u.Urgency,
			Organization: u.Organization,
			City:         u.City,
			Country:      u.Country,
			CreatedAt:    u.CreatedAt,
		})
	}

	s.writeJSON(w, http.StatusOK, summaries)
}
