package server

import (
	"net/http"
	"strings"

	"organlink/internal/utils"
	"organlink/pkg/types"
)

type organRequestRequest struct {
	OrganType   string           `json:"organType" form:"organType"`
	Hospital    string           `json:"hospital" form:"hospital"`
	Urgency     types.FlexString `json:"urgency" form:"urgency"`
	Notes       string           `json:"notes" form:"notes"`
	RecipientID string           `json:"recipientId" form:"recipientId"`
}

type statusRequest struct {
	Status string `json:"status" form:"status"`
}

type assignRequest struct {
	DonationID string `json:"donationId" form:"donationId"`
}

func (s *Service) handleGetOrganRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := s.organRequests.OrganRequests(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	views := make([]*types.OrganRequestView, 0, len(requests))
	for _, req := range requests {
		views = append(views, req.View())
	}

	s.writeJSON(w, http.StatusOK, views)
}

func (s *Service) handlePostOrganRequest(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	user := userFromContext(ctx)

	var in organRequestRequest
	if err := decodeBody(w, r, &in); err != nil {
		s.writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var errs fieldErrors
	errs.required("organType", in.OrganType, "Organ type is required")
	errs.required("hospital", in.Hospital, "Hospital is required")
	urgency, ok := intValue(in.Urgency)
	if !ok {
		errs.add("urgency", "Urgency must be a number")
	}
	if len(errs) > 0 {
		s.writeValidation(w, errs)
		return
	}

	recipient := user
	if id := strings.TrimSpace(in.RecipientID); id != "" && id != user.ID {
		found, err := s.users.User(ctx, id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		recipient = found
	}

	request := &types.OrganRequest{
		OrganType:   strings.TrimSpace(in.OrganType),
		Urgency:     urgency,
		Notes:       utils.NonEmptyStringPtr(in.Notes),
		Hospital:    utils.NonEmptyStringPtr(in.Hospital),
		RecipientID: recipient.ID,
		RequestedBy: user.ID,
		Recipient:   recipient,
		Requester:   user,
	}

	if _, err := s.organRequests.Create(ctx, request); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.auditor.Record(ctx, types.AuditEntry{
		Action: "organ_request.created",
		Actor:  types.ActorFromUser(user),
		Entity: &types.AuditEntity{Type: "organ_request", ID: request.ID},
		Metadata: map[string]any{
			"organType": request.OrganType,
			"urgency":   request.Urgency,
		},
	})

	s.writeJSON(w, http.StatusCreated, request.View())
}

func (s *Service) handlePatchOrganRequestStatus(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	var in statusRequest
	if err := decodeBody(w, r, &in); err != nil {
		s.writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, err := types.ParseOrganRequestStatus(in.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	request, err := s.organRequests.UpdateStatus(ctx, r.PathValue("id"), status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.auditor.Record(ctx, types.AuditEntry{
		Action:   "organ_request.status_changed",
		Actor:    types.ActorFromUser(userFromContext(ctx)),
		Entity:   &types.AuditEntity{Type: "organ_request", ID: request.ID},
		Metadata: map[string]any{"status": status},
	})

	s.writeJSON(w, http.StatusOK, request.View())
}

func (s *Service) handlePostAssignDonation(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	var in assignRequest
	if err := decodeBody(w, r, &in); err != nil {
		s.writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	donationID := strings.TrimSpace(in.DonationID)
	if donationID == "" {
		s.writeValidation(w, fieldErrors{{Field: "donationId", Message: "Donation is required"}})
		return
	}

	request, err := s.organRequests.Assign(ctx, r.PathValue("id"), donationID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.auditor.Record(ctx, types.AuditEntry{
		Action:   "organ_request.assigned",
		Actor:    types.ActorFromUser(userFromContext(ctx)),
		Entity:   &types.AuditEntity{Type: "organ_request", ID: request.ID},
		Metadata: map[string]any{"donationId": donationID},
	})

	s.writeJSON(w, http.StatusOK, request.View())
}
