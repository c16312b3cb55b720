package server

import (
	"net/http"
	"strings"

	"organlink/internal/utils"
	"organlink/pkg/types"
)

type submissionResponse struct {
	Message       string `json:"message"`
	ApplicationID string `json:"applicationId"`
}

const (
	donorSubmittedMessage     = "Thank you for registering as a donor. Our coordination team will reach out shortly."
	recipientSubmittedMessage = "Recipient registration submitted. Our transplant board will review the case shortly."
)

func validateSubmission(kind types.ApplicationKind, in *types.ApplicationSubmission) fieldErrors {
	var errs fieldErrors
	errs.required("name", in.Name, "Name is required")
	errs.email("email", in.Email, "Valid email required")
	errs.required("phone", in.Phone, "Phone number required")
	errs.required("city", in.City, "City is required")
	errs.required("country", in.Country, "Country is required")
	errs.required("bloodGroup", in.BloodGroup, "Blood group is required")
	errs.required("organType", in.OrganType, "Organ type is required")

	switch kind {
	case types.ApplicationKindDonor:
		if !truthy(in.Consent) {
			errs.add("consent", "Consent is required")
		}
	case types.ApplicationKindRecipient:
		if n, ok := intValue(in.Urgency); !ok || n < 1 || n > 10 {
			errs.add("urgency", "Urgency must be between 1 and 10")
		}
	}

	return errs
}

// newApplication maps a validated submission onto the stored application.
// Donor and recipient specific fields are only kept for their own kind.
func newApplication(kind types.ApplicationKind, in *types.ApplicationSubmission) *types.Application {
	application := &types.Application{
		Kind:       kind,
		Name:       strings.TrimSpace(in.Name),
		Email:      types.NormalizeEmail(in.Email),
		Phone:      strings.TrimSpace(in.Phone),
		City:       strings.TrimSpace(in.City),
		Country:    strings.TrimSpace(in.Country),
		BloodGroup: strings.TrimSpace(in.BloodGroup),
		OrganType:  strings.TrimSpace(in.OrganType),
		Notes:      utils.NonEmptyStringPtr(in.Notes),
	}

	switch kind {
	case types.ApplicationKindDonor:
		application.PreferredHospital = utils.NonEmptyStringPtr(in.PreferredHospital)
		application.Availability = utils.NonEmptyStringPtr(in.Availability)
		application.Consent = truthy(in.Consent)
	case types.ApplicationKindRecipient:
		if n, ok := intValue(in.Urgency); ok {
			application.Urgency = utils.IntPtr(n)
		}
		application.Hospital = utils.NonEmptyStringPtr(in.Hospital)
		application.Diagnosis = utils.NonEmptyStringPtr(in.Diagnosis)
	}

	return application
}

func (s *Service) handlePostDonorInterest(w http.ResponseWriter, r *http.Request) {
	s.submitApplication(w, r, types.ApplicationKindDonor)
}

func (s *Service) handlePostRecipientInterest(w http.ResponseWriter, r *http.Request) {
	s.submitApplication(w, r, types.ApplicationKindRecipient)
}

func (s *Service) submitApplication(w http.ResponseWriter, r *http.Request, kind types.ApplicationKind) {
	var ctx = r.Context()

	var in types.ApplicationSubmission
	if err := decodeBody(w, r, &in); err != nil {
		s.writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errs := validateSubmission(kind, &in); len(errs) > 0 {
		s.logger.WithField("field_errors", errs).WithField("kind", kind).Info("validation errors during public registration")
		s.writeValidation(w, errs)
		return
	}

	application := newApplication(kind, &in)
	if err := s.applications.Create(ctx, application); err != nil {
		s.writeError(w, r, err)
		return
	}

	metadata := map[string]any{
		"email":     application.Email,
		"organType": application.OrganType,
	}
	message := donorSubmittedMessage
	if kind == types.ApplicationKindRecipient {
		metadata["urgency"] = utils.PtrInt(application.Urgency)
		message = recipientSubmittedMessage
	} else {
		metadata["bloodGroup"] = application.BloodGroup
	}

	s.auditor.Record(ctx, types.AuditEntry{
		Action:   "public." + string(kind) + "_application_submitted",
		Entity:   &types.AuditEntity{Type: kind.EntityType(), ID: application.ID},
		Metadata: metadata,
	})

	s.writeJSON(w, http.StatusCreated, submissionResponse{
		Message:       message,
		ApplicationID: application.ID,
	})
}
