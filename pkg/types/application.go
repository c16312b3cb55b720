package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type ApplicationKind string

const (
	ApplicationKindDonor     ApplicationKind = "donor"
	ApplicationKindRecipient ApplicationKind = "recipient"
)

// Role is the account role an approved application of this kind is onboarded with.
func (k ApplicationKind) Role() Role {
	switch k {
	case ApplicationKindDonor:
		return RoleDonor
	case ApplicationKindRecipient:
		return RoleRecipient
	}
	panic(fmt.Sprintf("unknown application kind %q", string(k)))
}

// EntityType is the audit entity type for applications of this kind.
func (k ApplicationKind) EntityType() string {
	return string(k) + "Application"
}

func (k ApplicationKind) Valid() bool {
	return k == ApplicationKindDonor || k == ApplicationKindRecipient
}

type ApplicationStatus string

const (
	ApplicationStatusPending   ApplicationStatus = "pending"
	ApplicationStatusReviewed  ApplicationStatus = "reviewed"
	ApplicationStatusApproved  ApplicationStatus = "approved"
	ApplicationStatusContacted ApplicationStatus = "contacted"
	ApplicationStatusRejected  ApplicationStatus = "rejected"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func ParseDecision(raw string) (Decision, error) {
	switch Decision(raw) {
	case DecisionApprove:
		return DecisionApprove, nil
	case DecisionReject:
		return DecisionReject, nil
	}
	return "", ErrInvalidDecision
}

// Status is the terminal application status the decision leads to.
func (d Decision) Status() ApplicationStatus {
	if d == DecisionApprove {
		return ApplicationStatusApproved
	}
	return ApplicationStatusRejected
}

type Application struct {
	ID      string          `db:"id"`
	Kind    ApplicationKind `db:"kind"`
	Name    string          `db:"name"`
	Email   string          `db:"email"`
	Phone   string          `db:"phone"`
	City    string          `db:"city"`
	Country string          `db:"country"`

	BloodGroup string  `db:"blood_group"`
	OrganType  string  `db:"organ_type"`
	Notes      *string `db:"notes"`

	// donor only
	PreferredHospital *string `db:"preferred_hospital"`
	Availability      *string `db:"availability"`
	Consent           bool    `db:"consent"`

	// recipient only
	Urgency   *int    `db:"urgency"`
	Hospital  *string `db:"hospital"`
	Diagnosis *string `db:"diagnosis"`

	Status       ApplicationStatus `db:"status"`
	ApprovedUser *string           `db:"approved_user"`
	ReviewedBy   *string           `db:"reviewed_by"`
	ReviewedAt   *time.Time        `db:"reviewed_at"`
	ReviewNotes  *string           `db:"review_notes"`
	CreatedAt    time.Time         `db:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at"`

	Reviewer *User `db:"-"`
}

// Organization is the hospital copied onto a user onboarded from this application.
func (a *Application) Organization() *string {
	if a.PreferredHospital != nil && *a.PreferredHospital != "" {
		return a.PreferredHospital
	}
	return a.Hospital
}

type ApplicationSubmission struct {
	Name              string     `json:"name" form:"name"`
	Email             string     `json:"email" form:"email"`
	Phone             string     `json:"phone" form:"phone"`
	City              string     `json:"city" form:"city"`
	Country           string     `json:"country" form:"country"`
	BloodGroup        string     `json:"bloodGroup" form:"bloodGroup"`
	OrganType         string     `json:"organType" form:"organType"`
	Notes             string     `json:"notes" form:"notes"`
	PreferredHospital string     `json:"preferredHospital" form:"preferredHospital"`
	Availability      string     `json:"availability" form:"availability"`
	Consent           FlexString `json:"consent" form:"consent"`
	Urgency           FlexString `json:"urgency" form:"urgency"`
	Hospital          string     `json:"hospital" form:"hospital"`
	Diagnosis         string     `json:"diagnosis" form:"diagnosis"`
}

// FlexString holds the text of a JSON string, number or boolean so loosely
// typed form fields decode the same way from JSON and url-encoded bodies.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, string(b) == "null":
		*f = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	case b[0] == '{', b[0] == '[':
		return fmt.Errorf("expected a scalar, got %s", b)
	}
	if !json.Valid(b) {
		return fmt.Errorf("invalid value %s", b)
	}
	*f = FlexString(b)
	return nil
}

type ReviewerView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

type ApplicationView struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	Phone             string            `json:"phone"`
	City              string            `json:"city"`
	Country           string            `json:"country"`
	BloodGroup        string            `json:"bloodGroup"`
	OrganType         string            `json:"organType"`
	PreferredHospital *string           `json:"preferredHospital,omitempty"`
	Availability      *string           `json:"availability,omitempty"`
	Urgency           *int              `json:"urgency,omitempty"`
	Hospital          *string           `json:"hospital,omitempty"`
	Diagnosis         *string           `json:"diagnosis,omitempty"`
	Notes             *string           `json:"notes,omitempty"`
	Status            ApplicationStatus `json:"status"`
	SubmittedAt       time.Time         `json:"submittedAt"`
	ReviewedAt        *time.Time        `json:"reviewedAt"`
	ReviewedBy        *ReviewerView     `json:"reviewedBy"`
	ReviewNotes       *string           `json:"reviewNotes"`
	ApprovedUser      *string           `json:"approvedUser"`
}

func (a *Application) View() *ApplicationView {
	view := &ApplicationView{
		ID:           a.ID,
		Name:         a.Name,
		Email:        a.Email,
		Phone:        a.Phone,
		City:         a.City,
		Country:      a.Country,
		BloodGroup:   a.BloodGroup,
		OrganType:    a.OrganType,
		Status:       a.Status,
		SubmittedAt:  a.CreatedAt,
		ReviewedAt:   a.ReviewedAt,
		ReviewNotes:  a.ReviewNotes,
		ApprovedUser: a.ApprovedUser,
	}

	switch a.Kind {
	case ApplicationKindDonor:
		view.PreferredHospital = a.PreferredHospital
		view.Availability = a.Availability
	case ApplicationKindRecipient:
		view.Urgency = a.Urgency
		view.Hospital = a.Hospital
		view.Diagnosis = a.Diagnosis
		view.Notes = a.Notes
	}

	if a.Reviewer != nil {
		view.ReviewedBy = &ReviewerView{
			ID:    a.Reviewer.ID,
			Name:  a.Reviewer.Name,
			Email: a.Reviewer.Email,
			Role:  a.Reviewer.Role,
		}
	}

	return view
}

// Credentials carries a temporary password for a freshly onboarded user.
// It is returned exactly once and never persisted in plaintext.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ReviewResult struct {
	Application *ApplicationView `json:"application"`
	Credentials *Credentials     `json:"credentials,omitempty"`
}
