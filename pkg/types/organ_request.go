package types

import (
	"strings"
	"time"
)

type OrganRequestStatus string

const (
	OrganRequestStatusPending   OrganRequestStatus = "pending"
	OrganRequestStatusReview    OrganRequestStatus = "review"
	OrganRequestStatusApproved  OrganRequestStatus = "approved"
	OrganRequestStatusInTransit OrganRequestStatus = "in_transit"
	OrganRequestStatusDelivered OrganRequestStatus = "delivered"
	OrganRequestStatusRejected  OrganRequestStatus = "rejected"
)

// ActiveOrganRequestStatuses are the statuses counted by the dashboard trend.
var ActiveOrganRequestStatuses = []OrganRequestStatus{
	OrganRequestStatusApproved,
	OrganRequestStatusInTransit,
	OrganRequestStatusDelivered,
}

func ParseOrganRequestStatus(raw string) (OrganRequestStatus, error) {
	switch s := OrganRequestStatus(strings.TrimSpace(raw)); s {
	case OrganRequestStatusPending,
		OrganRequestStatusReview,
		OrganRequestStatusApproved,
		OrganRequestStatusInTransit,
		OrganRequestStatusDelivered,
		OrganRequestStatusRejected:
		return s, nil
	}
	return "", ErrInvalidStatus
}

const DefaultUrgency = 5

type OrganRequest struct {
	ID          string             `db:"id"`
	OrganType   string             `db:"organ_type"`
	Urgency     int                `db:"urgency"`
	Notes       *string            `db:"notes"`
	Hospital    *string            `db:"hospital"`
	Status      OrganRequestStatus `db:"status"`
	RecipientID string             `db:"recipient_id"`
	DonorID     *string            `db:"donor_id"`
	MatchScore  *float64           `db:"match_score"`
	RequestedBy string             `db:"requested_by"`
	CreatedAt   time.Time          `db:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at"`

	Donor     *User `db:"-"`
	Recipient *User `db:"-"`
	Requester *User `db:"-"`
}

func UrgencyLabel(urgency int) string {
	switch {
	case urgency >= 8:
		return "Critical"
	case urgency >= 5:
		return "High"
	case urgency >= 3:
		return "Moderate"
	}
	return "Low"
}

type OrganRequestView struct {
	ID            string             `json:"id"`
	OrganType     string             `json:"organType"`
	Hospital      *string            `json:"hospital"`
	Urgency       int                `json:"urgency"`
	UrgencyLabel  string             `json:"urgencyLabel"`
	Status        OrganRequestStatus `json:"status"`
	DonorName     string             `json:"donorName"`
	RecipientName string             `json:"recipientName"`
	RequesterName string             `json:"requesterName"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

func (o *OrganRequest) View() *OrganRequestView {
	view := &OrganRequestView{
		ID:            o.ID,
		OrganType:     o.OrganType,
		Hospital:      o.Hospital,
		Urgency:       o.Urgency,
		UrgencyLabel:  UrgencyLabel(o.Urgency),
		Status:        o.Status,
		DonorName:     "Pending assignment",
		RecipientName: "N/A",
		RequesterName: "Unknown",
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.Donor != nil {
		view.DonorName = o.Donor.Name
	}
	if o.Recipient != nil {
		view.RecipientName = o.Recipient.Name
	}
	if o.Requester != nil {
		view.RequesterName = o.Requester.Name
	}
	return view
}

type DonationStatus string

const (
	DonationStatusAvailable DonationStatus = "available"
	DonationStatusReserved  DonationStatus = "reserved"
	DonationStatusAllocated DonationStatus = "allocated"
	DonationStatusExpired   DonationStatus = "expired"
)

const DefaultPreservationHours = 24

type Donation struct {
	ID                string         `db:"id"`
	DonorID           string         `db:"donor_id"`
	OrganType         string         `db:"organ_type"`
	Hospital          *string        `db:"hospital"`
	PreservationHours int            `db:"preservation_hours"`
	Notes             *string        `db:"notes"`
	Status            DonationStatus `db:"status"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`

	Donor *User `db:"-"`
}

type DonationView struct {
	ID         string         `json:"id"`
	OrganType  string         `json:"organType"`
	DonorName  *string        `json:"donorName"`
	BloodGroup *string        `json:"bloodGroup,omitempty"`
	Hospital   *string        `json:"hospital"`
	Status     DonationStatus `json:"status"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func (d *Donation) View() *DonationView {
	view := &DonationView{
		ID:        d.ID,
		OrganType: d.OrganType,
		Hospital:  d.Hospital,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
	}
	if d.Donor != nil {
		view.DonorName = &d.Donor.Name
		view.BloodGroup = d.Donor.BloodGroup
	}
	return view
}

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

func ParseApprovalStatus(raw string) (ApprovalStatus, error) {
	switch s := ApprovalStatus(strings.TrimSpace(raw)); s {
	case ApprovalStatusPending, ApprovalStatusApproved, ApprovalStatusRejected:
		return s, nil
	}
	return "", ErrInvalidStatus
}

// Approval is the back-office sign off attached to an organ request.
type Approval struct {
	ID             string         `db:"id" json:"_id"`
	OrganRequestID string         `db:"organ_request_id" json:"organRequest"`
	DonorName      *string        `db:"donor_name" json:"donorName"`
	RecipientName  *string        `db:"recipient_name" json:"recipientName"`
	OrganType      *string        `db:"organ_type" json:"organType"`
	RequestedBy    *string        `db:"requested_by" json:"requestedBy"`
	Status         ApprovalStatus `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}
