package types

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("account already exists for this email")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrApplicationNotFound  = errors.New("application not found")
	ErrApplicationReviewed  = errors.New("application has already been reviewed")
	ErrInvalidDecision      = errors.New("invalid decision supplied")
	ErrInvalidRole          = errors.New("invalid role supplied")
	ErrInvalidStatus        = errors.New("invalid status supplied")
	ErrOrganRequestNotFound = errors.New("request not found")
	ErrDonationNotFound     = errors.New("donation not found")
	ErrApprovalNotFound     = errors.New("approval not found")
)
