package types

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleDonor     Role = "donor"
	RoleRecipient Role = "recipient"
	RoleDoctor    Role = "doctor"
	RoleAdmin     Role = "admin"
)

var AllRoles = []Role{RoleDonor, RoleRecipient, RoleDoctor, RoleAdmin}

// ParseRole maps a raw role string onto the closed Role set.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleDonor:
		return RoleDonor, nil
	case RoleRecipient:
		return RoleRecipient, nil
	case RoleDoctor:
		return RoleDoctor, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Staff reports whether the role may operate the coordination back office.
func (r Role) Staff() bool {
	switch r {
	case RoleDoctor, RoleAdmin:
		return true
	case RoleDonor, RoleRecipient:
		return false
	}
	return false
}

type User struct {
	ID                 string     `db:"id"`
	Name               string     `db:"name"`
	Email              string     `db:"email"`
	PasswordHash       string     `db:"password_hash"`
	Role               Role       `db:"role"`
	Phone              *string    `db:"phone"`
	Organization       *string    `db:"organization"`
	City               *string    `db:"city"`
	Country            *string    `db:"country"`
	BloodGroup         *string    `db:"blood_group"`
	OrganType          *string    `db:"organ_type"`
	Urgency            *int       `db:"urgency"`
	MustChangePassword bool       `db:"must_change_password"`
	LastLoginAt        *time.Time `db:"last_login_at"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

// UserView is the user without credential material.
type UserView struct {
	ID                 string     `json:"_id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Role               Role       `json:"role"`
	Phone              *string    `json:"phone,omitempty"`
	Organization       *string    `json:"organization,omitempty"`
	City               *string    `json:"city,omitempty"`
	Country            *string    `json:"country,omitempty"`
	BloodGroup         *string    `json:"bloodGroup,omitempty"`
	OrganType          *string    `json:"organType,omitempty"`
	Urgency            *int       `json:"urgency,omitempty"`
	MustChangePassword bool       `json:"mustChangePassword"`
	LastLoginAt        *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func (u *User) View() *UserView {
	return &UserView{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		Role:               u.Role,
		Phone:              u.Phone,
		Organization:       u.Organization,
		City:               u.City,
		Country:            u.Country,
		BloodGroup:         u.BloodGroup,
		OrganType:          u.OrganType,
		Urgency:            u.Urgency,
		MustChangePassword: u.MustChangePassword,
		LastLoginAt:        u.LastLoginAt,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

// NormalizeEmail is the canonical form emails are stored and matched in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RecipientSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	BloodGroup   *string   `json:"bloodGroup"`
	OrganType    *string   `json:"organType"`
	Urgency      *int      `json:"urgency"`
	Organization *string   `json:"organization"`
	City         *string   `json:"city"`
	Country      *string   `json:"country"`
	CreatedAt    time.Time `json:"createdAt"`
}
