package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"organlink/internal/auth"
	"organlink/internal/utils"
	"organlink/pkg/types"
)

type registerRequest struct {
	Name         string `json:"name" form:"name"`
	Email        string `json:"email" form:"email"`
	Password     string `json:"password" form:"password"`
	Role         string `json:"role" form:"role"`
	Phone        string `json:"phone" form:"phone"`
	Organization string `json:"organization" form:"organization"`
	City         string `json:"city" form:"city"`
	Country      string `json:"country" form:"country"`
	BloodGroup   string `json:"bloodGroup" form:"bloodGroup"`
	OrganType    string `json:"organType" form:"organType"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" form:"currentPassword"`
	NewPassword     string `json:"newPassword" form:"newPassword"`
}

type sessionResponse struct {
	User  *types.UserView `json:"user"`
	Token string          `json:"token"`
}

func validateRegisterInput(in *registerRequest) fieldErrors {
	var errs fieldErrors
	errs.required("name", in.Name, "Name is required")
	errs.email("email", in.Email, "Valid email required")
	if len(in.Password) < auth.MinPasswordLength {
		errs.add("password", "Password must be at least 6 characters")
	}
	if _, err := types.ParseRole(in.Role); err != nil {
		errs.add("role", "Invalid role supplied")
	}
	return errs
}

func (s *Service) handlePostRegister(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	var in registerRequest
	if err := decodeBody(w, r, &in); err != nil {
		s.writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errs := validateRegisterInput(&in); len(errs) > 0 {
		s.logger.WithField("field_errors", errs).Info("validation errors during registration")
		s.writeValidation(w, errs)
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		s.logger.WithError(err).Error("failed to hash password")
		s.internalServerError(w)
		return
	}

	role, _ := types.ParseRole(in.Role)
	user := &types.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Phone:        utils.NonEmptyStringPtr(in.Phone),
		Organization: utils.NonEmptyStringPtr(in.Organization),
		City:         utils.NonEmptyStringPtr(in.City),
		Country:      utils.NonEmptyStringPtr(in.Country),
		BloodGroup:   utils.NonEmptyStringPtr(in.BloodGroup),
		OrganType:    utils.NonEmptyStringPtr(in.OrganType),
	}

	if err := s.users.Create(ctx, user); err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.WithError(err).Error("failed to issue token")
		s.internalServerError(w)
		return
	}

	s.auditor.Record(ctx, types.AuditEntry{
		Action: "user.registered",
		Actor:  types.ActorFromUser(user),
		Entity: &types.AuditEntity{Type: "user", ID: user.ID},
	})

	s.writeJSON(w, http.StatusCreated, sessionResponse{User: user.View(), Token: token})
}

func (s *Service) handlePostLogin(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	var in loginRequest
	if err := decodeBody(w, r, &in); err != nil {
		s.writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var errs fieldErrors
	errs.email("email", in.Email, "Valid email required")
	errs.required("password", in.Password, "Password is required")
	if len(errs) > 0 {
		s.writeValidation(w, errs)
		return
	}

	user, err := s.users.UserByEmail(ctx, types.NormalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			s.writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		s.writeError(w, r, err)
		return
	}

	if err := auth.VerifyPassword(user.PasswordHash, in.Password); err != nil {
		s.writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	now := time.Now().UTC()
	if err := s.users.TouchLogin(ctx, user.ID, now); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("failed to record last login")
	} else {
		user.LastLoginAt = &now
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.WithError(err).Error("failed to issue token")
		s.internalServerError(w)
		return
	}

	if err := s.setSessionCookie(w, token); err != nil {
		s.logger.WithError(err).Error("failed to encode session cookie")
		s.internalServerError(w)
		return
	}

	s.auditor.Record(ctx, types.AuditEntry{
		Action: "user.logged_in",
		Actor:  types.ActorFromUser(user),
		Entity: &types.AuditEntity{Type: "user", ID: user.ID},
	})

	s.writeJSON(w, http.StatusOK, sessionResponse{User: user.View(), Token: token})
}

func (s *Service) handlePostLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleGetMe(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, userFromContext(r.Context()).View())
}

func (s *Service) handlePostPassword(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	user := userFromContext(ctx)

	var in passwordRequest
	if err := decodeBody(w, r, &in); err != nil {
		s.writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var errs fieldErrors
	errs.required("currentPassword", in.CurrentPassword, "Current password is required")
	if err := auth.ValidatePassword(in.NewPassword); err != nil {
		errs.add("newPassword", "Password must be at least 6 characters")
	}
	if len(errs) > 0 {
		s.writeValidation(w, errs)
		return
	}

	if err := auth.VerifyPassword(user.PasswordHash, in.CurrentPassword); err != nil {
		s.writeError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		s.logger.WithError(err).Error("failed to hash password")
		s.internalServerError(w)
		return
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.auditor.Record(ctx, types.AuditEntry{
		Action: "user.password_changed",
		Actor:  types.ActorFromUser(user),
		Entity: &types.AuditEntity{Type: "user", ID: user.ID},
	})

	w.WriteHeader(http.StatusNoContent)
}
