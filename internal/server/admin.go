package server

import (
	"net/http"
	"strings"

	"organlink/internal/auth"
	"organlink/internal/utils"
	"organlink/pkg/types"
)

const recentLogLimit = 20

type createUserRequest struct {
	Name         string           `json:"name" form:"name"`
	Email        string           `json:"email" form:"email"`
	Password     string           `json:"password" form:"password"`
	Role         string           `json:"role" form:"role"`
	Phone        string           `json:"phone" form:"phone"`
	Organization string           `json:"organization" form:"organization"`
	City         string           `json:"city" form:"city"`
	Country      string           `json:"country" form:"country"`
	BloodGroup   string           `json:"bloodGroup" form:"bloodGroup"`
	OrganType    string           `json:"organType" form:"organType"`
	Urgency      types.FlexString `json:"urgency" form:"urgency"`
}

// missingFields lists required fields left blank, in request order.
func (in *createUserRequest) missingFields() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", in.Name},
		{"email", in.Email},
		{"password", in.Password},
		{"role", in.Role},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

type approvalRequest struct {
	Status string `json:"status" form:"status"`
}

func (s *Service) handleGetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.Users(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	views := make([]*types.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}

	s.writeJSON(w, http.StatusOK, views)
}

func (s *Service) handlePostUser(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	var in createUserRequest
	if err := decodeBody(w, r, &in); err != nil {
		s.writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if missing := in.missingFields(); len(missing) > 0 {
		s.writeMessage(w, http.StatusBadRequest, "Missing required fields: "+strings.Join(missing, ", "))
		return
	}

	role, err := types.ParseRole(in.Role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		s.logger.WithError(err).Error("failed to hash password")
		s.internalServerError(w)
		return
	}

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
	if n, ok := intValue(in.Urgency); ok && role == types.RoleRecipient {
		user.Urgency = utils.IntPtr(n)
	}

	if err := s.users.Create(ctx, user); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.auditor.Record(ctx, types.AuditEntry{
		Action:   "admin.created_user",
		Actor:    types.ActorFromUser(userFromContext(ctx)),
		Entity:   &types.AuditEntity{Type: "user", ID: user.ID},
		Metadata: map[string]any{"role": user.Role},
	})

	s.writeJSON(w, http.StatusCreated, user.View())
}

func (s *Service) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := s.auditLogs.Recent(r.Context(), recentLogLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	views := make([]*types.AuditLogView, 0, len(entries))
	for _, e := range entries {
		views = append(views, e.View())
	}

	s.writeJSON(w, http.StatusOK, views)
}

func (s *Service) handleGetApprovals(w http.ResponseWriter, r *http.Request) {
	approvals, err := s.approvals.Approvals(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, approvals)
}

func (s *Service) handlePatchApproval(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	var in approvalRequest
	if err := decodeBody(w, r, &in); err != nil {
		s.writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, err := types.ParseApprovalStatus(in.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	approval, err := s.approvals.UpdateStatus(ctx, r.PathValue("id"), status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.auditor.Record(ctx, types.AuditEntry{
		Action:   "approval.updated",
		Actor:    types.ActorFromUser(userFromContext(ctx)),
		Entity:   &types.AuditEntity{Type: "approval", ID: approval.ID},
		Metadata: map[string]any{"status": status},
	})

	s.writeJSON(w, http.StatusOK, approval)
}
