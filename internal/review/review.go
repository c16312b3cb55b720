// Package review turns pending donor and recipient applications into terminal
// decisions, onboarding the applicant as a user when approved.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"organlink/internal/auth"
	"organlink/internal/utils"
	"organlink/pkg/types"

	"github.com/sirupsen/logrus"
)

// Store runs fn inside a single database transaction. Returning an error from
// fn rolls back everything fn wrote.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of reads and writes a review performs atomically.
type Tx interface {
	LockApplication(ctx context.Context, kind types.ApplicationKind, id string) (*types.Application, error)
	User(ctx context.Context, userID string) (*types.User, error)
	UserByEmail(ctx context.Context, email string) (*types.User, error)
	CreateUser(ctx context.Context, user *types.User) error
	SaveReview(ctx context.Context, application *types.Application) error
}

// Auditor records an entry best-effort. Implementations must not fail the caller.
type Auditor interface {
	Record(ctx context.Context, entry types.AuditEntry)
}

type Observer interface {
	ReviewDecided(kind, outcome string)
}

type Request struct {
	Kind          types.ApplicationKind
	ApplicationID string
	Decision      string
	Notes         string
	Reviewer      *types.User
}

type Service struct {
	store    Store
	auditor  Auditor
	observer Observer
	logger   *logrus.Logger

	now          func() time.Time
	tempPassword func() (string, error)
	hashPassword func(string) (string, error)
}

func NewService(store Store, auditor Auditor, observer Observer, logger *logrus.Logger) *Service {
	return &Service{
		store:        store,
		auditor:      auditor,
		observer:     observer,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		tempPassword: utils.TempPassword,
		hashPassword: auth.HashPassword,
	}
}

// Review applies an approve or reject decision to a pending application.
//
// Errors: types.ErrInvalidDecision, types.ErrApplicationNotFound and
// types.ErrApplicationReviewed (also returned when a concurrent onboarding
// claimed the applicant's email first). Anything else is a store failure.
func (s *Service) Review(ctx context.Context, req Request) (*types.ReviewResult, error) {
	result, err := s.review(ctx, req)
	s.observer.ReviewDecided(string(req.Kind), outcome(result, err))
	return result, err
}

func (s *Service) review(ctx context.Context, req Request) (*types.ReviewResult, error) {
	decision, err := types.ParseDecision(req.Decision)
	if err != nil {
		return nil, err
	}
	if !req.Kind.Valid() {
		return nil, types.ErrApplicationNotFound
	}
	if req.Reviewer == nil {
		return nil, errors.New("reviewer is required")
	}

	var (
		application *types.Application
		credentials *types.Credentials
	)

	err = s.store.InTx(ctx, func(tx Tx) error {
		// reset on every attempt so a rolled back body leaves nothing behind
		application, credentials = nil, nil

		app, err := tx.LockApplication(ctx, req.Kind, req.ApplicationID)
		if err != nil {
			return err
		}
		if app.Status != types.ApplicationStatusPending {
			return types.ErrApplicationReviewed
		}

		switch decision {
		case types.DecisionApprove:
			user, creds, err := s.ensureUser(ctx, tx, app)
			if err != nil {
				return err
			}
			app.ApprovedUser = &user.ID
			credentials = creds
		case types.DecisionReject:
			app.ApprovedUser = nil
		}

		reviewedAt := s.now()
		app.Status = decision.Status()
		app.ReviewedBy = &req.Reviewer.ID
		app.ReviewedAt = &reviewedAt
		app.ReviewNotes = utils.NonEmptyStringPtr(req.Notes)

		if err := tx.SaveReview(ctx, app); err != nil {
			return err
		}

		application = app
		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrEmailTaken) {
			return nil, fmt.Errorf("%w: %w", types.ErrApplicationReviewed, err)
		}
		return nil, err
	}

	application.Reviewer = req.Reviewer

	s.auditor.Record(ctx, types.AuditEntry{
		Action: auditAction(req.Kind, decision),
		Actor:  types.ActorFromUser(req.Reviewer),
		Entity: &types.AuditEntity{Type: req.Kind.EntityType(), ID: application.ID},
		Metadata: map[string]any{
			"email":    application.Email,
			"decision": string(decision),
		},
	})

	s.logger.WithFields(logrus.Fields{
		"application_id": application.ID,
		"kind":           req.Kind,
		"decision":       decision,
		"onboarded":      credentials != nil,
	}).Info("application reviewed")

	return &types.ReviewResult{
		Application: application.View(),
		Credentials: credentials,
	}, nil
}

// ensureUser resolves the account backing an approved application, creating
// one with a temporary password when none exists. Credentials are only
// returned for a created account.
func (s *Service) ensureUser(ctx context.Context, tx Tx, app *types.Application) (*types.User, *types.Credentials, error) {
	if app.ApprovedUser != nil && *app.ApprovedUser != "" {
		user, err := tx.User(ctx, *app.ApprovedUser)
		switch {
		case err == nil:
			return user, nil, nil
		case !errors.Is(err, types.ErrUserNotFound):
			return nil, nil, err
		}
	}

	user, err := tx.UserByEmail(ctx, app.Email)
	switch {
	case err == nil:
		return user, nil, nil
	case !errors.Is(err, types.ErrUserNotFound):
		return nil, nil, err
	}

	password, err := s.tempPassword()
	if err != nil {
		return nil, nil, fmt.Errorf("generate temporary password: %w", err)
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash temporary password: %w", err)
	}

	user = NewUserFromApplication(app)
	user.PasswordHash = hash
	user.MustChangePassword = true

	if err := tx.CreateUser(ctx, user); err != nil {
		return nil, nil, err
	}

	return user, &types.Credentials{Email: user.Email, Password: password}, nil
}

// NewUserFromApplication copies the applicant profile onto a new account whose
// role is fixed by the application kind.
func NewUserFromApplication(app *types.Application) *types.User {
	user := &types.User{
		Name:         app.Name,
		Email:        types.NormalizeEmail(app.Email),
		Role:         app.Kind.Role(),
		Phone:        utils.NonEmptyStringPtr(app.Phone),
		Organization: app.Organization(),
		City:         utils.NonEmptyStringPtr(app.City),
		Country:      utils.NonEmptyStringPtr(app.Country),
		BloodGroup:   utils.NonEmptyStringPtr(app.BloodGroup),
		OrganType:    utils.NonEmptyStringPtr(app.OrganType),
	}

	switch user.Role {
	case types.RoleRecipient:
		user.Urgency = app.Urgency
	case types.RoleDonor, types.RoleDoctor, types.RoleAdmin:
	}

	return user
}

func outcome(result *types.ReviewResult, err error) string {
	switch {
	case err == nil:
		return string(result.Application.Status)
	case errors.Is(err, types.ErrInvalidDecision):
		return "invalid"
	case errors.Is(err, types.ErrApplicationNotFound):
		return "not_found"
	case errors.Is(err, types.ErrApplicationReviewed):
		return "conflict"
	}
	return "error"
}

func auditAction(kind types.ApplicationKind, decision types.Decision) string {
	switch decision {
	case types.DecisionApprove:
		return fmt.Sprintf("admin.%s_application_approved", kind)
	case types.DecisionReject:
		return fmt.Sprintf("admin.%s_application_rejected", kind)
	}
	panic(fmt.Sprintf("unknown decision %q", decision))
}
