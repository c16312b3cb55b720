package store

import (
	"context"
	"fmt"
	"time"

	"organlink/internal/utils"
	"organlink/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationTableName = "organlink.applications"

var applicationColumns = utils.StructTagValues(types.Application{})

type ApplicationRepository struct {
	db    DBTX
	users *UserRepository
}

func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{db: pool, users: &UserRepository{db: pool}}
}

func (r *ApplicationRepository) Create(ctx context.Context, application *types.Application) error {
	now := time.Now().UTC()
	application.ID = utils.NanoID()
	application.Status = types.ApplicationStatusPending
	application.CreatedAt = now
	application.UpdatedAt = now

	query, args, err := psql().
		Insert(applicationTableName).
		SetMap(utils.StructToMap(application)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert application query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create application")
}

func (r *ApplicationRepository) Application(ctx context.Context, kind types.ApplicationKind, id string) (*types.Application, error) {
	return r.application(ctx, kind, id, false)
}

// LockApplication reads the application and holds a row lock until the
// surrounding transaction ends. It must run on a transaction-scoped repository.
func (r *ApplicationRepository) LockApplication(ctx context.Context, kind types.ApplicationKind, id string) (*types.Application, error) {
	return r.application(ctx, kind, id, true)
}

func (r *ApplicationRepository) application(ctx context.Context, kind types.ApplicationKind, id string, forUpdate bool) (*types.Application, error) {
	builder := psql().
		Select(applicationColumns...).
		From(applicationTableName).
		Where(sq.Eq{"id": id, "kind": kind}).
		Limit(1)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate application query: %w", err)
	}

	var application types.Application
	err = pgxscan.Get(ctx, r.db, &application, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to fetch application: %w", err)
	}

	return &application, nil
}

// Applications lists applications of a kind newest first with reviewers attached.
func (r *ApplicationRepository) Applications(ctx context.Context, kind types.ApplicationKind) ([]*types.Application, error) {
	query, args, err := psql().
		Select(applicationColumns...).
		From(applicationTableName).
		Where(sq.Eq{"kind": kind}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate applications query: %w", err)
	}

	applications := make([]*types.Application, 0)
	err = pgxscan.Select(ctx, r.db, &applications, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch applications: %w", err)
	}

	reviewerIDs := make([]string, 0, len(applications))
	for _, a := range applications {
		reviewerIDs = append(reviewerIDs, utils.PtrString(a.ReviewedBy))
	}

	reviewers, err := r.users.UsersByIDMap(ctx, reviewerIDs)
	if err != nil {
		return nil, err
	}
	for _, a := range applications {
		a.Reviewer = reviewers[utils.PtrString(a.ReviewedBy)]
	}

	return applications, nil
}

// SaveReview persists the review fields only while the row is still pending.
// A row that already left pending yields ErrApplicationReviewed.
func (r *ApplicationRepository) SaveReview(ctx context.Context, application *types.Application) error {
	application.UpdatedAt = time.Now().UTC()

	query, args, err := saveReviewQuery(application).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate review update query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrApplicationReviewed
	}

	return nil
}

func saveReviewQuery(application *types.Application) sq.UpdateBuilder {
	return psql().
		Update(applicationTableName).
		Set("status", application.Status).
		Set("approved_user", application.ApprovedUser).
		Set("reviewed_by", application.ReviewedBy).
		Set("reviewed_at", application.ReviewedAt).
		Set("review_notes", application.ReviewNotes).
		Set("updated_at", application.UpdatedAt).
		Where(sq.Eq{
			"id":     application.ID,
			"kind":   application.Kind,
			"status": types.ApplicationStatusPending,
		})
}
