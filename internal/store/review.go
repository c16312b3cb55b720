package store

import (
	"context"

	"organlink/internal/review"
	"organlink/pkg/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReviewStore runs application reviews in a single Postgres transaction.
type ReviewStore struct {
	pool *pgxpool.Pool
}

var _ review.Store = (*ReviewStore)(nil)

func NewReviewStore(pool *pgxpool.Pool) *ReviewStore {
	return &ReviewStore{pool: pool}
}

func (s *ReviewStore) InTx(ctx context.Context, fn func(tx review.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		users := &UserRepository{db: tx}
		return fn(&reviewTx{
			users:        users,
			applications: &ApplicationRepository{db: tx, users: users},
		})
	})
}

type reviewTx struct {
	users        *UserRepository
	applications *ApplicationRepository
}

func (t *reviewTx) LockApplication(ctx context.Context, kind types.ApplicationKind, id string) (*types.Application, error) {
	return t.applications.LockApplication(ctx, kind, id)
}

func (t *reviewTx) User(ctx context.Context, userID string) (*types.User, error) {
	return t.users.User(ctx, userID)
}

func (t *reviewTx) UserByEmail(ctx context.Context, email string) (*types.User, error) {
	return t.users.UserByEmail(ctx, email)
}

func (t *reviewTx) CreateUser(ctx context.Context, user *types.User) error {
	return t.users.Create(ctx, user)
}

func (t *reviewTx) SaveReview(ctx context.Context, application *types.Application) error {
	return t.applications.SaveReview(ctx, application)
}
