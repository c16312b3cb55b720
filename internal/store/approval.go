package store

import (
	"context"
	"fmt"
	"time"

	"organlink/internal/utils"
	"organlink/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const approvalTableName = "organlink.approvals"

var approvalColumns = utils.StructTagValues(types.Approval{})

type ApprovalRepository struct {
	db DBTX
}

func NewApprovalRepository(pool *pgxpool.Pool) *ApprovalRepository {
	return &ApprovalRepository{db: pool}
}

func (r *ApprovalRepository) create(ctx context.Context, approval *types.Approval) error {
	query, args, err := psql().
		Insert(approvalTableName).
		SetMap(utils.StructToMap(approval)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert approval query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create approval")
}

func (r *ApprovalRepository) Approvals(ctx context.Context) ([]*types.Approval, error) {
	query, args, err := psql().
		Select(approvalColumns...).
		From(approvalTableName).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate approvals query: %w", err)
	}

	approvals := make([]*types.Approval, 0)
	err = pgxscan.Select(ctx, r.db, &approvals, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch approvals: %w", err)
	}

	return approvals, nil
}

func (r *ApprovalRepository) Approval(ctx context.Context, id string) (*types.Approval, error) {
	query, args, err := psql().
		Select(approvalColumns...).
		From(approvalTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate approval query: %w", err)
	}

	var approval types.Approval
	err = pgxscan.Get(ctx, r.db, &approval, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrApprovalNotFound
		}
		return nil, fmt.Errorf("failed to fetch approval: %w", err)
	}

	return &approval, nil
}

// UpdateStatus sets the approval status. Approving also approves the linked
// organ request in the same transaction.
func (r *ApprovalRepository) UpdateStatus(ctx context.Context, id string, status types.ApprovalStatus) (*types.Approval, error) {
	var approval *types.Approval

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		approvals := &ApprovalRepository{db: tx}

		now := time.Now().UTC()
		query, args, err := psql().
			Update(approvalTableName).
			Set("status", status).
			Set("updated_at", now).
			Where(sq.Eq{"id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate approval status query: %w", err)
		}

		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update approval status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return types.ErrApprovalNotFound
		}

		approval, err = approvals.Approval(ctx, id)
		if err != nil {
			return err
		}

		if status != types.ApprovalStatusApproved {
			return nil
		}

		_, err = (&OrganRequestRepository{db: tx}).UpdateStatus(ctx, approval.OrganRequestID, types.OrganRequestStatusApproved)
		return err
	})
	if err != nil {
		return nil, err
	}

	return approval, nil
}

func (r *ApprovalRepository) resetForRequest(ctx context.Context, organRequestID, donorName string) error {
	query, args, err := psql().
		Update(approvalTableName).
		Set("donor_name", donorName).
		Set("status", types.ApprovalStatusPending).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"organ_request_id": organRequestID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate approval reset query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to reset approval")
}
