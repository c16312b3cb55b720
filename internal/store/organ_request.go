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

const organRequestTableName = "organlink.organ_requests"

// MatchScore is recorded when a donation is assigned to a request.
const MatchScore = 0.92

var organRequestColumns = utils.StructTagValues(types.OrganRequest{})

type OrganRequestRepository struct {
	db DBTX
}

func NewOrganRequestRepository(pool *pgxpool.Pool) *OrganRequestRepository {
	return &OrganRequestRepository{db: pool}
}

// Create stores a pending request together with its pending approval row.
func (r *OrganRequestRepository) Create(ctx context.Context, request *types.OrganRequest) (*types.Approval, error) {
	now := time.Now().UTC()
	request.ID = utils.NanoID()
	request.Status = types.OrganRequestStatusPending
	if request.Urgency == 0 {
		request.Urgency = types.DefaultUrgency
	}
	request.CreatedAt = now
	request.UpdatedAt = now

	approval := &types.Approval{
		ID:             utils.NanoID(),
		OrganRequestID: request.ID,
		DonorName:      utils.StringPtr("Pending"),
		OrganType:      utils.StringPtr(request.OrganType),
		Status:         types.ApprovalStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if request.Recipient != nil {
		approval.RecipientName = utils.StringPtr(request.Recipient.Name)
	}
	if request.Requester != nil {
		approval.RequestedBy = utils.StringPtr(request.Requester.Name)
	}

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query, args, err := psql().
			Insert(organRequestTableName).
			SetMap(utils.StructToMap(request)).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate insert organ request query: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to create organ request: %w", err)
		}

		return (&ApprovalRepository{db: tx}).create(ctx, approval)
	})
	if err != nil {
		return nil, err
	}

	return approval, nil
}

func (r *OrganRequestRepository) OrganRequest(ctx context.Context, id string) (*types.OrganRequest, error) {
	query, args, err := psql().
		Select(organRequestColumns...).
		From(organRequestTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate organ request query: %w", err)
	}

	var request types.OrganRequest
	err = pgxscan.Get(ctx, r.db, &request, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrOrganRequestNotFound
		}
		return nil, fmt.Errorf("failed to fetch organ request: %w", err)
	}

	if err := r.attachUsers(ctx, []*types.OrganRequest{&request}); err != nil {
		return nil, err
	}

	return &request, nil
}

// OrganRequests lists every request newest first with participants attached.
func (r *OrganRequestRepository) OrganRequests(ctx context.Context) ([]*types.OrganRequest, error) {
	builder := psql().
		Select(organRequestColumns...).
		From(organRequestTableName).
		OrderBy("created_at DESC")

	return r.list(ctx, builder)
}

// ActiveMatches returns approved and in transit requests, most recently updated first.
func (r *OrganRequestRepository) ActiveMatches(ctx context.Context, limit uint64) ([]*types.OrganRequest, error) {
	builder := psql().
		Select(organRequestColumns...).
		From(organRequestTableName).
		Where(sq.Eq{"status": []types.OrganRequestStatus{
			types.OrganRequestStatusApproved,
			types.OrganRequestStatusInTransit,
		}}).
		OrderBy("updated_at DESC").
		Limit(limit)

	return r.list(ctx, builder)
}

func (r *OrganRequestRepository) list(ctx context.Context, builder sq.SelectBuilder) ([]*types.OrganRequest, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate organ requests query: %w", err)
	}

	requests := make([]*types.OrganRequest, 0)
	err = pgxscan.Select(ctx, r.db, &requests, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch organ requests: %w", err)
	}

	if err := r.attachUsers(ctx, requests); err != nil {
		return nil, err
	}

	return requests, nil
}

func (r *OrganRequestRepository) attachUsers(ctx context.Context, requests []*types.OrganRequest) error {
	ids := make([]string, 0, len(requests)*3)
	for _, req := range requests {
		ids = append(ids, req.RecipientID, req.RequestedBy, utils.PtrString(req.DonorID))
	}

	users, err := (&UserRepository{db: r.db}).UsersByIDMap(ctx, ids)
	if err != nil {
		return err
	}

	for _, req := range requests {
		req.Recipient = users[req.RecipientID]
		req.Requester = users[req.RequestedBy]
		req.Donor = users[utils.PtrString(req.DonorID)]
	}

	return nil
}

func (r *OrganRequestRepository) UpdateStatus(ctx context.Context, id string, status types.OrganRequestStatus) (*types.OrganRequest, error) {
	query, args, err := psql().
		Update(organRequestTableName).
		Set("status", status).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate organ request status query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update organ request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, types.ErrOrganRequestNotFound
	}

	return r.OrganRequest(ctx, id)
}

// Assign matches a donation to the request: the donation's donor becomes the
// request donor, the request is approved and the donation allocated. The
// linked approval is moved back to pending with the donor's name.
func (r *OrganRequestRepository) Assign(ctx context.Context, id, donationID string) (*types.OrganRequest, error) {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		requests := &OrganRequestRepository{db: tx}
		donations := &DonationRepository{db: tx}
		approvals := &ApprovalRepository{db: tx}

		if _, err := requests.lock(ctx, id); err != nil {
			return err
		}

		donation, err := donations.Donation(ctx, donationID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		query, args, err := psql().
			Update(organRequestTableName).
			Set("donor_id", donation.DonorID).
			Set("status", types.OrganRequestStatusApproved).
			Set("match_score", MatchScore).
			Set("updated_at", now).
			Where(sq.Eq{"id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate assign query: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to assign donation: %w", err)
		}

		if err := donations.UpdateStatus(ctx, donation.ID, types.DonationStatusAllocated); err != nil {
			return err
		}

		donorName := "Assigned"
		if donation.Donor != nil {
			donorName = donation.Donor.Name
		}
		return approvals.resetForRequest(ctx, id, donorName)
	})
	if err != nil {
		return nil, err
	}

	return r.OrganRequest(ctx, id)
}

func (r *OrganRequestRepository) lock(ctx context.Context, id string) (string, error) {
	query, args, err := psql().
		Select("id").
		From(organRequestTableName).
		Where(sq.Eq{"id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to generate lock organ request query: %w", err)
	}

	var locked string
	err = r.db.QueryRow(ctx, query, args...).Scan(&locked)
	if err != nil {
		if pgxscan.NotFound(err) {
			return "", types.ErrOrganRequestNotFound
		}
		return "", fmt.Errorf("failed to lock organ request: %w", err)
	}

	return locked, nil
}

func (r *OrganRequestRepository) CountByStatus(ctx context.Context, status types.OrganRequestStatus) (int, error) {
	query, args, err := psql().
		Select("count(*)").
		From(organRequestTableName).
		Where(sq.Eq{"status": status}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate organ request count query: %w", err)
	}

	var count int
	err = r.db.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count organ requests: %w", err)
	}

	return count, nil
}

type dailyCount struct {
	Day   string `db:"day"`
	Count int    `db:"count"`
}

// DailyActiveCounts counts requests in an active status created at or after
// since, keyed by UTC calendar date (2006-01-02).
func (r *OrganRequestRepository) DailyActiveCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	query, args, err := dailyActiveCountsQuery(since).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate daily counts query: %w", err)
	}

	var rows []dailyCount
	err = pgxscan.Select(ctx, r.db, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily counts: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Day] = row.Count
	}
	return counts, nil
}

func dailyActiveCountsQuery(since time.Time) sq.SelectBuilder {
	return psql().
		Select(
			"to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day",
			"count(*) AS count",
		).
		From(organRequestTableName).
		Where(sq.Eq{"status": types.ActiveOrganRequestStatuses}).
		Where(sq.GtOrEq{"created_at": since}).
		GroupBy("day")
}
