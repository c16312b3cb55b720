package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"organlink/internal/utils"
	"organlink/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const donationTableName = "organlink.donations"

var donationColumns = utils.StructTagValues(types.Donation{})

type DonationRepository struct {
	db DBTX
}

func NewDonationRepository(pool *pgxpool.Pool) *DonationRepository {
	return &DonationRepository{db: pool}
}

func (r *DonationRepository) Create(ctx context.Context, donation *types.Donation) error {
	now := time.Now().UTC()
	donation.ID = utils.NanoID()
	donation.Status = types.DonationStatusAvailable
	if donation.PreservationHours <= 0 {
		donation.PreservationHours = types.DefaultPreservationHours
	}
	donation.CreatedAt = now
	donation.UpdatedAt = now

	query, args, err := psql().
		Insert(donationTableName).
		SetMap(utils.StructToMap(donation)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert donation query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create donation")
}

func (r *DonationRepository) Donation(ctx context.Context, id string) (*types.Donation, error) {
	query, args, err := psql().
		Select(donationColumns...).
		From(donationTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donation query: %w", err)
	}

	var donation types.Donation
	err = pgxscan.Get(ctx, r.db, &donation, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrDonationNotFound
		}
		return nil, fmt.Errorf("failed to fetch donation: %w", err)
	}

	donor, err := (&UserRepository{db: r.db}).User(ctx, donation.DonorID)
	switch {
	case err == nil:
		donation.Donor = donor
	case !errors.Is(err, types.ErrUserNotFound):
		return nil, err
	}

	return &donation, nil
}

// Donations lists every donation newest first with the donor attached.
func (r *DonationRepository) Donations(ctx context.Context) ([]*types.Donation, error) {
	query, args, err := psql().
		Select(donationColumns...).
		From(donationTableName).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donations query: %w", err)
	}

	donations := make([]*types.Donation, 0)
	err = pgxscan.Select(ctx, r.db, &donations, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch donations: %w", err)
	}

	donorIDs := make([]string, 0, len(donations))
	for _, d := range donations {
		donorIDs = append(donorIDs, d.DonorID)
	}

	donors, err := (&UserRepository{db: r.db}).UsersByIDMap(ctx, donorIDs)
	if err != nil {
		return nil, err
	}
	for _, d := range donations {
		d.Donor = donors[d.DonorID]
	}

	return donations, nil
}

func (r *DonationRepository) UpdateStatus(ctx context.Context, id string, status types.DonationStatus) error {
	query, args, err := psql().
		Update(donationTableName).
		Set("status", status).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate donation status query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update donation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrDonationNotFound
	}

	return nil
}
