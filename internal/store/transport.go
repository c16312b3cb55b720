package store

import (
	"context"
	"fmt"
	"time"

	"organlink/internal/utils"
	"organlink/pkg/types"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transportTableName = "organlink.transports"

var transportColumns = utils.StructTagValues(types.Transport{})

type TransportRepository struct {
	db DBTX
}

func NewTransportRepository(pool *pgxpool.Pool) *TransportRepository {
	return &TransportRepository{db: pool}
}

// Create is used by seeding. Live positions are written by an external feed.
func (r *TransportRepository) Create(ctx context.Context, transport *types.Transport) error {
	now := time.Now().UTC()
	transport.ID = utils.NanoID()
	transport.CreatedAt = now
	transport.UpdatedAt = now
	if transport.Route == nil {
		transport.Route = []types.Waypoint{}
	}
	if transport.Timeline == nil {
		transport.Timeline = []types.TimelineEvent{}
	}

	query, args, err := psql().
		Insert(transportTableName).
		SetMap(utils.StructToMap(transport)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert transport query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create transport")
}

// Latest returns the most recently updated transports.
func (r *TransportRepository) Latest(ctx context.Context, limit uint64) ([]*types.Transport, error) {
	query, args, err := psql().
		Select(transportColumns...).
		From(transportTableName).
		OrderBy("updated_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate transports query: %w", err)
	}

	transports := make([]*types.Transport, 0)
	err = pgxscan.Select(ctx, r.db, &transports, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transports: %w", err)
	}

	return transports, nil
}
