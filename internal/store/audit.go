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

const auditTableName = "organlink.audit_logs"

// auditRow is the flattened storage shape of types.AuditEntry.
type auditRow struct {
	ID         string         `db:"id"`
	Action     string         `db:"action"`
	ActorID    *string        `db:"actor_id"`
	ActorName  *string        `db:"actor_name"`
	ActorRole  *string        `db:"actor_role"`
	EntityType *string        `db:"entity_type"`
	EntityID   *string        `db:"entity_id"`
	EntityName *string        `db:"entity_name"`
	Metadata   map[string]any `db:"metadata"`
	CreatedAt  time.Time      `db:"created_at"`
}

var auditColumns = utils.StructTagValues(auditRow{})

func newAuditRow(entry *types.AuditEntry) *auditRow {
	row := &auditRow{
		ID:        entry.ID,
		Action:    entry.Action,
		Metadata:  entry.Metadata,
		CreatedAt: entry.CreatedAt,
	}
	if entry.Actor != nil {
		row.ActorID = utils.NonEmptyStringPtr(entry.Actor.ID)
		row.ActorName = utils.NonEmptyStringPtr(entry.Actor.Name)
		row.ActorRole = utils.NonEmptyStringPtr(string(entry.Actor.Role))
	}
	if entry.Entity != nil {
		row.EntityType = utils.NonEmptyStringPtr(entry.Entity.Type)
		row.EntityID = utils.NonEmptyStringPtr(entry.Entity.ID)
		row.EntityName = utils.NonEmptyStringPtr(entry.Entity.Name)
	}
	return row
}

func (row *auditRow) entry() *types.AuditEntry {
	entry := &types.AuditEntry{
		ID:        row.ID,
		Action:    row.Action,
		Metadata:  row.Metadata,
		CreatedAt: row.CreatedAt,
	}
	if row.ActorID != nil || row.ActorName != nil {
		entry.Actor = &types.AuditActor{
			ID:   utils.PtrString(row.ActorID),
			Name: utils.PtrString(row.ActorName),
			Role: types.Role(utils.PtrString(row.ActorRole)),
		}
	}
	if row.EntityType != nil || row.EntityID != nil {
		entry.Entity = &types.AuditEntity{
			Type: utils.PtrString(row.EntityType),
			ID:   utils.PtrString(row.EntityID),
			Name: utils.PtrString(row.EntityName),
		}
	}
	return entry
}

type AuditRepository struct {
	db DBTX
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: pool}
}

func (r *AuditRepository) Append(ctx context.Context, entry *types.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = utils.NanoID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query, args, err := psql().
		Insert(auditTableName).
		SetMap(utils.StructToMap(newAuditRow(entry))).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert audit query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to append audit entry")
}

// Recent returns the newest entries first.
func (r *AuditRepository) Recent(ctx context.Context, limit uint64) ([]*types.AuditEntry, error) {
	return r.entries(ctx, time.Time{}, limit)
}

// Since returns entries created at or after since, oldest first.
func (r *AuditRepository) Since(ctx context.Context, since time.Time) ([]*types.AuditEntry, error) {
	return r.entries(ctx, since, 0)
}

func (r *AuditRepository) entries(ctx context.Context, since time.Time, limit uint64) ([]*types.AuditEntry, error) {
	builder := psql().
		Select(auditColumns...).
		From(auditTableName)

	if since.IsZero() {
		builder = builder.OrderBy("created_at DESC")
	} else {
		builder = builder.Where("created_at >= ?", since).OrderBy("created_at ASC")
	}
	if limit > 0 {
		builder = builder.Limit(limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate audit query: %w", err)
	}

	var rows []*auditRow
	err = pgxscan.Select(ctx, r.db, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audit entries: %w", err)
	}

	entries := make([]*types.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.entry())
	}
	return entries, nil
}
