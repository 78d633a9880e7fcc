package database

import (
	"context"
	"errors"

	"lockbox/internal/models"
	"lockbox/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const shareColumns = `id, item_id, item_kind, owner_id, grantee_id, permission, shared_at`

func scanShare(row rowScanner) (*models.Share, error) {
	var share models.Share
	err := row.Scan(
		&share.ID,
		&share.ItemID,
		&share.ItemKind,
		&share.OwnerID,
		&share.GranteeID,
		&share.Permission,
		&share.SharedAt,
	)
	if err != nil {
		return nil, err
	}
	return &share, nil
}

func collectShares(rows pgx.Rows) ([]models.Share, error) {
	defer rows.Close()

	var shares []models.Share
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, *share)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if shares == nil {
		return []models.Share{}, nil
	}

	return shares, nil
}

// UpsertShare keeps one grant per (item, grantee); sharing again replaces the permission.
func (q *Queries) UpsertShare(ctx context.Context, arg store.UpsertShareParams) (*models.Share, error) {
	query := `
		INSERT INTO shares (id, item_id, item_kind, owner_id, grantee_id, permission)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (item_id, grantee_id) DO UPDATE SET permission = EXCLUDED.permission
		RETURNING ` + shareColumns

	share, err := scanShare(q.db.QueryRow(ctx, query,
		arg.ID, arg.ItemID, arg.ItemKind, arg.OwnerID, arg.GranteeID, arg.Permission))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return nil, store.ErrDanglingReference
		}
		return nil, err
	}
	return share, nil
}

func (q *Queries) GetShareByID(ctx context.Context, id uuid.UUID) (*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE id = $1`
	share, err := scanShare(q.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return share, nil
}

func (q *Queries) GetShareForGrantee(ctx context.Context, itemID string, granteeID int64) (*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE item_id = $1 AND grantee_id = $2`
	share, err := scanShare(q.db.QueryRow(ctx, query, itemID, granteeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return share, nil
}

func (q *Queries) ListSharesForGrantee(ctx context.Context, granteeID int64) ([]models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE grantee_id = $1 ORDER BY shared_at DESC`
	rows, err := q.db.Query(ctx, query, granteeID)
	if err != nil {
		return nil, err
	}
	return collectShares(rows)
}

func (q *Queries) ListSharesByOwner(ctx context.Context, ownerID int64) ([]models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE owner_id = $1 ORDER BY shared_at DESC`
	rows, err := q.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	return collectShares(rows)
}

func (q *Queries) DeleteShare(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := q.db.Exec(ctx, `DELETE FROM shares WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) DeleteSharesForNode(ctx context.Context, itemID string) (int64, error) {
	res, err := q.db.Exec(ctx, `DELETE FROM shares WHERE item_id = $1`, itemID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}
