package database

import (
	"context"
	"errors"
	"time"

	"lockbox/internal/models"
	"lockbox/internal/store"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func (q *Queries) CreateNode(ctx context.Context, arg store.CreateNodeParams) (*models.Node, error) {
	query := `
		INSERT INTO nodes (id, owner_id, parent_id, name, node_type, content, storage_ref, size_bytes, mime_type,
			created_at, modified_at, lock_secret_hash, locked_at, lock_reason, lock_inherit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + nodeColumns
	now := time.Now()

	var lockHash *string
	var lockedAt *time.Time
	var lockReason string
	var lockInherit bool
	if arg.Lock != nil {
		lockHash = &arg.Lock.SecretHash
		lockedAt = &arg.Lock.LockedAt
		lockReason = arg.Lock.Reason
		lockInherit = arg.Lock.Inherit
	}

	row := q.db.QueryRow(ctx, query,
		arg.ID,
		arg.OwnerID,
		arg.ParentID,
		arg.Name,
		arg.NodeType,
		arg.Content,
		arg.StorageRef,
		arg.SizeBytes,
		arg.MimeType,
		now,
		now,
		lockHash,
		lockedAt,
		lockReason,
		lockInherit,
	)

	node, err := scanNode(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return nil, store.ErrDanglingReference
		}
		return nil, err
	}

	return node, nil
}

func (q *Queries) GetNode(ctx context.Context, id string) (*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE id = $1`

	node, err := scanNode(q.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return node, nil
}

func (q *Queries) NodeExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM nodes WHERE id = $1)"
	err := q.db.QueryRow(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (q *Queries) ListNodesByOwner(ctx context.Context, ownerID int64) ([]models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE owner_id = $1 ORDER BY created_at DESC, id`
	rows, err := q.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	return collectNodes(rows)
}

func (q *Queries) ListRootNodes(ctx context.Context, ownerID int64) ([]models.Node, error) {
	query := `SELECT ` + nodeColumns + `
		FROM nodes
		WHERE owner_id = $1 AND parent_id IS NULL
		ORDER BY node_type DESC, name`
	rows, err := q.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	return collectNodes(rows)
}

func (q *Queries) ListChildren(ctx context.Context, folderID string) ([]models.Node, error) {
	query := `SELECT ` + nodeColumns + `
		FROM nodes
		WHERE parent_id = $1
		ORDER BY node_type DESC, name`
	rows, err := q.db.Query(ctx, query, folderID)
	if err != nil {
		return nil, err
	}
	return collectNodes(rows)
}

func (q *Queries) RenameNode(ctx context.Context, id string, name string) (bool, error) {
	query := `UPDATE nodes SET name = $2, modified_at = now() WHERE id = $1`
	res, err := q.db.Exec(ctx, query, id, name)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) MoveNode(ctx context.Context, id string, parentID *string) (bool, error) {
	query := `UPDATE nodes SET parent_id = $2, modified_at = now() WHERE id = $1`
	res, err := q.db.Exec(ctx, query, id, parentID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return false, store.ErrDanglingReference
		}
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) SetFavorite(ctx context.Context, id string, favorite bool) (bool, error) {
	query := `UPDATE nodes SET is_favorite = $2 WHERE id = $1`
	res, err := q.db.Exec(ctx, query, id, favorite)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) UpdateContent(ctx context.Context, id string, content string) (bool, error) {
	query := `UPDATE nodes SET content = $2, size_bytes = $3, modified_at = now() WHERE id = $1`
	res, err := q.db.Exec(ctx, query, id, content, int64(len(content)))
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) SetLock(ctx context.Context, id string, lock *models.Lock) (bool, error) {
	var res pgconn.CommandTag
	var err error

	if lock == nil {
		query := `UPDATE nodes
			SET lock_secret_hash = NULL, locked_at = NULL, lock_reason = '', lock_inherit = false
			WHERE id = $1`
		res, err = q.db.Exec(ctx, query, id)
	} else {
		query := `UPDATE nodes
			SET lock_secret_hash = $2, locked_at = $3, lock_reason = $4, lock_inherit = $5
			WHERE id = $1`
		res, err = q.db.Exec(ctx, query, id, lock.SecretHash, lock.LockedAt, lock.Reason, lock.Inherit)
	}
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) DeleteNode(ctx context.Context, id string) (bool, error) {
	res, err := q.db.Exec(ctx, `DELETE FROM nodes WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return false, store.ErrFolderNotEmpty
		}
		return false, err
	}
	return res.RowsAffected() > 0, nil
}
