package database

import (
	"context"
	"time"

	"lockbox/internal/models"
	"lockbox/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type Queries struct {
	db DBTX
}

var _ store.Querier = (*Queries)(nil)

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// LockOwnerTree takes a transaction-scoped advisory lock keyed by the owner.
func (q *Queries) LockOwnerTree(ctx context.Context, ownerID int64) error {
	_, err := q.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, ownerID)
	return err
}

const nodeColumns = `id, owner_id, parent_id, name, node_type, content, storage_ref, size_bytes, mime_type,
	is_favorite, created_at, modified_at, lock_secret_hash, locked_at, lock_reason, lock_inherit`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNode(row rowScanner) (*models.Node, error) {
	var node models.Node
	var lockHash *string
	var lockedAt *time.Time
	var lockReason string
	var lockInherit bool

	err := row.Scan(
		&node.ID,
		&node.OwnerID,
		&node.ParentID,
		&node.Name,
		&node.NodeType,
		&node.Content,
		&node.StorageRef,
		&node.SizeBytes,
		&node.MimeType,
		&node.IsFavorite,
		&node.CreatedAt,
		&node.ModifiedAt,
		&lockHash,
		&lockedAt,
		&lockReason,
		&lockInherit,
	)
	if err != nil {
		return nil, err
	}

	if lockHash != nil && lockedAt != nil {
		node.Lock = &models.Lock{
			SecretHash: *lockHash,
			LockedAt:   *lockedAt,
			Reason:     lockReason,
			Inherit:    lockInherit,
		}
	}

	return &node, nil
}

func collectNodes(rows pgx.Rows) ([]models.Node, error) {
	defer rows.Close()

	var nodes []models.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if nodes == nil {
		return []models.Node{}, nil
	}

	return nodes, nil
}
