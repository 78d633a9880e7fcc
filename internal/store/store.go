// Package store defines the persistence contract for nodes, share grants,
// users and the per-user event journal. Implementations perform no
// authorization; callers decide who may touch which record.
package store

import (
	"context"
	"errors"

	"lockbox/internal/models"

	"github.com/google/uuid"
)

var ErrDuplicateUsername = errors.New("username is already taken")
var ErrDanglingReference = errors.New("referenced record does not exist")
var ErrFolderNotEmpty = errors.New("folder still has children")

type CreateNodeParams struct {
	ID         string
	OwnerID    int64
	ParentID   *string
	Name       string
	NodeType   string
	Content    *string
	StorageRef *string
	SizeBytes  *int64
	MimeType   *string
	Lock       *models.Lock
}

type UpsertShareParams struct {
	ID         uuid.UUID
	ItemID     string
	ItemKind   string
	OwnerID    int64
	GranteeID  int64
	Permission string
}

type CreateUserParams struct {
	Username     string
	PasswordHash string
	DisplayName  *string
}

// Querier is usable both on its own and inside ExecTx. Lookups return
// (nil, nil) when the record is absent; targeted updates return false.
type Querier interface {
	GetNode(ctx context.Context, id string) (*models.Node, error)
	NodeExists(ctx context.Context, id string) (bool, error)
	ListNodesByOwner(ctx context.Context, ownerID int64) ([]models.Node, error)
	ListRootNodes(ctx context.Context, ownerID int64) ([]models.Node, error)
	ListChildren(ctx context.Context, folderID string) ([]models.Node, error)
	CreateNode(ctx context.Context, arg CreateNodeParams) (*models.Node, error)
	RenameNode(ctx context.Context, id string, name string) (bool, error)
	MoveNode(ctx context.Context, id string, parentID *string) (bool, error)
	SetFavorite(ctx context.Context, id string, favorite bool) (bool, error)
	UpdateContent(ctx context.Context, id string, content string) (bool, error)
	SetLock(ctx context.Context, id string, lock *models.Lock) (bool, error)
	DeleteNode(ctx context.Context, id string) (bool, error)

	UpsertShare(ctx context.Context, arg UpsertShareParams) (*models.Share, error)
	GetShareByID(ctx context.Context, id uuid.UUID) (*models.Share, error)
	GetShareForGrantee(ctx context.Context, itemID string, granteeID int64) (*models.Share, error)
	ListSharesForGrantee(ctx context.Context, granteeID int64) ([]models.Share, error)
	ListSharesByOwner(ctx context.Context, ownerID int64) ([]models.Share, error)
	DeleteShare(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteSharesForNode(ctx context.Context, itemID string) (int64, error)

	CreateUser(ctx context.Context, arg CreateUserParams) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) (bool, error)

	LogEvent(ctx context.Context, userID int64, eventType string, payload interface{}) error
	GetEventsSince(ctx context.Context, userID int64, sinceID int64) ([]models.Event, error)

	// LockOwnerTree serializes structural changes to one owner's tree for
	// the rest of the surrounding transaction.
	LockOwnerTree(ctx context.Context, ownerID int64) error
}

type Store interface {
	Querier
	ExecTx(ctx context.Context, fn func(Querier) error) error
	Close() error
}
