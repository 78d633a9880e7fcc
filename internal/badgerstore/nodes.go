package badgerstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"lockbox/internal/models"
	"lockbox/internal/store"

	badger "github.com/dgraph-io/badger/v4"
)

// nodeRecord persists the lock hash that models.Lock keeps out of JSON.
type nodeRecord struct {
	models.Node
	LockHash string `json:"lock_hash,omitempty"`
}

func toRecord(node *models.Node) *nodeRecord {
	rec := &nodeRecord{Node: *node}
	if node.Lock != nil {
		rec.LockHash = node.Lock.SecretHash
	}
	return rec
}

func (r *nodeRecord) node() *models.Node {
	node := r.Node
	if node.Lock != nil {
		lock := *node.Lock
		lock.SecretHash = r.LockHash
		node.Lock = &lock
	}
	return &node
}

func getNode(txn *badger.Txn, id string) (*nodeRecord, error) {
	var rec nodeRecord
	found, err := getJSON(txn, keyNode(id), &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

func putNode(txn *badger.Txn, node *models.Node) error {
	return setJSON(txn, keyNode(node.ID), toRecord(node))
}

// folder-first, then by name
func sortListing(nodes []models.Node) {
	slices.SortFunc(nodes, func(a, b models.Node) int {
		if a.NodeType != b.NodeType {
			return cmp.Compare(b.NodeType, a.NodeType)
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

func childCount(txn *badger.Txn, folderID string) (int64, error) {
	var n int64
	if _, err := getJSON(txn, keyChildCount(folderID), &n); err != nil {
		return 0, err
	}
	return n, nil
}

// adjustChildCount keeps the per-folder counter that DeleteNode consults
// instead of scanning the child index.
func adjustChildCount(txn *badger.Txn, parentID *string, delta int64) error {
	if parentID == nil {
		return nil
	}
	n, err := childCount(txn, *parentID)
	if err != nil {
		return err
	}
	n += delta
	if n <= 0 {
		return txn.Delete(keyChildCount(*parentID))
	}
	return setJSON(txn, keyChildCount(*parentID), n)
}

func (q *Queries) loadNodes(ctx context.Context, txn *badger.Txn, prefix []byte) ([]models.Node, error) {
	entries, err := scanPrefix(ctx, txn, prefix, false)
	if err != nil {
		return nil, err
	}

	nodes := make([]models.Node, 0, len(entries))
	for _, e := range entries {
		rec, err := getNode(txn, e.suffix)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		nodes = append(nodes, *rec.node())
	}
	return nodes, nil
}

func (q *Queries) CreateNode(ctx context.Context, arg store.CreateNodeParams) (*models.Node, error) {
	now := time.Now().UTC()
	node := &models.Node{
		ID:         arg.ID,
		OwnerID:    arg.OwnerID,
		ParentID:   arg.ParentID,
		Name:       arg.Name,
		NodeType:   arg.NodeType,
		Content:    arg.Content,
		StorageRef: arg.StorageRef,
		SizeBytes:  arg.SizeBytes,
		MimeType:   arg.MimeType,
		CreatedAt:  now,
		ModifiedAt: now,
		Lock:       arg.Lock,
	}

	err := q.update(func(txn *badger.Txn) error {
		taken, err := exists(txn, keyNode(arg.ID))
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("node %s already exists", arg.ID)
		}

		if arg.ParentID != nil {
			parent, err := exists(txn, keyNode(*arg.ParentID))
			if err != nil {
				return err
			}
			if !parent {
				return store.ErrDanglingReference
			}
		}

		if err := putNode(txn, node); err != nil {
			return err
		}
		if err := txn.Set(keyPlacement(node.OwnerID, node.ParentID, node.ID), nil); err != nil {
			return err
		}
		if err := adjustChildCount(txn, node.ParentID, 1); err != nil {
			return err
		}
		return txn.Set(keyOwner(node.OwnerID, node.ID), nil)
	})
	if err != nil {
		return nil, err
	}

	return node, nil
}

func (q *Queries) GetNode(ctx context.Context, id string) (*models.Node, error) {
	var node *models.Node
	err := q.view(func(txn *badger.Txn) error {
		rec, err := getNode(txn, id)
		if err != nil || rec == nil {
			return err
		}
		node = rec.node()
		return nil
	})
	return node, err
}

func (q *Queries) NodeExists(ctx context.Context, id string) (bool, error) {
	var found bool
	err := q.view(func(txn *badger.Txn) error {
		var err error
		found, err = exists(txn, keyNode(id))
		return err
	})
	return found, err
}

func (q *Queries) ListNodesByOwner(ctx context.Context, ownerID int64) ([]models.Node, error) {
	var nodes []models.Node
	err := q.view(func(txn *badger.Txn) error {
		var err error
		nodes, err = q.loadNodes(ctx, txn, keyOwnerPrefix(ownerID))
		return err
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(nodes, func(a, b models.Node) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return nodes, nil
}

func (q *Queries) ListRootNodes(ctx context.Context, ownerID int64) ([]models.Node, error) {
	var nodes []models.Node
	err := q.view(func(txn *badger.Txn) error {
		var err error
		nodes, err = q.loadNodes(ctx, txn, keyRootPrefix(ownerID))
		return err
	})
	if err != nil {
		return nil, err
	}
	sortListing(nodes)
	return nodes, nil
}

func (q *Queries) ListChildren(ctx context.Context, folderID string) ([]models.Node, error) {
	var nodes []models.Node
	err := q.view(func(txn *badger.Txn) error {
		var err error
		nodes, err = q.loadNodes(ctx, txn, keyChildPrefix(folderID))
		return err
	})
	if err != nil {
		return nil, err
	}
	sortListing(nodes)
	return nodes, nil
}

// modifyNode applies fn to the stored node and writes it back.
func (q *Queries) modifyNode(id string, fn func(txn *badger.Txn, node *models.Node) error) (bool, error) {
	var found bool
	err := q.update(func(txn *badger.Txn) error {
		rec, err := getNode(txn, id)
		if err != nil || rec == nil {
			return err
		}
		found = true
		node := rec.node()
		if err := fn(txn, node); err != nil {
			return err
		}
		return putNode(txn, node)
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (q *Queries) RenameNode(ctx context.Context, id string, name string) (bool, error) {
	return q.modifyNode(id, func(_ *badger.Txn, node *models.Node) error {
		node.Name = name
		node.ModifiedAt = time.Now().UTC()
		return nil
	})
}

func (q *Queries) MoveNode(ctx context.Context, id string, parentID *string) (bool, error) {
	return q.modifyNode(id, func(txn *badger.Txn, node *models.Node) error {
		if parentID != nil {
			parent, err := exists(txn, keyNode(*parentID))
			if err != nil {
				return err
			}
			if !parent {
				return store.ErrDanglingReference
			}
		}
		if err := txn.Delete(keyPlacement(node.OwnerID, node.ParentID, node.ID)); err != nil {
			return err
		}
		if err := adjustChildCount(txn, node.ParentID, -1); err != nil {
			return err
		}
		node.ParentID = parentID
		node.ModifiedAt = time.Now().UTC()
		if err := adjustChildCount(txn, node.ParentID, 1); err != nil {
			return err
		}
		return txn.Set(keyPlacement(node.OwnerID, node.ParentID, node.ID), nil)
	})
}

func (q *Queries) SetFavorite(ctx context.Context, id string, favorite bool) (bool, error) {
	return q.modifyNode(id, func(_ *badger.Txn, node *models.Node) error {
		node.IsFavorite = favorite
		return nil
	})
}

func (q *Queries) UpdateContent(ctx context.Context, id string, content string) (bool, error) {
	return q.modifyNode(id, func(_ *badger.Txn, node *models.Node) error {
		size := int64(len(content))
		node.Content = &content
		node.SizeBytes = &size
		node.ModifiedAt = time.Now().UTC()
		return nil
	})
}

func (q *Queries) SetLock(ctx context.Context, id string, lock *models.Lock) (bool, error) {
	return q.modifyNode(id, func(_ *badger.Txn, node *models.Node) error {
		node.Lock = lock
		return nil
	})
}

// DeleteNode removes a node and every share grant on it. Folders must be
// emptied first. No iterators here: opening one on a read-write
// transaction sorts all of its pending writes.
func (q *Queries) DeleteNode(ctx context.Context, id string) (bool, error) {
	var found bool
	err := q.update(func(txn *badger.Txn) error {
		rec, err := getNode(txn, id)
		if err != nil || rec == nil {
			return err
		}
		found = true

		if rec.IsFolder() {
			n, err := childCount(txn, id)
			if err != nil {
				return err
			}
			if n > 0 {
				return store.ErrFolderNotEmpty
			}
		}

		if _, err := deleteSharesForItem(txn, id); err != nil {
			return err
		}
		if err := txn.Delete(keyPlacement(rec.OwnerID, rec.ParentID, id)); err != nil {
			return err
		}
		if err := adjustChildCount(txn, rec.ParentID, -1); err != nil {
			return err
		}
		if err := txn.Delete(keyOwner(rec.OwnerID, id)); err != nil {
			return err
		}
		return txn.Delete(keyNode(id))
	})
	if err != nil {
		return false, err
	}
	return found, nil
}
