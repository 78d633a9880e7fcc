package badgerstore

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"lockbox/internal/models"
	"lockbox/internal/store"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

func getShare(txn *badger.Txn, id string) (*models.Share, error) {
	var share models.Share
	found, err := getJSON(txn, keyShare(id), &share)
	if err != nil || !found {
		return nil, err
	}
	return &share, nil
}

func itemShareIDs(txn *badger.Txn, itemID string) ([]string, error) {
	var ids []string
	if _, err := getJSON(txn, keyShareItem(itemID), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func setItemShareIDs(txn *badger.Txn, itemID string, ids []string) error {
	if len(ids) == 0 {
		return txn.Delete(keyShareItem(itemID))
	}
	return setJSON(txn, keyShareItem(itemID), ids)
}

// deleteShareKeys drops the share record and its grantee and owner indexes,
// leaving the item's share list to the caller.
func deleteShareKeys(txn *badger.Txn, share *models.Share) error {
	id := share.ID.String()
	for _, key := range [][]byte{
		keyShare(id),
		keyShareGrantee(share.GranteeID, share.ItemID),
		keyShareOwner(share.OwnerID, id),
	} {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func deleteShare(txn *badger.Txn, share *models.Share) error {
	if err := deleteShareKeys(txn, share); err != nil {
		return err
	}
	ids, err := itemShareIDs(txn, share.ItemID)
	if err != nil {
		return err
	}
	id := share.ID.String()
	return setItemShareIDs(txn, share.ItemID, slices.DeleteFunc(ids, func(s string) bool { return s == id }))
}

func deleteSharesForItem(txn *badger.Txn, itemID string) (int64, error) {
	ids, err := itemShareIDs(txn, itemID)
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	var removed int64
	for _, id := range ids {
		share, err := getShare(txn, id)
		if err != nil {
			return removed, err
		}
		if share == nil {
			continue
		}
		if err := deleteShareKeys(txn, share); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, txn.Delete(keyShareItem(itemID))
}

func (q *Queries) loadShares(ctx context.Context, txn *badger.Txn, prefix []byte) ([]models.Share, error) {
	entries, err := scanPrefix(ctx, txn, prefix, false)
	if err != nil {
		return nil, err
	}

	shares := make([]models.Share, 0, len(entries))
	for _, e := range entries {
		share, err := getShare(txn, e.suffix)
		if err != nil {
			return nil, err
		}
		if share != nil {
			shares = append(shares, *share)
		}
	}

	slices.SortFunc(shares, func(a, b models.Share) int {
		return b.SharedAt.Compare(a.SharedAt)
	})
	return shares, nil
}

func (q *Queries) UpsertShare(ctx context.Context, arg store.UpsertShareParams) (*models.Share, error) {
	var share *models.Share
	err := q.update(func(txn *badger.Txn) error {
		for _, key := range [][]byte{keyNode(arg.ItemID), keyUser(arg.OwnerID), keyUser(arg.GranteeID)} {
			found, err := exists(txn, key)
			if err != nil {
				return err
			}
			if !found {
				return store.ErrDanglingReference
			}
		}

		var existingID string
		found, err := getJSON(txn, keyShareGrantee(arg.GranteeID, arg.ItemID), &existingID)
		if err != nil {
			return err
		}
		if found {
			share, err = getShare(txn, existingID)
			if err != nil {
				return err
			}
		}

		if share != nil {
			share.Permission = arg.Permission
			return setJSON(txn, keyShare(existingID), share)
		}

		share = &models.Share{
			ID:         arg.ID,
			ItemID:     arg.ItemID,
			ItemKind:   arg.ItemKind,
			OwnerID:    arg.OwnerID,
			GranteeID:  arg.GranteeID,
			Permission: arg.Permission,
			SharedAt:   time.Now().UTC(),
		}
		id := share.ID.String()
		if err := setJSON(txn, keyShare(id), share); err != nil {
			return err
		}
		if err := setJSON(txn, keyShareGrantee(share.GranteeID, share.ItemID), id); err != nil {
			return err
		}
		if err := txn.Set(keyShareOwner(share.OwnerID, id), nil); err != nil {
			return err
		}
		ids, err := itemShareIDs(txn, share.ItemID)
		if err != nil {
			return err
		}
		return setItemShareIDs(txn, share.ItemID, append(ids, id))
	})
	if err != nil {
		return nil, err
	}
	return share, nil
}

func (q *Queries) GetShareByID(ctx context.Context, id uuid.UUID) (*models.Share, error) {
	var share *models.Share
	err := q.view(func(txn *badger.Txn) error {
		var err error
		share, err = getShare(txn, id.String())
		return err
	})
	return share, err
}

func (q *Queries) GetShareForGrantee(ctx context.Context, itemID string, granteeID int64) (*models.Share, error) {
	var share *models.Share
	err := q.view(func(txn *badger.Txn) error {
		var id string
		found, err := getJSON(txn, keyShareGrantee(granteeID, itemID), &id)
		if err != nil || !found {
			return err
		}
		share, err = getShare(txn, id)
		return err
	})
	return share, err
}

func (q *Queries) ListSharesForGrantee(ctx context.Context, granteeID int64) ([]models.Share, error) {
	var shares []models.Share
	err := q.view(func(txn *badger.Txn) error {
		var err error
		shares, err = q.loadGranteeShares(ctx, txn, granteeID)
		return err
	})
	return shares, err
}

// grantee index values are JSON-encoded share ids
func (q *Queries) loadGranteeShares(ctx context.Context, txn *badger.Txn, granteeID int64) ([]models.Share, error) {
	entries, err := scanPrefix(ctx, txn, keyShareGranteePrefix(granteeID), true)
	if err != nil {
		return nil, err
	}

	shares := make([]models.Share, 0, len(entries))
	for _, e := range entries {
		var id string
		if err := json.Unmarshal(e.value, &id); err != nil {
			return nil, err
		}
		share, err := getShare(txn, id)
		if err != nil {
			return nil, err
		}
		if share != nil {
			shares = append(shares, *share)
		}
	}

	slices.SortFunc(shares, func(a, b models.Share) int {
		return b.SharedAt.Compare(a.SharedAt)
	})
	return shares, nil
}

func (q *Queries) ListSharesByOwner(ctx context.Context, ownerID int64) ([]models.Share, error) {
	var shares []models.Share
	err := q.view(func(txn *badger.Txn) error {
		var err error
		shares, err = q.loadShares(ctx, txn, keyShareOwnerPrefix(ownerID))
		return err
	})
	return shares, err
}

func (q *Queries) DeleteShare(ctx context.Context, id uuid.UUID) (bool, error) {
	var found bool
	err := q.update(func(txn *badger.Txn) error {
		share, err := getShare(txn, id.String())
		if err != nil || share == nil {
			return err
		}
		found = true
		return deleteShare(txn, share)
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (q *Queries) DeleteSharesForNode(ctx context.Context, itemID string) (int64, error) {
	var removed int64
	err := q.update(func(txn *badger.Txn) error {
		var err error
		removed, err = deleteSharesForItem(txn, itemID)
		return err
	})
	return removed, err
}
