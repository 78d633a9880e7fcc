package badgerstore

import (
	"context"
	"encoding/json"
	"errors"

	"lockbox/internal/store"

	badger "github.com/dgraph-io/badger/v4"
)

// Queries runs each call in its own badger transaction, or inside txn when
// it was handed out by ExecTx.
type Queries struct {
	db     *badger.DB
	txn    *badger.Txn
	users  *badger.Sequence
	events *badger.Sequence
}

var _ store.Querier = (*Queries)(nil)

func (q *Queries) withTxn(txn *badger.Txn) *Queries {
	return &Queries{db: q.db, txn: txn, users: q.users, events: q.events}
}

func (q *Queries) view(fn func(txn *badger.Txn) error) error {
	if q.txn != nil {
		return fn(q.txn)
	}
	return q.db.View(fn)
}

func (q *Queries) update(fn func(txn *badger.Txn) error) error {
	if q.txn != nil {
		return fn(q.txn)
	}
	return q.db.Update(fn)
}

// LockOwnerTree is a no-op: badger detects conflicting writers at commit
// and ExecTx replays the loser.
func (q *Queries) LockOwnerTree(ctx context.Context, ownerID int64) error {
	return nil
}

// getJSON decodes the value at key into v and reports whether it existed.
func getJSON(txn *badger.Txn, key []byte, v interface{}) (bool, error) {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func setJSON(txn *badger.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type entry struct {
	suffix string
	value  []byte
}

// scanPrefix collects every key under prefix before returning, so callers
// may issue further reads and writes on the same read-write transaction.
func scanPrefix(ctx context.Context, txn *badger.Txn, prefix []byte, withValues bool) ([]entry, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = withValues
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var entries []entry
	for it.Rewind(); it.Valid(); it.Next() {
		if len(entries)%100 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		item := it.Item()
		e := entry{suffix: string(item.Key()[len(prefix):])}
		if withValues {
			val, err := item.ValueCopy(nil)
			if err != nil {
				return nil, err
			}
			e.value = val
		}
		entries = append(entries, e)
	}
	return entries, nil
}
