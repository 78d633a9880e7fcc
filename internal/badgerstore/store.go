// Package badgerstore keeps nodes, share grants, users and events in an
// embedded BadgerDB instance.
package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"lockbox/internal/store"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

type Options struct {
	Path     string
	InMemory bool
	Logger   *zap.Logger
}

type Store struct {
	db     *badger.DB
	users  *badger.Sequence
	events *badger.Sequence
	*Queries
}

var _ store.Store = (*Store)(nil)

// maxConflictRetries bounds how often ExecTx replays a transaction that lost
// an optimistic conflict to a concurrent writer.
const maxConflictRetries = 3

func Open(opts Options) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(&badgerLogger{opts.Logger.Sugar()})
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	users, err := db.GetSequence([]byte(seqUsers), 100)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open user sequence: %w", err)
	}
	events, err := db.GetSequence([]byte(seqEvents), 1000)
	if err != nil {
		users.Release()
		db.Close()
		return nil, fmt.Errorf("failed to open event sequence: %w", err)
	}

	s := &Store{db: db, users: users, events: events}
	s.Queries = &Queries{db: db, users: users, events: events}
	return s, nil
}

func (s *Store) ExecTx(ctx context.Context, fn func(store.Querier) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			return fn(s.Queries.withTxn(txn))
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (s *Store) Close() error {
	var errs []error
	if err := s.users.Release(); err != nil {
		errs = append(errs, err)
	}
	if err := s.events.Release(); err != nil {
		errs = append(errs, err)
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type badgerLogger struct {
	*zap.SugaredLogger
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}
