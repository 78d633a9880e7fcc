package badgerstore

import (
	"context"
	"time"

	"lockbox/internal/models"
	"lockbox/internal/store"

	badger "github.com/dgraph-io/badger/v4"
)

// userRecord persists the password hash that models.User keeps out of JSON.
type userRecord struct {
	models.User
	Hash string `json:"password_hash"`
}

func getUser(txn *badger.Txn, id int64) (*models.User, error) {
	var rec userRecord
	found, err := getJSON(txn, keyUser(id), &rec)
	if err != nil || !found {
		return nil, err
	}
	user := rec.User
	user.PasswordHash = rec.Hash
	return &user, nil
}

func (q *Queries) CreateUser(ctx context.Context, arg store.CreateUserParams) (*models.User, error) {
	var user *models.User
	err := q.update(func(txn *badger.Txn) error {
		taken, err := exists(txn, keyUsername(arg.Username))
		if err != nil {
			return err
		}
		if taken {
			return store.ErrDuplicateUsername
		}

		next, err := q.users.Next()
		if err != nil {
			return err
		}

		user = &models.User{
			ID:           int64(next) + 1,
			Username:     arg.Username,
			PasswordHash: arg.PasswordHash,
			DisplayName:  arg.DisplayName,
			CreatedAt:    time.Now().UTC(),
		}
		if err := setJSON(txn, keyUser(user.ID), userRecord{User: *user, Hash: user.PasswordHash}); err != nil {
			return err
		}
		return setJSON(txn, keyUsername(user.Username), user.ID)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user *models.User
	err := q.view(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, id)
		return err
	})
	return user, err
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user *models.User
	err := q.view(func(txn *badger.Txn) error {
		var id int64
		found, err := getJSON(txn, keyUsername(username), &id)
		if err != nil || !found {
			return err
		}
		user, err = getUser(txn, id)
		return err
	})
	return user, err
}

func (q *Queries) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) (bool, error) {
	var found bool
	err := q.update(func(txn *badger.Txn) error {
		var rec userRecord
		ok, err := getJSON(txn, keyUser(id), &rec)
		if err != nil || !ok {
			return err
		}
		found = true
		rec.Hash = passwordHash
		return setJSON(txn, keyUser(id), rec)
	})
	if err != nil {
		return false, err
	}
	return found, nil
}
