package badgerstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lockbox/internal/models"

	badger "github.com/dgraph-io/badger/v4"
)

const eventPageSize = 100

func (q *Queries) LogEvent(ctx context.Context, userID int64, eventType string, payload interface{}) error {
	eventMsg := map[string]interface{}{
		"event_type": eventType,
		"payload":    payload,
	}
	eventBytes, err := json.Marshal(eventMsg)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	next, err := q.events.Next()
	if err != nil {
		return err
	}

	event := models.Event{
		ID:        int64(next) + 1,
		EventType: eventType,
		EventTime: time.Now().UTC(),
		Payload:   eventBytes,
	}
	return q.update(func(txn *badger.Txn) error {
		return setJSON(txn, keyEvent(userID, event.ID), event)
	})
}

func (q *Queries) GetEventsSince(ctx context.Context, userID int64, sinceID int64) ([]models.Event, error) {
	events := []models.Event{}
	err := q.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyEventPrefix(userID)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(keyEvent(userID, sinceID+1)); it.Valid() && len(events) < eventPageSize; it.Next() {
			var event models.Event
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			})
			if err != nil {
				return err
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
