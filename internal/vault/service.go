// Package vault decides who may do what to a node in the folder tree and
// carries out the operations, including the recursive delete, lock and
// unlock cascades.
package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"lockbox/internal/markdown"
	"lockbox/internal/store"

	"github.com/jaevor/go-nanoid"
	"go.uber.org/zap"
)

// SecretHasher hashes lock secrets and verifies them in constant time.
type SecretHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) bool
}

type BlobStore interface {
	Save(ctx context.Context, ref string, data io.Reader) error
	Get(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

type Publisher interface {
	PublishEvent(userID int64, eventData []byte)
}

type NoteRenderer interface {
	Render(source []byte) ([]byte, error)
}

type Config struct {
	Store     store.Store
	Blobs     BlobStore
	Hasher    SecretHasher
	Publisher Publisher
	Renderer  NoteRenderer
	Logger    *zap.Logger
}

type Service struct {
	store    store.Store
	blobs    BlobStore
	hasher   SecretHasher
	events   Publisher
	renderer NoteRenderer
	logger   *zap.Logger
	trees    *treeLocks
	newID    func() string
	now      func() time.Time
}

type nopPublisher struct{}

func (nopPublisher) PublishEvent(int64, []byte) {}

func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil || cfg.Blobs == nil || cfg.Hasher == nil {
		return nil, fmt.Errorf("vault: store, blobs and hasher are required")
	}

	generateID, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize nanoid generator: %w", err)
	}

	s := &Service{
		store:    cfg.Store,
		blobs:    cfg.Blobs,
		hasher:   cfg.Hasher,
		events:   cfg.Publisher,
		renderer: cfg.Renderer,
		logger:   cfg.Logger,
		trees:    newTreeLocks(),
		newID:    generateID,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if s.events == nil {
		s.events = nopPublisher{}
	}
	if s.renderer == nil {
		s.renderer = markdown.NewRenderer()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s, nil
}

func (s *Service) generateUniqueID(ctx context.Context, q store.Querier) (string, error) {
	maxRetries := 10

	for i := 0; i < maxRetries; i++ {
		id := s.newID()
		exists, err := q.NodeExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to check for node existence: %w", err)
		}
		if !exists {
			return id, nil
		}
	}

	return "", fmt.Errorf("failed to generate a unique ID after %d attempts", maxRetries)
}

type pendingEvent struct {
	userID    int64
	eventType string
	payload   interface{}
}

// outbox journals events inside the transaction and holds them until commit.
type outbox struct {
	ctx    context.Context
	q      store.Querier
	events []pendingEvent
}

func (o *outbox) record(userID int64, eventType string, payload interface{}) error {
	if err := o.q.LogEvent(o.ctx, userID, eventType, payload); err != nil {
		return fmt.Errorf("failed to log %s event: %w", eventType, err)
	}
	o.events = append(o.events, pendingEvent{userID: userID, eventType: eventType, payload: payload})
	return nil
}

func (s *Service) publish(events []pendingEvent) {
	for _, e := range events {
		data, err := json.Marshal(map[string]interface{}{
			"event_type": e.eventType,
			"payload":    e.payload,
		})
		if err != nil {
			s.logger.Warn("failed to marshal event", zap.String("event_type", e.eventType), zap.Error(err))
			continue
		}
		s.events.PublishEvent(e.userID, data)
	}
}

// withOwnerTree runs fn in one store transaction while holding the owner's
// tree lock, then publishes the recorded events once the commit succeeded.
// fn may be replayed by the store and must not keep state across attempts.
func (s *Service) withOwnerTree(ctx context.Context, ownerID int64, fn func(q store.Querier, out *outbox) error) error {
	unlock := s.trees.lock(ownerID)
	defer unlock()

	var out *outbox
	err := s.store.ExecTx(ctx, func(q store.Querier) error {
		out = &outbox{ctx: ctx, q: q}
		if err := q.LockOwnerTree(ctx, ownerID); err != nil {
			return err
		}
		return fn(q, out)
	})
	if err != nil {
		return err
	}

	s.publish(out.events)
	return nil
}

// mutateNode authorizes op on nodeID inside the owner's tree lock and runs fn
// with the decision.
func (s *Service) mutateNode(ctx context.Context, callerID int64, nodeID string, op Operation, secret string,
	fn func(q store.Querier, d *Decision, out *outbox) error) (*Decision, error) {
	node, err := s.store.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		accessDecisions.WithLabelValues(op.String(), decisionResult(ErrNotFound)).Inc()
		return nil, ErrNotFound
	}

	var decision *Decision
	err = s.withOwnerTree(ctx, node.OwnerID, func(q store.Querier, out *outbox) error {
		d, err := s.authorize(ctx, q, callerID, nodeID, op, secret)
		if err != nil {
			return err
		}
		decision = d
		return fn(q, d, out)
	})
	if err != nil {
		return nil, err
	}
	return decision, nil
}
