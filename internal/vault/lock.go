package vault

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lockbox/internal/models"
	"lockbox/internal/store"

	"go.uber.org/zap"
)

type LockRequest struct {
	Secret  string
	Reason  string
	Inherit bool
}

// checkLock lets owners through unconditionally. Everyone else must present
// the secret on every request; nothing is remembered between calls.
func (s *Service) checkLock(node *models.Node, callerID int64, secret string) error {
	if node.Lock == nil || node.OwnerID == callerID {
		return nil
	}
	if secret != "" && s.hasher.Verify(secret, node.Lock.SecretHash) {
		return nil
	}
	return &LockedError{
		NodeID:      node.ID,
		LockedAt:    node.Lock.LockedAt,
		Reason:      node.Lock.Reason,
		WrongSecret: secret != "",
	}
}

// Lock locks a node owned by the caller. With Inherit set on a folder the
// lock is copied onto every node below it. Locking a locked node replaces
// its lock.
func (s *Service) Lock(ctx context.Context, callerID int64, nodeID string, req LockRequest) (*models.Node, error) {
	if req.Secret == "" {
		return nil, validationError("lock secret is required")
	}

	start := time.Now()
	affected := 0
	d, err := s.mutateNode(ctx, callerID, nodeID, OpLock, "", func(q store.Querier, d *Decision, out *outbox) error {
		hash, err := s.hasher.Hash(req.Secret)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
		}

		node := d.Node
		lock := &models.Lock{
			SecretHash: hash,
			LockedAt:   s.now(),
			Reason:     strings.TrimSpace(req.Reason),
			Inherit:    req.Inherit && node.IsFolder(),
		}

		affected = 0
		if _, err := q.SetLock(ctx, node.ID, lock); err != nil {
			return err
		}
		affected++

		if lock.Inherit {
			n, err := s.cascadeSetLock(ctx, q, node.ID, lock)
			if err != nil {
				return err
			}
			affected += n
		}

		node.Lock = lock
		return out.record(node.OwnerID, "node_locked", map[string]interface{}{
			"id":       node.ID,
			"inherit":  lock.Inherit,
			"affected": affected,
		})
	})
	if err != nil {
		return nil, err
	}

	cascadeDuration.WithLabelValues("lock").Observe(time.Since(start).Seconds())
	cascadeNodes.WithLabelValues("lock").Add(float64(affected))
	s.logger.Info("node locked",
		zap.Int64("owner_id", d.Node.OwnerID),
		zap.String("root_id", d.Node.ID),
		zap.Bool("inherit", d.Node.Lock.Inherit),
		zap.Int("affected", affected),
	)
	return d.Node, nil
}

// Unlock requires the owner and the secret the node was locked with. A
// folder locked with Inherit unlocks its whole subtree.
func (s *Service) Unlock(ctx context.Context, callerID int64, nodeID string, secret string) (*models.Node, error) {
	start := time.Now()
	affected := 0
	d, err := s.mutateNode(ctx, callerID, nodeID, OpLock, "", func(q store.Querier, d *Decision, out *outbox) error {
		node := d.Node
		if node.Lock == nil {
			return validationError("node %s is not locked", node.ID)
		}
		if secret == "" || !s.hasher.Verify(secret, node.Lock.SecretHash) {
			return ErrInvalidCredential
		}

		affected = 0
		if _, err := q.SetLock(ctx, node.ID, nil); err != nil {
			return err
		}
		affected++

		if node.Lock.Inherit {
			n, err := s.cascadeSetLock(ctx, q, node.ID, nil)
			if err != nil {
				return err
			}
			affected += n
		}

		node.Lock = nil
		return out.record(node.OwnerID, "node_unlocked", map[string]interface{}{
			"id":       node.ID,
			"affected": affected,
		})
	})
	if err != nil {
		return nil, err
	}

	cascadeDuration.WithLabelValues("unlock").Observe(time.Since(start).Seconds())
	cascadeNodes.WithLabelValues("unlock").Add(float64(affected))
	s.logger.Info("node unlocked",
		zap.Int64("owner_id", d.Node.OwnerID),
		zap.String("root_id", d.Node.ID),
		zap.Int("affected", affected),
	)
	return d.Node, nil
}
