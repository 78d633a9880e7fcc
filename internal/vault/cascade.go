package vault

import (
	"context"
	"fmt"
	"time"

	"lockbox/internal/models"
	"lockbox/internal/store"

	"go.uber.org/zap"
)

// cascadeSetLock applies lock below rootID; a nil lock clears it. Each node
// receives the lock as inherited by its own kind.
func (s *Service) cascadeSetLock(ctx context.Context, q store.Querier, rootID string, lock *models.Lock) (int, error) {
	nodes, err := collectSubtree(ctx, q, rootID)
	if err != nil {
		return 0, err
	}

	affected := 0
	for _, node := range nodes {
		var nodeLock *models.Lock
		if lock != nil {
			nodeLock = lock.InheritedBy(node.NodeType)
		}
		if _, err := q.SetLock(ctx, node.ID, nodeLock); err != nil {
			return affected, fmt.Errorf("failed to update lock on %s: %w", node.ID, err)
		}
		affected++
	}
	return affected, nil
}

// Delete removes a node. A folder goes together with everything below it,
// children before parents, along with every share grant on the removed
// nodes. The whole cascade is one transaction; if it stops part way the
// error is a *PartialDeleteError.
func (s *Service) Delete(ctx context.Context, callerID int64, nodeID string) error {
	root, err := s.store.GetNode(ctx, nodeID)
	if err != nil {
		return err
	}
	if root == nil {
		accessDecisions.WithLabelValues(OpDelete.String(), decisionResult(ErrNotFound)).Inc()
		return ErrNotFound
	}

	start := time.Now()
	var removed, blobs []string
	var failedID string
	removing := false

	err = s.withOwnerTree(ctx, root.OwnerID, func(q store.Querier, out *outbox) error {
		removed, blobs, failedID, removing = nil, nil, "", false

		d, err := s.authorize(ctx, q, callerID, nodeID, OpDelete, "")
		if err != nil {
			return err
		}
		nodes, err := collectSubtree(ctx, q, nodeID)
		if err != nil {
			return err
		}
		removing = true

		remove := func(node *models.Node) error {
			if _, err := q.DeleteSharesForNode(ctx, node.ID); err != nil {
				failedID = node.ID
				return err
			}
			ok, err := q.DeleteNode(ctx, node.ID)
			if err != nil {
				failedID = node.ID
				return err
			}
			if !ok {
				failedID = node.ID
				return fmt.Errorf("%w: %s disappeared during delete", ErrNotFound, node.ID)
			}
			removed = append(removed, node.ID)
			if node.StorageRef != nil {
				blobs = append(blobs, *node.StorageRef)
			}
			return nil
		}

		for i := range nodes {
			if err := remove(&nodes[i]); err != nil {
				return err
			}
		}
		if err := remove(d.Node); err != nil {
			return err
		}

		return out.record(root.OwnerID, "node_deleted", map[string]interface{}{
			"id":      nodeID,
			"removed": removed,
		})
	})
	if err != nil {
		if !removing {
			return err
		}
		partialDeletes.Inc()
		s.logger.Error("recursive delete aborted",
			zap.Int64("owner_id", root.OwnerID),
			zap.String("root_id", nodeID),
			zap.String("failed_id", failedID),
			zap.Strings("removed", removed),
			zap.Error(err),
		)
		return &PartialDeleteError{
			RootID:     nodeID,
			Removed:    removed,
			FailedID:   failedID,
			RolledBack: true,
			Err:        err,
		}
	}

	cascadeDuration.WithLabelValues("delete").Observe(time.Since(start).Seconds())
	cascadeNodes.WithLabelValues("delete").Add(float64(len(removed)))

	for _, ref := range blobs {
		if err := s.blobs.Delete(ctx, ref); err != nil {
			s.logger.Warn("failed to delete blob", zap.String("storage_ref", ref), zap.Error(err))
		}
	}

	s.logger.Info("node deleted",
		zap.Int64("owner_id", root.OwnerID),
		zap.String("root_id", nodeID),
		zap.Int("affected", len(removed)),
	)
	return nil
}
