package vault

import (
	"context"
	"errors"
	"fmt"

	"lockbox/internal/models"
	"lockbox/internal/store"

	"github.com/google/uuid"
)

type ShareRequest struct {
	ItemID     string
	ItemKind   string
	GranteeID  int64
	Permission string
}

// Share grants another user view or edit access to exactly one node. Sharing
// the same node with the same user again replaces the permission.
func (s *Service) Share(ctx context.Context, callerID int64, req ShareRequest) (*models.Share, error) {
	if req.Permission == "" {
		req.Permission = models.PermissionView
	}
	if !models.ValidPermission(req.Permission) {
		return nil, validationError("permission must be %q or %q", models.PermissionView, models.PermissionEdit)
	}
	if req.ItemKind != models.NodeTypeFile && req.ItemKind != models.NodeTypeFolder {
		return nil, validationError("item kind must be %q or %q", models.NodeTypeFile, models.NodeTypeFolder)
	}

	var share *models.Share
	_, err := s.mutateNode(ctx, callerID, req.ItemID, OpShare, "", func(q store.Querier, d *Decision, out *outbox) error {
		node := d.Node
		if node.NodeType != req.ItemKind {
			return validationError("node %s is a %s, not a %s", node.ID, node.NodeType, req.ItemKind)
		}
		if req.GranteeID == node.OwnerID {
			return validationError("cannot share a node with its owner")
		}

		grantee, err := q.GetUserByID(ctx, req.GranteeID)
		if err != nil {
			return err
		}
		if grantee == nil {
			return fmt.Errorf("grantee %d: %w", req.GranteeID, ErrNotFound)
		}

		share, err = q.UpsertShare(ctx, store.UpsertShareParams{
			ID:         uuid.New(),
			ItemID:     node.ID,
			ItemKind:   node.NodeType,
			OwnerID:    node.OwnerID,
			GranteeID:  grantee.ID,
			Permission: req.Permission,
		})
		if err != nil {
			if errors.Is(err, store.ErrDanglingReference) {
				return ErrNotFound
			}
			return err
		}

		if err := out.record(node.OwnerID, "share_created", share); err != nil {
			return err
		}
		return out.record(grantee.ID, "share_received", share)
	})
	if err != nil {
		return nil, err
	}
	return share, nil
}

// RevokeShare removes a grant. Only the owner who issued it may revoke it.
func (s *Service) RevokeShare(ctx context.Context, callerID int64, shareID uuid.UUID) error {
	share, err := s.store.GetShareByID(ctx, shareID)
	if err != nil {
		return err
	}
	if share == nil {
		return ErrNotFound
	}
	if share.OwnerID != callerID {
		return ErrForbidden
	}

	return s.withOwnerTree(ctx, share.OwnerID, func(q store.Querier, out *outbox) error {
		ok, err := q.DeleteShare(ctx, shareID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		if err := out.record(share.OwnerID, "share_revoked", share); err != nil {
			return err
		}
		return out.record(share.GranteeID, "share_revoked", share)
	})
}

type SharedItem struct {
	Share     models.Share `json:"share"`
	Node      models.Node  `json:"node"`
	OwnerName string       `json:"owner_name"`
}

// ListSharedWithMe lists nodes other users granted to the caller. Inline
// content of locked nodes is withheld; it needs a secret to read.
func (s *Service) ListSharedWithMe(ctx context.Context, callerID int64) ([]SharedItem, error) {
	shares, err := s.store.ListSharesForGrantee(ctx, callerID)
	if err != nil {
		return nil, err
	}

	owners := make(map[int64]string)
	items := make([]SharedItem, 0, len(shares))
	for _, share := range shares {
		node, err := s.store.GetNode(ctx, share.ItemID)
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}
		if node.IsLocked() {
			node.Content = nil
		}

		name, ok := owners[share.OwnerID]
		if !ok {
			owner, err := s.store.GetUserByID(ctx, share.OwnerID)
			if err != nil {
				return nil, err
			}
			if owner != nil {
				name = owner.Username
			}
			owners[share.OwnerID] = name
		}

		items = append(items, SharedItem{Share: share, Node: *node, OwnerName: name})
	}
	return items, nil
}

type OutgoingShare struct {
	models.Share
	NodeName    string `json:"node_name"`
	GranteeName string `json:"grantee_name"`
}

func (s *Service) ListOutgoingShares(ctx context.Context, callerID int64) ([]OutgoingShare, error) {
	shares, err := s.store.ListSharesByOwner(ctx, callerID)
	if err != nil {
		return nil, err
	}

	result := make([]OutgoingShare, 0, len(shares))
	for _, share := range shares {
		out := OutgoingShare{Share: share}

		node, err := s.store.GetNode(ctx, share.ItemID)
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}
		out.NodeName = node.Name

		grantee, err := s.store.GetUserByID(ctx, share.GranteeID)
		if err != nil {
			return nil, err
		}
		if grantee != nil {
			out.GranteeName = grantee.Username
		}

		result = append(result, out)
	}
	return result, nil
}
