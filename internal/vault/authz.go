package vault

import (
	"context"

	"lockbox/internal/models"
	"lockbox/internal/store"
)

type Operation int

const (
	OpRead Operation = iota
	OpWrite
	OpDelete
	OpShare
	OpLock
)

func (o Operation) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpDelete:
		return "delete"
	case OpShare:
		return "share"
	case OpLock:
		return "lock"
	}
	return "unknown"
}

// Access is the caller's effective relationship to a node.
type Access int

const (
	AccessDenied Access = iota
	AccessViewer
	AccessEditor
	AccessOwner
)

func (a Access) String() string {
	switch a {
	case AccessViewer:
		return "viewer"
	case AccessEditor:
		return "editor"
	case AccessOwner:
		return "owner"
	}
	return "denied"
}

func (a Access) Allows(op Operation) bool {
	switch a {
	case AccessOwner:
		return true
	case AccessEditor:
		return op == OpRead || op == OpWrite
	case AccessViewer:
		return op == OpRead
	}
	return false
}

// grantAccess maps a direct grant to an access level. Grants never cover
// anything but the exact node they name.
func grantAccess(node *models.Node, share *models.Share) Access {
	if share == nil || share.OwnerID != node.OwnerID {
		return AccessDenied
	}
	switch share.Permission {
	case models.PermissionEdit:
		return AccessEditor
	case models.PermissionView:
		return AccessViewer
	}
	return AccessDenied
}

type Decision struct {
	Node   *models.Node
	Access Access
}

// Authorize resolves whether callerID may perform op on nodeID. Owners are
// always allowed and never need a lock secret. Anyone else needs a grant on
// the node itself, and for a locked node the matching secret as well.
func (s *Service) Authorize(ctx context.Context, callerID int64, nodeID string, op Operation, secret string) (*Decision, error) {
	return s.authorize(ctx, s.store, callerID, nodeID, op, secret)
}

func (s *Service) authorize(ctx context.Context, q store.Querier, callerID int64, nodeID string, op Operation, secret string) (*Decision, error) {
	d, err := s.decide(ctx, q, callerID, nodeID, op, secret)
	accessDecisions.WithLabelValues(op.String(), decisionResult(err)).Inc()
	return d, err
}

func (s *Service) decide(ctx context.Context, q store.Querier, callerID int64, nodeID string, op Operation, secret string) (*Decision, error) {
	node, err := q.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, ErrNotFound
	}

	if node.OwnerID == callerID {
		return &Decision{Node: node, Access: AccessOwner}, nil
	}

	share, err := q.GetShareForGrantee(ctx, nodeID, callerID)
	if err != nil {
		return nil, err
	}

	access := grantAccess(node, share)
	if !access.Allows(op) {
		return nil, ErrForbidden
	}

	if err := s.checkLock(node, callerID, secret); err != nil {
		return nil, err
	}

	return &Decision{Node: node, Access: access}, nil
}
