package vault

import (
	"context"
	"fmt"
	"iter"

	"lockbox/internal/models"
	"lockbox/internal/store"
)

// IsDescendant reports whether candidateID lies strictly below ancestorID.
// It walks the parent chain upwards, so its cost is the candidate's depth.
func IsDescendant(ctx context.Context, q store.Querier, candidateID, ancestorID string) (bool, error) {
	candidate, err := q.GetNode(ctx, candidateID)
	if err != nil {
		return false, err
	}
	if candidate == nil {
		return false, ErrNotFound
	}

	visited := map[string]bool{candidateID: true}
	parentID := candidate.ParentID
	for parentID != nil {
		if *parentID == ancestorID {
			return true, nil
		}
		if visited[*parentID] {
			return false, fmt.Errorf("%w: %s is its own ancestor", ErrTreeCycle, *parentID)
		}
		visited[*parentID] = true

		parent, err := q.GetNode(ctx, *parentID)
		if err != nil {
			return false, err
		}
		if parent == nil {
			return false, nil
		}
		parentID = parent.ParentID
	}
	return false, nil
}

// Subtree yields every node contained in rootID, excluding the root itself,
// in post-order: a folder is yielded only after all of its contents. The
// traversal uses an explicit stack and reads children lazily, so it can be
// consumed only once.
func Subtree(ctx context.Context, q store.Querier, rootID string) iter.Seq2[models.Node, error] {
	return func(yield func(models.Node, error) bool) {
		type frame struct {
			node     models.Node
			expanded bool
		}

		visited := map[string]bool{rootID: true}
		var stack []frame

		push := func(folderID string) error {
			children, err := q.ListChildren(ctx, folderID)
			if err != nil {
				return err
			}
			for i := len(children) - 1; i >= 0; i-- {
				child := children[i]
				if visited[child.ID] {
					return fmt.Errorf("%w: %s reached twice", ErrTreeCycle, child.ID)
				}
				visited[child.ID] = true
				stack = append(stack, frame{node: child})
			}
			return nil
		}

		if err := push(rootID); err != nil {
			yield(models.Node{}, err)
			return
		}

		for len(stack) > 0 {
			if err := ctx.Err(); err != nil {
				yield(models.Node{}, err)
				return
			}

			top := len(stack) - 1
			if stack[top].node.IsFolder() && !stack[top].expanded {
				stack[top].expanded = true
				if err := push(stack[top].node.ID); err != nil {
					yield(models.Node{}, err)
					return
				}
				continue
			}

			node := stack[top].node
			stack = stack[:top]
			if !yield(node, nil) {
				return
			}
		}
	}
}

// collectSubtree drains Subtree before the caller starts writing, so every
// child listing runs against a transaction without pending writes.
func collectSubtree(ctx context.Context, q store.Querier, rootID string) ([]models.Node, error) {
	var nodes []models.Node
	for node, err := range Subtree(ctx, q, rootID) {
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}
