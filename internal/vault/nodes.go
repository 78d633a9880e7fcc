package vault

import (
	"context"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"lockbox/internal/models"
	"lockbox/internal/store"

	"go.uber.org/zap"
)

const maxNameLength = 255

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationError("name cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", validationError("name is longer than %d characters", maxNameLength)
	}
	return name, nil
}

// createNode inserts arg for the caller. A parent must be one of the caller's
// folders; a parent locked with Inherit passes its lock on to the new node.
func (s *Service) createNode(ctx context.Context, callerID int64, arg store.CreateNodeParams) (*models.Node, error) {
	name, err := validateName(arg.Name)
	if err != nil {
		return nil, err
	}
	arg.Name = name
	arg.OwnerID = callerID

	var node *models.Node
	err = s.withOwnerTree(ctx, callerID, func(q store.Querier, out *outbox) error {
		params := arg
		if params.ParentID != nil {
			parent, err := q.GetNode(ctx, *params.ParentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return ErrNotFound
			}
			if parent.OwnerID != callerID {
				return ErrForbidden
			}
			if !parent.IsFolder() {
				return validationError("parent %s is not a folder", parent.ID)
			}
			if parent.Lock != nil && parent.Lock.Inherit {
				params.Lock = parent.Lock.InheritedBy(params.NodeType)
			}
		}

		if params.ID == "" {
			id, err := s.generateUniqueID(ctx, q)
			if err != nil {
				return err
			}
			params.ID = id
		}

		created, err := q.CreateNode(ctx, params)
		if err != nil {
			if errors.Is(err, store.ErrDanglingReference) {
				return ErrNotFound
			}
			return err
		}
		node = created
		return out.record(callerID, "node_created", node)
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

func (s *Service) CreateFolder(ctx context.Context, callerID int64, name string, parentID *string) (*models.Node, error) {
	return s.createNode(ctx, callerID, store.CreateNodeParams{
		ParentID: parentID,
		Name:     name,
		NodeType: models.NodeTypeFolder,
	})
}

// CreateNote stores text inline as a text/plain file.
func (s *Service) CreateNote(ctx context.Context, callerID int64, title, content string, parentID *string) (*models.Node, error) {
	mimeType := models.MimeTypeNote
	size := int64(len(content))
	return s.createNode(ctx, callerID, store.CreateNodeParams{
		ParentID:  parentID,
		Name:      title,
		NodeType:  models.NodeTypeFile,
		Content:   &content,
		SizeBytes: &size,
		MimeType:  &mimeType,
	})
}

type UploadParams struct {
	Name     string
	MimeType string
	Size     int64
	Data     io.Reader
	ParentID *string
}

// UploadFile writes the bytes to blob storage before recording the node and
// removes them again if the node cannot be created.
func (s *Service) UploadFile(ctx context.Context, callerID int64, p UploadParams) (*models.Node, error) {
	if _, err := validateName(p.Name); err != nil {
		return nil, err
	}

	ref := s.newID()
	if err := s.blobs.Save(ctx, ref, p.Data); err != nil {
		return nil, err
	}

	mimeType := p.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	size := p.Size

	node, err := s.createNode(ctx, callerID, store.CreateNodeParams{
		ID:         ref,
		ParentID:   p.ParentID,
		Name:       p.Name,
		NodeType:   models.NodeTypeFile,
		StorageRef: &ref,
		SizeBytes:  &size,
		MimeType:   &mimeType,
	})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, ref); delErr != nil {
			s.logger.Warn("failed to remove orphaned blob", zap.String("storage_ref", ref), zap.Error(delErr))
		}
		return nil, err
	}
	return node, nil
}

func (s *Service) Get(ctx context.Context, callerID int64, nodeID, secret string) (*models.Node, error) {
	d, err := s.authorize(ctx, s.store, callerID, nodeID, OpRead, secret)
	if err != nil {
		return nil, err
	}
	return d.Node, nil
}

// OpenContent returns the bytes of a file, from blob storage or inline.
func (s *Service) OpenContent(ctx context.Context, callerID int64, nodeID, secret string) (*models.Node, io.ReadCloser, error) {
	d, err := s.authorize(ctx, s.store, callerID, nodeID, OpRead, secret)
	if err != nil {
		return nil, nil, err
	}
	node := d.Node
	if node.IsFolder() {
		return nil, nil, validationError("cannot read content of a folder")
	}

	if node.StorageRef != nil {
		rc, err := s.blobs.Get(ctx, *node.StorageRef)
		if err != nil {
			return nil, nil, err
		}
		return node, rc, nil
	}

	var content string
	if node.Content != nil {
		content = *node.Content
	}
	return node, io.NopCloser(strings.NewReader(content)), nil
}

func (s *Service) RenderNote(ctx context.Context, callerID int64, nodeID, secret string) ([]byte, error) {
	d, err := s.authorize(ctx, s.store, callerID, nodeID, OpRead, secret)
	if err != nil {
		return nil, err
	}
	if !d.Node.IsNote() {
		return nil, validationError("node %s is not a note", nodeID)
	}
	return s.renderer.Render([]byte(*d.Node.Content))
}

func (s *Service) UpdateNoteContent(ctx context.Context, callerID int64, nodeID, content, secret string) (*models.Node, error) {
	d, err := s.mutateNode(ctx, callerID, nodeID, OpWrite, secret, func(q store.Querier, d *Decision, out *outbox) error {
		if !d.Node.IsNote() {
			return validationError("node %s is not a note", nodeID)
		}
		if _, err := q.UpdateContent(ctx, nodeID, content); err != nil {
			return err
		}
		return s.reload(ctx, q, d, out, "node_updated")
	})
	if err != nil {
		return nil, err
	}
	return d.Node, nil
}

func (s *Service) Rename(ctx context.Context, callerID int64, nodeID, name, secret string) (*models.Node, error) {
	return s.Update(ctx, callerID, nodeID, UpdateParams{Name: &name}, secret)
}

func (s *Service) ToggleFavorite(ctx context.Context, callerID int64, nodeID, secret string) (*models.Node, error) {
	d, err := s.mutateNode(ctx, callerID, nodeID, OpWrite, secret, func(q store.Querier, d *Decision, out *outbox) error {
		if _, err := q.SetFavorite(ctx, nodeID, !d.Node.IsFavorite); err != nil {
			return err
		}
		return s.reload(ctx, q, d, out, "node_updated")
	})
	if err != nil {
		return nil, err
	}
	return d.Node, nil
}

// Move reparents a node. See UpdateParams for the rules on the destination.
func (s *Service) Move(ctx context.Context, callerID int64, nodeID string, newParentID *string, secret string) (*models.Node, error) {
	return s.Update(ctx, callerID, nodeID, UpdateParams{Move: true, ParentID: newParentID}, secret)
}

// UpdateParams describes a rename, a move or both. With Move set the node
// goes into ParentID, or to the owner's root when ParentID is nil. The
// destination must be a folder of the same owner that the caller may write
// to, and never the node itself or anything below it. Moving into a folder
// locked with inherit locks the node and its subtree the same way the
// folder's own cascade would; moving out never unlocks anything.
type UpdateParams struct {
	Name     *string
	Move     bool
	ParentID *string
}

// Update applies p in a single transaction, so a failed move leaves the
// name untouched as well.
func (s *Service) Update(ctx context.Context, callerID int64, nodeID string, p UpdateParams, secret string) (*models.Node, error) {
	if p.Name == nil && !p.Move {
		return nil, validationError("nothing to update")
	}
	var name string
	if p.Name != nil {
		valid, err := validateName(*p.Name)
		if err != nil {
			return nil, err
		}
		name = valid
	}

	d, err := s.mutateNode(ctx, callerID, nodeID, OpWrite, secret, func(q store.Querier, d *Decision, out *outbox) error {
		if p.Name != nil {
			if _, err := q.RenameNode(ctx, nodeID, name); err != nil {
				return err
			}
		}
		if !p.Move {
			return s.reload(ctx, q, d, out, "node_updated")
		}
		if err := s.move(ctx, q, callerID, d, p.ParentID, secret); err != nil {
			return err
		}
		return s.reload(ctx, q, d, out, "node_moved")
	})
	if err != nil {
		return nil, err
	}
	return d.Node, nil
}

func (s *Service) move(ctx context.Context, q store.Querier, callerID int64, d *Decision, newParentID *string, secret string) error {
	node := d.Node
	var inherited *models.Lock

	if newParentID == nil {
		if d.Access != AccessOwner {
			return ErrForbidden
		}
	} else {
		if *newParentID == node.ID {
			return validationError("cannot move a node into itself")
		}
		dest, err := s.authorize(ctx, q, callerID, *newParentID, OpWrite, secret)
		if err != nil {
			return err
		}
		if !dest.Node.IsFolder() {
			return validationError("destination %s is not a folder", dest.Node.ID)
		}
		if dest.Node.OwnerID != node.OwnerID {
			return validationError("cannot move a node into another user's folder")
		}
		if node.IsFolder() {
			below, err := IsDescendant(ctx, q, dest.Node.ID, node.ID)
			if err != nil {
				return err
			}
			if below {
				return validationError("cannot move a folder into its own descendant")
			}
		}
		if dest.Node.Lock != nil && dest.Node.Lock.Inherit {
			inherited = dest.Node.Lock.InheritedBy(node.NodeType)
		}
	}

	if _, err := q.MoveNode(ctx, node.ID, newParentID); err != nil {
		return err
	}
	if inherited == nil {
		return nil
	}
	if _, err := q.SetLock(ctx, node.ID, inherited); err != nil {
		return err
	}
	if inherited.Inherit {
		if _, err := s.cascadeSetLock(ctx, q, node.ID, inherited); err != nil {
			return err
		}
	}
	return nil
}

// Duplicate copies a file as "Copy of <name>". The owner's copy lands next
// to the original; anyone else gets the copy at the root of their own tree.
func (s *Service) Duplicate(ctx context.Context, callerID int64, nodeID, secret string) (*models.Node, error) {
	d, err := s.authorize(ctx, s.store, callerID, nodeID, OpRead, secret)
	if err != nil {
		return nil, err
	}
	src := d.Node
	if src.IsFolder() {
		return nil, validationError("only files can be duplicated")
	}

	arg := store.CreateNodeParams{
		Name:      "Copy of " + src.Name,
		NodeType:  models.NodeTypeFile,
		Content:   src.Content,
		SizeBytes: src.SizeBytes,
		MimeType:  src.MimeType,
	}
	if d.Access == AccessOwner {
		arg.ParentID = src.ParentID
	}

	if src.StorageRef != nil {
		ref := s.newID()
		rc, err := s.blobs.Get(ctx, *src.StorageRef)
		if err != nil {
			return nil, err
		}
		err = s.blobs.Save(ctx, ref, rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		arg.ID = ref
		arg.StorageRef = &ref
	}

	node, err := s.createNode(ctx, callerID, arg)
	if err != nil {
		if arg.StorageRef != nil {
			if delErr := s.blobs.Delete(ctx, *arg.StorageRef); delErr != nil {
				s.logger.Warn("failed to remove orphaned blob", zap.String("storage_ref", *arg.StorageRef), zap.Error(delErr))
			}
		}
		return nil, err
	}
	return node, nil
}

// reload refreshes d.Node after an update and journals it.
func (s *Service) reload(ctx context.Context, q store.Querier, d *Decision, out *outbox, eventType string) error {
	node, err := q.GetNode(ctx, d.Node.ID)
	if err != nil {
		return err
	}
	if node == nil {
		return ErrNotFound
	}
	d.Node = node
	return out.record(node.OwnerID, eventType, node)
}
