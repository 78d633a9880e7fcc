package vault

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"lockbox/internal/models"
)

type archiveEntry struct {
	path string
	node models.Node
}

// Archive is a folder tree resolved for download. Nothing is read from blob
// storage until Write.
type Archive struct {
	Name    string
	entries []archiveEntry
	blobs   BlobStore
}

// PrepareArchive resolves the tree below a folder for a zip download. Grants
// do not reach below the folder they name, so only the owner may archive.
func (s *Service) PrepareArchive(ctx context.Context, callerID int64, folderID string) (*Archive, error) {
	d, err := s.authorize(ctx, s.store, callerID, folderID, OpRead, "")
	if err != nil {
		return nil, err
	}
	if d.Access != AccessOwner {
		return nil, ErrForbidden
	}
	if !d.Node.IsFolder() {
		return nil, validationError("only folders can be archived")
	}

	nodes, err := collectSubtree(ctx, s.store, folderID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Node, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &nodes[i]
	}

	paths := map[string]string{folderID: ""}
	taken := map[string]bool{}
	var resolve func(n *models.Node) string
	resolve = func(n *models.Node) string {
		if p, ok := paths[n.ID]; ok {
			return p
		}
		parent := ""
		if n.ParentID != nil {
			if pn, ok := byID[*n.ParentID]; ok {
				parent = resolve(pn)
			}
		}
		p := uniquePath(taken, path.Join(parent, entryName(n)))
		paths[n.ID] = p
		return p
	}

	// Subtree is post-order; parents first reads better in an archive.
	entries := make([]archiveEntry, 0, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		entries = append(entries, archiveEntry{path: resolve(&nodes[i]), node: nodes[i]})
	}

	return &Archive{Name: d.Node.Name, entries: entries, blobs: s.blobs}, nil
}

// entryName keeps zip paths flat per level; notes get a .md suffix when their
// title has no extension.
func entryName(n *models.Node) string {
	name := strings.ReplaceAll(n.Name, "/", "_")
	if n.IsNote() && path.Ext(name) == "" {
		name += ".md"
	}
	return name
}

func uniquePath(taken map[string]bool, p string) string {
	candidate := p
	ext := path.Ext(p)
	base := strings.TrimSuffix(p, ext)
	for i := 2; taken[candidate]; i++ {
		candidate = fmt.Sprintf("%s (%d)%s", base, i, ext)
	}
	taken[candidate] = true
	return candidate
}

// Write streams the archive as zip. An error leaves w holding a truncated
// archive.
func (a *Archive) Write(ctx context.Context, w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, e := range a.entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.writeEntry(ctx, zw, e); err != nil {
			return fmt.Errorf("failed to archive %s: %w", e.node.ID, err)
		}
	}
	return zw.Close()
}

func (a *Archive) writeEntry(ctx context.Context, zw *zip.Writer, e archiveEntry) error {
	header := &zip.FileHeader{
		Name:     e.path,
		Method:   zip.Deflate,
		Modified: e.node.ModifiedAt,
	}
	if e.node.IsFolder() {
		header.Name += "/"
		header.Method = zip.Store
		_, err := zw.CreateHeader(header)
		return err
	}

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	if e.node.StorageRef == nil {
		var content string
		if e.node.Content != nil {
			content = *e.node.Content
		}
		_, err := io.WriteString(dst, content)
		return err
	}

	src, err := a.blobs.Get(ctx, *e.node.StorageRef)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(dst, src)
	return err
}

// Len reports how many nodes the archive holds.
func (a *Archive) Len() int {
	return len(a.entries)
}
