package vault

import (
	"context"
	"slices"
	"strings"

	"lockbox/internal/models"
)

const previewLength = 100

// ListChildren lists the caller's root when parentID is nil, otherwise the
// contents of a folder the caller may read. A grant on the folder shows its
// entries but nothing the entries themselves guard: grantees get neither
// inline content nor lock details.
func (s *Service) ListChildren(ctx context.Context, callerID int64, parentID *string, secret string) ([]models.Node, error) {
	if parentID == nil {
		return s.store.ListRootNodes(ctx, callerID)
	}

	d, err := s.authorize(ctx, s.store, callerID, *parentID, OpRead, secret)
	if err != nil {
		return nil, err
	}
	if !d.Node.IsFolder() {
		return nil, validationError("node %s is not a folder", d.Node.ID)
	}

	children, err := s.store.ListChildren(ctx, d.Node.ID)
	if err != nil {
		return nil, err
	}
	if d.Access != AccessOwner {
		for i := range children {
			children[i].Content = nil
			children[i].Lock = nil
		}
	}
	return children, nil
}

// ListFolders returns all of the caller's folders, newest first.
func (s *Service) ListFolders(ctx context.Context, callerID int64) ([]models.Node, error) {
	nodes, err := s.store.ListNodesByOwner(ctx, callerID)
	if err != nil {
		return nil, err
	}

	folders := make([]models.Node, 0)
	for _, node := range nodes {
		if node.IsFolder() {
			folders = append(folders, node)
		}
	}
	sortNewestFirst(folders)
	return folders, nil
}

// ListByCategory returns the caller's files of one category, optionally
// restricted to one folder and filtered by a case-insensitive search over
// the name, and over the text of notes.
func (s *Service) ListByCategory(ctx context.Context, callerID int64, category string, folderID *string, search string) ([]models.Node, error) {
	cat, ok := models.ParseCategory(category)
	if !ok {
		return nil, validationError("unknown category %q", category)
	}

	if folderID != nil {
		folder, err := s.store.GetNode(ctx, *folderID)
		if err != nil {
			return nil, err
		}
		if folder == nil {
			return nil, ErrNotFound
		}
		if folder.OwnerID != callerID {
			return nil, ErrForbidden
		}
		if !folder.IsFolder() {
			return nil, validationError("node %s is not a folder", folder.ID)
		}
	}

	nodes, err := s.store.ListNodesByOwner(ctx, callerID)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(search))
	files := make([]models.Node, 0)
	for _, node := range nodes {
		if node.IsFolder() || node.Category() != cat {
			continue
		}
		if folderID != nil && (node.ParentID == nil || *node.ParentID != *folderID) {
			continue
		}
		if needle != "" && !matches(&node, needle) {
			continue
		}
		files = append(files, node)
	}
	sortNewestFirst(files)
	return files, nil
}

func matches(node *models.Node, needle string) bool {
	if strings.Contains(strings.ToLower(node.Name), needle) {
		return true
	}
	return node.Category() == models.CategoryNote && node.Content != nil &&
		strings.Contains(strings.ToLower(*node.Content), needle)
}

type FileSummary struct {
	models.Node
	Preview string `json:"preview,omitempty"`
}

type OrganizedFiles struct {
	Images []FileSummary `json:"images"`
	PDFs   []FileSummary `json:"pdfs"`
	Notes  []FileSummary `json:"notes"`
	Other  []FileSummary `json:"other"`
}

// ListOrganized groups all of the caller's files by category. Notes carry a
// short preview instead of their full text.
func (s *Service) ListOrganized(ctx context.Context, callerID int64) (*OrganizedFiles, error) {
	nodes, err := s.store.ListNodesByOwner(ctx, callerID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(nodes)

	result := &OrganizedFiles{
		Images: []FileSummary{},
		PDFs:   []FileSummary{},
		Notes:  []FileSummary{},
		Other:  []FileSummary{},
	}
	for _, node := range nodes {
		if node.IsFolder() {
			continue
		}
		summary := FileSummary{Node: node}
		switch node.Category() {
		case models.CategoryImage:
			result.Images = append(result.Images, summary)
		case models.CategoryPDF:
			result.PDFs = append(result.PDFs, summary)
		case models.CategoryNote:
			if node.Content != nil {
				summary.Preview = preview(*node.Content)
			}
			summary.Content = nil
			result.Notes = append(result.Notes, summary)
		default:
			result.Other = append(result.Other, summary)
		}
	}
	return result, nil
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength])
}

func sortNewestFirst(nodes []models.Node) {
	slices.SortStableFunc(nodes, func(a, b models.Node) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

func (s *Service) Events(ctx context.Context, callerID int64, sinceID int64) ([]models.Event, error) {
	return s.store.GetEventsSince(ctx, callerID, sinceID)
}
