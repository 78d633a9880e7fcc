package models

import "time"

const (
	NodeTypeFile   = "file"
	NodeTypeFolder = "folder"
)

type Node struct {
	ID         string    `json:"id"`
	OwnerID    int64     `json:"owner_id"`
	ParentID   *string   `json:"parent_id"`
	Name       string    `json:"name"`
	NodeType   string    `json:"node_type"`
	Content    *string   `json:"content,omitempty"`
	StorageRef *string   `json:"-"`
	SizeBytes  *int64    `json:"size_bytes"`
	MimeType   *string   `json:"mime_type"`
	IsFavorite bool      `json:"is_favorite"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Lock       *Lock     `json:"lock,omitempty"`
}

// Lock is present on a node only while it is locked. A nil Lock means the
// node is unlocked, so a secret hash can never exist without a lock.
type Lock struct {
	SecretHash string    `json:"-"`
	LockedAt   time.Time `json:"locked_at"`
	Reason     string    `json:"reason,omitempty"`
	Inherit    bool      `json:"inherit"`
}

func (n *Node) IsFolder() bool {
	return n.NodeType == NodeTypeFolder
}

func (n *Node) IsLocked() bool {
	return n.Lock != nil
}

// IsNote reports whether the node is a file carrying inline text.
func (n *Node) IsNote() bool {
	return n.NodeType == NodeTypeFile && n.Content != nil
}

// Category is derived from the mime type and never stored. Folders have none.
func (n *Node) Category() Category {
	if n.IsFolder() {
		return ""
	}
	if n.MimeType == nil {
		return CategoryOther
	}
	return CategoryOf(*n.MimeType)
}

// InheritedBy returns the lock a new or nested node receives from this lock.
// Only folders carry the inherit flag.
func (l *Lock) InheritedBy(nodeType string) *Lock {
	return &Lock{
		SecretHash: l.SecretHash,
		LockedAt:   l.LockedAt,
		Reason:     l.Reason,
		Inherit:    nodeType == NodeTypeFolder,
	}
}
