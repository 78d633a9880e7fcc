package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PermissionView = "view"
	PermissionEdit = "edit"
)

type Share struct {
	ID         uuid.UUID `json:"id"`
	ItemID     string    `json:"item_id"`
	ItemKind   string    `json:"item_kind"`
	OwnerID    int64     `json:"owner_id"`
	GranteeID  int64     `json:"grantee_id"`
	Permission string    `json:"permission"`
	SharedAt   time.Time `json:"shared_at"`
}

func ValidPermission(p string) bool {
	return p == PermissionView || p == PermissionEdit
}
