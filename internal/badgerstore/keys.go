package badgerstore

import (
	"fmt"
	"strconv"
)

// Key layout:
//
//	n:<nodeID>                 node record
//	c:<parentID>:<nodeID>      child index
//	cc:<folderID>              number of children, absent when zero
//	r:<ownerID>:<nodeID>       root index (nodes without a parent)
//	o:<ownerID>:<nodeID>       owner index
//	s:<shareID>                share record
//	sg:<granteeID>:<itemID>    grant lookup, value is the share id
//	so:<ownerID>:<shareID>     outgoing shares
//	si:<itemID>                share ids on an item, JSON list
//	u:<userID>                 user record
//	un:<username>              username lookup, value is the user id
//	e:<userID>:<eventID>       event journal, ids zero padded
const (
	prefixNode         = "n:"
	prefixChild        = "c:"
	prefixChildCount   = "cc:"
	prefixRoot         = "r:"
	prefixOwner        = "o:"
	prefixShare        = "s:"
	prefixShareGrantee = "sg:"
	prefixShareOwner   = "so:"
	prefixShareItem    = "si:"
	prefixUser         = "u:"
	prefixUsername     = "un:"
	prefixEvent        = "e:"

	seqUsers  = "seq:users"
	seqEvents = "seq:events"
)

func itoa(i int64) string {
	return strconv.FormatInt(i, 10)
}

func keyNode(id string) []byte {
	return []byte(prefixNode + id)
}

func keyChildPrefix(parentID string) []byte {
	return []byte(prefixChild + parentID + ":")
}

func keyChildCount(folderID string) []byte {
	return []byte(prefixChildCount + folderID)
}

func keyRootPrefix(ownerID int64) []byte {
	return []byte(prefixRoot + itoa(ownerID) + ":")
}

// keyPlacement is the index entry that places a node in its parent folder,
// or at the owner's root.
func keyPlacement(ownerID int64, parentID *string, id string) []byte {
	if parentID == nil {
		return append(keyRootPrefix(ownerID), id...)
	}
	return append(keyChildPrefix(*parentID), id...)
}

func keyOwnerPrefix(ownerID int64) []byte {
	return []byte(prefixOwner + itoa(ownerID) + ":")
}

func keyOwner(ownerID int64, id string) []byte {
	return append(keyOwnerPrefix(ownerID), id...)
}

func keyShare(id string) []byte {
	return []byte(prefixShare + id)
}

func keyShareGranteePrefix(granteeID int64) []byte {
	return []byte(prefixShareGrantee + itoa(granteeID) + ":")
}

func keyShareGrantee(granteeID int64, itemID string) []byte {
	return append(keyShareGranteePrefix(granteeID), itemID...)
}

func keyShareOwnerPrefix(ownerID int64) []byte {
	return []byte(prefixShareOwner + itoa(ownerID) + ":")
}

func keyShareOwner(ownerID int64, shareID string) []byte {
	return append(keyShareOwnerPrefix(ownerID), shareID...)
}

func keyShareItem(itemID string) []byte {
	return []byte(prefixShareItem + itemID)
}

func keyUser(id int64) []byte {
	return []byte(prefixUser + itoa(id))
}

func keyUsername(username string) []byte {
	return []byte(prefixUsername + username)
}

func keyEventPrefix(userID int64) []byte {
	return []byte(prefixEvent + itoa(userID) + ":")
}

func keyEvent(userID, eventID int64) []byte {
	return append(keyEventPrefix(userID), fmt.Sprintf("%020d", eventID)...)
}
